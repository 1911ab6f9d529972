package subscription

// Transition represents a valid state transition.
type Transition struct {
	From Status
	To   Status
}

// validTransitions defines all allowed state transitions.
var validTransitions = map[Transition]bool{
	{StatusUninitialized, StatusInitializing}: true, // First mount
	{StatusInitializing, StatusReady}:         true, // Handshake succeeded
	{StatusInitializing, StatusMock}:          true, // No purchase capability
	{StatusInitializing, StatusError}:         true, // Bad key, timeout or provider error
	{StatusError, StatusInitializing}:         true, // Explicit user retry
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to Status) bool {
	return validTransitions[Transition{from, to}]
}
