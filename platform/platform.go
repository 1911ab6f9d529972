// Package platform describes the runtime target of the host app and picks
// between real and mock provider implementations for it.
package platform

// Platform is the runtime target of the host app.
type Platform string

const (
	IOS     Platform = "ios"
	Android Platform = "android"
	Web     Platform = "web"
)

// Environment describes where the engine runs.
type Environment struct {
	Platform Platform `json:"platform"`
	// Sandboxed is true for unsigned development wrappers that cannot
	// reach the platform store or the ad network.
	Sandboxed bool `json:"sandboxed"`
}

// Mode selects a provider implementation.
type Mode string

const (
	ModeReal Mode = "real"
	ModeMock Mode = "mock"
)

// Detector is an environment-detection strategy.
type Detector func(Environment) Mode

// Native reports whether the environment runs a signed mobile build, the
// only place platform billing and ad SDKs work.
func (e Environment) Native() bool {
	if e.Sandboxed {
		return false
	}
	return e.Platform == IOS || e.Platform == Android
}

// Detect is the default Detector.
func Detect(env Environment) Mode {
	if env.Native() {
		return ModeReal
	}
	return ModeMock
}

// Parse maps a configuration string to a Platform. Unknown values map to
// Web, which always runs in mock mode.
func Parse(s string) Platform {
	switch Platform(s) {
	case IOS, Android:
		return Platform(s)
	default:
		return Web
	}
}
