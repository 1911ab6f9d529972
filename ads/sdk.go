// Package ads wraps a rewarded-ad SDK behind a single "show an ad, report
// whether the reward was earned" operation with a per-placement cooldown.
package ads

import "context"

// SDK is the host's binding to the ad network SDK.
type SDK interface {
	Initialize(ctx context.Context) error
	CreateRewardedAd(adUnitID string) (RewardedAd, error)
}

// EventType identifies a rewarded-ad lifecycle event.
type EventType int

const (
	EventLoaded EventType = iota + 1
	EventEarnedReward
	EventClosed
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventLoaded:
		return "loaded"
	case EventEarnedReward:
		return "earned_reward"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners registered with RewardedAd.On. Err is
// set for EventError; SDK bindings should wrap ErrNoFill, ErrNetwork or
// ErrInvalidConfig so failures can be classified.
type Event struct {
	Type EventType
	Err  error
}

// RewardedAd is one rewarded ad instance. Load and Show return once the
// request is issued; outcomes arrive as events.
type RewardedAd interface {
	// On registers fn for every event and returns a function that removes it.
	On(fn func(Event)) (remove func())
	Load() error
	Show() error
}
