package ads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Provider shows rewarded ads. ShowRewarded returns nil only when the
// reward was earned.
type Provider interface {
	Initialize(ctx context.Context) error
	ShowRewarded(ctx context.Context) error
}

// compile-time interface checks
var (
	_ Provider = (*sdkProvider)(nil)
	_ Provider = (*MockProvider)(nil)
)

// ──────────────────────────────────────────────────
// SDK-backed provider
// ──────────────────────────────────────────────────

type sdkProvider struct {
	sdk         SDK
	adUnitID    string
	loadTimeout time.Duration
	showTimeout time.Duration
	logger      *slog.Logger
}

func (p *sdkProvider) Initialize(ctx context.Context) error {
	return p.sdk.Initialize(ctx)
}

// ShowRewarded loads a fresh ad, shows it, and waits for the reward. A close
// without a preceding reward event is ErrNotRewarded.
func (p *sdkProvider) ShowRewarded(ctx context.Context) error {
	ad, err := p.sdk.CreateRewardedAd(p.adUnitID)
	if err != nil {
		return classify(err, ErrInvalidConfig)
	}

	// Listeners run on the SDK's callback thread and must not block it.
	events := make(chan Event, 16)
	remove := ad.On(func(ev Event) {
		select {
		case events <- ev:
		default:
		}
	})
	defer remove()

	if err := ad.Load(); err != nil {
		return classify(err, ErrLoadFailed)
	}
	if err := p.awaitLoaded(ctx, events); err != nil {
		return err
	}

	if err := ad.Show(); err != nil {
		return classify(err, ErrShowFailed)
	}
	return p.awaitReward(ctx, events)
}

func (p *sdkProvider) awaitLoaded(ctx context.Context, events <-chan Event) error {
	var timer <-chan time.Time
	if p.loadTimeout > 0 {
		t := time.NewTimer(p.loadTimeout)
		defer t.Stop()
		timer = t.C
	}

	for {
		select {
		case ev := <-events:
			switch ev.Type {
			case EventLoaded:
				return nil
			case EventError:
				return classify(ev.Err, ErrLoadFailed)
			default:
				p.logger.Debug("ignoring ad event before load", "event", ev.Type.String())
			}
		case <-timer:
			return ErrLoadTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// awaitReward waits for the ad to close. An ad still open after
// showTimeout is abandoned with ErrShowTimeout, even if it already paid out.
func (p *sdkProvider) awaitReward(ctx context.Context, events <-chan Event) error {
	var timer <-chan time.Time
	if p.showTimeout > 0 {
		t := time.NewTimer(p.showTimeout)
		defer t.Stop()
		timer = t.C
	}

	earned := false
	for {
		select {
		case ev := <-events:
			switch ev.Type {
			case EventEarnedReward:
				earned = true
			case EventClosed:
				if earned {
					return nil
				}
				return ErrNotRewarded
			case EventError:
				return classify(ev.Err, ErrShowFailed)
			}
		case <-timer:
			p.logger.Warn("rewarded ad never closed", "timeout", p.showTimeout, "earned", earned)
			return ErrShowTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// classify keeps errors the SDK binding already mapped to a known cause and
// wraps everything else with fallback.
func classify(err, fallback error) error {
	switch {
	case err == nil:
		return fallback
	case errors.Is(err, ErrNoFill), errors.Is(err, ErrNetwork), errors.Is(err, ErrInvalidConfig):
		return err
	default:
		return fmt.Errorf("%w: %w", fallback, err)
	}
}

// ──────────────────────────────────────────────────
// Mock provider
// ──────────────────────────────────────────────────

// DefaultMockDuration is how long the simulated ad "plays".
const DefaultMockDuration = 2 * time.Second

// MockProvider simulates a rewarded ad that always grants the reward.
type MockProvider struct {
	duration time.Duration
	shows    atomic.Int64
}

// NewMockProvider creates a MockProvider whose ads last d. A negative d
// uses DefaultMockDuration.
func NewMockProvider(d time.Duration) *MockProvider {
	if d < 0 {
		d = DefaultMockDuration
	}
	return &MockProvider{duration: d}
}

func (m *MockProvider) Initialize(context.Context) error { return nil }

func (m *MockProvider) ShowRewarded(ctx context.Context) error {
	if m.duration > 0 {
		t := time.NewTimer(m.duration)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.shows.Add(1)
	return nil
}

// Shows returns the number of completed simulated ads.
func (m *MockProvider) Shows() int64 { return m.shows.Load() }
