package ads

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/xraph/unlock/platform"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithAdUnitID sets the rewarded ad unit. Without one the manager runs the
// mock provider.
func WithAdUnitID(id string) Option {
	return func(m *Manager) { m.adUnitID = id }
}

// WithEnvironment sets the runtime environment used for mode detection.
func WithEnvironment(env platform.Environment) Option {
	return func(m *Manager) { m.env = env }
}

// WithModeDetector replaces platform.Detect.
func WithModeDetector(fn platform.Detector) Option {
	return func(m *Manager) { m.detect = fn }
}

// WithCooldown sets the per-placement cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(m *Manager) { m.cooldown = d }
}

// WithLoadTimeout bounds ad loading and SDK initialization.
func WithLoadTimeout(d time.Duration) Option {
	return func(m *Manager) { m.loadTimeout = d }
}

// WithShowTimeout bounds how long a shown ad may stay open before the
// request is abandoned. Zero waits for the caller's context only.
func WithShowTimeout(d time.Duration) Option {
	return func(m *Manager) { m.showTimeout = d }
}

// WithMockDuration sets how long a simulated ad plays.
func WithMockDuration(d time.Duration) Option {
	return func(m *Manager) { m.mockDuration = d }
}

// WithRequestLimit caps SDK ad requests across all placements. Zero
// disables the limit.
func WithRequestLimit(perMinute int) Option {
	return func(m *Manager) {
		if perMinute <= 0 {
			m.limiter = nil
			return
		}
		m.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

// WithClock sets the time source for cooldown bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}
