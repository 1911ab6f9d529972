package subscription

import (
	"log/slog"
	"time"

	"github.com/xraph/unlock/entitlement"
	"github.com/xraph/unlock/platform"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithAPIKey sets the provider configuration key.
func WithAPIKey(key string) Option {
	return func(m *Manager) { m.apiKey = key }
}

// WithEntitlementKey sets the entitlement whose presence means premium.
func WithEntitlementKey(key string) Option {
	return func(m *Manager) { m.entitlementKey = key }
}

// WithEnvironment sets the runtime environment used for mode detection.
func WithEnvironment(env platform.Environment) Option {
	return func(m *Manager) { m.env = env }
}

// WithModeDetector replaces platform.Detect.
func WithModeDetector(fn platform.Detector) Option {
	return func(m *Manager) { m.detect = fn }
}

// WithMockProvider replaces the default mock used in mock mode.
func WithMockProvider(p *entitlement.MockProvider) Option {
	return func(m *Manager) { m.mock = p }
}

// WithTimeouts sets the handshake and offerings timeouts.
func WithTimeouts(handshake, offerings time.Duration) Option {
	return func(m *Manager) {
		m.handshakeTimeout = handshake
		m.offeringsTimeout = offerings
	}
}
