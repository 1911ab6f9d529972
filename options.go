package unlock

import (
	"log/slog"
	"time"

	"github.com/xraph/unlock/plugin"
)

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock sets the time source used for daily free-unlock bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the timezone whose calendar days bound free unlocks.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

// WithPlacement sets how a section maps to an ad placement, which scopes
// the ad cooldown. Defaults to the section name.
func WithPlacement(fn func(testID, trait, section string) string) Option {
	return func(l *Ledger) { l.placement = fn }
}

// WithoutMigrate skips store migration in Start.
func WithoutMigrate() Option {
	return func(l *Ledger) { l.migrate = false }
}
