package extension

import (
	"log/slog"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/unlock"
	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/entitlement"
	"github.com/xraph/unlock/plugin"
	"github.com/xraph/unlock/store"
)

// Option configures the unlock Forge extension.
type Option func(*Extension)

// WithStore sets the key-value store the ledger persists to. It takes
// precedence over the configured store driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) { e.deps.Store = s }
}

// WithGroveDB sets the grove database wrapped by the configured store
// driver (sqlite, postgres or mongo).
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.deps.GroveDB = db
		e.config.StoreDriver = driver
	}
}

// WithEntitlementProvider sets the real billing SDK binding.
func WithEntitlementProvider(p entitlement.Provider) Option {
	return func(e *Extension) { e.deps.Entitlements = p }
}

// WithAdSDK sets the real rewarded-ad SDK binding.
func WithAdSDK(sdk ads.SDK) Option {
	return func(e *Extension) { e.deps.AdSDK = sdk }
}

// WithLogger sets the logger shared by every service.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) { e.deps.Logger = logger }
}

// WithLedgerOption passes an unlock.Option through to the ledger.
func WithLedgerOption(opt unlock.Option) Option {
	return func(e *Extension) {
		e.unlockOpts = append(e.unlockOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.unlockOpts = append(e.unlockOpts, unlock.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithPlatform sets the runtime target ("ios", "android" or "web").
func WithPlatform(p string, sandboxed bool) Option {
	return func(e *Extension) {
		e.config.Platform = p
		e.config.Sandboxed = sandboxed
	}
}

// WithEntitlementAPIKey sets the subscription backend API key.
func WithEntitlementAPIKey(key string) Option {
	return func(e *Extension) { e.config.EntitlementAPIKey = key }
}

// WithAdUnitID sets the rewarded ad unit.
func WithAdUnitID(id string) Option {
	return func(e *Extension) { e.config.AdUnitID = id }
}

// WithAdCooldown sets the per-placement ad cooldown.
func WithAdCooldown(d time.Duration) Option {
	return func(e *Extension) { e.config.AdCooldown = d }
}

// WithLocation sets the IANA timezone whose days bound free unlocks.
func WithLocation(name string) Option {
	return func(e *Extension) { e.config.Location = name }
}
