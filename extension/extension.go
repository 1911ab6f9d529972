// Package extension provides the Forge extension adapter for the unlock
// engine.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions,
// via YAML configuration files under "extensions.unlock" or "unlock" keys,
// or, for hosts without Forge, via LoadFile.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/unlock"
	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/subscription"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "unlock"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Content unlock and entitlement resolution engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the unlock ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	deps       Deps
	components *Components
	unlockOpts []unlock.Option
}

// New creates a new unlock Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *unlock.Ledger {
	if e.components == nil {
		return nil
	}
	return e.components.Ledger
}

// Register implements [forge.Extension]. It loads configuration, builds
// the store, the providers and the ledger, and registers them in the DI
// container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	components, err := Build(e.config, e.deps, e.unlockOpts...)
	if err != nil {
		return err
	}
	e.components = components

	if err := vessel.Provide(fapp.Container(), func() (*subscription.Manager, error) {
		return e.components.Subscriptions, nil
	}); err != nil {
		return err
	}
	if err := vessel.Provide(fapp.Container(), func() (*ads.Manager, error) {
		return e.components.Ads, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*unlock.Ledger, error) {
		return e.components.Ledger, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.components == nil {
		return errors.New("unlock: extension not initialized")
	}

	if err := e.components.Ledger.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.components != nil {
		if err := e.components.Ledger.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension]. The engine degrades instead of
// failing when a provider is down, so only the store is checked.
func (e *Extension) Health(ctx context.Context) error {
	if e.components == nil {
		return errors.New("unlock: store not initialized")
	}
	return e.components.Store.Ping(ctx)
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("unlock: configuration is required but not found in config files; " +
				"ensure 'extensions.unlock' or 'unlock' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("unlock: configuration loaded",
		forge.F("platform", e.config.Platform),
		forge.F("sandboxed", e.config.Sandboxed),
		forge.F("store_driver", e.config.StoreDriver),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("ad_cooldown", e.config.AdCooldown),
		forge.F("ad_requests_per_minute", e.config.AdRequestsPerMinute),
		forge.F("location", e.config.Location),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.unlock", "unlock"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("unlock: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("unlock: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}
