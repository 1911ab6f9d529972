package extension

import (
	"time"

	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/entitlement"
	"github.com/xraph/unlock/grant"
)

// Store drivers accepted by Config.StoreDriver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the unlock extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.unlock" or "unlock" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// EntitlementAPIKey is the public API key of the subscription backend.
	// Real purchases are refused while it is empty.
	EntitlementAPIKey string `json:"entitlement_api_key" mapstructure:"entitlement_api_key" yaml:"entitlement_api_key"`

	// EntitlementKey is the entitlement that marks a user premium
	// (default: "premium").
	EntitlementKey string `json:"entitlement_key" mapstructure:"entitlement_key" yaml:"entitlement_key"`

	// Platform is the runtime target: "ios", "android" or "web". Anything
	// else runs as web, which always uses mock providers.
	Platform string `json:"platform" mapstructure:"platform" yaml:"platform"`

	// Sandboxed marks an unsigned development build; it forces mock mode.
	Sandboxed bool `json:"sandboxed" mapstructure:"sandboxed" yaml:"sandboxed"`

	HandshakeTimeout time.Duration `json:"handshake_timeout" mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	OfferingsTimeout time.Duration `json:"offerings_timeout" mapstructure:"offerings_timeout" yaml:"offerings_timeout"`

	// AdUnitID is the rewarded ad unit. Without one the ad manager runs in
	// mock mode.
	AdUnitID      string        `json:"ad_unit_id" mapstructure:"ad_unit_id" yaml:"ad_unit_id"`
	AdLoadTimeout time.Duration `json:"ad_load_timeout" mapstructure:"ad_load_timeout" yaml:"ad_load_timeout"`
	AdShowTimeout time.Duration `json:"ad_show_timeout" mapstructure:"ad_show_timeout" yaml:"ad_show_timeout"`
	AdCooldown    time.Duration `json:"ad_cooldown" mapstructure:"ad_cooldown" yaml:"ad_cooldown"`

	// AdRequestsPerMinute caps real SDK requests; zero disables the cap.
	AdRequestsPerMinute int `json:"ad_requests_per_minute" mapstructure:"ad_requests_per_minute" yaml:"ad_requests_per_minute"`

	MockAdDuration    time.Duration `json:"mock_ad_duration" mapstructure:"mock_ad_duration" yaml:"mock_ad_duration"`
	MockPurchaseDelay time.Duration `json:"mock_purchase_delay" mapstructure:"mock_purchase_delay" yaml:"mock_purchase_delay"`

	// SectionsKey and DailyUsageKey name the two persisted blobs.
	SectionsKey   string `json:"sections_key" mapstructure:"sections_key" yaml:"sections_key"`
	DailyUsageKey string `json:"daily_usage_key" mapstructure:"daily_usage_key" yaml:"daily_usage_key"`

	// Location is the IANA timezone whose calendar days bound free
	// unlocks. Empty means the host's local zone.
	Location string `json:"location" mapstructure:"location" yaml:"location"`

	// StoreDriver selects the store backend built around the grove.DB
	// passed with WithGroveDB: "sqlite", "postgres" or "mongo". Without a
	// grove.DB the memory store is used.
	StoreDriver string `json:"store_driver" mapstructure:"store_driver" yaml:"store_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EntitlementKey:    entitlement.DefaultEntitlementKey,
		Platform:          "web",
		HandshakeTimeout:  8 * time.Second,
		OfferingsTimeout:  3 * time.Second,
		AdLoadTimeout:     ads.DefaultLoadTimeout,
		AdShowTimeout:     ads.DefaultShowTimeout,
		AdCooldown:        ads.DefaultCooldown,
		MockAdDuration:    ads.DefaultMockDuration,
		MockPurchaseDelay: time.Second,
		SectionsKey:       grant.DefaultSectionsKey,
		DailyUsageKey:     grant.DefaultDailyUsageKey,
		StoreDriver:       DriverMemory,
	}
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.EntitlementKey == "" {
		cfg.EntitlementKey = defaults.EntitlementKey
	}
	if cfg.Platform == "" {
		cfg.Platform = defaults.Platform
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if cfg.OfferingsTimeout == 0 {
		cfg.OfferingsTimeout = defaults.OfferingsTimeout
	}
	if cfg.AdLoadTimeout == 0 {
		cfg.AdLoadTimeout = defaults.AdLoadTimeout
	}
	if cfg.AdShowTimeout == 0 {
		cfg.AdShowTimeout = defaults.AdShowTimeout
	}
	if cfg.AdCooldown == 0 {
		cfg.AdCooldown = defaults.AdCooldown
	}
	if cfg.MockAdDuration == 0 {
		cfg.MockAdDuration = defaults.MockAdDuration
	}
	if cfg.MockPurchaseDelay == 0 {
		cfg.MockPurchaseDelay = defaults.MockPurchaseDelay
	}
	if cfg.SectionsKey == "" {
		cfg.SectionsKey = defaults.SectionsKey
	}
	if cfg.DailyUsageKey == "" {
		cfg.DailyUsageKey = defaults.DailyUsageKey
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = defaults.StoreDriver
	}
	return cfg
}

// mergeConfigurations merges file config with programmatic options.
// File config takes precedence; programmatic values fill gaps.
func mergeConfigurations(fileConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		fileConfig.DisableMigrate = true
	}
	if programmaticConfig.Sandboxed {
		fileConfig.Sandboxed = true
	}

	// String fields: file takes precedence.
	fillString(&fileConfig.EntitlementAPIKey, programmaticConfig.EntitlementAPIKey)
	fillString(&fileConfig.EntitlementKey, programmaticConfig.EntitlementKey)
	fillString(&fileConfig.Platform, programmaticConfig.Platform)
	fillString(&fileConfig.AdUnitID, programmaticConfig.AdUnitID)
	fillString(&fileConfig.SectionsKey, programmaticConfig.SectionsKey)
	fillString(&fileConfig.DailyUsageKey, programmaticConfig.DailyUsageKey)
	fillString(&fileConfig.Location, programmaticConfig.Location)
	fillString(&fileConfig.StoreDriver, programmaticConfig.StoreDriver)

	// Duration/int fields: file takes precedence, programmatic fills gaps.
	fillDuration(&fileConfig.HandshakeTimeout, programmaticConfig.HandshakeTimeout)
	fillDuration(&fileConfig.OfferingsTimeout, programmaticConfig.OfferingsTimeout)
	fillDuration(&fileConfig.AdLoadTimeout, programmaticConfig.AdLoadTimeout)
	fillDuration(&fileConfig.AdShowTimeout, programmaticConfig.AdShowTimeout)
	fillDuration(&fileConfig.AdCooldown, programmaticConfig.AdCooldown)
	fillDuration(&fileConfig.MockAdDuration, programmaticConfig.MockAdDuration)
	fillDuration(&fileConfig.MockPurchaseDelay, programmaticConfig.MockPurchaseDelay)
	if fileConfig.AdRequestsPerMinute == 0 {
		fileConfig.AdRequestsPerMinute = programmaticConfig.AdRequestsPerMinute
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(fileConfig)
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func fillDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}
