package extension

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment variables read by LoadFile, e.g.
// UNLOCK_AD_UNIT_ID.
const EnvPrefix = "UNLOCK_"

// LoadFile loads a Config for hosts that embed the engine without Forge.
// Defaults are overridden by the TOML file at path (skipped when path is
// empty), which is in turn overridden by UNLOCK_* environment variables.
func LoadFile(path string) (Config, error) {
	k := koanf.New(".")

	d := DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]any{
		"entitlement_key":     d.EntitlementKey,
		"platform":            d.Platform,
		"handshake_timeout":   d.HandshakeTimeout.String(),
		"offerings_timeout":   d.OfferingsTimeout.String(),
		"ad_load_timeout":     d.AdLoadTimeout.String(),
		"ad_show_timeout":     d.AdShowTimeout.String(),
		"ad_cooldown":         d.AdCooldown.String(),
		"mock_ad_duration":    d.MockAdDuration.String(),
		"mock_purchase_delay": d.MockPurchaseDelay.String(),
		"sections_key":        d.SectionsKey,
		"daily_usage_key":     d.DailyUsageKey,
		"store_driver":        d.StoreDriver,
	}, "."), nil); err != nil {
		return Config{}, fmt.Errorf("unlock: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("unlock: load config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("unlock: load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return Config{}, fmt.Errorf("unlock: decode config: %w", err)
	}
	return mergeWithDefaults(cfg), nil
}
