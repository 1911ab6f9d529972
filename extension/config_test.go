package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{AdCooldown: time.Minute, Platform: "ios"})

	assert.Equal(t, time.Minute, cfg.AdCooldown)
	assert.Equal(t, "ios", cfg.Platform)
	assert.Equal(t, DefaultConfig().SectionsKey, cfg.SectionsKey)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
}

func TestMergeConfigurations(t *testing.T) {
	file := Config{Platform: "android", AdCooldown: 30 * time.Second}
	programmatic := Config{
		Platform:            "web",
		AdUnitID:            "unit",
		AdRequestsPerMinute: 4,
		DisableMigrate:      true,
		AdCooldown:          time.Hour,
	}

	cfg := mergeConfigurations(file, programmatic)

	assert.Equal(t, "android", cfg.Platform, "file wins")
	assert.Equal(t, 30*time.Second, cfg.AdCooldown, "file wins")
	assert.Equal(t, "unit", cfg.AdUnitID, "programmatic fills gaps")
	assert.Equal(t, 4, cfg.AdRequestsPerMinute)
	assert.True(t, cfg.DisableMigrate)
	assert.Equal(t, DefaultConfig().MockAdDuration, cfg.MockAdDuration)
}
