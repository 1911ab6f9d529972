package grant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/unlock/grant"
	"github.com/xraph/unlock/store"
	"github.com/xraph/unlock/store/memory"
)

func TestPremiumGated(t *testing.T) {
	tests := []struct {
		trait, section string
		want           bool
	}{
		{"confianza", "premium", true},
		{"confianza", "premium_global", true},
		{"global", "ad_unlock", true},
		{"confianza", "ad_unlock", false},
		{"confianza", "detalle", false},
	}
	for _, tt := range tests {
		t.Run(tt.trait+"/"+tt.section, func(t *testing.T) {
			assert.Equal(t, tt.want, grant.PremiumGated(tt.trait, tt.section))
		})
	}
}

func TestSections(t *testing.T) {
	s := make(grant.Sections)
	assert.False(t, s.Get("autoestima", "confianza", "ad_unlock"))
	assert.Empty(t, s, "Get must not create intermediate maps")

	s.Set("autoestima", "confianza", "ad_unlock")
	s.Set("autoestima", "empatia", "ad_unlock")
	s.Set("ansiedad", "global", "detalle")
	assert.True(t, s.Get("autoestima", "confianza", "ad_unlock"))
	assert.False(t, s.Get("autoestima", "confianza", "detalle"))
	assert.Equal(t, 3, s.Count())

	c := s.Clone()
	c.Set("nuevo", "x", "y")
	c["autoestima"]["confianza"]["otro"] = true
	assert.False(t, s.Get("nuevo", "x", "y"))
	assert.False(t, s.Get("autoestima", "confianza", "otro"))

	assert.True(t, s.DeleteTest("autoestima"))
	assert.False(t, s.DeleteTest("autoestima"))
	assert.True(t, s.Get("ansiedad", "global", "detalle"))
}

func TestSetRepairsNilBranches(t *testing.T) {
	s := grant.Sections{"t": nil}
	s.Set("t", "tr", "s")
	assert.True(t, s.Get("t", "tr", "s"))
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	assert.Equal(t, "Wed Jan 01 2025", grant.Day(time.Date(2025, 1, 1, 23, 59, 0, 0, loc)))
	assert.Equal(t, "Thu Jan 02 2025", grant.Day(time.Date(2025, 1, 2, 0, 1, 0, 0, loc)))
}

func TestDailyUsage(t *testing.T) {
	key := grant.Key("autoestima", "confianza", "ad_unlock")
	assert.Equal(t, "autoestima_confianza_ad_unlock", key)

	d := grant.DailyUsage{key: "Wed Jan 01 2025", "ansiedad_x_y": "Wed Jan 01 2025"}
	assert.True(t, d.UsedOn(key, "Wed Jan 01 2025"))
	assert.False(t, d.UsedOn(key, "Thu Jan 02 2025"))
	assert.False(t, d.UsedOn("missing", "Wed Jan 01 2025"))

	d.Merge(grant.DailyUsage{key: "Tue Dec 31 2024", "nuevo_x_y": "Tue Dec 31 2024"})
	assert.Equal(t, "Wed Jan 01 2025", d[key], "existing entries win")
	assert.Equal(t, "Tue Dec 31 2024", d["nuevo_x_y"])
}

func TestSectionsMerge(t *testing.T) {
	s := grant.Sections{}
	s.Set("ansiedad", "tr", "s")

	stored := grant.Sections{}
	stored.Set("autoestima", "confianza", "ad_unlock")
	stored.Set("ansiedad", "tr", "otro")
	stored["ansiedad"]["tr"]["falso"] = false

	s.Merge(stored)
	assert.True(t, s.Get("ansiedad", "tr", "s"))
	assert.True(t, s.Get("ansiedad", "tr", "otro"))
	assert.True(t, s.Get("autoestima", "confianza", "ad_unlock"))
	assert.Equal(t, 3, s.Count())
}

func TestKVStore(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s := grant.NewKVStore(kv)

	t.Run("EmptyLoads", func(t *testing.T) {
		sections, err := s.LoadSections(ctx)
		require.NoError(t, err)
		assert.Empty(t, sections)
		usage, err := s.LoadDailyUsage(ctx)
		require.NoError(t, err)
		assert.Empty(t, usage)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		sections := grant.Sections{}
		sections.Set("autoestima", "confianza", "ad_unlock")
		require.NoError(t, s.SaveSections(ctx, sections))
		require.NoError(t, s.SaveDailyUsage(ctx, grant.DailyUsage{"a_b_c": "Wed Jan 01 2025"}))

		raw, err := kv.Get(ctx, grant.DefaultSectionsKey)
		require.NoError(t, err)
		assert.JSONEq(t, `{"autoestima":{"confianza":{"ad_unlock":true}}}`, raw)

		got, err := s.LoadSections(ctx)
		require.NoError(t, err)
		assert.True(t, got.Get("autoestima", "confianza", "ad_unlock"))
		usage, err := s.LoadDailyUsage(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Wed Jan 01 2025", usage["a_b_c"])
	})

	t.Run("NullBlob", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, grant.DefaultSectionsKey, "null"))
		got, err := s.LoadSections(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		got.Set("t", "tr", "s")
	})

	t.Run("Corrupt", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, grant.DefaultDailyUsageKey, "{not json"))
		got, err := s.LoadDailyUsage(ctx)
		assert.ErrorIs(t, err, grant.ErrCorrupt)
		assert.NotNil(t, got)
	})

	t.Run("Reset", func(t *testing.T) {
		require.NoError(t, s.Reset(ctx))
		keys, err := kv.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("CustomKeys", func(t *testing.T) {
		custom := grant.NewKVStore(kv, grant.WithSectionsKey("v2_sections"), grant.WithDailyUsageKey("v2_daily"))
		require.NoError(t, custom.SaveSections(ctx, grant.Sections{}))
		require.NoError(t, custom.SaveDailyUsage(ctx, grant.DailyUsage{}))
		keys, err := kv.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"v2_daily", "v2_sections"}, keys)
	})

	t.Run("BackendFailure", func(t *testing.T) {
		closed := memory.New()
		require.NoError(t, closed.Close())
		bs := grant.NewKVStore(closed)
		_, err := bs.LoadSections(ctx)
		assert.True(t, errors.Is(err, store.ErrClosed))
		assert.ErrorIs(t, bs.SaveSections(ctx, grant.Sections{}), store.ErrClosed)
	})
}
