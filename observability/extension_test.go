package observability_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/observability"
	"github.com/xraph/unlock/plugin"
	"github.com/xraph/unlock/subscription"
)

type metric struct {
	mu     sync.Mutex
	value  float64
	values []float64
}

func (m *metric) Inc() { m.Add(1) }

func (m *metric) Add(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value += v
}

func (m *metric) Observe(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = append(m.values, v)
}

type factory struct {
	metrics map[string]*metric
}

func newFactory() *factory { return &factory{metrics: make(map[string]*metric)} }

func (f *factory) get(name string) *metric {
	m, ok := f.metrics[name]
	if !ok {
		m = &metric{}
		f.metrics[name] = m
	}
	return m
}

func (f *factory) Counter(name string) observability.Counter     { return f.get(name) }
func (f *factory) Histogram(name string) observability.Histogram { return f.get(name) }

func (f *factory) value(name string) float64 { return f.get(name).value }

func TestUnlockMetrics(t *testing.T) {
	f := newFactory()
	m := observability.NewMetricsExtension(f)
	ctx := context.Background()

	for _, method := range []string{"ad", "ad", "free"} {
		require.NoError(t, m.OnSectionUnlocked(ctx, &plugin.UnlockEvent{Method: method}))
	}
	require.NoError(t, m.OnUnlockDenied(ctx, &plugin.UnlockEvent{Method: "free"}))

	assert.Equal(t, 2.0, f.value("unlock.section.unlocked.ad"))
	assert.Equal(t, 1.0, f.value("unlock.section.unlocked.free"))
	assert.Equal(t, 1.0, f.value("unlock.section.denied"))
}

func TestAdMetrics(t *testing.T) {
	f := newFactory()
	m := observability.NewMetricsExtension(f)
	ctx := context.Background()

	require.NoError(t, m.OnAdShown(ctx, &ads.ShowResult{Success: true, Elapsed: 1500 * time.Millisecond}))
	require.NoError(t, m.OnAdFailed(ctx, &ads.ShowResult{Err: &ads.CooldownError{Remaining: time.Minute}}))
	require.NoError(t, m.OnAdFailed(ctx, &ads.ShowResult{Err: ads.ErrNoFill}))

	assert.Equal(t, 1.0, f.value("unlock.ad.rewarded"))
	assert.Equal(t, 1.0, f.value("unlock.ad.cooldown"))
	assert.Equal(t, 1.0, f.value("unlock.ad.failed"))
	assert.Equal(t, []float64{1500}, f.get("unlock.ad.show.latency_ms").values)
}

func TestSubscriptionMetrics(t *testing.T) {
	f := newFactory()
	m := observability.NewMetricsExtension(f)
	ctx := context.Background()

	inactive := subscription.State{IsActiveChecked: true, Status: subscription.StatusReady}
	active := subscription.State{IsActive: true, IsActiveChecked: true, Status: subscription.StatusReady}
	failed := subscription.State{Status: subscription.StatusError}

	require.NoError(t, m.OnSubscriptionChanged(ctx, inactive, active))
	require.NoError(t, m.OnSubscriptionChanged(ctx, active, inactive))
	require.NoError(t, m.OnSubscriptionChanged(ctx, inactive, failed))
	require.NoError(t, m.OnSubscriptionChanged(ctx, failed, failed))

	assert.Equal(t, 1.0, f.value("unlock.subscription.activated"))
	assert.Equal(t, 1.0, f.value("unlock.subscription.deactivated"))
	assert.Equal(t, 1.0, f.value("unlock.subscription.errored"))
}

func TestPurchaseMetrics(t *testing.T) {
	f := newFactory()
	m := observability.NewMetricsExtension(f)
	ctx := context.Background()

	require.NoError(t, m.OnPurchaseCompleted(ctx, &plugin.PurchaseEvent{Kind: plugin.KindPurchase}))
	require.NoError(t, m.OnPurchaseCompleted(ctx, &plugin.PurchaseEvent{Kind: plugin.KindRestore}))
	require.NoError(t, m.OnPurchaseCompleted(ctx, &plugin.PurchaseEvent{Kind: plugin.KindCancel}))
	require.NoError(t, m.OnPurchaseFailed(ctx, &plugin.PurchaseEvent{Kind: plugin.KindPurchase, Result: subscription.Result{Cancelled: true}}))
	require.NoError(t, m.OnPurchaseFailed(ctx, &plugin.PurchaseEvent{Kind: plugin.KindPurchase}))
	require.NoError(t, m.OnPurchaseFailed(ctx, &plugin.PurchaseEvent{Kind: plugin.KindRestore}))

	assert.Equal(t, 1.0, f.value("unlock.purchase.completed"))
	assert.Equal(t, 1.0, f.value("unlock.restore.completed"))
	assert.Equal(t, 1.0, f.value("unlock.purchase.cancelled"))
	assert.Equal(t, 1.0, f.value("unlock.purchase.failed"))
	assert.Equal(t, 1.0, f.value("unlock.restore.failed"))
}

func TestStoreErrorMetrics(t *testing.T) {
	f := newFactory()
	m := observability.NewMetricsExtension(f)

	require.NoError(t, m.OnStorageError(context.Background(), "save_sections", errors.New("disk full")))
	assert.Equal(t, 1.0, f.value("unlock.store.errors"))
	assert.Equal(t, "observability-metrics", m.Name())
}
