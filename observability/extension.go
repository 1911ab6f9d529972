// Package observability provides a metrics extension for the unlock engine
// that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/plugin"
	"github.com/xraph/unlock/subscription"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnSectionUnlocked     = (*MetricsExtension)(nil)
	_ plugin.OnUnlockDenied        = (*MetricsExtension)(nil)
	_ plugin.OnAdShown             = (*MetricsExtension)(nil)
	_ plugin.OnAdFailed            = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionChanged = (*MetricsExtension)(nil)
	_ plugin.OnPurchaseCompleted   = (*MetricsExtension)(nil)
	_ plugin.OnPurchaseFailed      = (*MetricsExtension)(nil)
	_ plugin.OnStorageError        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records unlock, ad and purchase metrics.
// Register it as a ledger plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Unlock metrics
	UnlockedByAd   Counter
	UnlockedByFree Counter
	UnlockDenied   Counter

	// Ad metrics
	AdRewarded   Counter
	AdFailed     Counter
	AdCooldown   Counter
	AdShowLength Histogram

	// Subscription metrics
	SubscriptionActivated   Counter
	SubscriptionDeactivated Counter
	SubscriptionErrored     Counter

	// Purchase metrics
	PurchaseCompleted Counter
	PurchaseCancelled Counter
	PurchaseFailed    Counter
	RestoreCompleted  Counter
	RestoreFailed     Counter

	// Error metrics
	StoreErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		UnlockedByAd:   factory.Counter("unlock.section.unlocked.ad"),
		UnlockedByFree: factory.Counter("unlock.section.unlocked.free"),
		UnlockDenied:   factory.Counter("unlock.section.denied"),

		AdRewarded:   factory.Counter("unlock.ad.rewarded"),
		AdFailed:     factory.Counter("unlock.ad.failed"),
		AdCooldown:   factory.Counter("unlock.ad.cooldown"),
		AdShowLength: factory.Histogram("unlock.ad.show.latency_ms"),

		SubscriptionActivated:   factory.Counter("unlock.subscription.activated"),
		SubscriptionDeactivated: factory.Counter("unlock.subscription.deactivated"),
		SubscriptionErrored:     factory.Counter("unlock.subscription.errored"),

		PurchaseCompleted: factory.Counter("unlock.purchase.completed"),
		PurchaseCancelled: factory.Counter("unlock.purchase.cancelled"),
		PurchaseFailed:    factory.Counter("unlock.purchase.failed"),
		RestoreCompleted:  factory.Counter("unlock.restore.completed"),
		RestoreFailed:     factory.Counter("unlock.restore.failed"),

		StoreErrors: factory.Counter("unlock.store.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Unlock hooks
// ──────────────────────────────────────────────────

// OnSectionUnlocked implements plugin.OnSectionUnlocked. Premium access
// stores no grant and is not reported here.
func (m *MetricsExtension) OnSectionUnlocked(_ context.Context, ev *plugin.UnlockEvent) error {
	switch ev.Method {
	case "ad":
		m.UnlockedByAd.Inc()
	case "free":
		m.UnlockedByFree.Inc()
	}
	return nil
}

// OnUnlockDenied implements plugin.OnUnlockDenied.
func (m *MetricsExtension) OnUnlockDenied(_ context.Context, _ *plugin.UnlockEvent) error {
	m.UnlockDenied.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Ad hooks
// ──────────────────────────────────────────────────

// OnAdShown implements plugin.OnAdShown.
func (m *MetricsExtension) OnAdShown(_ context.Context, res *ads.ShowResult) error {
	m.AdRewarded.Inc()
	m.AdShowLength.Observe(float64(res.Elapsed.Milliseconds()))
	return nil
}

// OnAdFailed implements plugin.OnAdFailed.
func (m *MetricsExtension) OnAdFailed(_ context.Context, res *ads.ShowResult) error {
	if ads.IsCooldown(res.Err) {
		m.AdCooldown.Inc()
		return nil
	}
	m.AdFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscriptionChanged implements plugin.OnSubscriptionChanged.
func (m *MetricsExtension) OnSubscriptionChanged(_ context.Context, oldState, newState subscription.State) error {
	switch {
	case !oldState.Premium() && newState.Premium():
		m.SubscriptionActivated.Inc()
	case oldState.Premium() && !newState.Premium():
		m.SubscriptionDeactivated.Inc()
	}
	if newState.Status == subscription.StatusError && oldState.Status != subscription.StatusError {
		m.SubscriptionErrored.Inc()
	}
	return nil
}

// OnPurchaseCompleted implements plugin.OnPurchaseCompleted.
func (m *MetricsExtension) OnPurchaseCompleted(_ context.Context, ev *plugin.PurchaseEvent) error {
	switch ev.Kind {
	case plugin.KindPurchase:
		m.PurchaseCompleted.Inc()
	case plugin.KindRestore:
		m.RestoreCompleted.Inc()
	}
	return nil
}

// OnPurchaseFailed implements plugin.OnPurchaseFailed.
func (m *MetricsExtension) OnPurchaseFailed(_ context.Context, ev *plugin.PurchaseEvent) error {
	switch {
	case ev.Result.Cancelled:
		m.PurchaseCancelled.Inc()
	case ev.Kind == plugin.KindPurchase:
		m.PurchaseFailed.Inc()
	case ev.Kind == plugin.KindRestore:
		m.RestoreFailed.Inc()
	}
	return nil
}

// OnStorageError implements plugin.OnStorageError.
func (m *MetricsExtension) OnStorageError(_ context.Context, _ string, _ error) error {
	m.StoreErrors.Inc()
	return nil
}
