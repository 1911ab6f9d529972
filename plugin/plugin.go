// Package plugin provides lifecycle hooks for the unlock engine. Plugins
// implement any subset of the hook interfaces; the Registry discovers them
// once at registration and dispatches each event with a per-call timeout.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/id"
	"github.com/xraph/unlock/subscription"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// UnlockEvent describes one unlockSection outcome.
type UnlockEvent struct {
	GrantID id.GrantID `json:"grant_id"`
	TestID  string     `json:"test_id"`
	Trait   string     `json:"trait"`
	Section string     `json:"section"`
	Method  string     `json:"method"`
	// Reason is the user-facing message of a denial.
	Reason string    `json:"reason,omitempty"`
	Err    error     `json:"-"`
	At     time.Time `json:"at"`
}

// PurchaseKind distinguishes the subscription operations reported by
// OnPurchaseCompleted and OnPurchaseFailed.
type PurchaseKind string

const (
	KindPurchase PurchaseKind = "purchase"
	KindRestore  PurchaseKind = "restore"
	KindCancel   PurchaseKind = "cancel"
)

// PurchaseEvent describes a purchase, restore or cancel outcome.
type PurchaseEvent struct {
	Kind   PurchaseKind        `json:"kind"`
	Plan   subscription.Plan   `json:"plan,omitempty"`
	Result subscription.Result `json:"result"`
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Unlock hooks
// ──────────────────────────────────────────────────

// OnSectionUnlocked is called after a section is granted.
type OnSectionUnlocked interface {
	Plugin
	OnSectionUnlocked(ctx context.Context, ev *UnlockEvent) error
}

// OnUnlockDenied is called when an unlock request is rejected.
type OnUnlockDenied interface {
	Plugin
	OnUnlockDenied(ctx context.Context, ev *UnlockEvent) error
}

// ──────────────────────────────────────────────────
// Ad hooks
// ──────────────────────────────────────────────────

// OnAdShown is called when a rewarded ad granted its reward.
type OnAdShown interface {
	Plugin
	OnAdShown(ctx context.Context, res *ads.ShowResult) error
}

// OnAdFailed is called when a rewarded ad request did not grant a reward.
type OnAdFailed interface {
	Plugin
	OnAdFailed(ctx context.Context, res *ads.ShowResult) error
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscriptionChanged is called when the premium view of the
// subscription changes.
type OnSubscriptionChanged interface {
	Plugin
	OnSubscriptionChanged(ctx context.Context, oldState, newState subscription.State) error
}

// OnPurchaseCompleted is called after a successful purchase, restore or
// cancel.
type OnPurchaseCompleted interface {
	Plugin
	OnPurchaseCompleted(ctx context.Context, ev *PurchaseEvent) error
}

// OnPurchaseFailed is called after a failed or cancelled purchase, restore
// or cancel.
type OnPurchaseFailed interface {
	Plugin
	OnPurchaseFailed(ctx context.Context, ev *PurchaseEvent) error
}

// ──────────────────────────────────────────────────
// Storage hooks
// ──────────────────────────────────────────────────

// OnStorageError is called when a best-effort storage operation fails.
type OnStorageError interface {
	Plugin
	OnStorageError(ctx context.Context, op string, err error) error
}
