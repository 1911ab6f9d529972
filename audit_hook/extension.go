// Package audithook bridges unlock lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/plugin"
	"github.com/xraph/unlock/subscription"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnSectionUnlocked     = (*Extension)(nil)
	_ plugin.OnUnlockDenied        = (*Extension)(nil)
	_ plugin.OnAdShown             = (*Extension)(nil)
	_ plugin.OnAdFailed            = (*Extension)(nil)
	_ plugin.OnSubscriptionChanged = (*Extension)(nil)
	_ plugin.OnPurchaseCompleted   = (*Extension)(nil)
	_ plugin.OnPurchaseFailed      = (*Extension)(nil)
	_ plugin.OnStorageError        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges unlock lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Unlock hooks
// ──────────────────────────────────────────────────

// OnSectionUnlocked implements plugin.OnSectionUnlocked.
func (e *Extension) OnSectionUnlocked(ctx context.Context, ev *plugin.UnlockEvent) error {
	return e.record(ctx, ActionSectionUnlocked, SeverityInfo, OutcomeSuccess,
		ResourceSection, ev.GrantID.String(), CategoryAccess, nil,
		"test_id", ev.TestID,
		"trait", ev.Trait,
		"section", ev.Section,
		"method", ev.Method,
	)
}

// OnUnlockDenied implements plugin.OnUnlockDenied.
func (e *Extension) OnUnlockDenied(ctx context.Context, ev *plugin.UnlockEvent) error {
	return e.record(ctx, ActionUnlockDenied, SeverityInfo, OutcomeFailure,
		ResourceSection, sectionKey(ev), CategoryAccess, ev.Err,
		"test_id", ev.TestID,
		"trait", ev.Trait,
		"section", ev.Section,
		"method", ev.Method,
		"message", ev.Reason,
	)
}

func sectionKey(ev *plugin.UnlockEvent) string {
	return ev.TestID + "/" + ev.Trait + "/" + ev.Section
}

// ──────────────────────────────────────────────────
// Ad hooks
// ──────────────────────────────────────────────────

// OnAdShown implements plugin.OnAdShown.
func (e *Extension) OnAdShown(ctx context.Context, res *ads.ShowResult) error {
	return e.record(ctx, ActionAdRewarded, SeverityInfo, OutcomeSuccess,
		ResourceAd, res.ID.String(), CategoryAds, nil,
		"placement", res.Placement,
		"mock", res.Mock,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
}

// OnAdFailed implements plugin.OnAdFailed. Cooldown rejections are
// expected and recorded at info level.
func (e *Extension) OnAdFailed(ctx context.Context, res *ads.ShowResult) error {
	severity := SeverityWarning
	if ads.IsCooldown(res.Err) {
		severity = SeverityInfo
	}
	return e.record(ctx, ActionAdFailed, severity, OutcomeFailure,
		ResourceAd, res.ID.String(), CategoryAds, res.Err,
		"placement", res.Placement,
		"mock", res.Mock,
	)
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscriptionChanged implements plugin.OnSubscriptionChanged.
func (e *Extension) OnSubscriptionChanged(ctx context.Context, oldState, newState subscription.State) error {
	action := ActionSubscriptionChanged
	switch {
	case !oldState.Premium() && newState.Premium():
		action = ActionSubscriptionActivated
	case oldState.Premium() && !newState.Premium():
		action = ActionSubscriptionDeactivated
	}

	severity := SeverityInfo
	if newState.Status == subscription.StatusError {
		severity = SeverityError
	}

	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceSubscription, "", CategorySubscription, nil,
		"status", string(newState.Status),
		"previous_status", string(oldState.Status),
		"plan", string(newState.Plan),
		"error_detail", newState.Error,
	)
}

// OnPurchaseCompleted implements plugin.OnPurchaseCompleted.
func (e *Extension) OnPurchaseCompleted(ctx context.Context, ev *plugin.PurchaseEvent) error {
	action := ActionPurchaseCompleted
	switch ev.Kind {
	case plugin.KindRestore:
		action = ActionRestoreCompleted
	case plugin.KindCancel:
		action = ActionCancelRequested
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourcePurchase, ev.Result.ID.String(), CategoryPayment, nil,
		"kind", string(ev.Kind),
		"plan", string(ev.Result.State.Plan),
	)
}

// OnPurchaseFailed implements plugin.OnPurchaseFailed. A purchase the
// user cancelled is not a failure and gets its own action.
func (e *Extension) OnPurchaseFailed(ctx context.Context, ev *plugin.PurchaseEvent) error {
	action, severity := ActionPurchaseFailed, SeverityWarning
	switch {
	case ev.Result.Cancelled:
		action, severity = ActionPurchaseCancelled, SeverityInfo
	case ev.Kind == plugin.KindRestore:
		action = ActionRestoreFailed
	case ev.Kind == plugin.KindCancel:
		action, severity = ActionCancelRequested, SeverityInfo
	}
	return e.record(ctx, action, severity, OutcomeFailure,
		ResourcePurchase, ev.Result.ID.String(), CategoryPayment, ev.Result.Err,
		"kind", string(ev.Kind),
		"plan", string(ev.Plan),
		"message", ev.Result.Reason,
	)
}

// ──────────────────────────────────────────────────
// Storage hooks
// ──────────────────────────────────────────────────

// OnStorageError implements plugin.OnStorageError.
func (e *Extension) OnStorageError(ctx context.Context, op string, err error) error {
	return e.record(ctx, ActionStorageFailed, SeverityError, OutcomeFailure,
		ResourceStorage, op, CategoryStorage, err,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
