package unlock

import (
	"context"

	"github.com/xraph/unlock/plugin"
	"github.com/xraph/unlock/subscription"
)

// Subscription returns the current subscription state.
func (l *Ledger) Subscription() subscription.State {
	return l.subs.State()
}

// PurchaseSubscription buys plan. A successful purchase unlocks every
// premium section through IsUnlocked; no grant is written.
func (l *Ledger) PurchaseSubscription(ctx context.Context, plan subscription.Plan) subscription.Result {
	res := l.subs.PurchasePlan(ctx, plan)
	l.reportPurchase(ctx, &plugin.PurchaseEvent{Kind: plugin.KindPurchase, Plan: plan, Result: res})
	return res
}

// RestorePurchases restores previous purchases.
func (l *Ledger) RestorePurchases(ctx context.Context) subscription.Result {
	res := l.subs.Restore(ctx)
	l.reportPurchase(ctx, &plugin.PurchaseEvent{Kind: plugin.KindRestore, Result: res})
	return res
}

// CancelSubscription cancels the subscription where the platform allows
// it; on real stores it always fails with instructions for the user.
func (l *Ledger) CancelSubscription(ctx context.Context) subscription.Result {
	res := l.subs.Cancel(ctx)
	l.reportPurchase(ctx, &plugin.PurchaseEvent{Kind: plugin.KindCancel, Result: res})
	return res
}

// RefreshSubscription re-reads the entitlement, for example when the app
// regains focus. It never fails.
func (l *Ledger) RefreshSubscription(ctx context.Context) subscription.State {
	return l.subs.Refresh(ctx)
}

func (l *Ledger) reportPurchase(ctx context.Context, ev *plugin.PurchaseEvent) {
	if ev.Result.Success {
		l.plugins.EmitPurchaseCompleted(ctx, ev)
		return
	}
	l.logger.Info("subscription operation did not complete",
		"kind", string(ev.Kind),
		"cancelled", ev.Result.Cancelled,
		"reason", ev.Result.Reason,
	)
	l.plugins.EmitPurchaseFailed(ctx, ev)
}

// onSubscriptionChange observes the entitlement cache. Premium visibility
// is computed on read, so only plugins need to hear about changes.
func (l *Ledger) onSubscriptionChange(st subscription.State) {
	l.subMu.Lock()
	prev := l.lastSub
	l.lastSub = st
	l.subMu.Unlock()

	if prev.Premium() == st.Premium() && prev.Status == st.Status && prev.Plan == st.Plan {
		return
	}

	l.logger.Info("subscription changed",
		"status", string(st.Status),
		"premium", st.Premium(),
		"plan", string(st.Plan),
	)
	l.plugins.EmitSubscriptionChanged(l.ctx, prev, st)
}
