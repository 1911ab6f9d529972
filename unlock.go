package unlock

import (
	"context"
	"fmt"

	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/grant"
	"github.com/xraph/unlock/id"
	"github.com/xraph/unlock/plugin"
)

// Method is how the user asks to unlock a section.
type Method string

const (
	MethodAd      Method = "ad"
	MethodPremium Method = "premium"
	MethodFree    Method = "free"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodAd, MethodPremium, MethodFree:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Result is the outcome of UnlockSection. Denials are reported here with a
// Spanish Reason; they are never returned as Go errors.
type Result struct {
	GrantID id.GrantID `json:"grant_id"`
	TestID  string     `json:"test_id"`
	Trait   string     `json:"trait"`
	Section string     `json:"section"`
	Method  Method     `json:"method"`
	Success bool       `json:"success"`
	// AlreadyUnlocked is set when a stored grant existed and nothing was
	// shown or consumed.
	AlreadyUnlocked bool `json:"already_unlocked,omitempty"`
	// Persisted is false when the grant lives only in memory because the
	// storage write failed.
	Persisted bool            `json:"persisted"`
	Reason    string          `json:"error,omitempty"`
	Err       error           `json:"-"`
	Ad        *ads.ShowResult `json:"ad,omitempty"`
}

// UnlockSection grants (testID, trait, section) by method.
//
// MethodPremium never writes a grant: premium visibility is derived from the
// subscription on every IsUnlocked call, so the result only reports whether
// the subscription currently covers the section. MethodAd persists a grant
// only after the reward is earned. MethodFree re-checks the daily allowance
// before granting, even when the section is already granted.
//
// A failed storage write does not fail the unlock; the grant stays in
// memory and Result.Persisted is false.
func (l *Ledger) UnlockSection(ctx context.Context, testID, trait, section string, method Method) (*Result, error) {
	switch {
	case testID == "":
		return nil, ValidationError{Field: "test_id", Message: "must not be empty"}
	case trait == "":
		return nil, ValidationError{Field: "trait", Message: "must not be empty"}
	case section == "":
		return nil, ValidationError{Field: "section", Message: "must not be empty"}
	}
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}

	res := &Result{TestID: testID, Trait: trait, Section: section, Method: method}

	if method == MethodPremium {
		if l.subs.State().Premium() {
			res.Success = true
			return res, nil
		}
		return l.deny(ctx, res, ErrPremiumRequired), nil
	}

	if grant.PremiumGated(trait, section) {
		// A stored grant here would never be read.
		return l.deny(ctx, res, ErrPremiumRequired), nil
	}

	if method == MethodFree {
		return l.unlockFree(ctx, res), nil
	}
	if l.alreadyUnlocked(res) {
		return res, nil
	}
	return l.unlockAd(ctx, res), nil
}

// alreadyUnlocked marks res successful when a grant is already stored.
func (l *Ledger) alreadyUnlocked(res *Result) bool {
	l.mu.RLock()
	ok := l.sections.Get(res.TestID, res.Trait, res.Section)
	l.mu.RUnlock()
	if ok {
		res.Success = true
		res.AlreadyUnlocked = true
		res.Persisted = true
	}
	return ok
}

// unlockFree re-checks the daily allowance first, so a stale second tap is
// denied even though the section is already granted.
func (l *Ledger) unlockFree(ctx context.Context, res *Result) *Result {
	key := grant.Key(res.TestID, res.Trait, res.Section)

	l.mu.Lock()
	today := l.today()
	if l.usage.UsedOn(key, today) {
		l.mu.Unlock()
		return l.deny(ctx, res, ErrFreeUnlockUsed)
	}
	if l.sections.Get(res.TestID, res.Trait, res.Section) {
		l.mu.Unlock()
		l.alreadyUnlocked(res)
		return res
	}
	l.sections.Set(res.TestID, res.Trait, res.Section)
	l.usage[key] = today
	l.sectionsVer++
	l.usageVer++
	snap := l.snapshotLocked()
	l.mu.Unlock()

	return l.granted(ctx, res, snap)
}

func (l *Ledger) unlockAd(ctx context.Context, res *Result) *Result {
	if l.ads == nil || !l.ads.Initialize(ctx) {
		return l.deny(ctx, res, ErrAdsUnavailable)
	}

	show := l.ads.ShowRewarded(ctx, l.placement(res.TestID, res.Trait, res.Section))
	res.Ad = show
	if !show.Success {
		l.plugins.EmitAdFailed(ctx, show)
		return l.deny(ctx, res, fmt.Errorf("%w: %w", ErrAdFailed, show.Err))
	}
	l.plugins.EmitAdShown(ctx, show)

	l.mu.Lock()
	l.sections.Set(res.TestID, res.Trait, res.Section)
	l.sectionsVer++
	snap := l.snapshotLocked()
	l.mu.Unlock()

	return l.granted(ctx, res, snap)
}

func (l *Ledger) granted(ctx context.Context, res *Result, snap snapshot) *Result {
	res.GrantID = id.NewGrantID()
	res.Success = true
	res.Persisted = l.persist(ctx, snap) == nil

	l.logger.Info("section unlocked",
		"grant_id", res.GrantID.String(),
		"test_id", res.TestID,
		"trait", res.Trait,
		"section", res.Section,
		"method", string(res.Method),
		"persisted", res.Persisted,
	)
	l.plugins.EmitSectionUnlocked(ctx, l.event(res))
	return res
}

func (l *Ledger) deny(ctx context.Context, res *Result, err error) *Result {
	res.Success = false
	res.Err = err
	res.Reason = Message(err)

	l.logger.Info("unlock denied",
		"test_id", res.TestID,
		"trait", res.Trait,
		"section", res.Section,
		"method", string(res.Method),
		"error", err,
	)
	l.plugins.EmitUnlockDenied(ctx, l.event(res))
	return res
}

func (l *Ledger) event(res *Result) *plugin.UnlockEvent {
	return &plugin.UnlockEvent{
		GrantID: res.GrantID,
		TestID:  res.TestID,
		Trait:   res.Trait,
		Section: res.Section,
		Method:  string(res.Method),
		Reason:  res.Reason,
		Err:     res.Err,
		At:      l.now(),
	}
}
