package unlock_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/unlock"
	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/grant"
	"github.com/xraph/unlock/id"
	"github.com/xraph/unlock/plugin"
	"github.com/xraph/unlock/store/memory"
	"github.com/xraph/unlock/subscription"
)

// ──────────────────────────────────────────────────
// Test doubles
// ──────────────────────────────────────────────────

type fakeSubs struct {
	mu        sync.Mutex
	state     subscription.State
	observers map[int]func(subscription.State)
	next      int
	restore   subscription.Result
}

func newFakeSubs() *fakeSubs {
	return &fakeSubs{
		state:     subscription.State{Status: subscription.StatusReady, IsActiveChecked: true},
		observers: make(map[int]func(subscription.State)),
	}
}

func (f *fakeSubs) set(st subscription.State) {
	f.mu.Lock()
	f.state = st
	fns := make([]func(subscription.State), 0, len(f.observers))
	for _, fn := range f.observers {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func (f *fakeSubs) setActive(active bool) {
	plan := subscription.PlanNone
	if active {
		plan = subscription.PlanMonthly
	}
	f.set(subscription.State{Status: subscription.StatusReady, IsActive: active, IsActiveChecked: true, Plan: plan})
}

func (f *fakeSubs) Initialize(context.Context) subscription.State { return f.State() }
func (f *fakeSubs) Refresh(context.Context) subscription.State    { return f.State() }

func (f *fakeSubs) State() subscription.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSubs) Subscribe(fn func(subscription.State)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := f.next
	f.next++
	f.observers[k] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.observers, k)
	}
}

func (f *fakeSubs) PurchasePlan(_ context.Context, plan subscription.Plan) subscription.Result {
	f.setActive(true)
	return subscription.Result{Success: true, State: f.State()}
}

func (f *fakeSubs) Restore(context.Context) subscription.Result { return f.restore }

func (f *fakeSubs) Cancel(context.Context) subscription.Result {
	return subscription.Result{Err: subscription.ErrCancelNotSupported, Reason: subscription.Message(subscription.ErrCancelNotSupported)}
}

type fakeAds struct {
	err   error
	shows atomic.Int32
}

func (a *fakeAds) Initialize(context.Context) bool { return true }

func (a *fakeAds) ShowRewarded(_ context.Context, placement string) *ads.ShowResult {
	a.shows.Add(1)
	if a.err != nil {
		return &ads.ShowResult{Placement: placement, Err: a.err, Reason: ads.Message(a.err)}
	}
	return &ads.ShowResult{Placement: placement, Success: true}
}

// testKV is a memory store that outlives ledgers and can fail writes and
// the next failGet reads.
type testKV struct {
	*memory.Store
	failSet atomic.Bool
	failGet atomic.Int32
}

func newTestKV() *testKV { return &testKV{Store: memory.New()} }

func (k *testKV) Get(ctx context.Context, key string) (string, error) {
	if k.failGet.Add(-1) >= 0 {
		return "", errors.New("connection reset")
	}
	return k.Store.Get(ctx, key)
}

func (k *testKV) Set(ctx context.Context, key, value string) error {
	if k.failSet.Load() {
		return errors.New("disk full")
	}
	return k.Store.Set(ctx, key, value)
}

func (k *testKV) Close() error { return nil }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type events struct {
	mu   sync.Mutex
	seen []string
}

func (e *events) Name() string { return "events" }

func (e *events) add(s string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, s)
	return nil
}

func (e *events) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.seen...)
}

func (e *events) OnSectionUnlocked(_ context.Context, ev *plugin.UnlockEvent) error {
	return e.add("unlocked:" + ev.Method + ":" + ev.Section)
}

func (e *events) OnUnlockDenied(_ context.Context, ev *plugin.UnlockEvent) error {
	return e.add("denied:" + ev.Method + ":" + ev.Section)
}

func (e *events) OnStorageError(_ context.Context, op string, _ error) error {
	return e.add("storage:" + op)
}

func (e *events) OnSubscriptionChanged(_ context.Context, _, n subscription.State) error {
	return e.add(fmt.Sprintf("subscription:%t", n.Premium()))
}

func (e *events) OnPurchaseCompleted(_ context.Context, ev *plugin.PurchaseEvent) error {
	return e.add("purchase_ok:" + string(ev.Kind))
}

func (e *events) OnPurchaseFailed(_ context.Context, ev *plugin.PurchaseEvent) error {
	return e.add("purchase_failed:" + string(ev.Kind))
}

type env struct {
	kv    *testKV
	subs  *fakeSubs
	ads   *fakeAds
	clock *clock
	ev    *events
	l     *unlock.Ledger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		kv:    newTestKV(),
		subs:  newFakeSubs(),
		ads:   &fakeAds{},
		clock: &clock{now: time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)},
		ev:    &events{},
	}
	e.l = e.ledger(t)
	return e
}

// ledger starts a new ledger over e's storage.
func (e *env) ledger(t *testing.T) *unlock.Ledger {
	t.Helper()
	l := unlock.New(grant.NewKVStore(e.kv), e.subs, e.ads,
		unlock.WithClock(e.clock.Now),
		unlock.WithLocation(time.UTC),
		unlock.WithPlugin(e.ev),
	)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })
	return l
}

// ──────────────────────────────────────────────────
// Decision function
// ──────────────────────────────────────────────────

func TestPremiumOverridesStoredGrants(t *testing.T) {
	e := newEnv(t)
	e.subs.setActive(true)

	assert.True(t, e.l.IsUnlocked("t", "tr", "premium"))
	assert.True(t, e.l.IsUnlocked("t", "tr", "premium_global"))
	assert.True(t, e.l.IsUnlocked("t", "global", "anything"))
	assert.False(t, e.l.IsUnlocked("t", "tr", "ad_unlock"), "premium does not cover stored-grant sections")
}

func TestPremiumRequiresCompletedCheck(t *testing.T) {
	e := newEnv(t)
	e.subs.set(subscription.State{Status: subscription.StatusInitializing, IsActive: true, IsLoading: true})

	assert.False(t, e.l.IsUnlocked("t", "tr", "premium"))
	assert.False(t, e.l.IsUnlocked("t", "global", "x"))

	e.subs.set(subscription.State{Status: subscription.StatusReady, IsActive: true, IsActiveChecked: true})
	assert.True(t, e.l.IsUnlocked("t", "tr", "premium"))
}

func TestIsUnlockedDoesNotCreatePaths(t *testing.T) {
	e := newEnv(t)
	assert.False(t, e.l.IsUnlocked("missing", "trait", "section"))
	assert.Empty(t, e.l.Snapshot())
}

// ──────────────────────────────────────────────────
// Ad unlocks
// ──────────────────────────────────────────────────

func TestAdUnlockPersistsAcrossReload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.l.UnlockSection(ctx, "t", "tr", "s", unlock.MethodAd)
	require.NoError(t, err)
	require.True(t, res.Success, res.Reason)
	assert.True(t, res.Persisted)
	assert.False(t, res.GrantID.IsNil())
	assert.True(t, e.l.IsUnlocked("t", "tr", "s"))

	reloaded := e.ledger(t)
	assert.True(t, reloaded.IsUnlocked("t", "tr", "s"))
}

func TestAdFailureDoesNotGrant(t *testing.T) {
	e := newEnv(t)
	e.ads.err = ads.ErrNotRewarded

	res, err := e.l.UnlockSection(context.Background(), "t", "tr", "s", unlock.MethodAd)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, unlock.ErrAdFailed)
	assert.ErrorIs(t, res.Err, ads.ErrNotRewarded)
	assert.Equal(t, "El anuncio se cerró antes de completarse.", res.Reason)
	assert.True(t, unlock.IsRetryable(res.Err))
	assert.False(t, e.l.IsUnlocked("t", "tr", "s"))

	_, err = e.kv.Get(context.Background(), grant.DefaultSectionsKey)
	assert.Error(t, err, "nothing may be written before a reward")
	assert.Contains(t, e.ev.list(), "denied:ad:s")
}

func TestAdUnlockSkipsAdWhenAlreadyGranted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.l.UnlockSection(ctx, "t", "tr", "s", unlock.MethodAd)
	require.NoError(t, err)
	res, err := e.l.UnlockSection(ctx, "t", "tr", "s", unlock.MethodAd)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.AlreadyUnlocked)
	assert.Equal(t, int32(1), e.ads.shows.Load())
}

func TestAdUnlockWithoutAds(t *testing.T) {
	l := unlock.New(grant.NewKVStore(memory.New()), newFakeSubs(), nil)
	res, err := l.UnlockSection(context.Background(), "t", "tr", "s", unlock.MethodAd)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, unlock.ErrAdsUnavailable)
}

func TestCooldownSurfacesAsBusinessRejection(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)}
	adm := ads.NewManager(nil, ads.WithMockDuration(0), ads.WithClock(c.Now))
	l := unlock.New(grant.NewKVStore(memory.New()), newFakeSubs(), adm)
	ctx := context.Background()

	first, err := l.UnlockSection(ctx, "t", "a", "ad_unlock", unlock.MethodAd)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := l.UnlockSection(ctx, "t", "b", "ad_unlock", unlock.MethodAd)
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.True(t, unlock.IsBusinessRejection(second.Err))
	assert.Equal(t, "Espera 90 segundos antes de ver otro anuncio.", second.Reason)
	assert.False(t, l.IsUnlocked("t", "b", "ad_unlock"))
}

// ──────────────────────────────────────────────────
// Free unlocks
// ──────────────────────────────────────────────────

func TestFreeUnlockOncePerCalendarDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.True(t, e.l.CanUseFreeUnlock("t", "tr", "s"))
	res, err := e.l.UnlockSection(ctx, "t", "tr", "s", unlock.MethodFree)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, e.l.IsUnlocked("t", "tr", "s"))
	assert.False(t, e.l.CanUseFreeUnlock("t", "tr", "s"))
	assert.Equal(t, "Mon Jan 06 2025", e.l.DailyUsage()["t_tr_s"])

	// A stale second tap is denied.
	again, err := e.l.UnlockSection(ctx, "t", "tr", "s", unlock.MethodFree)
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.ErrorIs(t, again.Err, unlock.ErrFreeUnlockUsed)
	assert.Equal(t, "Ya usaste tu desbloqueo gratuito de hoy. Vuelve mañana.", again.Reason)

	// Other sections keep their own allowance.
	assert.True(t, e.l.CanUseFreeUnlock("t", "tr", "other"))

	e.clock.Advance(24 * time.Hour)
	assert.True(t, e.l.CanUseFreeUnlock("t", "tr", "s"))
}

func TestFreeUnlockUsesCalendarDays(t *testing.T) {
	e := newEnv(t)
	e.clock.now = time.Date(2025, 1, 6, 23, 59, 0, 0, time.UTC)

	_, err := e.l.UnlockSection(context.Background(), "t", "tr", "s", unlock.MethodFree)
	require.NoError(t, err)
	assert.False(t, e.l.CanUseFreeUnlock("t", "tr", "s"))

	e.clock.Advance(2 * time.Minute)
	assert.True(t, e.l.CanUseFreeUnlock("t", "tr", "s"), "a new calendar day restores the allowance")
}

func TestFreeUnlockDeniedAfterRetakeSameDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.l.UnlockSection(ctx, "t", "tr", "s", unlock.MethodFree)
	require.NoError(t, err)
	require.NoError(t, e.l.RefreshUnlockState(ctx, "t"))
	assert.False(t, e.l.IsUnlocked("t", "tr", "s"))

	res, err := e.l.UnlockSection(ctx, "t", "tr", "s", unlock.MethodFree)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, unlock.ErrFreeUnlockUsed)
	assert.False(t, e.l.IsUnlocked("t", "tr", "s"))
}

// ──────────────────────────────────────────────────
// Premium method
// ──────────────────────────────────────────────────

func TestPremiumMethodNeverWritesGrant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.l.UnlockSection(ctx, "t", "tr", "premium", unlock.MethodPremium)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, unlock.ErrPremiumRequired)
	assert.True(t, unlock.IsBusinessRejection(res.Err))

	e.subs.setActive(true)
	res, err = e.l.UnlockSection(ctx, "t", "tr", "premium", unlock.MethodPremium)
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.Empty(t, e.l.Snapshot())
	keys, err := e.kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	e.subs.setActive(false)
	assert.False(t, e.l.IsUnlocked("t", "tr", "premium"))
}

func TestPremiumGatedSectionRejectsAdAndFree(t *testing.T) {
	e := newEnv(t)
	for _, m := range []unlock.Method{unlock.MethodAd, unlock.MethodFree} {
		res, err := e.l.UnlockSection(context.Background(), "t", "global", "detalle", m)
		require.NoError(t, err)
		assert.ErrorIs(t, res.Err, unlock.ErrPremiumRequired)
	}
	assert.Zero(t, e.ads.shows.Load())
	assert.Empty(t, e.l.Snapshot())
}

// ──────────────────────────────────────────────────
// Scenarios
// ──────────────────────────────────────────────────

func TestScenarioAdUnlockWithoutSubscription(t *testing.T) {
	subs := subscription.NewManager(nil)
	adm := ads.NewManager(nil, ads.WithMockDuration(0))
	l := unlock.New(grant.NewKVStore(memory.New()), subs, adm)
	ctx := context.Background()
	subs.Initialize(ctx)

	assert.False(t, l.IsUnlocked("autoestima", "confianza", "ad_unlock"))
	assert.True(t, l.CanUseFreeUnlock("autoestima", "confianza", "ad_unlock"))

	res, err := l.UnlockSection(ctx, "autoestima", "confianza", "ad_unlock", unlock.MethodAd)
	require.NoError(t, err)
	require.True(t, res.Success, res.Reason)
	assert.True(t, res.Ad.Mock)

	assert.True(t, l.IsUnlocked("autoestima", "confianza", "ad_unlock"))
	assert.False(t, l.IsUnlocked("autoestima", "confianza", "premium"))
}

func TestScenarioSubscriptionLapse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.l.UnlockSection(ctx, "t", "tr", "ad_unlock", unlock.MethodAd)
	require.NoError(t, err)
	assert.True(t, e.l.IsUnlocked("t", "tr", "ad_unlock"))
	assert.False(t, e.l.IsUnlocked("t", "tr", "premium"))

	e.subs.setActive(true)
	assert.True(t, e.l.IsUnlocked("t", "tr", "ad_unlock"))
	assert.True(t, e.l.IsUnlocked("t", "tr", "premium"))

	e.subs.setActive(false)
	assert.True(t, e.l.IsUnlocked("t", "tr", "ad_unlock"))
	assert.False(t, e.l.IsUnlocked("t", "tr", "premium"))

	assert.Contains(t, e.ev.list(), "subscription:true")
	assert.Contains(t, e.ev.list(), "subscription:false")
}

// ──────────────────────────────────────────────────
// Persistence
// ──────────────────────────────────────────────────

func TestStorageFailureIsBestEffort(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.kv.failSet.Store(true)

	res, err := e.l.UnlockSection(ctx, "t", "tr", "a", unlock.MethodAd)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Persisted)
	assert.True(t, e.l.IsUnlocked("t", "tr", "a"))
	assert.Contains(t, e.ev.list(), "storage:save_sections")

	// The next successful write carries the earlier grant too.
	e.kv.failSet.Store(false)
	res, err = e.l.UnlockSection(ctx, "t", "tr", "b", unlock.MethodAd)
	require.NoError(t, err)
	assert.True(t, res.Persisted)

	reloaded := e.ledger(t)
	assert.True(t, reloaded.IsUnlocked("t", "tr", "a"))
	assert.True(t, reloaded.IsUnlocked("t", "tr", "b"))
}

func TestConcurrentUnlocksDoNotClobber(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			method := unlock.MethodAd
			if i%2 == 0 {
				method = unlock.MethodFree
			}
			res, err := e.l.UnlockSection(ctx, "t", fmt.Sprintf("trait-%d", i), "s", method)
			assert.NoError(t, err)
			assert.True(t, res.Success)
		}()
	}
	wg.Wait()

	reloaded := e.ledger(t)
	for i := range n {
		assert.True(t, reloaded.IsUnlocked("t", fmt.Sprintf("trait-%d", i), "s"), "trait-%d", i)
	}
	assert.Len(t, reloaded.DailyUsage(), (n+1)/2)
}

func TestRefreshUnlockState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, test := range []string{"autoestima", "ansiedad"} {
		_, err := e.l.UnlockSection(ctx, test, "tr", "s", unlock.MethodAd)
		require.NoError(t, err)
	}

	t.Run("SingleTest", func(t *testing.T) {
		require.NoError(t, e.l.RefreshUnlockState(ctx, "autoestima"))
		assert.False(t, e.l.IsUnlocked("autoestima", "tr", "s"))
		assert.True(t, e.l.IsUnlocked("ansiedad", "tr", "s"))

		reloaded := e.ledger(t)
		assert.False(t, reloaded.IsUnlocked("autoestima", "tr", "s"))
		assert.True(t, reloaded.IsUnlocked("ansiedad", "tr", "s"))
	})

	t.Run("UnknownTest", func(t *testing.T) {
		assert.NoError(t, e.l.RefreshUnlockState(ctx, "never-taken"))
	})

	t.Run("FullReload", func(t *testing.T) {
		external := grant.Sections{}
		external.Set("depresion", "tr", "s")
		require.NoError(t, grant.NewKVStore(e.kv).SaveSections(ctx, external))

		require.NoError(t, e.l.RefreshUnlockState(ctx, ""))
		assert.True(t, e.l.IsUnlocked("depresion", "tr", "s"))
		assert.False(t, e.l.IsUnlocked("ansiedad", "tr", "s"))
	})
}

func TestResetAll(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.l.UnlockSection(ctx, "t", "tr", "s", unlock.MethodFree)
	require.NoError(t, err)
	require.NoError(t, e.l.ResetAll(ctx))

	assert.False(t, e.l.IsUnlocked("t", "tr", "s"))
	assert.True(t, e.l.CanUseFreeUnlock("t", "tr", "s"))
	keys, err := e.kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStartWithCorruptBlob(t *testing.T) {
	kv := newTestKV()
	require.NoError(t, kv.Set(context.Background(), grant.DefaultSectionsKey, "{oops"))

	ev := &events{}
	l := unlock.New(grant.NewKVStore(kv), newFakeSubs(), &fakeAds{}, unlock.WithPlugin(ev))
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	assert.Empty(t, l.Snapshot())
	assert.Contains(t, ev.list(), "storage:load_sections")
}

func TestTransientLoadFailureKeepsStoredGrants(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.l.UnlockSection(ctx, "autoestima", "confianza", unlock.SectionAdUnlock, unlock.MethodAd)
	require.NoError(t, err)
	_, err = e.l.UnlockSection(ctx, "autoestima", "confianza", "detalle", unlock.MethodFree)
	require.NoError(t, err)

	t.Run("RecoveredBeforeWrite", func(t *testing.T) {
		e.kv.failGet.Store(2)
		l := e.ledger(t)
		assert.Empty(t, l.Snapshot())
		assert.Contains(t, e.ev.list(), "storage:load_sections")
		assert.Contains(t, e.ev.list(), "storage:load_daily_usage")

		res, err := l.UnlockSection(ctx, "ansiedad", "tr", "s", unlock.MethodAd)
		require.NoError(t, err)
		assert.True(t, res.Persisted)
		assert.True(t, l.IsUnlocked("autoestima", "confianza", unlock.SectionAdUnlock))

		reloaded := e.ledger(t)
		assert.True(t, reloaded.IsUnlocked("autoestima", "confianza", unlock.SectionAdUnlock))
		assert.True(t, reloaded.IsUnlocked("ansiedad", "tr", "s"))
		assert.False(t, reloaded.CanUseFreeUnlock("autoestima", "confianza", "detalle"))
	})

	t.Run("StillUnreadable", func(t *testing.T) {
		e.kv.failGet.Store(1000)
		l := e.ledger(t)

		res, err := l.UnlockSection(ctx, "depresion", "tr", "s", unlock.MethodAd)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.False(t, res.Persisted)
		assert.True(t, l.IsUnlocked("depresion", "tr", "s"))

		e.kv.failGet.Store(0)
		assert.True(t, e.ledger(t).IsUnlocked("autoestima", "confianza", unlock.SectionAdUnlock))

		// Once storage reads again the next write merges instead of replacing.
		res, err = l.UnlockSection(ctx, "depresion", "tr", "s2", unlock.MethodAd)
		require.NoError(t, err)
		assert.True(t, res.Persisted)

		reloaded := e.ledger(t)
		assert.True(t, reloaded.IsUnlocked("autoestima", "confianza", unlock.SectionAdUnlock))
		assert.True(t, reloaded.IsUnlocked("depresion", "tr", "s"))
		assert.True(t, reloaded.IsUnlocked("depresion", "tr", "s2"))
	})

	t.Run("ClearedTestStaysCleared", func(t *testing.T) {
		e.kv.failGet.Store(1000)
		l := e.ledger(t)

		err := l.RefreshUnlockState(ctx, "autoestima")
		assert.ErrorIs(t, err, unlock.ErrStorage)

		e.kv.failGet.Store(0)
		res, err := l.UnlockSection(ctx, "otro", "tr", "s", unlock.MethodAd)
		require.NoError(t, err)
		assert.True(t, res.Persisted)

		reloaded := e.ledger(t)
		assert.False(t, reloaded.IsUnlocked("autoestima", "confianza", unlock.SectionAdUnlock))
		assert.True(t, reloaded.IsUnlocked("ansiedad", "tr", "s"))
		assert.True(t, reloaded.IsUnlocked("otro", "tr", "s"))
	})
}

func TestSessionPerStart(t *testing.T) {
	e := newEnv(t)
	first := e.l.Session()
	assert.Equal(t, id.PrefixSession, first.Prefix())

	second := e.ledger(t).Session()
	assert.Equal(t, id.PrefixSession, second.Prefix())
	assert.NotEqual(t, first.String(), second.String())

	assert.True(t, unlock.New(grant.NewKVStore(e.kv), e.subs, e.ads).Session().IsNil())
}

// ──────────────────────────────────────────────────
// Input validation and subscription passthroughs
// ──────────────────────────────────────────────────

func TestUnlockSectionValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.l.UnlockSection(ctx, "", "tr", "s", unlock.MethodAd)
	assert.ErrorIs(t, err, unlock.ErrInvalidInput)
	var ve unlock.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "test_id", ve.Field)

	_, err = e.l.UnlockSection(ctx, "t", "tr", "s", unlock.Method("coupon"))
	assert.ErrorIs(t, err, unlock.ErrUnknownMethod)

	m, err := unlock.ParseMethod("free")
	require.NoError(t, err)
	assert.Equal(t, unlock.MethodFree, m)
}

func TestSubscriptionPassthroughs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res := e.l.PurchaseSubscription(ctx, subscription.PlanYearly)
	assert.True(t, res.Success)
	assert.True(t, e.l.Subscription().Premium())
	assert.True(t, e.l.IsUnlocked("t", "tr", "premium"))

	e.subs.restore = subscription.Result{Err: subscription.ErrNoPurchasesFound}
	assert.False(t, e.l.RestorePurchases(ctx).Success)

	cancel := e.l.CancelSubscription(ctx)
	assert.False(t, cancel.Success)
	assert.ErrorIs(t, cancel.Err, subscription.ErrCancelNotSupported)

	assert.True(t, e.l.RefreshSubscription(ctx).IsActive)

	got := e.ev.list()
	assert.Contains(t, got, "purchase_ok:purchase")
	assert.Contains(t, got, "purchase_failed:restore")
	assert.Contains(t, got, "purchase_failed:cancel")
}
