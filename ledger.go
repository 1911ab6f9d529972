package unlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/grant"
	"github.com/xraph/unlock/id"
	"github.com/xraph/unlock/plugin"
	"github.com/xraph/unlock/subscription"
)

// SubscriptionSource is the entitlement cache premium sections are gated
// on. *subscription.Manager implements it.
type SubscriptionSource interface {
	Initialize(ctx context.Context) subscription.State
	State() subscription.State
	Subscribe(fn func(subscription.State)) (unsubscribe func())
	Refresh(ctx context.Context) subscription.State
	PurchasePlan(ctx context.Context, plan subscription.Plan) subscription.Result
	Restore(ctx context.Context) subscription.Result
	Cancel(ctx context.Context) subscription.Result
}

// AdShower shows rewarded ads. *ads.Manager implements it.
type AdShower interface {
	Initialize(ctx context.Context) bool
	ShowRewarded(ctx context.Context, placement string) *ads.ShowResult
}

// Ledger is the unlock engine. It owns the in-memory grant and daily-usage
// maps, loaded once from the grant store and written back after every
// mutation.
type Ledger struct {
	grants    grant.Store
	subs      SubscriptionSource
	ads       AdShower
	plugins   *plugin.Registry
	logger    *slog.Logger
	now       func() time.Time
	loc       *time.Location
	placement func(testID, trait, section string) string
	migrate   bool

	mu          sync.RWMutex
	sections    grant.Sections
	usage       grant.DailyUsage
	sectionsVer uint64
	usageVer    uint64

	// persistMu serializes writes; the written versions let an older
	// snapshot that lost the race be skipped instead of clobbering a newer
	// blob. A stale blob failed to load and is never overwritten until a
	// later load has merged it into memory; pendingDrops are tests cleared
	// while the sections blob was stale.
	persistMu       sync.Mutex
	writtenSections uint64
	writtenUsage    uint64
	sectionsStale   bool
	usageStale      bool
	pendingDrops    []string

	session id.SessionID

	subMu       sync.Mutex
	lastSub     subscription.State
	unsubscribe func()

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates a new Ledger. subs must not be nil; ads may be nil, in which
// case ad unlocks are rejected with ErrAdsUnavailable.
func New(grants grant.Store, subs SubscriptionSource, adShower AdShower, opts ...Option) *Ledger {
	l := &Ledger{
		grants:   grants,
		subs:     subs,
		ads:      adShower,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		now:      time.Now,
		loc:      time.Local,
		migrate:  true,
		sections: make(grant.Sections),
		usage:    make(grant.DailyUsage),
	}
	l.placement = func(_, _, section string) string { return section }

	for _, opt := range opts {
		opt(l)
	}

	l.logger = l.logger.With("component", "unlock")
	return l
}

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Start migrates the store, loads the persisted blobs, subscribes to
// subscription changes and initializes the providers in the background. A
// failed load is logged and the ledger starts empty; a blob that could not
// be read is loaded again and merged before the first write replaces it.
func (l *Ledger) Start(ctx context.Context) error {
	if l.started {
		return nil
	}

	if l.migrate {
		if err := l.grants.Migrate(ctx); err != nil {
			return fmt.Errorf("unlock: migrate: %w", err)
		}
	}

	if err := l.loadInitial(ctx); err != nil {
		l.logger.Warn("starting with empty unlock state", "error", err)
	}

	l.ctx, l.cancel = context.WithCancel(context.WithoutCancel(ctx))
	l.lastSub = l.subs.State()
	l.unsubscribe = l.subs.Subscribe(l.onSubscriptionChange)

	l.wg.Add(1)
	go l.initProviders()

	l.plugins.EmitInit(ctx, l)
	l.started = true
	l.session = id.NewSessionID()

	l.mu.RLock()
	l.logger.Info("unlock ledger started",
		"session_id", l.session.String(),
		"granted_sections", l.sections.Count(),
		"daily_usage_entries", len(l.usage),
		"location", l.loc.String(),
	)
	l.mu.RUnlock()
	return nil
}

func (l *Ledger) initProviders() {
	defer l.wg.Done()

	st := l.subs.Initialize(l.ctx)
	l.logger.Debug("subscription initialized", "status", string(st.Status))
	if l.ads != nil {
		l.ads.Initialize(l.ctx)
	}
}

// Stop disposes the ledger: it stops observing the subscription, waits
// for background initialization, notifies plugins and closes the store.
func (l *Ledger) Stop() error {
	if !l.started {
		return l.grants.Close()
	}
	l.started = false

	l.cancel()
	l.wg.Wait()
	if l.unsubscribe != nil {
		l.unsubscribe()
	}

	if d, ok := l.ads.(interface{ Dispose() }); ok {
		d.Dispose()
	}

	l.plugins.EmitShutdown(context.Background())
	l.logger.Info("unlock ledger stopped", "session_id", l.session.String())
	return l.grants.Close()
}

// Session returns the ID of the current Start..Stop lifetime, or id.Nil
// before the first Start.
func (l *Ledger) Session() id.SessionID { return l.session }

// loadInitial reads both blobs at startup. A corrupt blob is treated as
// empty and may be overwritten; any other failure marks the blob stale.
func (l *Ledger) loadInitial(ctx context.Context) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	var errs []error

	sections, err := l.grants.LoadSections(ctx)
	if err != nil {
		l.storageError(ctx, "load_sections", err)
		l.sectionsStale = !errors.Is(err, grant.ErrCorrupt)
		errs = append(errs, err)
	} else {
		l.mu.Lock()
		l.sections = sections
		l.sectionsVer++
		l.writtenSections = l.sectionsVer
		l.mu.Unlock()
	}

	usage, err := l.grants.LoadDailyUsage(ctx)
	if err != nil {
		l.storageError(ctx, "load_daily_usage", err)
		l.usageStale = !errors.Is(err, grant.ErrCorrupt)
		errs = append(errs, err)
	} else {
		l.mu.Lock()
		l.usage = usage
		l.usageVer++
		l.writtenUsage = l.usageVer
		l.mu.Unlock()
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrStorage, errors.Join(errs...))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// IsUnlocked reports whether (testID, trait, section) is visible. Premium
// sections and "global" traits follow the subscription, regardless of any
// stored grant; everything else follows the stored grant.
func (l *Ledger) IsUnlocked(testID, trait, section string) bool {
	if grant.PremiumGated(trait, section) {
		return l.subs.State().Premium()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sections.Get(testID, trait, section)
}

// CanUseFreeUnlock reports whether today's free unlock for the section is
// still available. Days are calendar days in the ledger's location.
func (l *Ledger) CanUseFreeUnlock(testID, trait, section string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.usage.UsedOn(grant.Key(testID, trait, section), l.today())
}

func (l *Ledger) today() string {
	return grant.Day(l.now().In(l.loc))
}

// Snapshot returns a copy of the stored grants.
func (l *Ledger) Snapshot() grant.Sections {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sections.Clone()
}

// DailyUsage returns a copy of the free-unlock usage record.
func (l *Ledger) DailyUsage() grant.DailyUsage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.usage.Clone()
}

// ──────────────────────────────────────────────────
// State reload
// ──────────────────────────────────────────────────

// RefreshUnlockState with an empty testID reloads both blobs from storage,
// discarding in-memory state; if loading fails the in-memory state is kept
// and the error returned. With a testID it drops that test's grants and
// persists the result.
func (l *Ledger) RefreshUnlockState(ctx context.Context, testID string) error {
	if testID != "" {
		l.persistMu.Lock()
		stale := l.sectionsStale
		if stale {
			l.pendingDrops = append(l.pendingDrops, testID)
		}
		l.persistMu.Unlock()

		l.mu.Lock()
		if !l.sections.DeleteTest(testID) && !stale {
			l.mu.Unlock()
			return nil
		}
		l.sectionsVer++
		snap := l.snapshotLocked()
		l.mu.Unlock()

		l.logger.Info("test grants cleared", "test_id", testID)
		return l.persist(ctx, snap)
	}

	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	sections, err := l.grants.LoadSections(ctx)
	if err != nil {
		l.storageError(ctx, "load_sections", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	usage, err := l.grants.LoadDailyUsage(ctx)
	if err != nil {
		l.storageError(ctx, "load_daily_usage", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	l.mu.Lock()
	l.sections = sections
	l.usage = usage
	l.sectionsVer++
	l.usageVer++
	l.writtenSections = l.sectionsVer
	l.writtenUsage = l.usageVer
	l.mu.Unlock()

	l.sectionsStale, l.usageStale, l.pendingDrops = false, false, nil
	return nil
}

// ResetAll deletes every grant and usage record, in storage and in memory.
// Memory is cleared even when storage fails, and whatever storage still
// holds is overwritten by the next write.
func (l *Ledger) ResetAll(ctx context.Context) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	err := l.grants.Reset(ctx)
	l.sectionsStale, l.usageStale, l.pendingDrops = false, false, nil

	l.mu.Lock()
	l.sections = make(grant.Sections)
	l.usage = make(grant.DailyUsage)
	l.sectionsVer++
	l.usageVer++
	if err == nil {
		l.writtenSections = l.sectionsVer
		l.writtenUsage = l.usageVer
	}
	l.mu.Unlock()

	if err != nil {
		l.storageError(ctx, "reset", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	l.logger.Info("unlock state reset")
	return nil
}

// ──────────────────────────────────────────────────
// Persistence
// ──────────────────────────────────────────────────

type snapshot struct {
	sections    grant.Sections
	sectionsVer uint64
	usage       grant.DailyUsage
	usageVer    uint64
}

func (l *Ledger) snapshotLocked() snapshot {
	return snapshot{
		sections:    l.sections.Clone(),
		sectionsVer: l.sectionsVer,
		usage:       l.usage.Clone(),
		usageVer:    l.usageVer,
	}
}

// errNotLoaded reports a write skipped because the stored blob it would
// replace has never been read.
var errNotLoaded = errors.New("unlock: stored state not loaded")

// persist writes the blobs of snap that are newer than what storage holds.
// Writes are serialized, so the last write always carries every mutation
// made before its snapshot was taken.
func (l *Ledger) persist(ctx context.Context, snap snapshot) error {
	ctx = context.WithoutCancel(ctx)

	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	if l.sectionsStale || l.usageStale {
		snap = l.recoverLocked(ctx)
	}

	var errs []error
	if l.sectionsStale {
		errs = append(errs, fmt.Errorf("sections: %w", errNotLoaded))
	} else if snap.sectionsVer > l.writtenSections {
		if err := l.grants.SaveSections(ctx, snap.sections); err != nil {
			l.storageError(ctx, "save_sections", err)
			errs = append(errs, err)
		} else {
			l.writtenSections = snap.sectionsVer
		}
	}
	if l.usageStale {
		errs = append(errs, fmt.Errorf("daily usage: %w", errNotLoaded))
	} else if snap.usageVer > l.writtenUsage {
		if err := l.grants.SaveDailyUsage(ctx, snap.usage); err != nil {
			l.storageError(ctx, "save_daily_usage", err)
			errs = append(errs, err)
		} else {
			l.writtenUsage = snap.usageVer
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrStorage, errors.Join(errs...))
	}
	return nil
}

// recoverLocked loads the stale blobs again and merges them under the
// in-memory state, then returns a fresh snapshot. Callers hold persistMu.
func (l *Ledger) recoverLocked(ctx context.Context) snapshot {
	if l.sectionsStale {
		stored, err := l.grants.LoadSections(ctx)
		switch {
		case err == nil || errors.Is(err, grant.ErrCorrupt):
			if err != nil {
				l.storageError(ctx, "load_sections", err)
			}
			for _, testID := range l.pendingDrops {
				stored.DeleteTest(testID)
			}
			l.mu.Lock()
			l.sections.Merge(stored)
			l.sectionsVer++
			l.mu.Unlock()
			l.sectionsStale, l.pendingDrops = false, nil
			l.logger.Info("stored grants recovered", "granted_sections", stored.Count())
		default:
			l.storageError(ctx, "load_sections", err)
		}
	}

	if l.usageStale {
		stored, err := l.grants.LoadDailyUsage(ctx)
		switch {
		case err == nil || errors.Is(err, grant.ErrCorrupt):
			if err != nil {
				l.storageError(ctx, "load_daily_usage", err)
			}
			l.mu.Lock()
			l.usage.Merge(stored)
			l.usageVer++
			l.mu.Unlock()
			l.usageStale = false
		default:
			l.storageError(ctx, "load_daily_usage", err)
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Ledger) storageError(ctx context.Context, op string, err error) {
	l.logger.Error("storage operation failed", "op", op, "error", err)
	l.plugins.EmitStorageError(ctx, op, err)
}
