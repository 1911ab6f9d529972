// Package subscription normalizes the billing provider's asynchronous,
// possibly failing state into a stable State the unlock ledger can gate
// premium content on.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xraph/unlock/entitlement"
	"github.com/xraph/unlock/id"
	"github.com/xraph/unlock/internal/timeout"
	"github.com/xraph/unlock/platform"
)

// Manager is the entitlement cache. Create one per process with NewManager
// and call Initialize once at startup.
type Manager struct {
	real     entitlement.Provider
	mock     *entitlement.MockProvider
	provider entitlement.Provider
	mode     platform.Mode
	env      platform.Environment
	detect   platform.Detector
	logger   *slog.Logger

	apiKey           string
	entitlementKey   string
	handshakeTimeout time.Duration
	offeringsTimeout time.Duration

	mu        sync.RWMutex
	state     State
	offering  *entitlement.Offering
	observers map[int]func(State)
	nextObs   int

	refreshGroup singleflight.Group
}

// NewManager creates a Manager. The provider implementation is chosen here,
// once: real when the environment can purchase and real is non-nil, the
// mock otherwise.
func NewManager(real entitlement.Provider, opts ...Option) *Manager {
	m := &Manager{
		real:             real,
		detect:           platform.Detect,
		logger:           slog.Default(),
		entitlementKey:   entitlement.DefaultEntitlementKey,
		handshakeTimeout: 8 * time.Second,
		offeringsTimeout: 3 * time.Second,
		state:            State{Status: StatusUninitialized, IsLoading: true},
		observers:        make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.mock == nil {
		m.mock = entitlement.NewMockProvider(entitlement.WithMockEntitlementKey(m.entitlementKey))
	}

	m.mode = m.detect(m.env)
	if real == nil {
		m.mode = platform.ModeMock
	}
	if m.mode == platform.ModeMock {
		m.provider = m.mock
	} else {
		m.provider = real
	}

	m.logger = m.logger.With("component", "subscription")
	return m
}

// Mode returns the provider mode selected at construction.
func (m *Manager) Mode() platform.Mode { return m.mode }

// State returns a copy of the current subscription state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Offerings returns the purchasable packages: the provider's current
// offering when ready, the placeholder catalog otherwise.
func (m *Manager) Offerings() []entitlement.Package {
	m.mu.RLock()
	defer m.mu.RUnlock()

	off := m.offering
	if off == nil {
		off = entitlement.PlaceholderOffering()
	}
	out := make([]entitlement.Package, len(off.AvailablePackages))
	copy(out, off.AvailablePackages)
	return out
}

// Subscribe registers fn to be called after every state change. The
// returned function removes it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.nextObs
	m.nextObs++
	m.observers[key] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.observers, key)
	}
}

// ──────────────────────────────────────────────────
// Initialization
// ──────────────────────────────────────────────────

// Initialize performs the provider handshake. Only the first call does
// work; later calls return the current state.
func (m *Manager) Initialize(ctx context.Context) State {
	if err := m.beginInitializing(StatusUninitialized); err != nil {
		return m.State()
	}
	return m.handshake(ctx)
}

// Retry repeats the handshake after a failed initialization. It is a
// no-op in any state other than error.
func (m *Manager) Retry(ctx context.Context) State {
	if err := m.beginInitializing(StatusError); err != nil {
		return m.State()
	}
	m.logger.Info("retrying provider handshake")
	return m.handshake(ctx)
}

func (m *Manager) beginInitializing(from Status) error {
	m.mu.Lock()
	if m.state.Status != from || !CanTransition(from, StatusInitializing) {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	m.state.Status = StatusInitializing
	m.state.IsLoading = true
	m.state.Error = ""
	m.mu.Unlock()

	m.notify()
	return nil
}

func (m *Manager) handshake(ctx context.Context) State {
	start := time.Now()

	if m.mode == platform.ModeMock {
		info, _ := m.mock.GetCustomerInfo(ctx) //nolint:errcheck // mock never fails
		m.settle(StatusMock, info, entitlement.PlaceholderOffering())
		m.logger.Info("subscription running in mock mode",
			"platform", m.env.Platform,
			"sandboxed", m.env.Sandboxed,
		)
		return m.State()
	}

	if err := entitlement.ValidateAPIKey(m.apiKey); err != nil {
		m.fail(err)
		return m.State()
	}

	err := timeout.Do(ctx, m.handshakeTimeout, func(ctx context.Context) error {
		return m.real.Configure(ctx, m.apiKey)
	})
	if err != nil {
		m.fail(fmt.Errorf("configure: %w", err))
		return m.State()
	}

	info, err := timeout.Call(ctx, m.handshakeTimeout, m.real.GetCustomerInfo)
	if err != nil {
		m.fail(fmt.Errorf("customer info: %w", err))
		return m.State()
	}

	offering, err := m.fetchOffering(ctx)
	if err != nil {
		// Entitlement status is known; only the catalog is missing.
		m.logger.Warn("offerings unavailable, using placeholder catalog", "error", err)
	}

	m.settle(StatusReady, info, offering)
	m.logger.Info("subscription ready",
		"is_active", m.State().IsActive,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return m.State()
}

func (m *Manager) fetchOffering(ctx context.Context) (*entitlement.Offering, error) {
	offs, err := timeout.Call(ctx, m.offeringsTimeout, m.real.GetOfferings)
	if err != nil {
		return nil, err
	}
	if offs == nil || offs.Current == nil || len(offs.Current.AvailablePackages) == 0 {
		return nil, entitlement.ErrNoOfferings
	}
	return offs.Current, nil
}

// fail moves the manager to the error state. The placeholder catalog stays
// visible so purchase UI remains navigable.
func (m *Manager) fail(err error) {
	m.logger.Error("provider handshake failed", "error", err)

	m.mu.Lock()
	m.state = State{
		Status:          StatusError,
		IsActiveChecked: true,
		Error:           err.Error(),
	}
	m.offering = nil
	m.mu.Unlock()

	m.notify()
}

// settle records a completed resolution and notifies observers.
func (m *Manager) settle(status Status, info *entitlement.CustomerInfo, offering *entitlement.Offering) {
	m.mu.Lock()
	m.state.Status = status
	m.state.IsLoading = false
	m.applyLocked(info)
	if offering != nil {
		m.offering = offering
	}
	m.mu.Unlock()

	m.notify()
}

// applyLocked derives IsActive, Plan and ExpiresAt from customer info.
func (m *Manager) applyLocked(info *entitlement.CustomerInfo) {
	active, ok := info.Active(m.entitlementKey)
	m.state.IsActive = ok
	m.state.IsActiveChecked = true
	if !ok {
		m.state.Plan = PlanNone
		m.state.ExpiresAt = nil
		return
	}
	m.state.Plan = planFromProduct(active.ProductIdentifier)
	m.state.ExpiresAt = active.ExpirationDate
}

func (m *Manager) apply(info *entitlement.CustomerInfo) {
	m.mu.Lock()
	m.applyLocked(info)
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	m.mu.RLock()
	state := m.state
	fns := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}

// ──────────────────────────────────────────────────
// Refresh
// ──────────────────────────────────────────────────

// Refresh re-fetches customer info. Concurrent calls share one fetch.
// Failures are logged and leave the prior state intact.
func (m *Manager) Refresh(ctx context.Context) State {
	if m.State().Status != StatusReady {
		return m.State()
	}

	v, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		info, err := timeout.Call(ctx, m.handshakeTimeout, m.real.GetCustomerInfo)
		if err != nil {
			return nil, err
		}
		prev := m.State()
		m.apply(info)
		if cur := m.State(); !prev.equal(cur) {
			m.logger.Info("subscription state changed", "is_active", cur.IsActive, "plan", cur.Plan)
		}
		return m.State(), nil
	})
	if err != nil {
		m.logger.Warn("subscription refresh failed", "error", err)
		return m.State()
	}
	return v.(State) //nolint:forcetypeassert // singleflight returns what the closure returned
}

// OnCustomerInfoUpdated applies customer info pushed by the provider, for
// example from an SDK listener after a renewal.
func (m *Manager) OnCustomerInfoUpdated(info *entitlement.CustomerInfo) {
	if info == nil {
		return
	}
	status := m.State().Status
	if status != StatusReady && status != StatusMock {
		return
	}
	m.apply(info)
}

// ──────────────────────────────────────────────────
// Purchases
// ──────────────────────────────────────────────────

// ready checks the precondition for purchase and restore.
func (m *Manager) ready() error {
	switch m.State().Status {
	case StatusReady, StatusMock:
		return nil
	case StatusError:
		return ErrNotConfigured
	default:
		return ErrStillInitializing
	}
}

// Purchase buys pkg. In mock mode the purchase is simulated.
func (m *Manager) Purchase(ctx context.Context, pkg entitlement.Package) Result {
	res := Result{ID: id.NewPurchaseID()}
	if err := m.ready(); err != nil {
		return m.reject(res, err)
	}

	log := m.logger.With("purchase_id", res.ID.String(), "package", pkg.Identifier)
	log.Info("purchase started")

	info, err := m.provider.PurchasePackage(ctx, pkg)
	if err != nil {
		if errors.Is(err, entitlement.ErrUserCancelled) {
			log.Info("purchase cancelled by user")
			res.Cancelled = true
			return m.reject(res, err)
		}
		log.Error("purchase failed", "error", err)
		return m.reject(res, fmt.Errorf("%w: %w", ErrPurchaseFailed, err))
	}

	m.apply(info)
	res.Success = true
	res.State = m.State()
	log.Info("purchase completed", "is_active", res.State.IsActive, "plan", res.State.Plan)
	return res
}

// PurchasePlan buys the package matching plan from the current catalog.
// When the real catalog failed to load during the handshake it is fetched
// again first.
func (m *Manager) PurchasePlan(ctx context.Context, plan Plan) Result {
	if err := m.ready(); err != nil {
		return m.reject(Result{ID: id.NewPurchaseID()}, err)
	}

	if m.mode == platform.ModeReal {
		m.mu.RLock()
		missing := m.offering == nil
		m.mu.RUnlock()
		if missing {
			off, err := m.fetchOffering(ctx)
			if err != nil {
				return m.reject(Result{ID: id.NewPurchaseID()}, err)
			}
			m.mu.Lock()
			m.offering = off
			m.mu.Unlock()
		}
	}

	want := entitlement.PackageMonthly
	if plan == PlanYearly {
		want = entitlement.PackageAnnual
	}
	for _, pkg := range m.Offerings() {
		if pkg.PackageType == want {
			return m.Purchase(ctx, pkg)
		}
	}
	return m.reject(Result{ID: id.NewPurchaseID()}, ErrPlanNotFound)
}

// Restore restores previous purchases. A restore that completes without the
// entitlement is reported as a failure.
func (m *Manager) Restore(ctx context.Context) Result {
	res := Result{ID: id.NewRestoreID()}
	if err := m.ready(); err != nil {
		return m.reject(res, err)
	}

	info, err := m.provider.RestorePurchases(ctx)
	if err != nil {
		m.logger.Error("restore failed", "restore_id", res.ID.String(), "error", err)
		return m.reject(res, fmt.Errorf("%w: %w", ErrRestoreFailed, err))
	}

	m.apply(info)
	if !m.State().IsActive {
		m.logger.Info("restore found no entitlement", "restore_id", res.ID.String())
		return m.reject(res, ErrNoPurchasesFound)
	}

	res.Success = true
	res.State = m.State()
	return res
}

// Cancel cannot cancel a store-managed subscription. In mock mode it
// revokes the simulated entitlement so cancellation UI can be exercised.
func (m *Manager) Cancel(ctx context.Context) Result {
	res := Result{}
	if m.mode != platform.ModeMock {
		return m.reject(res, ErrCancelNotSupported)
	}

	m.mock.Revoke()
	info, _ := m.mock.GetCustomerInfo(ctx) //nolint:errcheck // mock never fails
	m.apply(info)

	res.Success = true
	res.State = m.State()
	return res
}

func (m *Manager) reject(res Result, err error) Result {
	res.Success = false
	res.Err = err
	res.Reason = Message(err)
	res.State = m.State()
	return res
}
