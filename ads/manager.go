package ads

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/xraph/unlock/id"
	"github.com/xraph/unlock/internal/timeout"
	"github.com/xraph/unlock/platform"
)

// Defaults for Manager.
const (
	DefaultCooldown    = 90 * time.Second
	DefaultLoadTimeout = 15 * time.Second
	DefaultShowTimeout = 2 * time.Minute
)

// ShowResult is the outcome of one rewarded-ad request. Expected failures
// (cooldown, no fill, dismissed early) are reported here, not as errors.
type ShowResult struct {
	ID        id.AdImpressionID `json:"id"`
	Placement string            `json:"placement"`
	Success   bool              `json:"success"`
	Reason    string            `json:"error,omitempty"`
	Err       error             `json:"-"`
	Mock      bool              `json:"mock"`
	Elapsed   time.Duration     `json:"elapsed"`
}

// Manager owns the ad provider and the in-memory cooldown state. Create one
// per process with NewManager; call Dispose when done.
type Manager struct {
	sdk          SDK
	adUnitID     string
	env          platform.Environment
	detect       platform.Detector
	mode         platform.Mode
	mock         *MockProvider
	mockDuration time.Duration
	cooldown     time.Duration
	loadTimeout  time.Duration
	showTimeout  time.Duration
	limiter      *rate.Limiter
	now          func() time.Time
	logger       *slog.Logger

	initMu      sync.Mutex
	initialized bool

	mu        sync.Mutex
	provider  Provider
	lastShown map[string]time.Time
	inflight  map[string]struct{}
	disposed  bool
}

// NewManager creates a Manager. The real SDK is used only when sdk is
// non-nil, an ad unit is configured and the environment detector selects
// real mode; otherwise the mock provider is used for the manager's life.
func NewManager(sdk SDK, opts ...Option) *Manager {
	m := &Manager{
		sdk:          sdk,
		detect:       platform.Detect,
		mockDuration: DefaultMockDuration,
		cooldown:     DefaultCooldown,
		loadTimeout:  DefaultLoadTimeout,
		showTimeout:  DefaultShowTimeout,
		now:          time.Now,
		logger:       slog.Default(),
		lastShown:    make(map[string]time.Time),
		inflight:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "ads")
	m.mock = NewMockProvider(m.mockDuration)

	m.mode = m.detect(m.env)
	if sdk == nil || m.adUnitID == "" {
		m.mode = platform.ModeMock
	}
	if m.mode == platform.ModeReal {
		m.provider = &sdkProvider{
			sdk:         sdk,
			adUnitID:    m.adUnitID,
			loadTimeout: m.loadTimeout,
			showTimeout: m.showTimeout,
			logger:      m.logger,
		}
	} else {
		m.provider = m.mock
	}
	return m
}

// Mode returns the active provider mode. It changes from real to mock only
// if SDK initialization fails.
func (m *Manager) Mode() platform.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.provider == Provider(m.mock) {
		return platform.ModeMock
	}
	return platform.ModeReal
}

// Initialized reports whether Initialize has completed.
func (m *Manager) Initialized() bool {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	return m.initialized
}

// Initialize prepares the provider. Only the first call does work. If the
// real SDK fails to initialize the manager degrades to the mock provider.
// It returns false only after Dispose.
func (m *Manager) Initialize(ctx context.Context) bool {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.mu.Lock()
	disposed, p := m.disposed, m.provider
	m.mu.Unlock()
	if disposed {
		return false
	}
	if m.initialized {
		return true
	}

	err := timeout.Do(ctx, m.loadTimeout, p.Initialize)
	if err != nil {
		m.logger.Warn("ad SDK initialization failed, using mock ads", "error", err)
		m.mu.Lock()
		m.provider = m.mock
		m.mu.Unlock()
	} else {
		m.logger.Info("ads initialized", "mode", string(m.Mode()))
	}
	m.initialized = true
	return true
}

// CooldownRemaining returns how long placement must wait before another
// ad may be shown, or zero.
func (m *Manager) CooldownRemaining(placement string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remainingLocked(placement)
}

func (m *Manager) remainingLocked(placement string) time.Duration {
	last, ok := m.lastShown[placement]
	if !ok {
		return 0
	}
	if left := m.cooldown - m.now().Sub(last); left > 0 {
		return left
	}
	return 0
}

// ShowRewarded shows a rewarded ad for placement. Requests inside the
// placement's cooldown window are rejected without contacting the SDK. The
// cooldown starts only when a reward is earned.
func (m *Manager) ShowRewarded(ctx context.Context, placement string) *ShowResult {
	res := &ShowResult{ID: id.NewAdImpressionID(), Placement: placement}
	log := m.logger.With("placement", placement, "impression_id", res.ID.String())

	m.mu.Lock()
	switch {
	case m.disposed:
		m.mu.Unlock()
		return m.reject(res, ErrDisposed)
	case m.remainingLocked(placement) > 0:
		err := &CooldownError{Placement: placement, Remaining: m.remainingLocked(placement)}
		m.mu.Unlock()
		log.Debug("ad request rejected by cooldown", "remaining", err.Remaining)
		return m.reject(res, err)
	}
	if _, busy := m.inflight[placement]; busy {
		m.mu.Unlock()
		return m.reject(res, ErrInProgress)
	}
	m.inflight[placement] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, placement)
		m.mu.Unlock()
	}()

	if !m.Initialize(ctx) {
		return m.reject(res, ErrDisposed)
	}

	m.mu.Lock()
	p := m.provider
	m.mu.Unlock()
	res.Mock = p == Provider(m.mock)

	if !res.Mock && m.limiter != nil && !m.limiter.AllowN(m.now(), 1) {
		return m.reject(res, ErrRateLimited)
	}

	start := m.now()
	err := p.ShowRewarded(ctx)
	res.Elapsed = m.now().Sub(start)
	if err != nil {
		log.Warn("rewarded ad failed", "error", err, "mock", res.Mock)
		return m.reject(res, err)
	}

	m.mu.Lock()
	m.lastShown[placement] = m.now()
	m.mu.Unlock()

	res.Success = true
	log.Info("reward earned", "mock", res.Mock, "elapsed_ms", res.Elapsed.Milliseconds())
	return res
}

// Dispose ends the manager's life. Later requests fail with ErrDisposed.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
	clear(m.lastShown)
}

func (m *Manager) reject(res *ShowResult, err error) *ShowResult {
	res.Success = false
	res.Err = err
	res.Reason = Message(err)
	return res
}
