package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/subscription"
)

// DefaultTimeout bounds each plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onSectionUnlocked     []OnSectionUnlocked
	onUnlockDenied        []OnUnlockDenied
	onAdShown             []OnAdShown
	onAdFailed            []OnAdFailed
	onSubscriptionChanged []OnSubscriptionChanged
	onPurchaseCompleted   []OnPurchaseCompleted
	onPurchaseFailed      []OnPurchaseFailed
	onStorageError        []OnStorageError
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnSectionUnlocked); ok {
		r.onSectionUnlocked = append(r.onSectionUnlocked, v)
	}
	if v, ok := p.(OnUnlockDenied); ok {
		r.onUnlockDenied = append(r.onUnlockDenied, v)
	}
	if v, ok := p.(OnAdShown); ok {
		r.onAdShown = append(r.onAdShown, v)
	}
	if v, ok := p.(OnAdFailed); ok {
		r.onAdFailed = append(r.onAdFailed, v)
	}
	if v, ok := p.(OnSubscriptionChanged); ok {
		r.onSubscriptionChanged = append(r.onSubscriptionChanged, v)
	}
	if v, ok := p.(OnPurchaseCompleted); ok {
		r.onPurchaseCompleted = append(r.onPurchaseCompleted, v)
	}
	if v, ok := p.(OnPurchaseFailed); ok {
		r.onPurchaseFailed = append(r.onPurchaseFailed, v)
	}
	if v, ok := p.(OnStorageError); ok {
		r.onStorageError = append(r.onStorageError, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", Interfaces(p),
	)

	return nil
}

// Interfaces returns the hook interfaces p implements.
func Interfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnSectionUnlocked)(nil)).Elem(), "OnSectionUnlocked")
	checkInterface(reflect.TypeOf((*OnUnlockDenied)(nil)).Elem(), "OnUnlockDenied")
	checkInterface(reflect.TypeOf((*OnAdShown)(nil)).Elem(), "OnAdShown")
	checkInterface(reflect.TypeOf((*OnAdFailed)(nil)).Elem(), "OnAdFailed")
	checkInterface(reflect.TypeOf((*OnSubscriptionChanged)(nil)).Elem(), "OnSubscriptionChanged")
	checkInterface(reflect.TypeOf((*OnPurchaseCompleted)(nil)).Elem(), "OnPurchaseCompleted")
	checkInterface(reflect.TypeOf((*OnPurchaseFailed)(nil)).Elem(), "OnPurchaseFailed")
	checkInterface(reflect.TypeOf((*OnStorageError)(nil)).Elem(), "OnStorageError")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for every plugin in list, logging failures under hook.
func emit[T Plugin](r *Registry, ctx context.Context, hook string, list func(*Registry) []T, fn func(T) error) {
	r.mu.RLock()
	plugins := list(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l interface{}) {
	emit(r, ctx, "OnInit", func(r *Registry) []OnInit { return r.onInit },
		func(p OnInit) error { return p.OnInit(ctx, l) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(r, ctx, "OnShutdown", func(r *Registry) []OnShutdown { return r.onShutdown },
		func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitSectionUnlocked emits a section unlocked event.
func (r *Registry) EmitSectionUnlocked(ctx context.Context, ev *UnlockEvent) {
	emit(r, ctx, "OnSectionUnlocked", func(r *Registry) []OnSectionUnlocked { return r.onSectionUnlocked },
		func(p OnSectionUnlocked) error { return p.OnSectionUnlocked(ctx, ev) })
}

// EmitUnlockDenied emits an unlock denied event.
func (r *Registry) EmitUnlockDenied(ctx context.Context, ev *UnlockEvent) {
	emit(r, ctx, "OnUnlockDenied", func(r *Registry) []OnUnlockDenied { return r.onUnlockDenied },
		func(p OnUnlockDenied) error { return p.OnUnlockDenied(ctx, ev) })
}

// EmitAdShown emits an ad shown event.
func (r *Registry) EmitAdShown(ctx context.Context, res *ads.ShowResult) {
	emit(r, ctx, "OnAdShown", func(r *Registry) []OnAdShown { return r.onAdShown },
		func(p OnAdShown) error { return p.OnAdShown(ctx, res) })
}

// EmitAdFailed emits an ad failed event.
func (r *Registry) EmitAdFailed(ctx context.Context, res *ads.ShowResult) {
	emit(r, ctx, "OnAdFailed", func(r *Registry) []OnAdFailed { return r.onAdFailed },
		func(p OnAdFailed) error { return p.OnAdFailed(ctx, res) })
}

// EmitSubscriptionChanged emits a subscription changed event.
func (r *Registry) EmitSubscriptionChanged(ctx context.Context, oldState, newState subscription.State) {
	emit(r, ctx, "OnSubscriptionChanged", func(r *Registry) []OnSubscriptionChanged { return r.onSubscriptionChanged },
		func(p OnSubscriptionChanged) error { return p.OnSubscriptionChanged(ctx, oldState, newState) })
}

// EmitPurchaseCompleted emits a purchase completed event.
func (r *Registry) EmitPurchaseCompleted(ctx context.Context, ev *PurchaseEvent) {
	emit(r, ctx, "OnPurchaseCompleted", func(r *Registry) []OnPurchaseCompleted { return r.onPurchaseCompleted },
		func(p OnPurchaseCompleted) error { return p.OnPurchaseCompleted(ctx, ev) })
}

// EmitPurchaseFailed emits a purchase failed event.
func (r *Registry) EmitPurchaseFailed(ctx context.Context, ev *PurchaseEvent) {
	emit(r, ctx, "OnPurchaseFailed", func(r *Registry) []OnPurchaseFailed { return r.onPurchaseFailed },
		func(p OnPurchaseFailed) error { return p.OnPurchaseFailed(ctx, ev) })
}

// EmitStorageError emits a storage error event.
func (r *Registry) EmitStorageError(ctx context.Context, op string, err error) {
	emit(r, ctx, "OnStorageError", func(r *Registry) []OnStorageError { return r.onStorageError },
		func(p OnStorageError) error { return p.OnStorageError(ctx, op, err) })
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block an unlock.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	t := time.NewTimer(r.timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return err
	case <-t.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
