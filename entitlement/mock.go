package entitlement

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultEntitlementKey is the entitlement that gates premium content.
const DefaultEntitlementKey = "premium"

// MockProvider simulates the billing SDK without network access. Purchases
// succeed after Delay and grant the configured entitlement.
type MockProvider struct {
	mu             sync.Mutex
	entitlementKey string
	delay          time.Duration
	info           *CustomerInfo
	now            func() time.Time
}

// MockOption configures a MockProvider.
type MockOption func(*MockProvider)

// WithMockDelay sets the simulated purchase latency.
func WithMockDelay(d time.Duration) MockOption {
	return func(m *MockProvider) { m.delay = d }
}

// WithMockEntitlementKey sets the entitlement granted by purchases.
func WithMockEntitlementKey(key string) MockOption {
	return func(m *MockProvider) { m.entitlementKey = key }
}

// WithMockCustomerInfo seeds the customer state.
func WithMockCustomerInfo(info *CustomerInfo) MockOption {
	return func(m *MockProvider) { m.info = info }
}

// NewMockProvider creates a MockProvider with no active entitlements.
func NewMockProvider(opts ...MockOption) *MockProvider {
	m := &MockProvider{
		entitlementKey: DefaultEntitlementKey,
		delay:          time.Second,
		info:           &CustomerInfo{Entitlements: Entitlements{Active: map[string]EntitlementInfo{}}},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockProvider) Configure(context.Context, string) error { return nil }

func (m *MockProvider) GetCustomerInfo(context.Context) (*CustomerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneInfo(m.info), nil
}

func (m *MockProvider) GetOfferings(context.Context) (*Offerings, error) {
	return &Offerings{Current: PlaceholderOffering()}, nil
}

// PurchasePackage waits Delay, then grants the entitlement with an
// expiration one billing period out. Only placeholder packages can be
// bought.
func (m *MockProvider) PurchasePackage(ctx context.Context, pkg Package) (*CustomerInfo, error) {
	if !offered(pkg.Identifier) {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, pkg.Identifier)
	}
	if m.delay > 0 {
		t := time.NewTimer(m.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expires := m.now().AddDate(0, 1, 0)
	if pkg.PackageType == PackageAnnual {
		expires = m.now().AddDate(1, 0, 0)
	}
	if m.info.Entitlements.Active == nil {
		m.info.Entitlements.Active = map[string]EntitlementInfo{}
	}
	m.info.Entitlements.Active[m.entitlementKey] = EntitlementInfo{
		ProductIdentifier: pkg.Product.Identifier,
		ExpirationDate:    &expires,
	}
	return cloneInfo(m.info), nil
}

func (m *MockProvider) RestorePurchases(context.Context) (*CustomerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneInfo(m.info), nil
}

// Revoke removes the entitlement, simulating a lapsed subscription.
func (m *MockProvider) Revoke() {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.info.Entitlements.Active, m.entitlementKey)
}

func offered(packageID string) bool {
	for _, p := range PlaceholderOffering().AvailablePackages {
		if p.Identifier == packageID {
			return true
		}
	}
	return false
}

func cloneInfo(in *CustomerInfo) *CustomerInfo {
	if in == nil {
		return nil
	}
	out := &CustomerInfo{Entitlements: Entitlements{Active: make(map[string]EntitlementInfo, len(in.Entitlements.Active))}}
	for k, v := range in.Entitlements.Active {
		out.Entitlements.Active[k] = v
	}
	return out
}
