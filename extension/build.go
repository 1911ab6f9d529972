package extension

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/unlock"
	"github.com/xraph/unlock/ads"
	"github.com/xraph/unlock/entitlement"
	"github.com/xraph/unlock/grant"
	"github.com/xraph/unlock/platform"
	"github.com/xraph/unlock/store"
	"github.com/xraph/unlock/store/memory"
	"github.com/xraph/unlock/store/mongo"
	"github.com/xraph/unlock/store/postgres"
	"github.com/xraph/unlock/store/sqlite"
	"github.com/xraph/unlock/subscription"
)

// Components are the services built from a Config.
type Components struct {
	Store         store.Store
	Subscriptions *subscription.Manager
	Ads           *ads.Manager
	Ledger        *unlock.Ledger
}

// Deps are the host-supplied pieces a Config cannot describe. Every field
// is optional: without them the engine runs on mock providers and the
// memory store.
type Deps struct {
	// Store overrides StoreDriver.
	Store store.Store
	// GroveDB is wrapped by the backend StoreDriver names.
	GroveDB *grove.DB
	// Entitlements is the real billing SDK binding.
	Entitlements entitlement.Provider
	// AdSDK is the real rewarded-ad SDK binding.
	AdSDK  ads.SDK
	Logger *slog.Logger
}

// Build constructs the store, the subscription and ad managers and the
// ledger from cfg. Zero fields of cfg take their defaults. Negative
// MockAdDuration and MockPurchaseDelay disable the simulated latency.
func Build(cfg Config, deps Deps, opts ...unlock.Option) (*Components, error) {
	cfg = mergeWithDefaults(cfg)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	kv := deps.Store
	if kv == nil {
		var err error
		if kv, err = openStore(cfg.StoreDriver, deps.GroveDB); err != nil {
			return nil, err
		}
	}

	loc := time.Local
	if cfg.Location != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Location); err != nil {
			return nil, fmt.Errorf("unlock: invalid location %q: %w", cfg.Location, err)
		}
	}

	env := platform.Environment{
		Platform:  platform.Parse(cfg.Platform),
		Sandboxed: cfg.Sandboxed,
	}

	mockDelay := max(cfg.MockPurchaseDelay, 0)
	mockAd := max(cfg.MockAdDuration, 0)
	subs := subscription.NewManager(deps.Entitlements,
		subscription.WithLogger(logger),
		subscription.WithAPIKey(cfg.EntitlementAPIKey),
		subscription.WithEntitlementKey(cfg.EntitlementKey),
		subscription.WithEnvironment(env),
		subscription.WithTimeouts(cfg.HandshakeTimeout, cfg.OfferingsTimeout),
		subscription.WithMockProvider(entitlement.NewMockProvider(
			entitlement.WithMockDelay(mockDelay),
			entitlement.WithMockEntitlementKey(cfg.EntitlementKey),
		)),
	)

	adm := ads.NewManager(deps.AdSDK,
		ads.WithLogger(logger),
		ads.WithAdUnitID(cfg.AdUnitID),
		ads.WithEnvironment(env),
		ads.WithCooldown(cfg.AdCooldown),
		ads.WithLoadTimeout(cfg.AdLoadTimeout),
		ads.WithShowTimeout(cfg.AdShowTimeout),
		ads.WithMockDuration(mockAd),
		ads.WithRequestLimit(cfg.AdRequestsPerMinute),
	)

	grants := grant.NewKVStore(kv,
		grant.WithSectionsKey(cfg.SectionsKey),
		grant.WithDailyUsageKey(cfg.DailyUsageKey),
	)

	ledgerOpts := make([]unlock.Option, 0, len(opts)+3)
	ledgerOpts = append(ledgerOpts, unlock.WithLogger(logger), unlock.WithLocation(loc))
	if cfg.DisableMigrate {
		ledgerOpts = append(ledgerOpts, unlock.WithoutMigrate())
	}
	ledgerOpts = append(ledgerOpts, opts...)

	return &Components{
		Store:         kv,
		Subscriptions: subs,
		Ads:           adm,
		Ledger:        unlock.New(grants, subs, adm, ledgerOpts...),
	}, nil
}

// openStore builds the backend named by driver around db.
func openStore(driver string, db *grove.DB) (store.Store, error) {
	if driver == DriverMemory || driver == "" {
		return memory.New(), nil
	}
	if db == nil {
		return nil, fmt.Errorf("unlock: store driver %q requires a grove database", driver)
	}

	switch driver {
	case DriverSQLite:
		return sqlite.New(db), nil
	case DriverPostgres:
		return postgres.New(db), nil
	case DriverMongo:
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("unlock: unknown store driver %q", driver)
	}
}
