package grant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xraph/unlock/store"
)

// Default storage keys of the two blobs.
const (
	DefaultSectionsKey   = "unlocked_sections"
	DefaultDailyUsageKey = "daily_free_usage"
)

// ErrCorrupt is returned when a stored blob cannot be decoded.
var ErrCorrupt = errors.New("grant: stored blob is corrupt")

// Store persists the ledger blobs. A missing blob loads as empty.
type Store interface {
	LoadSections(ctx context.Context) (Sections, error)
	SaveSections(ctx context.Context, s Sections) error
	LoadDailyUsage(ctx context.Context) (DailyUsage, error)
	SaveDailyUsage(ctx context.Context, d DailyUsage) error
	// Reset removes both blobs.
	Reset(ctx context.Context) error

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// compile-time interface check
var _ Store = (*KVStore)(nil)

// KVStore stores each blob as one JSON value in a store.Store.
type KVStore struct {
	kv            store.Store
	sectionsKey   string
	dailyUsageKey string
}

// KVOption configures a KVStore.
type KVOption func(*KVStore)

// WithSectionsKey overrides DefaultSectionsKey.
func WithSectionsKey(key string) KVOption {
	return func(s *KVStore) { s.sectionsKey = key }
}

// WithDailyUsageKey overrides DefaultDailyUsageKey.
func WithDailyUsageKey(key string) KVOption {
	return func(s *KVStore) { s.dailyUsageKey = key }
}

// NewKVStore wraps kv.
func NewKVStore(kv store.Store, opts ...KVOption) *KVStore {
	s := &KVStore{
		kv:            kv,
		sectionsKey:   DefaultSectionsKey,
		dailyUsageKey: DefaultDailyUsageKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KVStore) LoadSections(ctx context.Context) (Sections, error) {
	out := make(Sections)
	if err := s.load(ctx, s.sectionsKey, &out); err != nil {
		return make(Sections), err
	}
	if out == nil {
		out = make(Sections)
	}
	return out, nil
}

func (s *KVStore) SaveSections(ctx context.Context, sections Sections) error {
	return s.save(ctx, s.sectionsKey, sections)
}

func (s *KVStore) LoadDailyUsage(ctx context.Context) (DailyUsage, error) {
	out := make(DailyUsage)
	if err := s.load(ctx, s.dailyUsageKey, &out); err != nil {
		return make(DailyUsage), err
	}
	if out == nil {
		out = make(DailyUsage)
	}
	return out, nil
}

func (s *KVStore) SaveDailyUsage(ctx context.Context, d DailyUsage) error {
	return s.save(ctx, s.dailyUsageKey, d)
}

func (s *KVStore) Reset(ctx context.Context) error {
	if err := s.kv.Remove(ctx, s.sectionsKey); err != nil {
		return fmt.Errorf("grant: remove %s: %w", s.sectionsKey, err)
	}
	if err := s.kv.Remove(ctx, s.dailyUsageKey); err != nil {
		return fmt.Errorf("grant: remove %s: %w", s.dailyUsageKey, err)
	}
	return nil
}

func (s *KVStore) Migrate(ctx context.Context) error { return s.kv.Migrate(ctx) }
func (s *KVStore) Ping(ctx context.Context) error    { return s.kv.Ping(ctx) }
func (s *KVStore) Close() error                      { return s.kv.Close() }

func (s *KVStore) load(ctx context.Context, key string, dst any) error {
	raw, err := s.kv.Get(ctx, key)
	if store.IsNotFound(err) || (err == nil && raw == "") {
		return nil
	}
	if err != nil {
		return fmt.Errorf("grant: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return nil
}

func (s *KVStore) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("grant: encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("grant: set %s: %w", key, err)
	}
	return nil
}
