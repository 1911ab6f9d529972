// Package store defines the durable key-value store the unlock engine
// persists its blobs to. Backends live in sub-packages (memory, sqlite,
// postgres, mongo).
package store

import (
	"context"
	"errors"
)

// Sentinel errors returned by every backend.
var (
	ErrNotFound   = errors.New("store: key not found")
	ErrClosed     = errors.New("store: store is closed")
	ErrInvalidKey = errors.New("store: invalid key")
)

// Store is a process-independent key-value store. Every method may fail;
// callers in the unlock engine treat failures as degraded behavior and
// never propagate them to the UI.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// IsNotFound reports whether err means the key is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
