// Package kv provides the persistent key-value stores that back the cache.
//
// Stores are treated as unreliable and best-effort by their callers: any
// method may fail, and callers decide whether a failure matters.
package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kv: store is closed")

// Store is a namespaced get/set/remove/enumerate key-value store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get omits missing keys from its result instead of failing.
// - No transactions are assumed across calls.
type Store interface {
	// Get returns the values for the keys that exist.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	// Set writes every item, replacing existing values.
	Set(ctx context.Context, items map[string][]byte) error
	// Remove deletes the keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
	// GetAll enumerates every key in the store's namespace.
	GetAll(ctx context.Context) (map[string][]byte, error)
	// Close releases resources.
	Close() error
}
