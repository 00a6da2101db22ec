package kv

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Values are copied on the way in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string][]byte
	fail   error
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

// FailWith makes every subsequent operation return err until called with nil.
// It simulates an unavailable host store in tests.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func (m *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed {
		return ErrClosed
	}
	return m.fail
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.items[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

// Set implements Store.
func (m *MemoryStore) Set(ctx context.Context, items map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}

	for k, v := range items {
		m.items[k] = append([]byte(nil), v...)
	}
	return nil
}

// Remove implements Store.
func (m *MemoryStore) Remove(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}

	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// GetAll implements Store.
func (m *MemoryStore) GetAll(ctx context.Context) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(m.items))
	for k, v := range m.items {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
