// Package cache provides the small key/value store used to remember
// resolved storage handles between requests.
package cache

import (
	"context"
	"sync"
)

// Store is a string key/value store. Get reports a miss with ok == false
// and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Fallback reads and writes primary while it is usable. Errors from primary
// are swallowed and the operation is served by secondary instead.
type Fallback struct {
	primary   Store
	secondary Store
}

func NewFallback(primary, secondary Store) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Get(ctx context.Context, key string) (string, bool, error) {
	if v, ok, err := f.primary.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}
	return f.secondary.Get(ctx, key)
}

func (f *Fallback) Set(ctx context.Context, key, value string) error {
	f.primary.Set(ctx, key, value)
	return f.secondary.Set(ctx, key, value)
}

func (f *Fallback) Delete(ctx context.Context, key string) error {
	f.primary.Delete(ctx, key)
	return f.secondary.Delete(ctx, key)
}
