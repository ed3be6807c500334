// Package memory is in-process implementation of cache interface.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Decentr-net/animenexus/internal/cache"
)

type item struct {
	value     []byte
	expiresAt time.Time
}

type memory struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

// New creates new instance of in-memory cache.
func New() cache.Cache {
	return newMemory(time.Now)
}

func newMemory(now func() time.Time) *memory {
	return &memory{
		items: make(map[string]item),
		now:   now,
	}
}

func (m *memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		return nil, cache.ErrMiss
	}

	if !m.now().Before(v.expiresAt) {
		m.mu.Lock()
		// item could be replaced while the lock was released
		if cur, ok := m.items[key]; ok && cur.expiresAt.Equal(v.expiresAt) {
			delete(m.items, key)
		}
		m.mu.Unlock()

		return nil, cache.ErrMiss
	}

	return v.value, nil
}

func (m *memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = item{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}

	return nil
}

func (m *memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)

	return nil
}

func (m *memory) Ping(_ context.Context) error {
	return nil
}
