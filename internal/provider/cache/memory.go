package cache

import (
	"context"
	"sync"
	"time"
)

// entry stores one encoded value with expiry.
type entry struct {
	expiresAt time.Time
	value     []byte
}

// MemoryStore is an in-process Store. When MaxItems is set the store evicts
// expired entries first, then arbitrary ones, to stay under the cap.
type MemoryStore struct {
	MaxItems int
	Now      func() time.Time

	mu    sync.RWMutex
	items map[string]entry
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]entry)
	}
	m.items[key] = entry{expiresAt: now.Add(ttl), value: value}

	if m.MaxItems <= 0 || len(m.items) <= m.MaxItems {
		return nil
	}
	for k, v := range m.items {
		if len(m.items) <= m.MaxItems {
			break
		}
		if !now.Before(v.expiresAt) {
			delete(m.items, k)
		}
	}
	for k := range m.items {
		if len(m.items) <= m.MaxItems {
			break
		}
		if k != key {
			delete(m.items, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
