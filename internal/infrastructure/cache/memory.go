package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryCache is a process-local TTL cache with an injected clock.
// Expiry is checked lazily on read; there is no background sweeper
// because the engine holds only a handful of keys.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache creates a process-local cache using the wall clock.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(time.Now)
}

// NewMemoryCacheWithClock injects the time source, letting tests move
// time forward without sleeping.
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (m *MemoryCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().After(entry.expiresAt) {
		if ok {
			m.mu.Lock()
			delete(m.entries, key)
			m.mu.Unlock()
		}
		return ErrCacheKeyNotFound{Key: key}
	}

	return json.Unmarshal(entry.data, dest)
}

func (m *MemoryCache) SetJSON(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{data: data, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}
