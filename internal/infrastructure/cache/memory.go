package cache

import (
	"context"
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

// MemoryStore is a simple in-memory key-value store with expiration
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*memoryItem

	done     chan struct{}
	stopOnce sync.Once
}

type memoryItem struct {
	value      []byte
	expireTime time.Time
}

// NewMemoryStore creates a new in-memory store. Close stops its cleanup goroutine.
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		items: make(map[string]*memoryItem),
		done:  make(chan struct{}),
	}

	go store.cleanupExpired(cleanupInterval)

	return store
}

// Set stores a value with expiration; a non-positive ttl never expires
func (ms *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	item := &memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expireTime = time.Now().Add(ttl)
	}
	ms.items[key] = item
	return nil
}

// Get retrieves a value by key
func (ms *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	item, exists := ms.items[key]
	if !exists || item.expired(time.Now()) {
		return nil, false, nil
	}
	return append([]byte(nil), item.value...), true, nil
}

// Delete removes a key
func (ms *MemoryStore) Delete(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.items, key)
	return nil
}

// Close stops the cleanup goroutine
func (ms *MemoryStore) Close() error {
	ms.stopOnce.Do(func() { close(ms.done) })
	return nil
}

func (it *memoryItem) expired(now time.Time) bool {
	return !it.expireTime.IsZero() && now.After(it.expireTime)
}

// cleanupExpired periodically removes expired items
func (ms *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.done:
			return
		case <-ticker.C:
			ms.removeExpired(time.Now())
		}
	}
}

func (ms *MemoryStore) removeExpired(now time.Time) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for key, item := range ms.items {
		if item.expired(now) {
			delete(ms.items, key)
		}
	}
}
