package kvstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is a thread-safe map store used in development and tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	data  map[string][]byte
	locks *localLocks
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data:  make(map[string][]byte),
		locks: newLocalLocks(),
	}
}

// Get returns a copy of the value stored at key
func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value at key
func (m *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key
func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// AcquireLock takes lockKey for ttl unless another holder has it
func (m *MemoryStorage) AcquireLock(_ context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	token, ok := m.locks.acquire(lockKey, ttl)
	return token, ok, nil
}

// ReleaseLock frees lockKey if token still holds it
func (m *MemoryStorage) ReleaseLock(_ context.Context, lockKey, token string) error {
	m.locks.release(lockKey, token)
	return nil
}

// Close is a no-op
func (m *MemoryStorage) Close() error { return nil }
