package kvstore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"
)

// PebbleStorage is an embedded on-disk store for single-node deployments.
// Pebble holds an exclusive lock on its directory, so the lock table only
// needs to cover this process.
type PebbleStorage struct {
	db    *pebble.DB
	locks *localLocks
}

// NewPebbleStorage opens or creates the database in dir
func NewPebbleStorage(dir string) (*PebbleStorage, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStorage{db: db, locks: newLocalLocks()}, nil
}

// Get returns a copy of the value stored at key
func (p *PebbleStorage) Get(_ context.Context, key string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get %s: %w", key, err)
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

// Set writes synchronously; orders must survive a crash right after checkout.
func (p *PebbleStorage) Set(_ context.Context, key string, value []byte) error {
	return p.db.Set([]byte(key), value, pebble.Sync)
}

// Delete removes key
func (p *PebbleStorage) Delete(_ context.Context, key string) error {
	return p.db.Delete([]byte(key), pebble.Sync)
}

// AcquireLock takes lockKey for ttl unless another holder has it
func (p *PebbleStorage) AcquireLock(_ context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	token, ok := p.locks.acquire(lockKey, ttl)
	return token, ok, nil
}

// ReleaseLock frees lockKey if token still holds it
func (p *PebbleStorage) ReleaseLock(_ context.Context, lockKey, token string) error {
	p.locks.release(lockKey, token)
	return nil
}

// Close flushes and closes the database
func (p *PebbleStorage) Close() error { return p.db.Close() }
