// Package kvstore provides the keyed blob storage the storefront persists its
// shared document, client sessions and client carts into.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when the key holds no value
var ErrNotFound = errors.New("key not found")

// Storage is a synchronous key/value store of opaque blobs
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Locker guards read-modify-write sequences across every writer of a
// backend. AcquireLock returns a token identifying the holder; ReleaseLock
// only frees the lock while that token still holds it, so a holder whose TTL
// expired cannot release someone else's lock.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (token string, acquired bool, err error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendPebble   = "pebble"
	BackendMongo    = "mongo"
)

// Options selects and configures a backend
type Options struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
	PebbleDir     string
	MongoURI      string
	MongoDB       string
}

// Open creates the backend named in opts
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStorage(), nil
	case BackendRedis:
		return NewRedisStorage(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case BackendPostgres:
		return NewPostgresStorage(opts.DatabaseURL)
	case BackendPebble:
		return NewPebbleStorage(opts.PebbleDir)
	case BackendMongo:
		return NewMongoStorage(ctx, opts.MongoURI, opts.MongoDB)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
