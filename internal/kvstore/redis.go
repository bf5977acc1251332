package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseLockScript deletes the lock only when it still holds the caller's token
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStorage keeps blobs as plain Redis strings
type RedisStorage struct {
	rdb *redis.Client
}

// NewRedisStorage creates a new Redis-backed storage and checks connectivity
func NewRedisStorage(addr, password string, db int) (*RedisStorage, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStorage{rdb: rdb}, nil
}

// Get reads the value stored at key
func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value at key without expiry
func (r *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// AcquireLock acquires a distributed lock holding a random token
func (r *RedisStorage) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := r.rdb.SetNX(ctx, redisLockKey(lockKey), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseLock releases a distributed lock if token still holds it
func (r *RedisStorage) ReleaseLock(ctx context.Context, lockKey, token string) error {
	return releaseLockScript.Run(ctx, r.rdb, []string{redisLockKey(lockKey)}, token).Err()
}

func redisLockKey(lockKey string) string {
	return fmt.Sprintf("lock:%s", lockKey)
}

// Close closes the Redis connection
func (r *RedisStorage) Close() error {
	return r.rdb.Close()
}
