package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS kv_locks (
	lock_key   TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// PostgresStorage keeps blobs in a single key/value table
type PostgresStorage struct {
	db *sqlx.DB
}

// NewPostgresStorage connects to Postgres and ensures the table exists
func NewPostgresStorage(databaseURL string) (*PostgresStorage, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(kvSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &PostgresStorage{db: db}, nil
}

// Get reads the value stored at key
func (p *PostgresStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.GetContext(ctx, &value, "SELECT value FROM kv_entries WHERE key = $1", key)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set upserts value at key
func (p *PostgresStorage) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	return err
}

// Delete removes key
func (p *PostgresStorage) Delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = $1", key)
	return err
}

// AcquireLock takes lockKey for ttl. An expired holder is taken over in the
// same statement, so only one replica can win.
func (p *PostgresStorage) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO kv_locks (lock_key, token, expires_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3))
		ON CONFLICT (lock_key) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
		WHERE kv_locks.expires_at < NOW()`,
		lockKey, token, ttl.Seconds())
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, err
	}
	if n == 0 {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseLock frees lockKey if token still holds it
func (p *PostgresStorage) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM kv_locks WHERE lock_key = $1 AND token = $2", lockKey, token)
	return err
}

// Close closes the database connection
func (p *PostgresStorage) Close() error {
	return p.db.Close()
}
