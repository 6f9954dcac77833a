package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"bold-client-go/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS bold_payload_cache (
	cache_key  TEXT PRIMARY KEY,
	query_mode TEXT NOT NULL,
	payload    BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS bold_payload_cache_expires_at ON bold_payload_cache (expires_at);
`

// PostgresCache stores zstd-compressed payloads in PostgreSQL
type PostgresCache struct {
	db *sql.DB
}

// NewPostgresCache connects, pings and creates the table if missing
func NewPostgresCache(ctx context.Context, databaseURL string) (*PostgresCache, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return &PostgresCache{db: db}, nil
}

// Get returns nil, nil when the key is missing or expired
func (c *PostgresCache) Get(ctx context.Context, key string) (*CachedPayload, error) {
	query := `
	SELECT cache_key, query_mode, payload, created_at, expires_at
	FROM bold_payload_cache
	WHERE cache_key = $1 AND expires_at > NOW()
	`

	var result CachedPayload
	var compressed []byte

	err := c.db.QueryRowContext(ctx, query, key).Scan(
		&result.Key,
		&result.Mode,
		&compressed,
		&result.CreatedAt,
		&result.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	result.Payload, err = decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cache entry: %w", err)
	}

	return &result, nil
}

// Set upserts an entry
func (c *PostgresCache) Set(ctx context.Context, key string, mode model.QueryMode, payload []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl)

	query := `
	INSERT INTO bold_payload_cache (cache_key, query_mode, payload, created_at, expires_at)
	VALUES ($1, $2, $3, NOW(), $4)
	ON CONFLICT (cache_key)
	DO UPDATE SET query_mode = $2, payload = $3, created_at = NOW(), expires_at = $4
	`

	_, err := c.db.ExecContext(ctx, query, key, string(mode), compress(payload), expiresAt)
	return err
}

// Delete removes an entry
func (c *PostgresCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM bold_payload_cache WHERE cache_key = $1`, key)
	return err
}

// Close closes the connection pool
func (c *PostgresCache) Close() error {
	return c.db.Close()
}

// CleanExpired deletes expired rows and returns how many were removed
func (c *PostgresCache) CleanExpired(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM bold_payload_cache WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
