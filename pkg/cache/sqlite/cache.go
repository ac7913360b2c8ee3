package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/tonal/pkg/models"
)

// Cache is an exact-match result cache backed by SQLite. Expiry is checked
// on read; expired rows stay until overwritten or cleared.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS tone_cache (
	fingerprint TEXT PRIMARY KEY,
	result TEXT NOT NULL,
	inserted_at INTEGER NOT NULL
);
`

// New creates a Cache with the given database path and TTL.
func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Get retrieves a cached result. Missing and expired entries are misses.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var result string
	var insertedAt int64

	err := c.db.QueryRowContext(ctx,
		`SELECT result, inserted_at FROM tone_cache WHERE fingerprint = ?`, key,
	).Scan(&result, &insertedAt)

	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return "", false, nil
	}
	if err != nil {
		c.misses.Add(1)
		return "", false, fmt.Errorf("cache get: %w", err)
	}

	if time.Since(time.Unix(0, insertedAt)) > c.ttl {
		c.misses.Add(1)
		return "", false, nil
	}

	c.hits.Add(1)
	return result, true, nil
}

// Entry returns the stored row for key including its insertion time, ignoring TTL.
func (c *Cache) Entry(ctx context.Context, key string) (models.CacheEntry, error) {
	var e models.CacheEntry
	var insertedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT fingerprint, result, inserted_at FROM tone_cache WHERE fingerprint = ?`, key,
	).Scan(&e.Key, &e.ResultText, &insertedAt)
	if err != nil {
		return models.CacheEntry{}, fmt.Errorf("cache entry: %w", err)
	}
	e.InsertedAt = time.Unix(0, insertedAt).UTC()
	return e, nil
}

// Put stores a result, replacing any existing entry and resetting its age.
func (c *Cache) Put(ctx context.Context, key, text string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tone_cache (fingerprint, result, inserted_at) VALUES (?, ?, ?)`,
		key, text, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tone_cache`).Scan(&count)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Backend: "sqlite",
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM tone_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// ClearExpired removes only entries older than the TTL.
func (c *Cache) ClearExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-c.ttl).UnixNano()
	res, err := c.db.ExecContext(ctx, `DELETE FROM tone_cache WHERE inserted_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache clear expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
