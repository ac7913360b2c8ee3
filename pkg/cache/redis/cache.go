// Package redis is a result cache shared between processes through Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pario-ai/tonal/pkg/config"
	"github.com/pario-ai/tonal/pkg/models"
)

// Cache stores results as plain string keys under a prefix with a native
// Redis expiry.
type Cache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// New connects to Redis and verifies the connection.
func New(cfg config.RedisConfig, ttl time.Duration) (*Cache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(rdb, cfg.Prefix, ttl), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *goredis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(k string) string { return c.prefix + k }

// Get retrieves a cached result.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	text, err := c.rdb.Get(ctx, c.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		c.misses.Add(1)
		return "", false, nil
	}
	if err != nil {
		c.misses.Add(1)
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	c.hits.Add(1)
	return text, true, nil
}

// Put stores a result with the cache TTL, replacing any existing entry.
func (c *Cache) Put(ctx context.Context, key, text string) error {
	if err := c.rdb.Set(ctx, c.key(key), text, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// scanKeys walks every key under the prefix.
func (c *Cache) scanKeys(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+"*", 500).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Clear removes every entry under the prefix.
func (c *Cache) Clear(ctx context.Context) error {
	err := c.scanKeys(ctx, func(keys []string) error {
		return c.rdb.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics. Hits and misses are counted per
// process.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	var count int64
	err := c.scanKeys(ctx, func(keys []string) error {
		count += int64(len(keys))
		return nil
	})
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Backend: "redis",
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
