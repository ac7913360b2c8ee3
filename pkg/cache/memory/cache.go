// Package memory is a process-local result cache with a fixed TTL.
package memory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pario-ai/tonal/pkg/models"
)

// Cache is an exact-match result cache held in memory. Entries older than
// the TTL are never returned; the least recently used entry is dropped once
// maxEntries is reached (0 means unbounded).
type Cache struct {
	lru    *expirable.LRU[string, string]
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{lru: expirable.NewLRU[string, string](maxEntries, nil, ttl)}
}

// Get returns the cached text for key, if present and not expired.
func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	text, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return "", false, nil
	}
	c.hits.Add(1)
	return text, true, nil
}

// Put stores text under key, replacing any previous entry and resetting its age.
func (c *Cache) Put(_ context.Context, key, text string) error {
	c.lru.Add(key, text)
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(_ context.Context) error {
	c.lru.Purge()
	return nil
}

// Stats returns cache performance metrics.
func (c *Cache) Stats(_ context.Context) (models.CacheStats, error) {
	return models.CacheStats{
		Backend: "memory",
		Entries: int64(c.lru.Len()),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Close drops all entries.
func (c *Cache) Close() error {
	c.lru.Purge()
	return nil
}
