// Package cache defines the result cache used by the tone pipeline and
// opens the configured backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/pario-ai/tonal/pkg/cache/memory"
	redisstore "github.com/pario-ai/tonal/pkg/cache/redis"
	sqlitestore "github.com/pario-ai/tonal/pkg/cache/sqlite"
	"github.com/pario-ai/tonal/pkg/config"
	"github.com/pario-ai/tonal/pkg/models"
)

// Store maps a request fingerprint to a generated result. Implementations
// never return an entry older than their TTL and are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, text string) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (models.CacheStats, error)
	Close() error
}

var (
	_ Store = (*memory.Cache)(nil)
	_ Store = (*sqlitestore.Cache)(nil)
	_ Store = (*redisstore.Cache)(nil)
)

// fingerprintVersion is bumped whenever the key layout changes.
const fingerprintVersion = "tone:v2:"

// Fingerprint computes the cache key for a request from the exact text and
// levels. The text is length-prefixed so no two inputs share an encoding.
func Fingerprint(text string, formality, verbosity float64) string {
	h := sha256.New()
	var buf [8]byte

	binary.BigEndian.PutUint64(buf[:], uint64(len(text)))
	h.Write(buf[:])
	h.Write([]byte(text))

	binary.BigEndian.PutUint64(buf[:], math.Float64bits(formality))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(verbosity))
	h.Write(buf[:])

	return fingerprintVersion + hex.EncodeToString(h.Sum(nil))
}

// Open creates the backend selected by cfg.Cache.Backend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Cache.Backend {
	case config.BackendMemory, "":
		return memory.New(cfg.Cache.TTL, cfg.Cache.MaxEntries), nil
	case config.BackendSQLite:
		c, err := sqlitestore.New(cfg.DBPath, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendRedis:
		c, err := redisstore.New(cfg.Cache.Redis, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
