package cache

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/tonal/pkg/config"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("hello world", 10, 90)
	b := Fingerprint("hello world", 10, 90)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "tone:v2:"))
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint("hello world", 10, 90)
	assert.NotEqual(t, base, Fingerprint("hello world!", 10, 90))
	assert.NotEqual(t, base, Fingerprint("hello world", 11, 90))
	assert.NotEqual(t, base, Fingerprint("hello world", 10, 90.5))
	// swapped axes must not collide
	assert.NotEqual(t, base, Fingerprint("hello world", 90, 10))
	// exact values, not bands
	assert.NotEqual(t, Fingerprint("x", 10, 10), Fingerprint("x", 15, 10))
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	mem, err := Open(cfg)
	require.NoError(t, err)
	defer mem.Close()
	stats, err := mem.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", stats.Backend)

	cfg.Cache.Backend = config.BackendSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "tonal.db")
	sq, err := Open(cfg)
	require.NoError(t, err)
	defer sq.Close()
	require.NoError(t, sq.Put(ctx, "k", "v"))
	got, ok, err := sq.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	cfg.Cache.Backend = "bogus"
	_, err = Open(cfg)
	assert.Error(t, err)
}

func TestOpenRedisUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = config.BackendRedis
	cfg.Cache.Redis.Addr = "127.0.0.1:1"
	cfg.Cache.TTL = time.Minute
	_, err := Open(cfg)
	assert.Error(t, err)
}
