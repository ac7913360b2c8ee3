package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tonal/pkg/cache"
	"github.com/pario-ai/tonal/pkg/config"
	"github.com/pario-ai/tonal/pkg/models"
)

// expirer is implemented by backends that keep expired rows until swept.
type expirer interface {
	ClearExpired(ctx context.Context) (int64, error)
}

func newCacheCmd(configPath *string) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			var stats models.CacheStats

			if serverURL != "" {
				if err := callServer(ctx, http.MethodGet, serverURL, "/api/cache-stats", &stats); err != nil {
					return err
				}
			} else {
				store, err := openLocalCache(*configPath)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()

				if stats, err = store.Stats(ctx); err != nil {
					return err
				}
			}

			total := stats.Hits + stats.Misses
			hitRate := float64(0)
			if total > 0 {
				hitRate = float64(stats.Hits) / float64(total) * 100
			}
			fmt.Printf("Backend:  %s\nEntries:  %d\nHits:     %d\nMisses:   %d\nHit rate: %.1f%%\n",
				stats.Backend, stats.Entries, stats.Hits, stats.Misses, hitRate)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if serverURL != "" {
				if expiredOnly {
					return fmt.Errorf("--expired is not supported with --server")
				}
				if err := callServer(ctx, http.MethodPost, serverURL, "/api/clear-cache", nil); err != nil {
					return err
				}
				fmt.Println("All cache entries cleared.")
				return nil
			}

			store, err := openLocalCache(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if expiredOnly {
				ex, ok := store.(expirer)
				if !ok {
					fmt.Println("This backend expires entries on its own; nothing to do.")
					return nil
				}
				n, err := ex.ClearExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Cleared %d expired cache entries.\n", n)
				return nil
			}

			if err := store.Clear(ctx); err != nil {
				return err
			}
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "operate on a running server at this base URL")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

// openLocalCache opens the configured persistent backend. The memory backend
// only exists inside a server process, so it is rejected.
func openLocalCache(configPath string) (cache.Store, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Backend == config.BackendMemory {
		return nil, fmt.Errorf("the memory cache lives inside the server process; use --server http://host:port")
	}
	return cache.Open(cfg)
}

func callServer(ctx context.Context, method, base, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
