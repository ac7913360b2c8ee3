package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pario-ai/tonal/pkg/cache"
	"github.com/pario-ai/tonal/pkg/completion"
	"github.com/pario-ai/tonal/pkg/config"
	"github.com/pario-ai/tonal/pkg/tracker"
	"github.com/pario-ai/tonal/pkg/tuner"
)

// loadConfig reads the config file and configures the global logger from it.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := setupLogging(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging writes to stderr so stdout stays free for command output and
// the MCP protocol.
func setupLogging(lc config.LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	switch lc.Format {
	case "console":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	default:
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}

// app holds everything a command needs to run the pipeline.
type app struct {
	cfg     *config.Config
	store   cache.Store
	tracker tracker.Tracker
	tuner   *tuner.Tuner
}

func newApp(cfg *config.Config) (*app, error) {
	store, err := cache.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	a := &app{cfg: cfg, store: store}

	var rec tracker.Recorder
	if cfg.Tracking.Enabled {
		tr, err := tracker.New(cfg.DBPath)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("init tracker: %w", err)
		}
		a.tracker = tr
		rec = tr
	}

	if cfg.Provider.APIKey == "" {
		log.Warn().Msg("no provider API key configured; set TONAL_API_KEY or MISTRAL_API_KEY")
	}

	client := completion.New(cfg.Provider)
	a.tuner = tuner.New(cfg, client, store, rec)
	log.Debug().Stringer("client", client).Str("cache", cfg.Cache.Backend).Msg("pipeline ready")
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.tracker != nil {
		errs = append(errs, a.tracker.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}
