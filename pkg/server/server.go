// Package server exposes the tone pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/pario-ai/tonal/pkg/config"
	"github.com/pario-ai/tonal/pkg/models"
	"github.com/pario-ai/tonal/pkg/tuner"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// CacheHeader reports whether a response was served from the cache.
const CacheHeader = "X-Tonal-Cache"

// Pipeline is the part of the tuner the server depends on.
type Pipeline interface {
	Adjust(ctx context.Context, req models.ToneRequest) (models.ToneResult, error)
	ClearCache(ctx context.Context) error
	CacheStats(ctx context.Context) (models.CacheStats, error)
}

// Server is the Tonal HTTP API.
type Server struct {
	cfg      *config.Config
	pipeline Pipeline
	mux      *http.ServeMux
	handler  http.Handler
}

// New creates a Server. Every route is served both bare and under /api.
func New(cfg *config.Config, p Pipeline) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		mux:      http.NewServeMux(),
	}
	s.route("/health", http.MethodGet, s.handleHealth)
	s.route("/adjust-tone", http.MethodPost, s.handleAdjustTone)
	s.route("/clear-cache", http.MethodPost, s.handleClearCache)
	s.route("/cache-stats", http.MethodGet, s.handleCacheStats)
	s.route("/metrics", http.MethodGet, promhttp.Handler().ServeHTTP)
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "not found")
	})

	s.handler = s.cors(withRequestID(accessLog(s.mux)))
	return s
}

func (s *Server) route(path, method string, h http.HandlerFunc) {
	wrapped := instrument(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request_error", "method not allowed")
			return
		}
		h(w, r)
	})
	s.mux.Handle(path, wrapped)
	s.mux.Handle("/api"+path, wrapped)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down gracefully when ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Listen).Str("cache", s.cfg.Cache.Backend).Msg("tonal listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdjustTone(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid_request_error", "failed to read request body")
		return
	}

	req, err := tuner.DecodeRequest(body)
	if err != nil {
		writeAdjustError(w, r, err)
		return
	}

	res, err := s.pipeline.Adjust(r.Context(), req)
	if err != nil {
		writeAdjustError(w, r, err)
		return
	}

	if res.Source == models.SourceCache {
		w.Header().Set(CacheHeader, "hit")
	} else {
		w.Header().Set(CacheHeader, "miss")
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.ClearCache(r.Context()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("cache clear failed")
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to clear cache")
		return
	}
	log.Ctx(r.Context()).Info().Msg("cache cleared")
	writeJSON(w, http.StatusOK, map[string]string{"message": "cache cleared"})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.pipeline.CacheStats(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("cache stats failed")
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to read cache stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// writeAdjustError maps a pipeline failure to a response. Provider detail is
// logged, never returned.
func writeAdjustError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())
	switch tuner.Kind(err) {
	case tuner.KindValidation:
		writeJSONError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
	case tuner.KindRateLimited:
		logger.Warn().Err(err).Msg("provider rate limited")
		writeJSONError(w, http.StatusTooManyRequests, "rate_limit_error", "rate limited by provider, try again later")
	case tuner.KindUnauthorized:
		logger.Error().Err(err).Msg("provider rejected credentials")
		writeJSONError(w, http.StatusInternalServerError, "server_error", "provider authentication error")
	case tuner.KindCanceled:
		logger.Info().Err(err).Msg("client went away")
		writeJSONError(w, http.StatusServiceUnavailable, "server_error", "request canceled")
	default:
		logger.Error().Err(err).Msg("tone adjustment failed")
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to adjust tone")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func writeJSONError(w http.ResponseWriter, code int, typ, message string) {
	writeJSON(w, code, errorBody{Error: errorDetail{Message: message, Type: typ, Code: code}})
}
