package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pario-ai/tonal/pkg/cache/memory"
	"github.com/pario-ai/tonal/pkg/completion"
	"github.com/pario-ai/tonal/pkg/config"
	"github.com/pario-ai/tonal/pkg/models"
	"github.com/pario-ai/tonal/pkg/tone"
	"github.com/pario-ai/tonal/pkg/tuner"
)

const providerKey = "sk-provider-secret"

// fakeProvider answers chat completions with replies in order, repeating the
// last one, or with a fixed status when status is non-zero.
type fakeProvider struct {
	replies []string
	status  int
	calls   atomic.Int32
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(f.calls.Add(1))
	if r.Header.Get("Authorization") != "Bearer "+providerKey {
		http.Error(w, "bad key", http.StatusUnauthorized)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		// some providers echo the credential back
		w.Write([]byte(`{"message":"denied for ` + providerKey + `"}`))
		return
	}
	reply := f.replies[min(n-1, len(f.replies)-1)]
	json.NewEncoder(w).Encode(models.ChatCompletionResponse{
		Model:   "mistral-small",
		Choices: []models.Choice{{Message: models.ChatMessage{Role: "assistant", Content: reply}, FinishReason: "stop"}},
		Usage:   &models.Usage{PromptTokens: 40, CompletionTokens: 8, TotalTokens: 48},
	})
}

func setupServer(t *testing.T, fp *fakeProvider) (*Server, *memory.Cache) {
	t.Helper()
	upstream := httptest.NewServer(fp)
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.Provider.URL = upstream.URL
	cfg.Provider.APIKey = providerKey
	cfg.Provider.Timeout = 5 * time.Second

	store := memory.New(time.Hour, 100)
	t.Cleanup(func() { store.Close() })

	tn := tuner.New(cfg, completion.New(cfg.Provider), store, nil)
	return New(cfg, tn), store
}

func post(srv http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) models.ToneResult {
	t.Helper()
	var res models.ToneResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v: %s", err, w.Body.String())
	}
	return res
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v: %s", err, w.Body.String())
	}
	return body.Error
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t, &fakeProvider{replies: []string{"x"}})

	for _, path := range []string{"/health", "/api/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"status":"ok"`) {
			t.Errorf("%s: unexpected body %s", path, w.Body.String())
		}
		if w.Header().Get(RequestIDHeader) == "" {
			t.Errorf("%s: missing request ID", path)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv, _ := setupServer(t, &fakeProvider{replies: []string{"x"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected echoed request ID, got %q", got)
	}
}

func TestAdjustToneExtremeConcise(t *testing.T) {
	fp := &fakeProvider{replies: []string{
		"Hey, quick heads up, the meeting got moved over to next Tuesday afternoon instead, okay?",
		"Meeting moved to Tuesday.",
	}}
	srv, _ := setupServer(t, fp)

	text := "I would like to inform you that the meeting has been rescheduled to next Tuesday afternoon at three."
	body := `{"text":"` + text + `","formalityLevel":90,"verbosityLevel":10}`
	w := post(srv, "/api/adjust-tone", body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get(CacheHeader) != "miss" {
		t.Error("expected cache miss on first request")
	}

	res := decodeResult(t, w)
	target := tone.TargetWordCount(tone.CountWords(text), 10)
	if res.Metrics.TargetWordCount != target {
		t.Errorf("target = %d, want %d", res.Metrics.TargetWordCount, target)
	}
	if res.Metrics.ResultWordCount > target {
		t.Errorf("result has %d words, target %d", res.Metrics.ResultWordCount, target)
	}
	if !res.Metrics.Required2ndPass {
		t.Error("expected a second pass")
	}
	if res.Source != models.SourceGenerated {
		t.Errorf("source = %q", res.Source)
	}
	if fp.calls.Load() != 2 {
		t.Errorf("expected 2 provider calls, got %d", fp.calls.Load())
	}
}

func TestAdjustToneCacheRoundTrip(t *testing.T) {
	fp := &fakeProvider{replies: []string{"The meeting is on Tuesday afternoon now."}}
	srv, _ := setupServer(t, fp)

	body := `{"text":"The meeting has been moved to Tuesday afternoon.","formalityLevel":50,"verbosityLevel":50}`
	first := post(srv, "/adjust-tone", body)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}

	second := post(srv, "/adjust-tone", body)
	if second.Header().Get(CacheHeader) != "hit" {
		t.Error("expected cache hit on second request")
	}
	a, b := decodeResult(t, first), decodeResult(t, second)
	if a.Result != b.Result {
		t.Errorf("cached result %q differs from %q", b.Result, a.Result)
	}
	if b.Source != models.SourceCache {
		t.Errorf("source = %q, want cache", b.Source)
	}
	if fp.calls.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", fp.calls.Load())
	}
}

func TestAdjustToneLegacyBody(t *testing.T) {
	fp := &fakeProvider{replies: []string{"Hi, the meeting is Tuesday."}}
	srv, _ := setupServer(t, fp)

	w := post(srv, "/adjust-tone", `{"text":"The meeting is on Tuesday.","toneLevel":80}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if res := decodeResult(t, w); res.Metrics.VerbosityBand != "balanced" {
		t.Errorf("verbosity band = %q, want balanced", res.Metrics.VerbosityBand)
	}
}

func TestAdjustToneValidation(t *testing.T) {
	fp := &fakeProvider{replies: []string{"x"}}
	srv, _ := setupServer(t, fp)

	for _, body := range []string{
		`{"text":"hello","verbosityLevel":50}`,
		`{"text":"","formalityLevel":50,"verbosityLevel":50}`,
		`{"formalityLevel":50,"verbosityLevel":50}`,
		`not json`,
		`{"text":"hi","toneLevel":5,"verbosityLevel":5}`,
	} {
		w := post(srv, "/adjust-tone", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
			continue
		}
		if e := decodeError(t, w); e.Code != http.StatusBadRequest || e.Type != "invalid_request_error" {
			t.Errorf("%s: unexpected error body %+v", body, e)
		}
	}
	if fp.calls.Load() != 0 {
		t.Errorf("validation failures must not reach the provider, got %d calls", fp.calls.Load())
	}
}

func TestAdjustToneRateLimited(t *testing.T) {
	fp := &fakeProvider{status: http.StatusTooManyRequests}
	srv, store := setupServer(t, fp)

	w := post(srv, "/adjust-tone", `{"text":"Please send the report.","formalityLevel":20,"verbosityLevel":50}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", w.Code, w.Body.String())
	}
	stats, _ := store.Stats(t.Context())
	if stats.Entries != 0 {
		t.Errorf("expected empty cache, got %d entries", stats.Entries)
	}
}

func TestAdjustToneProviderAuthFailureHidesKey(t *testing.T) {
	fp := &fakeProvider{status: http.StatusUnauthorized}
	srv, _ := setupServer(t, fp)

	w := post(srv, "/adjust-tone", `{"text":"Please send the report.","formalityLevel":20,"verbosityLevel":50}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), providerKey) {
		t.Fatal("response leaked the provider credential")
	}
	if e := decodeError(t, w); e.Message != "provider authentication error" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestAdjustToneProviderError(t *testing.T) {
	fp := &fakeProvider{status: http.StatusBadGateway}
	srv, _ := setupServer(t, fp)

	w := post(srv, "/adjust-tone", `{"text":"Please send the report.","formalityLevel":20,"verbosityLevel":50}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), providerKey) {
		t.Fatal("response leaked the provider credential")
	}
}

func TestAdjustToneBodyTooLarge(t *testing.T) {
	srv, _ := setupServer(t, &fakeProvider{replies: []string{"x"}})

	big := `{"text":"` + strings.Repeat("a ", maxBodyBytes) + `","formalityLevel":1,"verbosityLevel":1}`
	w := post(srv, "/adjust-tone", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

func TestClearCacheAndStats(t *testing.T) {
	fp := &fakeProvider{replies: []string{"The meeting is on Tuesday afternoon now."}}
	srv, _ := setupServer(t, fp)
	body := `{"text":"The meeting has been moved to Tuesday afternoon.","formalityLevel":50,"verbosityLevel":50}`
	post(srv, "/adjust-tone", body)

	req := httptest.NewRequest(http.MethodGet, "/api/cache-stats", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	var stats models.CacheStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 || stats.Backend != "memory" {
		t.Errorf("unexpected stats %+v", stats)
	}

	w = post(srv, "/clear-cache", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "cache cleared") {
		t.Fatalf("clear-cache: %d %s", w.Code, w.Body.String())
	}

	if again := post(srv, "/adjust-tone", body); again.Header().Get(CacheHeader) != "miss" {
		t.Error("expected cache miss after clear")
	}
	if fp.calls.Load() != 2 {
		t.Errorf("expected 2 provider calls, got %d", fp.calls.Load())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := setupServer(t, &fakeProvider{replies: []string{"x"}})

	req := httptest.NewRequest(http.MethodGet, "/adjust-tone", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := setupServer(t, &fakeProvider{replies: []string{"x"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/adjust-tone", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected wildcard origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSAllowList(t *testing.T) {
	cfg := config.Default()
	cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	srv := New(cfg, nil)

	for origin, want := range map[string]string{
		"https://app.example.com":  "https://app.example.com",
		"https://evil.example.com": "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %s: allow-origin = %q, want %q", origin, got, want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupServer(t, &fakeProvider{replies: []string{"x"}})

	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "tonal_http_requests_total") {
		t.Error("expected request counter in exposition")
	}
}
