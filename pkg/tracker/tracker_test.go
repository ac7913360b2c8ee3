package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pario-ai/tonal/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestRecordAndRecent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := models.UsageRecord{
		RequestID:        "req-1",
		Pass:             models.PassPrimary,
		Model:            "mistral-small",
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		LatencyMs:        420,
		Outcome:          "ok",
		CreatedAt:        now,
	}
	if err := tr.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}

	records, err := tr.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.TotalTokens != 150 || got.RequestID != "req-1" || got.Pass != models.PassPrimary {
		t.Errorf("unexpected record: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, now)
	}
}

func TestRecordDefaultsTimestamp(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.Record(ctx, models.UsageRecord{Pass: models.PassSecond, Model: "m", Outcome: "ok"}); err != nil {
		t.Fatal(err)
	}
	records, _ := tr.Recent(ctx, 1)
	if len(records) != 1 || records[0].CreatedAt.IsZero() {
		t.Fatalf("expected timestamped record, got %+v", records)
	}
}

func TestSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range 3 {
		_ = tr.Record(ctx, models.UsageRecord{
			Pass: models.PassPrimary, Model: "mistral-small",
			PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
			LatencyMs: int64(100 * (i + 1)), Outcome: "ok", CreatedAt: now,
		})
	}
	_ = tr.Record(ctx, models.UsageRecord{
		Pass: models.PassSecond, Model: "mistral-small",
		PromptTokens: 40, CompletionTokens: 10, TotalTokens: 50,
		LatencyMs: 80, Outcome: "provider_error", CreatedAt: now,
	})
	// outside the window
	_ = tr.Record(ctx, models.UsageRecord{
		Pass: models.PassPrimary, Model: "mistral-small", TotalTokens: 999,
		Outcome: "ok", CreatedAt: now.Add(-48 * time.Hour),
	})

	rows, err := tr.Summary(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 summary rows, got %d", len(rows))
	}

	primary := rows[0]
	if primary.Pass != models.PassPrimary || primary.CallCount != 3 || primary.TotalTokens != 450 {
		t.Errorf("unexpected primary summary: %+v", primary)
	}
	if primary.AvgLatencyMs != 200 {
		t.Errorf("expected avg latency 200, got %d", primary.AvgLatencyMs)
	}

	second := rows[1]
	if second.Pass != models.PassSecond || second.FailedCount != 1 {
		t.Errorf("unexpected second-pass summary: %+v", second)
	}
}

func TestSummaryZeroSinceIncludesEverything(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	old := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = tr.Record(ctx, models.UsageRecord{Pass: models.PassPrimary, Model: "m", Outcome: "ok", TotalTokens: 5, CreatedAt: old})

	rows, err := tr.Summary(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].CallCount != 1 {
		t.Fatalf("expected the old record in the summary, got %+v", rows)
	}
}
