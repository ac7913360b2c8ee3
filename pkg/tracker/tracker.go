package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/tonal/pkg/models"
)

// Recorder stores provider call records.
type Recorder interface {
	Record(ctx context.Context, rec models.UsageRecord) error
}

// Tracker records and queries provider usage.
type Tracker interface {
	Recorder
	// Summary returns usage aggregated by model and pass since a given time.
	Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error)
	// Recent returns the most recent records, newest first.
	Recent(ctx context.Context, limit int) ([]models.UsageRecord, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS provider_calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL DEFAULT '',
	pass TEXT NOT NULL,
	model TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_provider_calls_time ON provider_calls(created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a provider call.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO provider_calls (request_id, pass, model, prompt_tokens, completion_tokens, total_tokens, latency_ms, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, string(rec.Pass), rec.Model, rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens,
		rec.LatencyMs, rec.Outcome, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Summary returns aggregated usage grouped by model and pass.
func (t *SQLiteTracker) Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error) {
	var from int64
	if !since.IsZero() {
		from = since.UnixNano()
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT model, pass, COUNT(*),
		        SUM(CASE WHEN outcome != 'ok' THEN 1 ELSE 0 END),
		        SUM(prompt_tokens), SUM(completion_tokens), SUM(total_tokens),
		        CAST(AVG(latency_ms) AS INTEGER)
		 FROM provider_calls WHERE created_at >= ?
		 GROUP BY model, pass ORDER BY model, pass`,
		from,
	)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		var pass string
		if err := rows.Scan(&s.Model, &pass, &s.CallCount, &s.FailedCount, &s.TotalPrompt, &s.TotalCompletion, &s.TotalTokens, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Pass = models.Pass(pass)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Recent returns up to limit records, newest first.
func (t *SQLiteTracker) Recent(ctx context.Context, limit int) ([]models.UsageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, request_id, pass, model, prompt_tokens, completion_tokens, total_tokens, latency_ms, outcome, created_at
		 FROM provider_calls ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		var pass string
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.RequestID, &pass, &r.Model, &r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.LatencyMs, &r.Outcome, &createdAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		r.Pass = models.Pass(pass)
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
