// Package usage keeps a SQLite ledger of provider calls made on behalf of actions.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/quill/pkg/models"
)

// Recorder records provider usage.
type Recorder interface {
	// Record stores a usage record.
	Record(ctx context.Context, rec models.UsageRecord) error
}

// Ledger implements Recorder with a SQLite database and answers usage queries.
type Ledger struct {
	db        *sql.DB
	retention time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRetention drops records older than d, checked hourly. Zero keeps everything.
func WithRetention(d time.Duration) Option {
	return func(l *Ledger) { l.retention = d }
}

const createTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	action TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	tokens_used INTEGER NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_action_time ON usage_records(action, created_at);
`

// New opens a Ledger and runs auto-migration.
func New(dbPath string, opts ...Option) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage db: %w", err)
	}

	l := &Ledger{db: db, done: make(chan struct{})}
	for _, opt := range opts {
		opt(l)
	}
	if l.retention > 0 {
		l.wg.Add(1)
		go l.retentionLoop()
	}
	return l, nil
}

// Record stores a usage record. A zero CreatedAt is set to now.
func (l *Ledger) Record(ctx context.Context, rec models.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO usage_records (request_id, action, provider, model, tokens_used, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, string(rec.Action), rec.Provider, rec.Model, rec.TokensUsed, rec.LatencyMs, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Query returns usage records for an action since a given time, newest first.
// An empty action matches every action.
func (l *Ledger) Query(ctx context.Context, action models.Action, since time.Time) ([]models.UsageRecord, error) {
	query := `SELECT id, request_id, action, provider, model, tokens_used, latency_ms, created_at
		 FROM usage_records WHERE created_at >= ?`
	args := []any{since.UTC()}
	if action != "" {
		query += ` AND action = ?`
		args = append(args, string(action))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Action, &r.Provider, &r.Model, &r.TokensUsed, &r.LatencyMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// TotalTokens returns the tokens used by an action since a given time.
// An empty action sums every action.
func (l *Ledger) TotalTokens(ctx context.Context, action models.Action, since time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(tokens_used), 0) FROM usage_records WHERE created_at >= ?`
	args := []any{since.UTC()}
	if action != "" {
		query += ` AND action = ?`
		args = append(args, string(action))
	}

	var total int64
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("total usage: %w", err)
	}
	return total, nil
}

// Summary returns usage grouped by action and provider, optionally filtered by action.
func (l *Ledger) Summary(ctx context.Context, action models.Action) ([]models.UsageSummary, error) {
	query := `SELECT action, provider, COUNT(*), COALESCE(SUM(tokens_used), 0), CAST(COALESCE(AVG(latency_ms), 0) AS INTEGER)
		 FROM usage_records`
	var args []any
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, string(action))
	}
	query += ` GROUP BY action, provider ORDER BY action, provider`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		if err := rows.Scan(&s.Action, &s.Provider, &s.RequestCount, &s.TotalTokens, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Cleanup deletes records older than the retention period. It is a no-op
// when no retention is configured.
func (l *Ledger) Cleanup(ctx context.Context) (int64, error) {
	if l.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-l.retention)
	res, err := l.db.ExecContext(ctx, `DELETE FROM usage_records WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("usage cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and releases the database connection.
func (l *Ledger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Ledger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}

var _ Recorder = (*Ledger)(nil)
