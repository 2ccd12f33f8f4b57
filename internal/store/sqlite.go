// Package store keeps the history of statistics summaries in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"rtsched/internal/sched"

	_ "modernc.org/sqlite"
)

// Record is one persisted summary.
type Record struct {
	RunID     string
	Kind      string
	At        uint64
	Summary   sched.Summary
	CreatedAt time.Time
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS summaries (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id            TEXT    NOT NULL,
		task              TEXT    NOT NULL,
		kind              TEXT    NOT NULL,
		at_us             INTEGER NOT NULL,
		period_us         INTEGER NOT NULL,
		runs              INTEGER NOT NULL,
		avg_us            REAL    NOT NULL,
		min_us            INTEGER NOT NULL,
		max_us            INTEGER NOT NULL,
		misses            INTEGER NOT NULL,
		worst_lateness_us INTEGER NOT NULL,
		created_at        TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_run_task ON summaries(run_id, task, at_us)`,
}

// SQLiteStore persists Summary and Report events.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Handle stores summary-carrying events and ignores the rest.
// It implements sched.Sink.
func (s *SQLiteStore) Handle(ctx context.Context, ev sched.Event) error {
	if ev.Summary == nil {
		return nil
	}
	return s.SaveSummary(ctx, Record{
		RunID:     ev.RunID,
		Kind:      ev.Kind.String(),
		At:        ev.At,
		Summary:   *ev.Summary,
		CreatedAt: ev.Time,
	})
}

// SaveSummary inserts rec.
func (s *SQLiteStore) SaveSummary(ctx context.Context, rec Record) error {
	s.logger.Debug("sql", "op", "insert", "table", "summaries", "task", rec.Summary.Task)

	sum := rec.Summary
	// SQLite integers are signed 64-bit
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (run_id, task, kind, at_us, period_us, runs, avg_us, min_us, max_us, misses, worst_lateness_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, sum.Task, rec.Kind, int64(rec.At), int64(sum.Period), int64(sum.Runs), sum.Avg,
		int64(sum.Min), int64(sum.Max), int64(sum.Misses), int64(sum.WorstLateness),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert summary %s: %w", sum.Task, err)
	}
	return nil
}

// ListSummaries returns the summaries of one run, ordered by time.
// An empty task selects every task.
func (s *SQLiteStore) ListSummaries(ctx context.Context, runID, task string) ([]Record, error) {
	s.logger.Debug("sql", "op", "select", "table", "summaries", "run_id", runID, "task", task)

	query := `SELECT run_id, task, kind, at_us, period_us, runs, avg_us, min_us, max_us, misses, worst_lateness_us, created_at
		 FROM summaries WHERE run_id = ?`
	args := []any{runID}
	if task != "" {
		query += ` AND task = ?`
		args = append(args, task)
	}
	query += ` ORDER BY at_us, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec                                         Record
			at, period, runs, lo, hi, misses, lateness int64
			createdAt                                   string
		)
		if err := rows.Scan(&rec.RunID, &rec.Summary.Task, &rec.Kind, &at, &period, &runs, &rec.Summary.Avg,
			&lo, &hi, &misses, &lateness, &createdAt); err != nil {
			return nil, err
		}
		rec.At = uint64(at)
		rec.Summary.Period = uint64(period)
		rec.Summary.Runs = uint64(runs)
		rec.Summary.Min = uint64(lo)
		rec.Summary.Max = uint64(hi)
		rec.Summary.Misses = uint64(misses)
		rec.Summary.WorstLateness = uint64(lateness)
		created, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("summary %s at %d: created_at: %w", rec.Summary.Task, rec.At, err)
		}
		rec.CreatedAt = created
		out = append(out, rec)
	}
	return out, rows.Err()
}
