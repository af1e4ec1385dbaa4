// Package telemetry keeps a local history of synthesis outcomes.
// Nothing is reported anywhere; the data lives in the project state dir.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go driver, registered as "sqlite"
)

// FileName is the history database inside the state dir.
const FileName = "history.db"

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Outcome values recorded per method.
const (
	OutcomeSkipped     = "skipped"
	OutcomeInserted    = "inserted"
	OutcomeNoSynthesis = "no_synthesis"
	OutcomeFailed      = "failed"
)

// Run is one method outcome of a generate invocation.
type Run struct {
	RunID      string    `json:"run_id"`
	SourcePath string    `json:"source_path"`
	TestPath   string    `json:"test_path"`
	Method     string    `json:"method"`
	Outcome    string    `json:"outcome"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary describes the whole history.
type Summary struct {
	Runs    int       `json:"runs"`
	Methods int       `json:"methods"`
	LastRun time.Time `json:"last_run"`
}

// NewRunID returns a fresh identifier shared by every outcome of one
// invocation.
func NewRunID() string {
	return uuid.NewString()
}

// Store persists Runs in sqlite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// one writer avoids SQLITE_BUSY between our own goroutines
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s, err := NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.path = path
	return s, nil
}

// NewStore wraps an open database and ensures the schema exists.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := InitSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// InitSchema creates the history tables if they don't exist.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS synthesis_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		source_path TEXT NOT NULL,
		test_path TEXT NOT NULL,
		method TEXT NOT NULL,
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_synthesis_runs_created ON synthesis_runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_synthesis_runs_run ON synthesis_runs(run_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Path returns the database file, empty for wrapped connections.
func (s *Store) Path() string {
	return s.path
}

// Record stores runs in a single transaction. Zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, runs ...Run) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO synthesis_runs (run_id, source_path, test_path, method, outcome, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range runs {
		created := r.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx, r.RunID, r.SourcePath, r.TestPath, r.Method, r.Outcome,
			r.DurationMS, created.UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. limit <= 0 means 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source_path, test_path, method, outcome, duration_ms, created_at
		FROM synthesis_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.RunID, &r.SourcePath, &r.TestPath, &r.Method, &r.Outcome, &r.DurationMS, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// OutcomeCounts returns the number of recorded methods per outcome.
func (s *Store) OutcomeCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM synthesis_runs GROUP BY outcome
	`)
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// Summary returns totals over the whole history.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	var last sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT run_id), COUNT(*), MAX(created_at) FROM synthesis_runs
	`).Scan(&sum.Runs, &sum.Methods, &last)
	if err != nil {
		return Summary{}, fmt.Errorf("query summary: %w", err)
	}
	if last.Valid {
		sum.LastRun, _ = time.Parse(timeLayout, last.String)
	}
	return sum, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
