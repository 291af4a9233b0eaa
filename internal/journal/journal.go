// Package journal keeps a local SQLite history of job delivery attempts.
// It records what happened; it never changes delivery behavior. A job the
// server redelivers shows up as a second row.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/industria/bridge/internal/delivery"
)

// Journal is a SQLite-backed delivery.Recorder.
type Journal struct {
	db     *sql.DB
	insert *sql.Stmt
	path   string
}

var _ delivery.Recorder = (*Journal)(nil)

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if err := configure(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := prepareSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	stmt, err := db.Prepare(`INSERT INTO deliveries
		(job_id, device_id, file_name, folder, outcome, acked, error, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: prepare insert: %w", err)
	}
	return &Journal{db: db, insert: stmt, path: path}, nil
}

func configure(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("journal: execute %s: %w", pragma, err)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return nil
}

func prepareSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS deliveries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			folder TEXT NOT NULL,
			outcome TEXT NOT NULL,
			acked INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_job ON deliveries(job_id);`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_at ON deliveries(at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("journal: init schema: %w", err)
		}
	}
	return nil
}

// Path returns the database file.
func (j *Journal) Path() string { return j.path }

// Record appends one attempt.
func (j *Journal) Record(ctx context.Context, a delivery.Attempt) error {
	if j == nil || j.insert == nil {
		return fmt.Errorf("journal: closed")
	}
	at := a.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.insert.ExecContext(ctx,
		a.JobID,
		a.DeviceID,
		a.FileName,
		a.Folder,
		a.Outcome,
		boolInt(a.Acked),
		a.Error,
		at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]delivery.Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `SELECT job_id, device_id, file_name, folder, outcome, acked, error, at
		FROM deliveries ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []delivery.Attempt
	for rows.Next() {
		var (
			a     delivery.Attempt
			acked int
			at    int64
		)
		if err := rows.Scan(&a.JobID, &a.DeviceID, &a.FileName, &a.Folder, &a.Outcome, &acked, &a.Error, &at); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		a.Acked = acked != 0
		a.At = time.UnixMilli(at)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: rows: %w", err)
	}
	return out, nil
}

// Attempts returns how many times jobID was tried.
func (j *Journal) Attempts(ctx context.Context, jobID string) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deliveries WHERE job_id = ?`, jobID).Scan(&n); err != nil {
		return 0, fmt.Errorf("journal: count: %w", err)
	}
	return n, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	if j.insert != nil {
		_ = j.insert.Close()
		j.insert = nil
	}
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
