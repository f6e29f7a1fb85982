// Package history gives the sync engine and CLI a durable, queryable
// record of sync attempts and FFDC reports, backed by SQLite. Grounded on
// rclone's sqlite backend (backend/sqlite/sqlite_utils.go): a lazily opened
// *sql.DB, an idempotent CREATE TABLE IF NOT EXISTS schema applied once on
// open, and parameterized query helpers.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_path TEXT NOT NULL,
	operation TEXT NOT NULL,
	path TEXT NOT NULL,
	succeeded INTEGER NOT NULL,
	exit_code INTEGER NOT NULL,
	output TEXT NOT NULL DEFAULT '',
	attempt INTEGER NOT NULL,
	started_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_entry_path ON attempts(entry_path);
CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at);

CREATE TABLE IF NOT EXISTS ffdc_reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	entry_path TEXT NOT NULL,
	message TEXT NOT NULL,
	ffdc_path TEXT NOT NULL DEFAULT '',
	recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ffdc_entry_path ON ffdc_reports(entry_path);
`

// Attempt is one recorded transfer attempt, successful or not.
type Attempt struct {
	ID        int64
	EntryPath string
	Operation string
	Path      string
	Succeeded bool
	ExitCode  int
	Output    string
	Attempt   int
	StartedAt time.Time
	Duration  time.Duration
}

// FFDCReport is one recorded error-reporter entry, mirroring
// internal/syncerr.Record's durable counterpart.
type FFDCReport struct {
	ID         int64
	Kind       string
	EntryPath  string
	Message    string
	FFDCPath   string
	RecordedAt time.Time
}

// Store wraps a SQLite-backed history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the history database at path and applies
// the schema. Modeled on rclone's getConnection + initSqlite pairing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordAttempt inserts one transfer attempt.
func (s *Store) RecordAttempt(a Attempt) error {
	_, err := s.db.Exec(
		`INSERT INTO attempts (entry_path, operation, path, succeeded, exit_code, output, attempt, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.EntryPath, a.Operation, a.Path, boolToInt(a.Succeeded), a.ExitCode, a.Output, a.Attempt,
		a.StartedAt.Unix(), a.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// RecordFFDC inserts one error-reporter record.
func (s *Store) RecordFFDC(r FFDCReport) error {
	_, err := s.db.Exec(
		`INSERT INTO ffdc_reports (kind, entry_path, message, ffdc_path, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.Kind, r.EntryPath, r.Message, r.FFDCPath, r.RecordedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record ffdc: %w", err)
	}
	return nil
}

// RecentAttempts returns up to limit attempts for entryPath (or every entry
// if entryPath is empty), most recent first.
func (s *Store) RecentAttempts(entryPath string, limit int) ([]Attempt, error) {
	var rows *sql.Rows
	var err error
	if entryPath == "" {
		rows, err = s.db.Query(
			`SELECT id, entry_path, operation, path, succeeded, exit_code, output, attempt, started_at, duration_ms
			 FROM attempts ORDER BY started_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(
			`SELECT id, entry_path, operation, path, succeeded, exit_code, output, attempt, started_at, duration_ms
			 FROM attempts WHERE entry_path = ? ORDER BY started_at DESC LIMIT ?`, entryPath, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var succeeded int
		var startedAt int64
		var durationMs int64
		if err := rows.Scan(&a.ID, &a.EntryPath, &a.Operation, &a.Path, &succeeded, &a.ExitCode, &a.Output, &a.Attempt, &startedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Succeeded = succeeded != 0
		a.StartedAt = time.Unix(startedAt, 0)
		a.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentFFDC returns up to limit FFDC reports, most recent first.
func (s *Store) RecentFFDC(limit int) ([]FFDCReport, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, entry_path, message, ffdc_path, recorded_at
		 FROM ffdc_reports ORDER BY recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ffdc: %w", err)
	}
	defer rows.Close()

	var out []FFDCReport
	for rows.Next() {
		var r FFDCReport
		var recordedAt int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.EntryPath, &r.Message, &r.FFDCPath, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan ffdc: %w", err)
		}
		r.RecordedAt = time.Unix(recordedAt, 0)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
