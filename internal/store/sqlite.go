package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	input_root TEXT NOT NULL,
	output_root TEXT NOT NULL,
	engine TEXT NOT NULL,
	quality INTEGER NOT NULL,
	workers INTEGER NOT NULL,
	remux INTEGER NOT NULL DEFAULT 0,
	total INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	remuxed INTEGER NOT NULL DEFAULT 0,
	encoded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	input_bytes INTEGER NOT NULL DEFAULT 0,
	output_bytes INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS results (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	job_id TEXT NOT NULL,
	input_path TEXT NOT NULL,
	output_path TEXT NOT NULL,
	outcome TEXT NOT NULL,
	error TEXT,
	input_size INTEGER NOT NULL DEFAULT 0,
	output_size INTEGER,
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	completed_at TEXT NOT NULL,
	UNIQUE(run_id, job_id)
);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL,
	applied_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stats_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

// ErrRunNotFound is returned when updating a run that was never begun.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex // Protects concurrent access
	path string
}

// NewSQLiteStore creates a new SQLite-backed store.
// The database file is created if it doesn't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	// Check/set schema version
	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("insert schema version: %w", err)
		}
		if _, err := db.Exec(`INSERT OR IGNORE INTO stats_metadata (key, value) VALUES ('lifetime_saved', '0')`); err != nil {
			db.Close()
			return nil, fmt.Errorf("init stats metadata: %w", err)
		}
	} else if err != nil {
		db.Close()
		return nil, fmt.Errorf("check schema version: %w", err)
	} else if version > schemaVersion {
		db.Close()
		return nil, fmt.Errorf("database schema v%d is newer than supported v%d", version, schemaVersion)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// BeginRun inserts a run row.
func (s *SQLiteStore) BeginRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (id, input_root, output_root, engine, quality, workers, remux, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.InputRoot, run.OutputRoot, run.Engine, run.Quality, run.Workers,
		boolToInt(run.Remux), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordResult persists one result using INSERT OR REPLACE.
func (s *SQLiteStore) RecordResult(rec *ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO results (
			run_id, job_id, input_path, output_path, outcome, error,
			input_size, output_size, elapsed_ms, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID, rec.JobID, rec.InputPath, rec.OutputPath, rec.Outcome, nullString(rec.Error),
		rec.InputSize, nullInt64(rec.OutputSize), rec.Elapsed.Milliseconds(), formatTime(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// FinishRun updates the run's counters and the lifetime total in one transaction.
func (s *SQLiteStore) FinishRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		UPDATE runs SET
			engine = ?, total = ?, skipped = ?, remuxed = ?, encoded = ?, failed = ?,
			input_bytes = ?, output_bytes = ?, finished_at = ?
		WHERE id = ?
	`,
		run.Engine, run.Total, run.Skipped, run.Remuxed, run.Encoded, run.Failed,
		run.InputBytes, run.OutputBytes, formatTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}

	if saved := run.SpaceSaved(); saved > 0 {
		_, err = tx.Exec(`
			UPDATE stats_metadata
			SET value = CAST(CAST(value AS INTEGER) + ? AS TEXT), updated_at = CURRENT_TIMESTAMP
			WHERE key = 'lifetime_saved'
		`, saved)
		if err != nil {
			return fmt.Errorf("update lifetime saved: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetResults returns a run's results in recording order.
func (s *SQLiteStore) GetResults(runID string) ([]*ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT run_id, job_id, input_path, output_path, outcome, error,
			input_size, output_size, elapsed_ms, completed_at
		FROM results WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ResultRecord
	for rows.Next() {
		var rec ResultRecord
		var errStr, completedAt sql.NullString
		var outputSize sql.NullInt64
		var elapsedMs int64
		if err := rows.Scan(
			&rec.RunID, &rec.JobID, &rec.InputPath, &rec.OutputPath, &rec.Outcome, &errStr,
			&rec.InputSize, &outputSize, &elapsedMs, &completedAt,
		); err != nil {
			return nil, err
		}
		rec.Error = errStr.String
		rec.OutputSize = outputSize.Int64
		rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		rec.CompletedAt = parseTime(completedAt.String)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// LifetimeSaved returns the accumulated bytes saved.
func (s *SQLiteStore) LifetimeSaved() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var saved int64
	err := s.db.QueryRow(`SELECT CAST(value AS INTEGER) FROM stats_metadata WHERE key = 'lifetime_saved'`).Scan(&saved)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return saved, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Helper functions for scanning rows

const runColumns = `id, input_root, output_root, engine, quality, workers, remux,
	total, skipped, remuxed, encoded, failed, input_bytes, output_bytes, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var remux int
	var startedAt string
	var finishedAt sql.NullString

	err := row.Scan(
		&run.ID, &run.InputRoot, &run.OutputRoot, &run.Engine, &run.Quality, &run.Workers, &remux,
		&run.Total, &run.Skipped, &run.Remuxed, &run.Encoded, &run.Failed,
		&run.InputBytes, &run.OutputBytes, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Remux = remux != 0
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt.String)
	return &run, nil
}

// Helper functions for SQL values

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(i int64) interface{} {
	if i == 0 {
		return nil
	}
	return i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(timeLayout, s)
	return t
}
