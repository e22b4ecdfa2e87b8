// Package history records test runs in a local SQLite database and derives
// the slow-test report from per-test durations.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	failed     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS test_timings (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	test_id     TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	failed      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_timings_run ON test_timings(run_id);
`

// Store is a run-history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun persists one run's outcome and per-test durations.
func (s *Store) RecordRun(runID string, startedAt time.Time, failed bool, durations map[string]float64, failedTests []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, started_at, failed) VALUES (?, ?, ?)`,
		runID, startedAt, boolToInt(failed),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	failedSet := make(map[string]bool, len(failedTests))
	for _, id := range failedTests {
		failedSet[id] = true
	}

	stmt, err := tx.Prepare(
		`INSERT INTO test_timings (run_id, test_id, duration_ms, failed) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for testID, seconds := range durations {
		if _, err := stmt.Exec(runID, testID, int64(seconds*1000), boolToInt(failedSet[testID])); err != nil {
			return fmt.Errorf("insert timing: %w", err)
		}
	}

	return tx.Commit()
}

// PreviousDurations returns the per-test durations of the most recent
// recorded run, in seconds. An empty database yields an empty map.
func (s *Store) PreviousDurations() (map[string]float64, error) {
	row := s.db.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC LIMIT 1`)
	var runID string
	if err := row.Scan(&runID); err != nil {
		if err == sql.ErrNoRows {
			return map[string]float64{}, nil
		}
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT test_id, duration_ms FROM test_timings WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	durations := make(map[string]float64)
	for rows.Next() {
		var testID string
		var ms int64
		if err := rows.Scan(&testID, &ms); err != nil {
			return nil, err
		}
		durations[testID] = float64(ms) / 1000
	}
	return durations, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
