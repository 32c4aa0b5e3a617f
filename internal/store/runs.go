package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/franz/sparkify/internal/util"
	"github.com/google/uuid"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one pipeline invocation
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time // zero while running
	SourceDir    string
	CombinedPath string
	FilesRead    int
	RowsRead     int
	RowsWritten  int
	RowsDropped  int
	Status       string
	Error        string
}

// Duration returns the wall time of a finished run
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunTable is the outcome for one query table within a run
type RunTable struct {
	RunID        string
	TableName    string
	RowsLoaded   int
	RowsReturned int
}

// StartRun records a new run in the running state
func (s *Store) StartRun(sourceDir, combinedPath string) (*Run, error) {
	run := &Run{
		ID:           uuid.NewString(),
		StartedAt:    time.Now().UTC(),
		SourceDir:    sourceDir,
		CombinedPath: combinedPath,
		Status:       StatusRunning,
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, source_dir, combined_path, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.SourceDir, run.CombinedPath, run.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return run, nil
}

// FinishRun stores the counters of run and marks it succeeded, or failed
// when runErr is non-nil.
func (s *Store) FinishRun(run *Run, runErr error) error {
	run.FinishedAt = time.Now().UTC()
	run.Status = StatusSucceeded
	run.Error = ""
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}

	res, err := s.db.Exec(`
		UPDATE runs
		SET finished_at = ?, files_read = ?, rows_read = ?, rows_written = ?,
		    rows_dropped = ?, status = ?, error = ?
		WHERE id = ?
	`, run.FinishedAt, run.FilesRead, run.RowsRead, run.RowsWritten,
		run.RowsDropped, run.Status, nullString(run.Error), run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, util.ErrNotFound)
	}
	return nil
}

// RecordTable inserts or replaces the outcome of one table
func (s *Store) RecordTable(rt *RunTable) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO run_tables (run_id, table_name, rows_loaded, rows_returned)
		VALUES (?, ?, ?, ?)
	`, rt.RunID, rt.TableName, rt.RowsLoaded, rt.RowsReturned)
	if err != nil {
		return fmt.Errorf("failed to record table %s: %w", rt.TableName, err)
	}
	return nil
}

// RecordTables records the outcome of several tables atomically
func (s *Store) RecordTables(rts []*RunTable) error {
	return s.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO run_tables (run_id, table_name, rows_loaded, rows_returned)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, rt := range rts {
			if _, err := stmt.Exec(rt.RunID, rt.TableName, rt.RowsLoaded, rt.RowsReturned); err != nil {
				return fmt.Errorf("failed to record table %s: %w", rt.TableName, err)
			}
		}
		return nil
	})
}

const runColumns = `id, started_at, finished_at, source_dir, combined_path,
	files_read, rows_read, rows_written, rows_dropped, status, COALESCE(error, '')`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var run Run
	var finished sql.NullTime
	err := sc.Scan(&run.ID, &run.StartedAt, &finished, &run.SourceDir, &run.CombinedPath,
		&run.FilesRead, &run.RowsRead, &run.RowsWritten, &run.RowsDropped, &run.Status, &run.Error)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}

// GetRun returns a run by ID
func (s *Store) GetRun(id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, util.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRecentRuns returns up to limit runs, newest first
func (s *Store) GetRecentRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
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

// GetRunTables returns the table outcomes of a run in name order
func (s *Store) GetRunTables(runID string) ([]*RunTable, error) {
	rows, err := s.db.Query(`
		SELECT run_id, table_name, rows_loaded, rows_returned
		FROM run_tables
		WHERE run_id = ?
		ORDER BY table_name
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []*RunTable
	for rows.Next() {
		var rt RunTable
		if err := rows.Scan(&rt.RunID, &rt.TableName, &rt.RowsLoaded, &rt.RowsReturned); err != nil {
			return nil, err
		}
		tables = append(tables, &rt)
	}
	return tables, rows.Err()
}

// CountRunsByStatus returns the number of runs per status
func (s *Store) CountRunsByStatus() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
