package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/sparkify/internal/cassandra"
	"github.com/franz/sparkify/internal/store"
)

func TestCheckSQLite(t *testing.T) {
	result := checkSQLite()

	if result.error {
		t.Errorf("SQLite check failed: %s", result.message)
	}
	if result.message == "" {
		t.Error("expected version information in message")
	}
}

func TestCheckDatabase_NonExistent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nonexistent.db")

	result := checkDatabase(dbPath)

	// Should not error - database will be created on first run
	if result.error {
		t.Errorf("non-existent database check should not error: %s", result.message)
	}
	if result.message == "" {
		t.Error("expected message about database creation")
	}
}

func TestCheckDatabase_Existing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	run, err := db.StartRun("event_data", "event_datafile_new.csv")
	if err != nil {
		t.Fatalf("failed to start run: %v", err)
	}
	if err := db.FinishRun(run, nil); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}
	db.Close()

	result := checkDatabase(dbPath)

	if result.error {
		t.Errorf("database check failed: %s", result.message)
	}
	if result.message == "" {
		t.Error("expected message with database info")
	}
}

func TestCheckDatabase_Empty(t *testing.T) {
	result := checkDatabase("")

	if !result.warning {
		t.Error("expected warning for disabled ledger")
	}
}

func TestCheckDatabase_Directory(t *testing.T) {
	result := checkDatabase(t.TempDir())

	if !result.error {
		t.Error("expected error when the ledger path is a directory")
	}
}

func TestCheckSourceDirectory_Valid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "2018-11-01-events.csv"), []byte("artist\n"), 0644); err != nil {
		t.Fatalf("failed to create event file: %v", err)
	}

	result := checkSourceDirectory(dir)

	if result.error || result.warning {
		t.Errorf("source directory check failed: %s", result.message)
	}
}

func TestCheckSourceDirectory_Empty(t *testing.T) {
	result := checkSourceDirectory(t.TempDir())

	if !result.warning {
		t.Error("expected warning for a directory without event files")
	}
}

func TestCheckSourceDirectory_NonExistent(t *testing.T) {
	result := checkSourceDirectory("/nonexistent/path/that/does/not/exist")

	if !result.error {
		t.Error("expected error for non-existent directory")
	}
}

func TestCheckSourceDirectory_File(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(filePath, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := checkSourceDirectory(filePath)

	if !result.error {
		t.Error("expected error when path is a file, not a directory")
	}
}

func TestCheckOutputPath_Valid(t *testing.T) {
	result := checkOutputPath(filepath.Join(t.TempDir(), "event_datafile_new.csv"))

	if result.error {
		t.Errorf("output path check failed: %s", result.message)
	}
}

func TestCheckOutputPath_MissingDir(t *testing.T) {
	result := checkOutputPath(filepath.Join(t.TempDir(), "missing", "out.csv"))

	if !result.error {
		t.Error("expected error when the output directory does not exist")
	}
}

func TestCheckOutputPath_IsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "out.csv"), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	result := checkOutputPath(filepath.Join(dir, "out.csv"))

	if !result.error {
		t.Error("expected error when the output path is a directory")
	}
}

func TestCheckDiskSpace_NonExistent(t *testing.T) {
	result := checkDiskSpace("/nonexistent/path", "test")

	// Should produce a warning (not error)
	if !result.warning {
		t.Error("expected warning for non-existent path")
	}
}

func TestCheckCassandra_InvalidConfig(t *testing.T) {
	cfg := cassandra.DefaultConfig()
	cfg.Keyspace = "bad keyspace"

	result := checkCassandra(context.Background(), cfg)

	if !result.error {
		t.Error("expected error for invalid keyspace")
	}
}
