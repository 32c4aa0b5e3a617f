package store

// Schema v1 - run ledger
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per pipeline invocation
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  started_at DATETIME NOT NULL,
  finished_at DATETIME,
  source_dir TEXT NOT NULL,
  combined_path TEXT NOT NULL,
  files_read INTEGER DEFAULT 0,
  rows_read INTEGER DEFAULT 0,
  rows_written INTEGER DEFAULT 0,
  rows_dropped INTEGER DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'running',
  error TEXT
);

-- Per query table outcome of a run
CREATE TABLE IF NOT EXISTS run_tables (
  run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
  table_name TEXT NOT NULL,
  rows_loaded INTEGER DEFAULT 0,
  rows_returned INTEGER DEFAULT 0,
  PRIMARY KEY (run_id, table_name)
);
`

// Schema v2 - indexes for history listing
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`
