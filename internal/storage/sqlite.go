package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (and creates if needed) the SQLite database at path and
// ensures required tables exist.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Basic health check + apply a few safe pragmas.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite creates tables/indexes if missing.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS skip_entries (
  game       TEXT NOT NULL,
  pattern    TEXT NOT NULL,
  added_at   TEXT NOT NULL,
  PRIMARY KEY (game, pattern)
);`,
		`CREATE TABLE IF NOT EXISTS journal (
  id       INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id   TEXT NOT NULL,
  at       TEXT NOT NULL,
  plugin   TEXT,
  event    TEXT NOT NULL,
  detail   TEXT
);`,
		`CREATE TABLE IF NOT EXISTS runs (
  id            TEXT PRIMARY KEY,
  game          TEXT NOT NULL,
  started_at    TEXT NOT NULL,
  finished_at   TEXT,
  processed     INTEGER NOT NULL DEFAULT 0,
  cleaned       INTEGER NOT NULL DEFAULT 0,
  failed        JSON NOT NULL DEFAULT '[]',
  udr_cleaned   JSON NOT NULL DEFAULT '[]',
  itm_cleaned   JSON NOT NULL DEFAULT '[]',
  navmesh_found JSON NOT NULL DEFAULT '[]',
  partial_forms JSON NOT NULL DEFAULT '[]'
);`,
		`CREATE INDEX IF NOT EXISTS journal_run_id_idx ON journal(run_id, id);`,
		`CREATE INDEX IF NOT EXISTS runs_started_at_idx ON runs(started_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
