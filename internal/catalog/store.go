// File path: internal/catalog/store.go

// Package catalog maintains the session catalog: a SQLite database holding
// one document per ingested session plus a full-text index over previews,
// and the bookkeeping rows for sync and maintenance runs.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/recollect-dev/recollect/internal/common"
)

const busyTimeoutMS = 5000

// Store wraps the catalog database.
type Store struct {
	db   *sqlx.DB
	path string
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS session_docs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		agent_type TEXT NOT NULL,
		session_path TEXT NOT NULL DEFAULT '',
		repo_name TEXT NOT NULL DEFAULT '',
		start_time TEXT,
		status TEXT NOT NULL DEFAULT 'completed',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		message_count INTEGER NOT NULL DEFAULT 0,
		tool_call_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		summaries TEXT NOT NULL DEFAULT '[]',
		content TEXT NOT NULL DEFAULT '',
		summary_text TEXT,
		tags TEXT,
		outcome TEXT,
		indexed_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_docs_start_time ON session_docs (start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_session_docs_agent_type ON session_docs (agent_type)`,
	`CREATE INDEX IF NOT EXISTS idx_session_docs_status ON session_docs (status)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS sessions_fts USING fts5(
		run_id, agent_type, repo_name, content
	)`,
	`CREATE TABLE IF NOT EXISTS service_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service TEXT NOT NULL,
		run_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		exit_code INTEGER NOT NULL DEFAULT 0,
		details TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_service_runs_service ON service_runs (service, started_at)`,
}

// Open creates or opens the catalog database at path, creating parent
// directories and applying the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busyTimeoutMS)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		common.Logger().Warn("catalog WAL mode unavailable", "error", err)
	}
	store := &Store{db: db, path: path}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin catalog migration: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply catalog schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog migration: %w", err)
	}
	committed = true
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Nanosecond precision keeps indexed_at strictly increasing across writes.
// The fraction is fixed-width so the stored strings sort lexicographically,
// which the indexed_at pagination tie-break relies on.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowRFC3339() string {
	return time.Now().UTC().Format(timestampLayout)
}
