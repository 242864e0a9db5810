// Package archive provides SQLite-backed persistence for aggregation
// snapshots, per-type comparison baselines, and confirmed patterns. It is
// the retention side of pattern detection: the engine computes, the archive
// remembers.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/foundryos/foundry/internal/metrics"
	"github.com/foundryos/foundry/internal/pattern"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at DATETIME NOT NULL,
	payload  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);

CREATE TABLE IF NOT EXISTS baselines (
	project_type TEXT PRIMARY KEY,
	taken_at     DATETIME NOT NULL,
	payload      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS patterns (
	id           TEXT PRIMARY KEY,
	project_type TEXT NOT NULL,
	metric       TEXT NOT NULL,
	description  TEXT NOT NULL,
	before_value REAL NOT NULL,
	after_value  REAL NOT NULL,
	improvement  REAL NOT NULL,
	detected_at  DATETIME NOT NULL,
	confirmed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_type ON patterns(project_type);
`

// Store is the persistence surface the hub service depends on.
type Store interface {
	// SaveSnapshot appends one aggregation run to the history.
	SaveSnapshot(s *metrics.Snapshot) error
	// LatestSnapshot returns the most recent run, or nil when the
	// history is empty.
	LatestSnapshot() (*metrics.Snapshot, error)
	// ListSnapshots returns up to limit runs, newest first.
	ListSnapshots(limit int) ([]*metrics.Snapshot, error)
	// BaselineSnapshot composes the per-type baselines into a snapshot
	// for delta comparison, or nil when no baselines exist yet.
	BaselineSnapshot() (*metrics.Snapshot, error)
	// SeedBaselines records a baseline for every type in s that has none.
	SeedBaselines(s *metrics.Snapshot) error
	// SetBaseline advances one type's comparison reference.
	SetBaseline(projectType string, tm metrics.TypeMetrics, takenAt time.Time) error
	// SavePattern persists a confirmed pattern.
	SavePattern(p *pattern.Pattern) error
	// ListPatterns returns confirmed patterns, newest first.
	ListPatterns() ([]pattern.Pattern, error)
	Close() error
}

// DB wraps a sql.DB with archive-specific operations.
type DB struct {
	conn *sql.DB
}

var _ Store = (*DB)(nil)

// Open opens (or creates) the SQLite archive and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("archive: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("archive: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
