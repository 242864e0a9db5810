package archive

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/foundryos/foundry/internal/metrics"
	"github.com/foundryos/foundry/internal/pattern"
)

// SaveSnapshot appends one aggregation run to the history.
func (db *DB) SaveSnapshot(s *metrics.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("archive: encode snapshot: %w", err)
	}
	_, err = db.conn.Exec(`INSERT INTO snapshots (taken_at, payload) VALUES (?, ?)`,
		s.TakenAt, string(payload))
	if err != nil {
		return fmt.Errorf("archive: save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent run, or nil when the history is empty.
func (db *DB) LatestSnapshot() (*metrics.Snapshot, error) {
	var payload string
	err := db.conn.QueryRow(`SELECT payload FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: latest snapshot: %w", err)
	}
	return decodeSnapshot(payload)
}

// ListSnapshots returns up to limit runs, newest first. A non-positive limit
// returns the 50 most recent.
func (db *DB) ListSnapshots(limit int) ([]*metrics.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`SELECT payload FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*metrics.Snapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		s, err := decodeSnapshot(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// BaselineSnapshot composes the stored per-type baselines into one snapshot
// for delta comparison. Only the Types section and the earliest baseline
// time are meaningful. Returns nil when no baselines exist yet.
func (db *DB) BaselineSnapshot() (*metrics.Snapshot, error) {
	rows, err := db.conn.Query(`SELECT project_type, taken_at, payload FROM baselines`)
	if err != nil {
		return nil, fmt.Errorf("archive: baselines: %w", err)
	}
	defer rows.Close()

	s := &metrics.Snapshot{Types: map[string]metrics.TypeMetrics{}}
	for rows.Next() {
		var (
			projectType string
			takenAt     time.Time
			payload     string
		)
		if err := rows.Scan(&projectType, &takenAt, &payload); err != nil {
			return nil, err
		}
		var tm metrics.TypeMetrics
		if err := json.Unmarshal([]byte(payload), &tm); err != nil {
			return nil, fmt.Errorf("archive: decode baseline %s: %w", projectType, err)
		}
		s.Types[projectType] = tm
		if s.TakenAt.IsZero() || takenAt.Before(s.TakenAt) {
			s.TakenAt = takenAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(s.Types) == 0 {
		return nil, nil
	}
	return s, nil
}

// SeedBaselines records a baseline for every type in s that has none yet.
// Existing baselines are left untouched; they only advance through
// SetBaseline when a pending pattern is resolved.
func (db *DB) SeedBaselines(s *metrics.Snapshot) error {
	if len(s.Types) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("archive: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO baselines (project_type, taken_at, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("archive: prepare baseline insert: %w", err)
	}
	defer stmt.Close()

	for projectType, tm := range s.Types {
		payload, err := json.Marshal(tm)
		if err != nil {
			return fmt.Errorf("archive: encode baseline %s: %w", projectType, err)
		}
		if _, err := stmt.Exec(projectType, s.TakenAt, string(payload)); err != nil {
			return fmt.Errorf("archive: seed baseline %s: %w", projectType, err)
		}
	}
	return tx.Commit()
}

// SetBaseline advances one type's comparison reference.
func (db *DB) SetBaseline(projectType string, tm metrics.TypeMetrics, takenAt time.Time) error {
	payload, err := json.Marshal(tm)
	if err != nil {
		return fmt.Errorf("archive: encode baseline %s: %w", projectType, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO baselines (project_type, taken_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(project_type) DO UPDATE SET
			taken_at = excluded.taken_at,
			payload  = excluded.payload
	`, projectType, takenAt, string(payload))
	if err != nil {
		return fmt.Errorf("archive: set baseline %s: %w", projectType, err)
	}
	return nil
}

// SavePattern persists a confirmed pattern.
func (db *DB) SavePattern(p *pattern.Pattern) error {
	_, err := db.conn.Exec(`
		INSERT INTO patterns (id, project_type, metric, description, before_value, after_value, improvement, detected_at, confirmed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.ProjectType, string(p.Metric), p.Description, p.Before, p.After, p.Improvement, p.DetectedAt, p.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("archive: save pattern: %w", err)
	}
	return nil
}

// ListPatterns returns confirmed patterns, newest first.
func (db *DB) ListPatterns() ([]pattern.Pattern, error) {
	rows, err := db.conn.Query(`
		SELECT id, project_type, metric, description, before_value, after_value, improvement, detected_at, confirmed_at
		FROM patterns ORDER BY confirmed_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("archive: list patterns: %w", err)
	}
	defer rows.Close()

	var out []pattern.Pattern
	for rows.Next() {
		var (
			p      pattern.Pattern
			metric string
		)
		if err := rows.Scan(&p.ID, &p.ProjectType, &metric, &p.Description,
			&p.Before, &p.After, &p.Improvement, &p.DetectedAt, &p.ConfirmedAt); err != nil {
			return nil, err
		}
		p.Metric = pattern.Metric(metric)
		out = append(out, p)
	}
	return out, rows.Err()
}

// decodeSnapshot restores a snapshot from its stored JSON payload.
func decodeSnapshot(payload string) (*metrics.Snapshot, error) {
	var s metrics.Snapshot
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("archive: decode snapshot: %w", err)
	}
	return &s, nil
}
