// Package storage persists the dispatch audit trail in sqlite so every tool
// decision is reviewable after the fact.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// AuditRecord is one dispatched tool call and its outcome.
type AuditRecord struct {
	ID         int64     `json:"id"`
	Tool       string    `json:"tool"`
	Decision   string    `json:"decision"`
	Code       string    `json:"code,omitempty"`
	RiskLevel  string    `json:"risk_level,omitempty"`
	Success    bool      `json:"success"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditStore writes and reads audit records.
type AuditStore struct {
	db *sql.DB
}

// OpenAudit opens (creating if needed) the audit database at path.
// ":memory:" works for tests.
func OpenAudit(path string) (*AuditStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tool TEXT NOT NULL,
			decision TEXT NOT NULL,
			code TEXT NOT NULL DEFAULT '',
			risk_level TEXT NOT NULL DEFAULT '',
			success INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_tool ON audit(tool);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &AuditStore{db: db}, nil
}

// Append inserts a record, stamping it now when CreatedAt is unset.
func (s *AuditStore) Append(rec AuditRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO audit (tool, decision, code, risk_level, success, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Tool, rec.Decision, rec.Code, rec.RiskLevel, rec.Success, rec.DurationMS, created.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *AuditStore) Recent(limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, tool, decision, code, risk_level, success, duration_ms, created_at
		 FROM audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var (
			rec     AuditRecord
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.Tool, &rec.Decision, &rec.Code, &rec.RiskLevel,
			&rec.Success, &rec.DurationMS, &created); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *AuditStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
