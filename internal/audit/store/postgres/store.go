// Package postgres persists audit records in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"privacygate/internal/audit"
)

// Store implements audit.Store on PostgreSQL. It is pure I/O; retention
// policy and fail-closed semantics live in the audit service.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema returns the DDL for the audit table. Applied by migrations in
// deployment; integration tests apply it directly.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS audit_records (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	ref TEXT NOT NULL,
	params_summary TEXT NOT NULL DEFAULT '',
	decision TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_records_created_at_idx ON audit_records (created_at);
CREATE INDEX IF NOT EXISTS audit_records_kind_ref_idx ON audit_records (kind, ref);
`
}

func (s *Store) Append(ctx context.Context, record audit.Record) error {
	const query = `
		INSERT INTO audit_records (id, kind, ref, params_summary, decision, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		string(record.Kind),
		record.Ref,
		record.ParamsSummary,
		record.Decision,
		record.Reason,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	query := `
		SELECT id, kind, ref, params_summary, decision, reason, created_at
		FROM audit_records
		WHERE ($1 = '' OR kind = $1)
		  AND ($2 = '' OR ref = $2)
		ORDER BY created_at DESC
	`
	args := []any{string(filter.Kind), filter.Ref}
	if filter.Limit > 0 {
		query += " LIMIT $3"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var r audit.Record
		var kind string
		if err := rows.Scan(&r.ID, &kind, &r.Ref, &r.ParamsSummary, &r.Decision, &r.Reason, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.Kind = audit.Kind(kind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune audit records: rows affected: %w", err)
	}
	return int(n), nil
}
