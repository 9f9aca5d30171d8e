// Package postgres provides the PostgreSQL budget store. The reserve is a
// single conditional UPDATE ... RETURNING, so the row-level lock makes the
// check-and-debit atomic without a client-side transaction.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"privacygate/internal/budget"
	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed budget store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema returns the DDL for the budget table.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS budget_accounts (
	data_source_id TEXT PRIMARY KEY,
	allowance DOUBLE PRECISION NOT NULL CHECK (allowance > 0),
	consumed DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (consumed >= 0 AND consumed <= allowance),
	window_start TIMESTAMPTZ NOT NULL
);
`
}

func (s *Store) Reserve(ctx context.Context, src domain.DataSourceID, epsilon, allowance float64, now time.Time) (*budget.Account, error) {
	// Lazy account creation; a concurrent creator winning the race is fine.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_accounts (data_source_id, allowance, consumed, window_start)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (data_source_id) DO NOTHING
	`, src.String(), allowance, now)
	if err != nil {
		return nil, fmt.Errorf("create budget account: %w", err)
	}

	// Check and debit in one statement. The WHERE clause refuses a debit
	// that would cross the allowance; the table CHECK makes an overspent
	// row unrepresentable even under a future bug here.
	row := s.db.QueryRowContext(ctx, `
		UPDATE budget_accounts
		SET consumed = consumed + $2
		WHERE data_source_id = $1 AND consumed + $2 <= allowance
		RETURNING allowance, consumed, window_start
	`, src.String(), epsilon)

	acct := &budget.Account{DataSourceID: src}
	err = row.Scan(&acct.Allowance, &acct.Consumed, &acct.WindowStart)
	if err == sql.ErrNoRows {
		current, getErr := s.Get(ctx, src)
		if getErr != nil {
			return nil, getErr
		}
		remaining := 0.0
		if current != nil {
			remaining = current.Remaining()
		}
		return nil, dErrors.Newf(dErrors.CodeInsufficientBudget,
			"data source %q has %.4f epsilon remaining, requested %.4f", src, remaining, epsilon)
	}
	if err != nil {
		return nil, fmt.Errorf("reserve budget: %w", err)
	}
	return acct, nil
}

func (s *Store) Get(ctx context.Context, src domain.DataSourceID) (*budget.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT allowance, consumed, window_start
		FROM budget_accounts
		WHERE data_source_id = $1
	`, src.String())

	acct := &budget.Account{DataSourceID: src}
	err := row.Scan(&acct.Allowance, &acct.Consumed, &acct.WindowStart)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget account: %w", err)
	}
	return acct, nil
}

func (s *Store) List(ctx context.Context) ([]*budget.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data_source_id, allowance, consumed, window_start
		FROM budget_accounts
		ORDER BY data_source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list budget accounts: %w", err)
	}
	defer rows.Close()

	var out []*budget.Account
	for rows.Next() {
		acct := &budget.Account{}
		var src string
		if err := rows.Scan(&src, &acct.Allowance, &acct.Consumed, &acct.WindowStart); err != nil {
			return nil, fmt.Errorf("scan budget account: %w", err)
		}
		acct.DataSourceID = domain.DataSourceID(src)
		out = append(out, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget accounts: %w", err)
	}
	return out, nil
}

func (s *Store) ResetExpired(ctx context.Context, window time.Duration, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE budget_accounts
		SET consumed = 0, window_start = $2
		WHERE window_start <= $1
	`, now.Add(-window), now)
	if err != nil {
		return 0, fmt.Errorf("reset budget accounts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset budget accounts: rows affected: %w", err)
	}
	return int(n), nil
}
