// Package budget implements the per-data-source privacy budget ledger.
package budget

import (
	"context"
	"time"

	"privacygate/pkg/domain"
)

// Store persists budget accounts. Reserve is the only mutation path for
// consumed budget and MUST be one atomic check-and-debit: implementations
// never expose a separate check followed by a separate consume, because the
// window between those two steps permits overspend under concurrency.
type Store interface {
	// Reserve atomically debits epsilon from the account, creating it
	// lazily with the given allowance. On insufficient budget the account
	// is unchanged and the error carries CodeInsufficientBudget.
	Reserve(ctx context.Context, src domain.DataSourceID, epsilon, allowance float64, now time.Time) (*Account, error)

	// Get returns the account, or nil when the source has never reserved.
	Get(ctx context.Context, src domain.DataSourceID) (*Account, error)

	// List returns all known accounts.
	List(ctx context.Context) ([]*Account, error)

	// ResetExpired zeroes consumed budget and advances window_start for
	// accounts whose window elapsed. A reservation granted before the
	// reset stays granted; reset never claws back spent epsilon
	// retroactively.
	ResetExpired(ctx context.Context, window time.Duration, now time.Time) (int, error)
}
