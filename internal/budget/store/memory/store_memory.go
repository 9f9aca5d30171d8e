// Package memory provides the in-memory budget store. The per-store mutex
// makes Reserve a single atomic check-and-debit across concurrent callers.
package memory

import (
	"context"
	"sync"
	"time"

	"privacygate/internal/budget"
	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

type Store struct {
	mu       sync.Mutex
	accounts map[domain.DataSourceID]*budget.Account
}

func New() *Store {
	return &Store{accounts: make(map[domain.DataSourceID]*budget.Account)}
}

func (s *Store) Reserve(_ context.Context, src domain.DataSourceID, epsilon, allowance float64, now time.Time) (*budget.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[src]
	if !ok {
		acct = &budget.Account{
			DataSourceID: src,
			Allowance:    allowance,
			WindowStart:  now,
		}
		s.accounts[src] = acct
	}

	// Check and debit under the same lock hold: there is no observable
	// state between the two.
	if acct.Consumed+epsilon > acct.Allowance {
		return nil, dErrors.Newf(dErrors.CodeInsufficientBudget,
			"data source %q has %.4f epsilon remaining, requested %.4f", src, acct.Remaining(), epsilon)
	}
	acct.Consumed += epsilon

	snapshot := *acct
	return &snapshot, nil
}

func (s *Store) Get(_ context.Context, src domain.DataSourceID) (*budget.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[src]
	if !ok {
		return nil, nil
	}
	snapshot := *acct
	return &snapshot, nil
}

func (s *Store) List(_ context.Context) ([]*budget.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*budget.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		snapshot := *acct
		out = append(out, &snapshot)
	}
	return out, nil
}

func (s *Store) ResetExpired(_ context.Context, window time.Duration, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reset := 0
	for _, acct := range s.accounts {
		if now.Sub(acct.WindowStart) >= window {
			acct.Consumed = 0
			acct.WindowStart = now
			reset++
		}
	}
	return reset, nil
}
