package budget

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"privacygate/internal/audit"
	"privacygate/internal/events"
	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

// lowWaterMark is the fraction of allowance below which budget_low fires.
const lowWaterMark = 0.1

// Ledger is the budget service. Composition is additive: N grants against
// one source consume the plain sum of their epsilons, with no implicit
// amplification or relaxation.
type Ledger struct {
	store  Store
	cfg    Config
	events events.Publisher
	audits *audit.Log
	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithEvents sets the outbound event publisher for budget_low notifications.
func WithEvents(p events.Publisher) Option {
	return func(l *Ledger) { l.events = p }
}

// WithAudit records window resets in the audit trail.
func WithAudit(log *audit.Log) Option {
	return func(l *Ledger) { l.audits = log }
}

// New constructs the budget ledger.
func New(store Store, cfg Config, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "budget store is required")
	}
	if cfg.DefaultAllowance <= 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "default allowance must be positive")
	}
	if cfg.Window <= 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "budget window must be positive")
	}
	l := &Ledger{store: store, cfg: cfg}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Reserve atomically spends epsilon from the source's allowance and returns
// a reservation token. On CodeInsufficientBudget the account is unchanged.
func (l *Ledger) Reserve(ctx context.Context, src domain.DataSourceID, epsilon float64) (*Reservation, error) {
	if src.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "data_source_id is required")
	}
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "epsilon is %f, must be strictly positive and finite", epsilon)
	}

	now := time.Now()
	acct, err := l.store.Reserve(ctx, src, epsilon, l.cfg.AllowanceFor(src), now)
	if err != nil {
		return nil, err
	}

	res := &Reservation{
		ID:           uuid.New(),
		DataSourceID: src,
		Epsilon:      epsilon,
		Remaining:    acct.Remaining(),
		GrantedAt:    now,
	}

	if res.Remaining < lowWaterMark*acct.Allowance {
		l.emitBudgetLow(ctx, src, res.Remaining, acct.Allowance)
	}

	return res, nil
}

// Status reports the budget state of a data source. Sources that never
// reserved report a full allowance: accounts are created lazily, not on
// read.
func (l *Ledger) Status(ctx context.Context, src domain.DataSourceID) (*Status, error) {
	if src.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "data_source_id is required")
	}
	acct, err := l.store.Get(ctx, src)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get budget account")
	}
	if acct == nil {
		allowance := l.cfg.AllowanceFor(src)
		return &Status{DataSourceID: src, Allowance: allowance, Consumed: 0, Remaining: allowance}, nil
	}
	return &Status{
		DataSourceID: src,
		Allowance:    acct.Allowance,
		Consumed:     acct.Consumed,
		Remaining:    acct.Remaining(),
	}, nil
}

// List returns the budget state of every source that has reserved.
func (l *Ledger) List(ctx context.Context) ([]*Status, error) {
	accounts, err := l.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list budget accounts")
	}
	out := make([]*Status, 0, len(accounts))
	for _, acct := range accounts {
		out = append(out, &Status{
			DataSourceID: acct.DataSourceID,
			Allowance:    acct.Allowance,
			Consumed:     acct.Consumed,
			Remaining:    acct.Remaining(),
		})
	}
	return out, nil
}

// ResetExpired sweeps accounts whose window has elapsed. Resets are
// recorded in the audit trail when one is wired; an audit failure surfaces
// so the sweeper retries on the next tick.
func (l *Ledger) ResetExpired(ctx context.Context) (int, error) {
	reset, err := l.store.ResetExpired(ctx, l.cfg.Window, time.Now())
	if err != nil || reset == 0 || l.audits == nil {
		return reset, err
	}
	if err := l.audits.Append(ctx, audit.Record{
		Kind:          audit.KindBudgetReset,
		ParamsSummary: fmt.Sprintf("accounts=%d window=%s", reset, l.cfg.Window),
		Decision:      audit.DecisionGranted,
	}); err != nil {
		return reset, err
	}
	return reset, nil
}

// RunResetSweeper resets expired windows on the given interval until ctx is
// cancelled.
func (l *Ledger) RunResetSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			reset, err := l.ResetExpired(ctx)
			if err != nil {
				if l.logger != nil {
					l.logger.ErrorContext(ctx, "budget reset sweep failed", "error", err)
				}
				continue
			}
			if reset > 0 && l.logger != nil {
				l.logger.InfoContext(ctx, "budget windows reset", "accounts", reset)
			}
		}
	}
}

func (l *Ledger) emitBudgetLow(ctx context.Context, src domain.DataSourceID, remaining, allowance float64) {
	if l.logger != nil {
		l.logger.WarnContext(ctx, "privacy budget low",
			"data_source_id", src,
			"remaining", remaining,
			"allowance", allowance,
		)
	}
	if l.events == nil {
		return
	}
	err := l.events.Emit(ctx, events.Event{
		Type:         events.TypeBudgetLow,
		DataSourceID: src.String(),
		Remaining:    remaining,
		Allowance:    allowance,
	})
	if err != nil && l.logger != nil {
		l.logger.WarnContext(ctx, "failed to emit budget_low event", "error", err)
	}
}
