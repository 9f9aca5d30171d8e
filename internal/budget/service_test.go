package budget_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privacygate/internal/audit"
	auditmem "privacygate/internal/audit/store/memory"
	"privacygate/internal/budget"
	budgetmem "privacygate/internal/budget/store/memory"
	"privacygate/internal/events"
	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

func newLedger(t *testing.T, cfg budget.Config, opts ...budget.Option) *budget.Ledger {
	t.Helper()
	ledger, err := budget.New(budgetmem.New(), cfg, opts...)
	require.NoError(t, err)
	return ledger
}

func TestNew(t *testing.T) {
	t.Run("nil store rejected", func(t *testing.T) {
		_, err := budget.New(nil, budget.DefaultConfig())
		require.Error(t, err)
	})

	t.Run("non-positive allowance rejected", func(t *testing.T) {
		_, err := budget.New(budgetmem.New(), budget.Config{DefaultAllowance: 0, Window: time.Hour})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})
}

func TestReserveValidation(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, budget.DefaultConfig())

	cases := []struct {
		name    string
		src     domain.DataSourceID
		epsilon float64
	}{
		{"empty source", "", 1.0},
		{"zero epsilon", "src1", 0},
		{"negative epsilon", "src1", -1},
		{"NaN epsilon", "src1", math.NaN()},
		{"infinite epsilon", "src1", math.Inf(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.Reserve(ctx, tc.src, tc.epsilon)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a reservation carrying the spent epsilon", func(t *testing.T) {
		ledger := newLedger(t, budget.DefaultConfig())
		res, err := ledger.Reserve(ctx, "src1", 2.5)
		require.NoError(t, err)
		assert.Equal(t, 2.5, res.Epsilon)
		assert.Equal(t, 7.5, res.Remaining)
		assert.NotZero(t, res.ID)
	})

	t.Run("per-source allowance override", func(t *testing.T) {
		cfg := budget.DefaultConfig()
		cfg.Allowances = map[domain.DataSourceID]float64{"vip": 100.0}
		ledger := newLedger(t, cfg)

		res, err := ledger.Reserve(ctx, "vip", 50.0)
		require.NoError(t, err)
		assert.Equal(t, 50.0, res.Remaining)
	})

	t.Run("monotonic consumption between resets", func(t *testing.T) {
		ledger := newLedger(t, budget.DefaultConfig())
		prev := 0.0
		for i := 0; i < 8; i++ {
			_, err := ledger.Reserve(ctx, "mono", 1.0)
			require.NoError(t, err)
			status, err := ledger.Status(ctx, "mono")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, status.Consumed, prev)
			assert.LessOrEqual(t, status.Consumed, status.Allowance)
			prev = status.Consumed
		}
	})
}

func TestBudgetLowEvent(t *testing.T) {
	ctx := context.Background()
	sink := events.NewMemoryPublisher()
	ledger := newLedger(t, budget.DefaultConfig(), budget.WithEvents(sink))

	// Spend down to exactly 1.0 remaining (10% of 10.0): not yet low.
	_, err := ledger.Reserve(ctx, "src1", 9.0)
	require.NoError(t, err)
	assert.Empty(t, sink.ByType(events.TypeBudgetLow))

	// Crossing under the 10% mark fires the event.
	_, err = ledger.Reserve(ctx, "src1", 0.5)
	require.NoError(t, err)

	low := sink.ByType(events.TypeBudgetLow)
	require.Len(t, low, 1)
	assert.Equal(t, "src1", low[0].DataSourceID)
	assert.InDelta(t, 0.5, low[0].Remaining, 1e-9)
	assert.Equal(t, 10.0, low[0].Allowance)
}

func TestResetExpiredAudited(t *testing.T) {
	ctx := context.Background()
	store := budgetmem.New()
	auditLog, err := audit.New(auditmem.New())
	require.NoError(t, err)

	cfg := budget.DefaultConfig()
	cfg.Window = 24 * time.Hour
	ledger, err := budget.New(store, cfg, budget.WithAudit(auditLog))
	require.NoError(t, err)

	_, err = store.Reserve(ctx, "stale-feed", 5.0, 10.0, time.Now().Add(-25*time.Hour))
	require.NoError(t, err)

	reset, err := ledger.ResetExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)

	records, err := auditLog.Query(ctx, audit.Filter{Kind: audit.KindBudgetReset})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].ParamsSummary, "accounts=1")

	// A sweep that resets nothing appends nothing.
	_, err = ledger.ResetExpired(ctx)
	require.NoError(t, err)
	records, err = auditLog.Query(ctx, audit.Filter{Kind: audit.KindBudgetReset})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, budget.DefaultConfig())

	t.Run("unqueried source reports full allowance", func(t *testing.T) {
		status, err := ledger.Status(ctx, "untouched")
		require.NoError(t, err)
		assert.Equal(t, 10.0, status.Allowance)
		assert.Zero(t, status.Consumed)
		assert.Equal(t, 10.0, status.Remaining)
	})

	t.Run("tracks consumption", func(t *testing.T) {
		_, err := ledger.Reserve(ctx, "src1", 4.0)
		require.NoError(t, err)

		status, err := ledger.Status(ctx, "src1")
		require.NoError(t, err)
		assert.Equal(t, 4.0, status.Consumed)
		assert.Equal(t, 6.0, status.Remaining)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, budget.DefaultConfig())

	_, err := ledger.Reserve(ctx, "a", 1.0)
	require.NoError(t, err)
	_, err = ledger.Reserve(ctx, "b", 2.0)
	require.NoError(t, err)

	statuses, err := ledger.List(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 2)
}
