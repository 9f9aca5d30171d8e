package memory

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

func TestReserve(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	src := domain.DataSourceID("src1")

	t.Run("creates account lazily on first reserve", func(t *testing.T) {
		store := New()
		acct, err := store.Reserve(ctx, src, 1.0, 10.0, now)
		require.NoError(t, err)
		assert.Equal(t, 10.0, acct.Allowance)
		assert.Equal(t, 1.0, acct.Consumed)
		assert.Equal(t, now, acct.WindowStart)
	})

	t.Run("spec scenario: 6 then 5 then 4 against allowance 10", func(t *testing.T) {
		store := New()

		acct, err := store.Reserve(ctx, src, 6.0, 10.0, now)
		require.NoError(t, err)
		assert.Equal(t, 4.0, acct.Remaining())

		_, err = store.Reserve(ctx, src, 5.0, 10.0, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientBudget))

		// Rejection left the account unchanged.
		current, err := store.Get(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, 4.0, current.Remaining())

		acct, err = store.Reserve(ctx, src, 4.0, 10.0, now)
		require.NoError(t, err)
		assert.Equal(t, 0.0, acct.Remaining())
	})

	t.Run("composition is additive", func(t *testing.T) {
		store := New()
		for i := 0; i < 5; i++ {
			_, err := store.Reserve(ctx, src, 0.5, 10.0, now)
			require.NoError(t, err)
		}
		acct, err := store.Get(ctx, src)
		require.NoError(t, err)
		assert.InDelta(t, 2.5, acct.Consumed, 1e-12)
	})
}

// TestReserveConcurrent is the no-overspend property: N concurrent reserves
// of epsilon each against allowance A grant exactly floor(A/epsilon) of
// them, regardless of scheduling.
func TestReserveConcurrent(t *testing.T) {
	ctx := context.Background()
	store := New()
	src := domain.DataSourceID("concurrent")
	now := time.Now()

	const goroutines = 100
	const epsilon = 0.7
	const allowance = 10.0
	want := int(math.Floor(allowance / epsilon)) // 14

	var wg sync.WaitGroup
	granted := make(chan struct{}, goroutines)
	denied := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Reserve(ctx, src, epsilon, allowance, now)
			if err == nil {
				granted <- struct{}{}
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientBudget))
			denied <- struct{}{}
		}()
	}
	wg.Wait()
	close(granted)
	close(denied)

	assert.Equal(t, want, len(granted), "exactly floor(allowance/epsilon) reserves may succeed")
	assert.Equal(t, goroutines-want, len(denied))

	acct, err := store.Get(ctx, src)
	require.NoError(t, err)
	assert.LessOrEqual(t, acct.Consumed, acct.Allowance, "consumed must never exceed allowance")
	assert.InDelta(t, float64(want)*epsilon, acct.Consumed, 1e-9)
}

func TestResetExpired(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now()

	_, err := store.Reserve(ctx, "stale", 5.0, 10.0, now.Add(-25*time.Hour))
	require.NoError(t, err)
	_, err = store.Reserve(ctx, "fresh", 5.0, 10.0, now)
	require.NoError(t, err)

	reset, err := store.ResetExpired(ctx, 24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)

	stale, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Zero(t, stale.Consumed)
	assert.Equal(t, now, stale.WindowStart)

	fresh, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, 5.0, fresh.Consumed, "reset must not touch accounts inside their window")
}

func TestGetMissingAccount(t *testing.T) {
	store := New()
	acct, err := store.Get(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Nil(t, acct)
}
