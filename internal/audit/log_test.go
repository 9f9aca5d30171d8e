package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privacygate/internal/audit"
	auditmem "privacygate/internal/audit/store/memory"
	dErrors "privacygate/pkg/domain-errors"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Record) error { return errors.New("disk full") }
func (failingStore) Query(context.Context, audit.Filter) ([]audit.Record, error) {
	return nil, errors.New("disk full")
}
func (failingStore) DeleteOlderThan(context.Context, time.Time) (int, error) {
	return 0, errors.New("disk full")
}

func TestLogAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id and timestamp", func(t *testing.T) {
		store := auditmem.New()
		log, err := audit.New(store)
		require.NoError(t, err)

		require.NoError(t, log.Append(ctx, audit.Record{
			Kind:     audit.KindQueryMediated,
			Ref:      "src1",
			Decision: audit.DecisionGranted,
		}))

		records, err := log.Query(ctx, audit.Filter{})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.NotEqual(t, uuid.Nil, records[0].ID)
		assert.False(t, records[0].Timestamp.IsZero())
	})

	t.Run("storage failure surfaces as audit write failure", func(t *testing.T) {
		log, err := audit.New(failingStore{})
		require.NoError(t, err)

		err = log.Append(ctx, audit.Record{Kind: audit.KindQueryMediated})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAuditWriteFailure))
	})

	t.Run("nil store rejected at construction", func(t *testing.T) {
		_, err := audit.New(nil)
		require.Error(t, err)
	})
}

func TestLogQueryFilter(t *testing.T) {
	ctx := context.Background()
	store := auditmem.New()
	log, err := audit.New(store)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, log.Append(ctx, audit.Record{Kind: audit.KindQueryMediated, Ref: "src1"}))
	}
	require.NoError(t, log.Append(ctx, audit.Record{Kind: audit.KindDatasetComputed, Ref: "ds1"}))

	t.Run("filter by kind", func(t *testing.T) {
		records, err := log.Query(ctx, audit.Filter{Kind: audit.KindDatasetComputed})
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("filter by ref with limit", func(t *testing.T) {
		records, err := log.Query(ctx, audit.Filter{Ref: "src1", Limit: 2})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}

func TestLogPrune(t *testing.T) {
	ctx := context.Background()
	store := auditmem.New()
	log, err := audit.New(store, audit.WithRetention(time.Hour))
	require.NoError(t, err)

	// One stale record, one fresh one.
	require.NoError(t, log.Append(ctx, audit.Record{
		Kind:      audit.KindQueryMediated,
		Ref:       "old",
		Timestamp: time.Now().Add(-2 * time.Hour),
	}))
	require.NoError(t, log.Append(ctx, audit.Record{Kind: audit.KindQueryMediated, Ref: "new"}))

	removed, err := log.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := log.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Ref)
}
