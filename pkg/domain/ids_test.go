package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "privacygate/pkg/domain-errors"
)

func TestParseDatasetID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseDatasetID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseDatasetID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseDatasetID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		fresh := uuid.New()
		id, err := ParseDatasetID(fresh.String())
		require.NoError(t, err)
		assert.Equal(t, DatasetID(fresh), id)
	})
}

func TestParseStringIDs(t *testing.T) {
	t.Run("data source must be non-empty", func(t *testing.T) {
		_, err := ParseDataSourceID("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("whitespace is trimmed", func(t *testing.T) {
		src, err := ParseDataSourceID(" flight-telemetry ")
		require.NoError(t, err)
		assert.Equal(t, DataSourceID("flight-telemetry"), src)
	})

	t.Run("category must be non-empty", func(t *testing.T) {
		_, err := ParseDataCategory("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
