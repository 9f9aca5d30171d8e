package derrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("finds code on a direct error", func(t *testing.T) {
		err := New(CodeInsufficientBudget, "allowance exhausted")
		assert.True(t, HasCode(err, CodeInsufficientBudget))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("finds code through wrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "policy not found")
		outer := Wrap(inner, CodeInternal, "lookup failed")
		assert.True(t, HasCode(outer, CodeNotFound))
		assert.True(t, HasCode(outer, CodeInternal))
	})

	t.Run("finds code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeAuditWriteFailure, "append failed")
		outer := fmt.Errorf("mediate query: %w", inner)
		assert.True(t, HasCode(outer, CodeAuditWriteFailure))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause stays reachable", func(t *testing.T) {
		sentinel := errors.New("pg down")
		err := Wrap(sentinel, CodeInternal, "store failure")
		assert.True(t, errors.Is(err, sentinel))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodePolicyMismatch, CodeOf(New(CodePolicyMismatch, "nope")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
