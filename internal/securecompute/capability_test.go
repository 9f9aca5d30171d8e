package securecompute

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "privacygate/pkg/domain-errors"
)

func TestCapabilityIssuer(t *testing.T) {
	issuer := NewCapabilityIssuer("cap-test-secret", "privacygate-test")

	t.Run("round trip", func(t *testing.T) {
		token, err := issuer.MintDecrypt("analyst-1", time.Hour)
		require.NoError(t, err)

		operator, err := issuer.VerifyDecrypt(token)
		require.NoError(t, err)
		assert.Equal(t, "analyst-1", operator)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := issuer.VerifyDecrypt("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := issuer.MintDecrypt("analyst-1", -time.Minute)
		require.NoError(t, err)

		_, err = issuer.VerifyDecrypt(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewCapabilityIssuer("a-different-secret", "privacygate-test")
		token, err := other.MintDecrypt("analyst-1", time.Hour)
		require.NoError(t, err)

		_, err = issuer.VerifyDecrypt(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("token without the decrypt capability", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, CapabilityClaims{
			Capability: "audit",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "analyst-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		token, err := raw.SignedString([]byte("cap-test-secret"))
		require.NoError(t, err)

		_, err = issuer.VerifyDecrypt(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
