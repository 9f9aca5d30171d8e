package securecompute

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "privacygate/pkg/domain-errors"
)

// capDecrypt is the capability name decrypt tokens must carry.
const capDecrypt = "decrypt"

// CapabilityClaims are the JWT claims of an operator capability token.
type CapabilityClaims struct {
	Capability string `json:"cap"`
	jwt.RegisteredClaims
}

// CapabilityIssuer mints and validates operator capability tokens. Only
// holders of a valid decrypt capability may recover plaintexts from the
// gateway.
type CapabilityIssuer struct {
	signingKey []byte
	issuer     string
}

func NewCapabilityIssuer(signingKey string, issuer string) *CapabilityIssuer {
	return &CapabilityIssuer{signingKey: []byte(signingKey), issuer: issuer}
}

// MintDecrypt issues a decrypt capability for the named operator.
func (c *CapabilityIssuer) MintDecrypt(operator string, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, CapabilityClaims{
		Capability: capDecrypt,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    c.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign capability token")
	}
	return signed, nil
}

// VerifyDecrypt checks the token and returns the operator it names.
func (c *CapabilityIssuer) VerifyDecrypt(tokenString string) (string, error) {
	if tokenString == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "decrypt requires a capability token")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &CapabilityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "capability token has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid capability token")
	}

	claims, ok := parsed.Claims.(*CapabilityClaims)
	if !ok || !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid capability token claims")
	}
	if claims.Capability != capDecrypt {
		return "", dErrors.New(dErrors.CodeForbidden, "token does not grant the decrypt capability")
	}
	return claims.Subject, nil
}
