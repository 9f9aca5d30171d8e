// Package securecompute encrypts record sets and runs a constrained set of
// operations directly on ciphertexts.
//
// The concrete scheme is pluggable behind the Scheme interface. Whatever
// the scheme, it must satisfy the round-trip property
// Decrypt(Compute(Encrypt(x), f)) == f(x) for every operation it declares;
// the conformance test in this package checks exactly that.
package securecompute

import (
	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

// Operation names a homomorphic computation a scheme can run on
// ciphertexts.
type Operation string

const (
	OpSum   Operation = "sum"
	OpCount Operation = "count"
	OpMean  Operation = "mean"
)

// ParseOperation validates an externally supplied operation name.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpSum, OpCount, OpMean:
		return Operation(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported operation %q", s)
	}
}

// KeyPair is the key material for one scheme generation. The private part
// never leaves this package: it is not serialized, not audited, and not
// returned to callers.
type KeyPair struct {
	SchemeID domain.SchemeID
	KeyID    uint32
	private  []byte
}

// Scheme is a pluggable encryption scheme with a homomorphic operation set.
type Scheme interface {
	ID() domain.SchemeID

	// GenerateKeys mints a fresh keypair with the given generation number.
	GenerateKeys(keyID uint32) (*KeyPair, error)

	// Encrypt produces one ciphertext per value.
	Encrypt(key *KeyPair, values []float64) ([][]byte, error)

	// Compute evaluates op over ciphertexts without the private key.
	Compute(ciphertexts [][]byte, op Operation) ([]byte, error)

	// Decrypt recovers the plaintext result of a data ciphertext or a
	// Compute result.
	Decrypt(key *KeyPair, ciphertext []byte) ([]float64, error)

	// Operations lists the operations Compute supports.
	Operations() []Operation
}
