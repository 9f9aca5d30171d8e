package securecompute

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/crypto/hkdf"

	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

// MaskStreamID identifies the built-in additively homomorphic masking
// scheme.
const MaskStreamID domain.SchemeID = "maskstream-v1"

// maskStream is a secret-key additively homomorphic scheme. Each value is
// fixed-point encoded and masked with a pad derived from the private key
// and a random per-ciphertext nonce via HKDF. Addition of masked values
// equals addition of plaintexts plus the sum of pads, so sums (and from
// them means) evaluate on ciphertexts alone; the decryptor re-derives the
// pads from the nonces it holds the key for.
//
// This is the contract-bearing stand-in for a lattice-based scheme: the
// gateway depends only on the Scheme interface, so swapping in a real
// partially homomorphic scheme is a registration change.
type maskStream struct{}

// NewMaskStream constructs the built-in scheme.
func NewMaskStream() Scheme { return maskStream{} }

const (
	// fixedPointUnit scales float64 values into int64 micro-units.
	fixedPointUnit = 1e6

	nonceSize  = 16
	secretSize = 32

	blobElement byte = 0x01
	blobSum     byte = 0x02
	blobCount   byte = 0x03
	blobMean    byte = 0x04
)

func (maskStream) ID() domain.SchemeID { return MaskStreamID }

func (maskStream) Operations() []Operation {
	return []Operation{OpSum, OpCount, OpMean}
}

func (maskStream) GenerateKeys(keyID uint32) (*KeyPair, error) {
	secret := make([]byte, secretSize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate scheme secret")
	}
	return &KeyPair{SchemeID: MaskStreamID, KeyID: keyID, private: secret}, nil
}

// pad derives the 64-bit mask for one nonce from the private key.
func pad(key *KeyPair, nonce []byte) (uint64, error) {
	reader := hkdf.New(sha256.New, key.private, nil, nonce)
	var b [8]byte
	if _, err := io.ReadFull(reader, b[:]); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "derive mask pad")
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func encode(v float64) uint64 {
	return uint64(int64(math.Round(v * fixedPointUnit)))
}

func decode(u uint64) float64 {
	return float64(int64(u)) / fixedPointUnit
}

func (s maskStream) Encrypt(key *KeyPair, values []float64) ([][]byte, error) {
	if key == nil || len(key.private) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "encrypt requires key material")
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		nonce := make([]byte, nonceSize)
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate ciphertext nonce")
		}
		p, err := pad(key, nonce)
		if err != nil {
			return nil, err
		}

		blob := make([]byte, 0, 1+4+nonceSize+8)
		blob = append(blob, blobElement)
		blob = binary.BigEndian.AppendUint32(blob, key.KeyID)
		blob = append(blob, nonce...)
		blob = binary.BigEndian.AppendUint64(blob, encode(v)+p)
		out[i] = blob
	}
	return out, nil
}

// Compute evaluates op over element ciphertexts. It needs no key: masked
// values add like plaintexts, and the nonces travel with the result so the
// decryptor can strip the accumulated pads.
func (s maskStream) Compute(ciphertexts [][]byte, op Operation) ([]byte, error) {
	switch op {
	case OpSum, OpMean:
		return s.computeSum(ciphertexts, op)
	case OpCount:
		blob := make([]byte, 0, 1+8)
		blob = append(blob, blobCount)
		blob = binary.BigEndian.AppendUint64(blob, uint64(len(ciphertexts)))
		return blob, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "scheme %s does not support operation %q", MaskStreamID, op)
	}
}

func (s maskStream) computeSum(ciphertexts [][]byte, op Operation) ([]byte, error) {
	if len(ciphertexts) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "cannot aggregate an empty dataset")
	}

	var masked uint64
	var keyID uint32
	nonces := make([]byte, 0, len(ciphertexts)*nonceSize)

	for i, ct := range ciphertexts {
		id, nonce, value, err := parseElement(ct)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			keyID = id
		} else if id != keyID {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "ciphertexts span multiple key generations")
		}
		masked += value
		nonces = append(nonces, nonce...)
	}

	marker := blobSum
	if op == OpMean {
		marker = blobMean
	}
	blob := make([]byte, 0, 1+4+8+8+len(nonces))
	blob = append(blob, marker)
	blob = binary.BigEndian.AppendUint32(blob, keyID)
	blob = binary.BigEndian.AppendUint64(blob, uint64(len(ciphertexts)))
	blob = binary.BigEndian.AppendUint64(blob, masked)
	blob = append(blob, nonces...)
	return blob, nil
}

func (s maskStream) Decrypt(key *KeyPair, ciphertext []byte) ([]float64, error) {
	if key == nil || len(key.private) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "decrypt requires key material")
	}
	if len(ciphertext) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "empty ciphertext")
	}

	switch ciphertext[0] {
	case blobElement:
		keyID, nonce, masked, err := parseElement(ciphertext)
		if err != nil {
			return nil, err
		}
		if keyID != key.KeyID {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "ciphertext under key generation %d, have %d", keyID, key.KeyID)
		}
		p, err := pad(key, nonce)
		if err != nil {
			return nil, err
		}
		return []float64{decode(masked - p)}, nil

	case blobCount:
		if len(ciphertext) != 1+8 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "malformed count result")
		}
		count := binary.BigEndian.Uint64(ciphertext[1:])
		return []float64{float64(count)}, nil

	case blobSum, blobMean:
		return s.decryptAggregate(key, ciphertext)

	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown ciphertext marker 0x%02x", ciphertext[0])
	}
}

func (s maskStream) decryptAggregate(key *KeyPair, blob []byte) ([]float64, error) {
	const header = 1 + 4 + 8 + 8
	if len(blob) < header {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "malformed aggregate result")
	}
	keyID := binary.BigEndian.Uint32(blob[1:5])
	if keyID != key.KeyID {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "result under key generation %d, have %d", keyID, key.KeyID)
	}
	count := binary.BigEndian.Uint64(blob[5:13])
	masked := binary.BigEndian.Uint64(blob[13:21])

	// Divide rather than multiply: count*nonceSize can wrap for a crafted
	// count, letting an empty nonce block pass the length check.
	nonces := blob[header:]
	if count == 0 || uint64(len(nonces))%nonceSize != 0 || uint64(len(nonces))/nonceSize != count {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "aggregate result nonce block truncated")
	}

	var padSum uint64
	for i := uint64(0); i < count; i++ {
		p, err := pad(key, nonces[i*nonceSize:(i+1)*nonceSize])
		if err != nil {
			return nil, err
		}
		padSum += p
	}

	sum := decode(masked - padSum)
	if blob[0] == blobMean {
		return []float64{sum / float64(count)}, nil
	}
	return []float64{sum}, nil
}

func parseElement(ct []byte) (keyID uint32, nonce []byte, masked uint64, err error) {
	const want = 1 + 4 + nonceSize + 8
	if len(ct) != want || ct[0] != blobElement {
		return 0, nil, 0, dErrors.New(dErrors.CodeInvalidInput, "malformed element ciphertext")
	}
	keyID = binary.BigEndian.Uint32(ct[1:5])
	nonce = ct[5 : 5+nonceSize]
	masked = binary.BigEndian.Uint64(ct[5+nonceSize:])
	return keyID, nonce, masked, nil
}

// Zero wipes the private key material. Called when a retired key is
// discarded after rotation.
func (k *KeyPair) Zero() {
	for i := range k.private {
		k.private[i] = 0
	}
	k.private = nil
}
