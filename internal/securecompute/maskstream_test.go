package securecompute

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "privacygate/pkg/domain-errors"
)

// The scheme contract: decrypting the result of a homomorphic computation
// must equal running the same computation on the plaintexts.
func TestMaskStreamConformance(t *testing.T) {
	scheme := NewMaskStream()
	key, err := scheme.GenerateKeys(1)
	require.NoError(t, err)

	values := []float64{12.5, -3.25, 7.0, 0.0, 101.125}
	ciphertexts, err := scheme.Encrypt(key, values)
	require.NoError(t, err)
	require.Len(t, ciphertexts, len(values))

	expected := map[Operation]float64{
		OpSum:   117.375,
		OpCount: 5,
		OpMean:  23.475,
	}

	for _, op := range scheme.Operations() {
		op := op
		t.Run(string(op), func(t *testing.T) {
			result, err := scheme.Compute(ciphertexts, op)
			require.NoError(t, err)

			plain, err := scheme.Decrypt(key, result)
			require.NoError(t, err)
			require.Len(t, plain, 1)
			assert.InDelta(t, expected[op], plain[0], 1e-6)
		})
	}
}

func TestMaskStreamElementRoundTrip(t *testing.T) {
	scheme := NewMaskStream()
	key, err := scheme.GenerateKeys(1)
	require.NoError(t, err)

	values := []float64{-0.000001, 42.0, 9999999.5}
	ciphertexts, err := scheme.Encrypt(key, values)
	require.NoError(t, err)

	for i, ct := range ciphertexts {
		plain, err := scheme.Decrypt(key, ct)
		require.NoError(t, err)
		require.Len(t, plain, 1)
		assert.InDelta(t, values[i], plain[0], 1e-6)
	}
}

func TestMaskStreamCiphertextsAreMasked(t *testing.T) {
	scheme := NewMaskStream()
	key, err := scheme.GenerateKeys(1)
	require.NoError(t, err)

	// Same plaintext twice must not yield the same ciphertext.
	ciphertexts, err := scheme.Encrypt(key, []float64{5.0, 5.0})
	require.NoError(t, err)
	assert.NotEqual(t, ciphertexts[0], ciphertexts[1])
}

func TestMaskStreamWrongKey(t *testing.T) {
	scheme := NewMaskStream()
	key1, err := scheme.GenerateKeys(1)
	require.NoError(t, err)
	key2, err := scheme.GenerateKeys(2)
	require.NoError(t, err)

	ciphertexts, err := scheme.Encrypt(key1, []float64{3.0})
	require.NoError(t, err)

	_, err = scheme.Decrypt(key2, ciphertexts[0])
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestMaskStreamMixedGenerations(t *testing.T) {
	scheme := NewMaskStream()
	key1, err := scheme.GenerateKeys(1)
	require.NoError(t, err)
	key2, err := scheme.GenerateKeys(2)
	require.NoError(t, err)

	first, err := scheme.Encrypt(key1, []float64{1.0})
	require.NoError(t, err)
	second, err := scheme.Encrypt(key2, []float64{2.0})
	require.NoError(t, err)

	_, err = scheme.Compute([][]byte{first[0], second[0]}, OpSum)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestMaskStreamInvalidInput(t *testing.T) {
	scheme := NewMaskStream()
	key, err := scheme.GenerateKeys(1)
	require.NoError(t, err)

	t.Run("empty dataset", func(t *testing.T) {
		_, err := scheme.Compute(nil, OpSum)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unsupported operation", func(t *testing.T) {
		ciphertexts, err := scheme.Encrypt(key, []float64{1.0})
		require.NoError(t, err)
		_, err = scheme.Compute(ciphertexts, Operation("median"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		_, err := scheme.Decrypt(key, []byte{blobElement, 0x00})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unknown marker", func(t *testing.T) {
		_, err := scheme.Decrypt(key, []byte{0x7f})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	// An aggregate header claiming 2^60 entries makes count*nonceSize wrap
	// to zero; the length check must not be fooled by the overflow.
	t.Run("overflowing aggregate count", func(t *testing.T) {
		blob := make([]byte, 1+4+8+8)
		blob[0] = blobSum
		binary.BigEndian.PutUint32(blob[1:5], key.KeyID)
		binary.BigEndian.PutUint64(blob[5:13], 1<<60)
		_, err := scheme.Decrypt(key, blob)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("zero-count aggregate", func(t *testing.T) {
		blob := make([]byte, 1+4+8+8)
		blob[0] = blobMean
		binary.BigEndian.PutUint32(blob[1:5], key.KeyID)
		_, err := scheme.Decrypt(key, blob)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseOperation(t *testing.T) {
	for _, valid := range []string{"sum", "count", "mean"} {
		op, err := ParseOperation(valid)
		require.NoError(t, err)
		assert.Equal(t, Operation(valid), op)
	}

	_, err := ParseOperation("variance")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
