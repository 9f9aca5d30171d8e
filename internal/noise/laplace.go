// Package noise implements the Laplace mechanism for differential privacy.
//
// The mechanism is stateless and side-effect-free beyond randomness. It never
// touches the budget ledger; the mediation facade reserves budget before
// calling it.
package noise

import (
	"bufio"
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math"
	"sync"

	dErrors "privacygate/pkg/domain-errors"
)

// The noise draw must come from a cryptographically sound source: predictable
// noise defeats the privacy guarantee. crypto/rand is buffered because one
// syscall per draw dominates the cost of the mechanism.
var (
	randBufMu sync.Mutex
	randBuf   io.Reader = bufio.NewReaderSize(cryptorand.Reader, 4096)
)

func randUint64() (uint64, error) {
	var b [8]byte
	randBufMu.Lock()
	_, err := io.ReadFull(randBuf, b[:])
	randBufMu.Unlock()
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "out of randomness")
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// uniformOpen draws a float64 uniformly from the open interval (-0.5, 0.5).
// 53 random bits are centered on half-steps so neither endpoint is reachable.
func uniformOpen() (float64, error) {
	u, err := randUint64()
	if err != nil {
		return 0, err
	}
	f := (float64(u>>11) + 0.5) / (1 << 53)
	return f - 0.5, nil
}

// CheckEpsilonStrict returns an error unless epsilon is strictly positive
// and finite.
func CheckEpsilonStrict(epsilon float64) error {
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "epsilon is %f, must be strictly positive and finite", epsilon)
	}
	return nil
}

// CheckSensitivityStrict returns an error unless sensitivity is strictly
// positive and finite.
func CheckSensitivityStrict(sensitivity float64) error {
	if sensitivity <= 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "sensitivity is %f, must be strictly positive and finite", sensitivity)
	}
	return nil
}

// AddNoise adds independent Laplace(0, sensitivity/epsilon) noise to each
// element of values. The input slice is not modified.
func AddNoise(values []float64, sensitivity, epsilon float64) ([]float64, error) {
	if err := CheckSensitivityStrict(sensitivity); err != nil {
		return nil, err
	}
	if err := CheckEpsilonStrict(epsilon); err != nil {
		return nil, err
	}

	scale := sensitivity / epsilon
	out := make([]float64, len(values))
	for i, v := range values {
		n, err := laplace(scale)
		if err != nil {
			return nil, err
		}
		out[i] = v + n
	}
	return out, nil
}

// laplace draws one Laplace(0, scale) variate via the inverse CDF:
// noise = -scale * sign(u) * ln(1 - 2|u|) for u uniform in (-0.5, 0.5).
func laplace(scale float64) (float64, error) {
	u, err := uniformOpen()
	if err != nil {
		return 0, err
	}
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -scale * sign * math.Log(1-2*math.Abs(u)), nil
}
