// Package testutil provides reusable test helpers for pitch shifter tests.
package testutil

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-10
	SampleTolerance  = 1e-5 // float32 round trip through float64 processing
	RatioTolerance   = 1e-12
)

// Float is the sample type constraint.
type Float interface {
	~float32 | ~float64
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf[F Float](t *testing.T, s []F, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		f := float64(v)
		if math.IsNaN(f) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(f, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [min, max].
func AssertAllInRange[F Float](t *testing.T, s []F, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		f := float64(v)
		if f < minVal || f > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, f, minVal, maxVal)
		}
	}
	return true
}

// AssertSilent verifies that every sample is exactly zero.
func AssertSilent[F Float](t *testing.T, s []F, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v != 0 {
			return assert.Fail(t, "not silent", "s[%d]=%v", i, v)
		}
	}
	return true
}

// AssertNotSilent verifies that at least one sample is non-zero.
func AssertNotSilent[F Float](t *testing.T, s []F, msgAndArgs ...any) bool {
	t.Helper()
	for _, v := range s {
		if v != 0 {
			return true
		}
	}
	return assert.Fail(t, "signal is silent", msgAndArgs...)
}

// AssertDelayed verifies output[n] == input[n-delay] within tolerance, with
// silence expected before the delay has elapsed.
func AssertDelayed(t *testing.T, input, output []float32, delay int, tolerance float64) bool {
	t.Helper()
	for n, got := range output {
		want := float32(0)
		if src := n - delay; src >= 0 && src < len(input) {
			want = input[src]
		}
		if !assert.InDelta(t, want, got, tolerance, "sample %d (delay %d)", n, delay) {
			return false
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relError, tolerance,
		"relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
		relError, tolerance, expected, actual)
}

// Sine returns n samples of a unit sine at freq Hz.
func Sine(n int, freq, sampleRate float64) []float32 {
	out := make([]float32, n)
	omega := 2 * math.Pi * freq / sampleRate
	for i := range out {
		out[i] = float32(math.Sin(omega * float64(i)))
	}
	return out
}

// Noise returns n deterministic samples uniformly distributed in [-1, 1).
func Noise(n int, seed uint64) []float32 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(rng.Float64()*2 - 1)
	}
	return out
}

// Constant returns n copies of v.
func Constant(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Blocks returns the planar buffers for block b of length size, one slice per channel.
func Blocks(channels [][]float32, b, size int) [][]float32 {
	out := make([][]float32, len(channels))
	for ch, s := range channels {
		out[ch] = s[b*size : (b+1)*size]
	}
	return out
}

// Planar allocates channels x n zeroed samples.
func Planar(channels, n int) [][]float32 {
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, n)
	}
	return out
}
