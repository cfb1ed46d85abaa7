// Package testutil provides reusable signal generators and assertions for
// the evaluation tests.
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
	DBTolerance      = 0.01
)

// SampleRate is the rate assumed by the generators.
const SampleRate = 44100

// Sine returns n samples of a sine at freq Hz with the given amplitude.
func Sine(n int, freq, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
	}
	return out
}

// WhiteNoise returns n uniform samples in [-amplitude, amplitude) drawn from
// a generator seeded with seed, so tests are reproducible.
func WhiteNoise(n int, amplitude float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * (2*rng.Float64() - 1)
	}
	return out
}

// RandomSign returns n samples of ±amplitude with random signs. Every
// window of such a signal has exactly the same energy.
func RandomSign(n int, amplitude float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude
		if rng.IntN(2) == 0 {
			out[i] = -amplitude
		}
	}
	return out
}

// Mix returns a + gain*b over the length of a.
func Mix(a, b []float64, gain float64) []float64 {
	out := make([]float64, len(a))
	for i := range out {
		out[i] = a[i] + gain*b[i]
	}
	return out
}

// Scaled returns gain*x.
func Scaled(x []float64, gain float64) []float64 {
	return Mix(make([]float64, len(x)), x, gain)
}

// AssertAllInf verifies that every element is +Inf.
func AssertAllInf(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if !math.IsInf(v, 1) {
			return assert.Fail(t, "expected +Inf", "s[%d]=%v", i, v)
		}
	}
	return true
}

// AssertAllNaN verifies that every element is NaN.
func AssertAllNaN(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if !math.IsNaN(v) {
			return assert.Fail(t, "expected NaN", "s[%d]=%v", i, v)
		}
	}
	return true
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
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

// AssertInRange verifies that a value is within [min, max].
func AssertInRange(t *testing.T, value, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	if value < minVal || value > maxVal {
		return assert.Fail(t, "value out of range",
			"value %f is outside range [%f, %f]", value, minVal, maxVal)
	}
	return true
}
