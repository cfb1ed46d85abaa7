// Package simdops collects the vector kernels used by the projection and
// decomposition code. Reductions and convolutions go through
// github.com/tphakala/simd so they pick up AVX2/SSE/NEON when available.
package simdops

import (
	"github.com/tphakala/simd/f64"
)

// Dot returns the inner product of a and b over min(len(a), len(b)) samples.
func Dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	return f64.DotProduct(a[:n], b[:n])
}

// Energy returns the sum of squares of x.
func Energy(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return f64.DotProduct(x, x)
}

// EnergyMulti returns the total energy of a set of channels.
func EnergyMulti(channels [][]float64) float64 {
	var e float64
	for _, ch := range channels {
		e += Energy(ch)
	}
	return e
}

// Sum returns the sum of all elements.
func Sum(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return f64.Sum(x)
}

// Scale writes a[i]*s into dst.
func Scale(dst, a []float64, s float64) {
	f64.Scale(dst, a, s)
}

// ConvolveValid computes dst[n] = Σ signal[n+k]·kernel[k] for every n where
// the kernel fully overlaps the signal.
func ConvolveValid(dst, signal, kernel []float64) {
	f64.ConvolveValid(dst, signal, kernel)
}

// Sub writes a[i]-b[i] into dst.
func Sub(dst, a, b []float64) {
	f64.Sub(dst, a, b)
}

// AddTo accumulates src into dst.
func AddTo(dst, src []float64) {
	f64.Add(dst, dst, src)
}
