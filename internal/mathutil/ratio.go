// Package mathutil provides the scalar math shared by the BSS_EVAL engine:
// decibel ratios, energy sanitizing and FFT sizing.
package mathutil

import (
	"math"
)

// Energies holds the squared norms of the four components an estimate is
// decomposed into for one source in one frame.
type Energies struct {
	Target       float64 // true source image
	Spatial      float64 // spatial (filtering) distortion
	Interference float64 // leakage from other sources
	Artifacts    float64 // residual
}

// Metrics holds the four BSS_EVAL ratios in decibels.
type Metrics struct {
	SDR float64
	ISR float64
	SIR float64
	SAR float64
}

// NaNMetrics returns a Metrics value with every ratio set to NaN.
// It marks frames that could not be evaluated.
func NaNMetrics() Metrics {
	nan := math.NaN()
	return Metrics{SDR: nan, ISR: nan, SIR: nan, SAR: nan}
}

// SafeDB returns 10·log10(num/den) with the BSS_EVAL boundary policy:
//
//	den == 0, num > 0  -> +Inf
//	den == 0, num == 0 -> NaN
//	num == 0, den > 0  -> -Inf
//
// Negative or non-finite inputs are clamped to zero first.
func SafeDB(num, den float64) float64 {
	num = ClampEnergy(num)
	den = ClampEnergy(den)

	if den == 0 {
		if num == 0 {
			return math.NaN()
		}
		return math.Inf(1)
	}
	if num == 0 {
		return math.Inf(-1)
	}
	return powerDBFactor * math.Log10(num/den)
}

// ClampEnergy maps negative, NaN and infinite energies to zero.
// Such values can only come from round-off in the decomposition.
func ClampEnergy(e float64) float64 {
	if e < 0 || math.IsNaN(e) || math.IsInf(e, 0) {
		return 0
	}
	return e
}

// Ratios converts component energies into SDR, ISR, SIR and SAR.
func Ratios(e Energies) Metrics {
	t := ClampEnergy(e.Target)
	s := ClampEnergy(e.Spatial)
	i := ClampEnergy(e.Interference)
	a := ClampEnergy(e.Artifacts)

	return Metrics{
		SDR: SafeDB(t, s+i+a),
		ISR: SafeDB(t, s),
		SIR: SafeDB(t+s, i),
		SAR: SafeDB(t+s+i, a),
	}
}

// AmplitudeDB converts a linear amplitude ratio to decibels.
// Returns -Inf for zero.
func AmplitudeDB(ratio float64) float64 {
	a := math.Abs(ratio)
	if a == 0 {
		return math.Inf(-1)
	}
	return amplitudeDBFactor * math.Log10(a)
}

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	p := minPowerOfTwo
	for p < n {
		p *= powerOfTwoBase
	}
	return p
}
