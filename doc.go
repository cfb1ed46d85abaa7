// Package bsseval computes the BSS_EVAL source separation metrics in pure Go.
//
// Given ground-truth reference sources and estimated sources, every estimate
// is decomposed into a true source image, spatial distortion, interference
// from other sources and artifacts. The decomposition is a least-squares
// projection onto time-shifted copies of the references, computed with FIR
// projection filters. Component energies are then turned into decibel ratios:
//
//	SDR = 10·log10(Etarget / (Espatial + Einterf + Eartif))
//	ISR = 10·log10(Etarget / Espatial)
//	SIR = 10·log10((Etarget + Espatial) / Einterf)
//	SAR = 10·log10((Etarget + Espatial + Einterf) / Eartif)
//
// # Quick Start
//
//	res, err := bsseval.EvaluateV4(refs, ests, 44100, 44100)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for j, sdr := range res.SDR {
//	    fmt.Println("source", j, "SDR per frame:", sdr)
//	}
//
// Signals are planar and indexed [source][channel][sample]. Estimates are
// zero-padded or truncated to the reference length.
//
// # Modes
//
// [Mode] holds two independent switches:
//
//   - FramewiseFilters: solve projection filters per analysis frame (v3)
//     or once over the whole track and reuse them for every frame (v4).
//   - SpatialFilters: couple all channels (the image model, v4) or project
//     each channel on its own (v3). Without spatial filters ISR is always +Inf.
//
// [ModeV3] and [ModeV4] name the two conventional combinations; the other two
// are valid as well.
//
// # Numeric Conventions
//
// A component with zero energy yields +Inf for the ratios it is the
// denominator of, so a perfect estimate scores +Inf everywhere. A ratio of
// two zero energies is NaN. Component energies below a billionth of the
// frame's signal energy are round-off from the projection and count as zero.
//
// A reference that is silent within an evaluated frame makes the projection
// undefined; [Evaluate] fails with [ErrSilentReference] unless
// [Config.SkipSilentFrames] is set, in which case such frames report NaN.
//
// # Permutation
//
// With [Config.ComputePermutation] the estimate-to-reference assignment that
// maximises total SDR is found by exhaustive search. The search is factorial
// and limited to [MaxPermutationSources] sources.
//
// # Performance
//
// Correlations are computed by FFT (gonum), normal equations are solved by
// Cholesky factorization and vector kernels use SIMD via
// github.com/tphakala/simd. Frames can be evaluated concurrently with
// [Config.EnableParallel]; results are identical to sequential evaluation.
//
// # Thread Safety
//
// [Evaluate] keeps no state between calls and may be called concurrently.
package bsseval
