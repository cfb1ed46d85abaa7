// Command analyze-filter checks how well the projection filters recover a
// known distortion. A noise reference is passed through a short FIR filter,
// mixed with a second source and projected back; the recovered taps and
// residuals are printed for several filter lengths.
package main

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/tphakala/go-bss-eval/internal/filter"
	"github.com/tphakala/go-bss-eval/internal/mathutil"
	"github.com/tphakala/go-bss-eval/internal/simdops"
)

const (
	// Synthetic signal parameters
	numSamples   = 8192
	leakageGain  = 0.1
	noiseSeed    = 42
	regularizer  = 1e-10
	tapsToShow   = 6
	spatialModel = false
)

// distortion is the FIR applied to source 0 to build the estimate.
var distortion = []float64{0.8, 0.3, -0.1}

func main() {
	fmt.Println("=== Analyzing Projection Filters ===")

	rng := rand.New(rand.NewPCG(noiseSeed, noiseSeed+1))
	refs := [][][]float64{
		{uniformNoise(rng, numSamples)},
		{uniformNoise(rng, numSamples)},
	}

	filtered := filter.ConvolveFull(refs[0][0], distortion)[:numSamples]
	est := make([]float64, numSamples)
	for i := range est {
		est[i] = filtered[i] + leakageGain*refs[1][0][i]
	}

	fmt.Printf("Distortion taps: %v\n", distortion)
	fmt.Printf("Leakage gain: %.3f (expected SIR %.2f dB)\n\n", leakageGain, -mathutil.AmplitudeDB(leakageGain))

	for _, taps := range []int{1, 2, 3, 8, 64, 512} {
		analyze(refs, est, taps)
	}
}

func analyze(refs [][][]float64, est []float64, taps int) {
	fmt.Printf("--- %d taps ---\n", taps)

	s, err := filter.NewSolver(refs, taps, spatialModel, regularizer)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	e, err := s.Correlate([][]float64{est})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	all, err := s.Filters(e)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	target, err := s.TargetFilters(e, 0)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	recovered := target.Taps[0][0][0]
	shown := min(len(recovered), tapsToShow)
	fmt.Printf("  Target taps: %.6f\n", recovered[:shown])
	fmt.Printf("  Target DC gain: %.6f (distortion %.6f)\n", simdops.Sum(recovered), simdops.Sum(distortion))
	fmt.Printf("  Max tap error: %.3e\n", maxTapError(recovered))
	fmt.Printf("  Leakage tap 0: %.6f\n", all.Taps[1][0][0][0])

	pAll := filter.Project(refs, all)[0]
	pTarget := filter.Project(refs, target)[0]

	padded := make([]float64, len(pAll))
	copy(padded, est)

	diff := make([]float64, len(pAll))
	simdops.Sub(diff, pAll, pTarget)
	interference := simdops.Energy(diff)
	simdops.Sub(diff, padded, pAll)
	artifacts := simdops.Energy(diff)

	fmt.Printf("  SIR: %.2f dB\n", mathutil.SafeDB(simdops.Energy(pTarget), interference))
	fmt.Printf("  SAR: %.2f dB\n\n", mathutil.SafeDB(simdops.Energy(pAll), artifacts))
}

// maxTapError compares recovered taps with the distortion, treating
// missing taps on either side as zero.
func maxTapError(recovered []float64) float64 {
	var worst float64
	for i := range max(len(recovered), len(distortion)) {
		var got, want float64
		if i < len(recovered) {
			got = recovered[i]
		}
		if i < len(distortion) {
			want = distortion[i]
		}
		worst = math.Max(worst, math.Abs(got-want))
	}
	return worst
}

func uniformNoise(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 2*rng.Float64() - 1
	}
	return out
}
