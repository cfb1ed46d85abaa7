package engine

import (
	"fmt"
	"slices"

	"github.com/tphakala/go-bss-eval/internal/filter"
	"github.com/tphakala/go-bss-eval/internal/mathutil"
	"github.com/tphakala/go-bss-eval/internal/simdops"
)

// estimateFilters holds the projection filters solved for one estimate.
type estimateFilters struct {
	all    *filter.Bank   // reconstruction from every reference
	target []*filter.Bank // reconstruction from reference j alone; nil if unused
}

// solveFilters solves the projection filters of every estimate that takes
// part in at least one (estimate, reference) pair. pairs[est][ref] marks the
// pairs that will be decomposed.
func solveFilters(refs, ests [][][]float64, pairs [][]bool, opts *Options) ([]estimateFilters, error) {
	solver, err := filter.NewSolver(refs, opts.Taps, opts.SpatialFilters, opts.Regularization)
	if err != nil {
		return nil, err
	}

	out := make([]estimateFilters, len(ests))
	for est := range ests {
		e, err := solver.Correlate(ests[est])
		if err != nil {
			return nil, fmt.Errorf("estimate %d: %w", est, err)
		}

		all, err := solver.Filters(e)
		if err != nil {
			return nil, fmt.Errorf("estimate %d: %w", est, err)
		}
		out[est].all = all
		out[est].target = make([]*filter.Bank, len(refs))

		for ref := range refs {
			if !pairs[est][ref] {
				continue
			}
			target, err := solver.TargetFilters(e, ref)
			if err != nil {
				return nil, fmt.Errorf("estimate %d, reference %d: %w", est, ref, err)
			}
			out[est].target[ref] = target
		}
	}
	return out, nil
}

// projectAll reconstructs every estimate that takes part in a pair from all
// references. Estimates without a pair get nil. The result depends only on
// the estimate, so it is shared by every reference it is decomposed against.
func projectAll(refs [][][]float64, filters []estimateFilters, pairs [][]bool) [][][]float64 {
	out := make([][][]float64, len(filters))
	for est, f := range filters {
		if slices.Contains(pairs[est], true) {
			out[est] = filter.Project(refs, f.all)
		}
	}
	return out
}

// decompose splits est into true source image, spatial distortion,
// interference and artifacts relative to reference ref and returns the
// component energies. pAll is the projection of est onto all references.
// All signals are considered over nsampl+taps-1 samples so the filter tails
// are included.
//
// With spatial filtering the true image is the reference itself and the
// spatial distortion is what the target-only projection adds to it. Without
// it the target-only projection is the true image and the spatial term is
// zero by construction.
func decompose(refs [][][]float64, est, pAll [][]float64, ref int, f estimateFilters, spatial bool) mathutil.Energies {
	target := f.target[ref]
	pTarget := filter.Project(refs, target)

	n := len(est[0])
	m := n + target.Length - 1

	trueImg := make([]float64, m)
	diff := make([]float64, m)
	padded := make([]float64, m)

	var e mathutil.Energies
	var scale float64
	for c := range est {
		for i := range padded {
			padded[i] = 0
		}
		copy(padded, est[c])
		scale += simdops.Energy(padded) + simdops.Energy(refs[ref][c])

		if spatial {
			for i := range trueImg {
				trueImg[i] = 0
			}
			copy(trueImg, refs[ref][c])
			simdops.Sub(diff, pTarget[c], trueImg)
			e.Spatial += simdops.Energy(diff)
		} else {
			copy(trueImg, pTarget[c])
		}
		e.Target += simdops.Energy(trueImg)

		simdops.Sub(diff, pAll[c], pTarget[c])
		e.Interference += simdops.Energy(diff)

		simdops.Sub(diff, padded, pAll[c])
		e.Artifacts += simdops.Energy(diff)
	}

	return floorEnergies(e, energyFloor*scale)
}

// floorEnergies zeroes components that are indistinguishable from round-off.
func floorEnergies(e mathutil.Energies, floor float64) mathutil.Energies {
	clip := func(v float64) float64 {
		v = mathutil.ClampEnergy(v)
		if v <= floor {
			return 0
		}
		return v
	}
	return mathutil.Energies{
		Target:       clip(e.Target),
		Spatial:      clip(e.Spatial),
		Interference: clip(e.Interference),
		Artifacts:    clip(e.Artifacts),
	}
}
