// Package engine implements the BSS_EVAL evaluation loop: framing, projection
// filter solving, decomposition, ratio computation and permutation selection.
package engine

import (
	"fmt"

	"github.com/tphakala/go-bss-eval/internal/filter"
	"github.com/tphakala/go-bss-eval/internal/mathutil"
	"github.com/tphakala/go-bss-eval/internal/permute"
)

// Options configures one evaluation run. Validation happens in the caller.
type Options struct {
	Window int // frame length in samples
	Hop    int // frame advance in samples

	Taps           int     // projection filter length
	Regularization float64 // Gram diagonal loading, relative

	FramewiseFilters   bool // re-solve filters per frame instead of once per track
	SpatialFilters     bool // couple channels when solving filters
	ComputePermutation bool // search the best estimate/reference assignment
	SkipSilentFrames   bool // NaN instead of an error for silent frames

	Parallel bool // evaluate frames concurrently
	Workers  int  // goroutine bound for Parallel; 0 = GOMAXPROCS
}

// Output holds the metric tensors of a run.
type Output struct {
	// SDR, ISR, SIR and SAR are indexed [reference][frame].
	SDR [][]float64
	ISR [][]float64
	SIR [][]float64
	SAR [][]float64

	// Permutation[t][j] is the estimate assigned to reference j in frame t.
	Permutation [][]int

	Frames []Frame
}

// frameResult holds every decomposed pair of one frame:
// metrics[est][ref], zero-valued for pairs that were not requested.
type frameResult struct {
	metrics [][]mathutil.Metrics
	skipped bool
}

// evaluation carries the immutable inputs of one Run.
type evaluation struct {
	refs   [][][]float64
	ests   [][][]float64
	opts   *Options
	frames []Frame
	pairs  [][]bool
	shared []estimateFilters // whole-track filters; nil when framewise
}

// Run evaluates aligned signal sets ([source][channel][sample]) of equal shape.
func Run(refs, ests [][][]float64, opts *Options) (*Output, error) {
	nsrc := len(refs)
	if opts.ComputePermutation {
		if err := permute.Check(nsrc); err != nil {
			return nil, err
		}
	}

	var nsampl int
	if nsrc > 0 && len(refs[0]) > 0 {
		nsampl = len(refs[0][0])
	}

	ev := &evaluation{
		refs:   refs,
		ests:   ests,
		opts:   opts,
		frames: Frames(nsampl, opts.Window, opts.Hop),
		pairs:  pairMask(nsrc, opts.ComputePermutation),
	}
	if len(ev.frames) == 0 {
		return newOutput(nsrc, nil), nil
	}

	results := make([]frameResult, len(ev.frames))

	if !opts.FramewiseFilters {
		if src := filter.FirstSilent(refs); src >= 0 {
			if !opts.SkipSilentFrames {
				return nil, fmt.Errorf("%w: source %d over the whole track", filter.ErrSilentReference, src)
			}
			for t := range results {
				results[t].skipped = true
			}
			return ev.assemble(results)
		}

		shared, err := solveFilters(refs, ests, ev.pairs, opts)
		if err != nil {
			return nil, err
		}
		ev.shared = shared
	}

	err := forEachFrame(len(ev.frames), opts.Parallel, opts.Workers, func(t int) error {
		res, err := ev.frame(t)
		if err != nil {
			return err
		}
		results[t] = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ev.assemble(results)
}

// frame decomposes every requested pair within frame t.
func (ev *evaluation) frame(t int) (frameResult, error) {
	f := ev.frames[t]
	refs := window(ev.refs, f)
	ests := window(ev.ests, f)

	if src := filter.FirstSilent(refs); src >= 0 {
		if ev.opts.SkipSilentFrames {
			return frameResult{skipped: true}, nil
		}
		return frameResult{}, fmt.Errorf("%w: source %d in frame %d", filter.ErrSilentReference, src, t)
	}
	if ev.opts.SkipSilentFrames && filter.FirstSilent(ests) >= 0 {
		return frameResult{skipped: true}, nil
	}

	filters := ev.shared
	if filters == nil {
		var err error
		filters, err = solveFilters(refs, ests, ev.pairs, ev.opts)
		if err != nil {
			return frameResult{}, fmt.Errorf("frame %d: %w", t, err)
		}
	}

	projected := projectAll(refs, filters, ev.pairs)

	nsrc := len(refs)
	res := frameResult{metrics: make([][]mathutil.Metrics, nsrc)}
	for est := range nsrc {
		res.metrics[est] = make([]mathutil.Metrics, nsrc)
		for ref := range nsrc {
			if !ev.pairs[est][ref] {
				continue
			}
			energies := decompose(refs, ests[est], projected[est], ref, filters[est], ev.opts.SpatialFilters)
			res.metrics[est][ref] = mathutil.Ratios(energies)
		}
	}
	return res, nil
}

// assemble selects permutations and lays the chosen pairs out as [ref][frame].
func (ev *evaluation) assemble(results []frameResult) (*Output, error) {
	nsrc := len(ev.refs)
	perms, err := ev.permutations(results)
	if err != nil {
		return nil, err
	}

	out := newOutput(nsrc, ev.frames)
	out.Permutation = perms
	for t, res := range results {
		for ref := range nsrc {
			m := mathutil.NaNMetrics()
			if !res.skipped {
				m = res.metrics[perms[t][ref]][ref]
			}
			out.SDR[ref][t] = m.SDR
			out.ISR[ref][t] = m.ISR
			out.SIR[ref][t] = m.SIR
			out.SAR[ref][t] = m.SAR
		}
	}
	return out, nil
}

// permutations returns one assignment per frame. Framewise filters pick the
// best assignment per frame; whole-track filters pick a single assignment
// from SDR summed over all evaluated frames.
func (ev *evaluation) permutations(results []frameResult) ([][]int, error) {
	nsrc := len(ev.refs)
	perms := make([][]int, len(results))

	if !ev.opts.ComputePermutation {
		for t := range perms {
			perms[t] = permute.Identity(nsrc)
		}
		return perms, nil
	}

	if ev.opts.FramewiseFilters {
		for t, res := range results {
			if res.skipped {
				perms[t] = permute.Identity(nsrc)
				continue
			}
			p, err := permute.Best(sdrScores(res, nsrc, nil))
			if err != nil {
				return nil, err
			}
			perms[t] = p
		}
		return perms, nil
	}

	var total [][]float64
	for _, res := range results {
		if !res.skipped {
			total = sdrScores(res, nsrc, total)
		}
	}
	global := permute.Identity(nsrc)
	if total != nil {
		p, err := permute.Best(total)
		if err != nil {
			return nil, err
		}
		global = p
	}
	for t := range perms {
		perms[t] = append([]int(nil), global...)
	}
	return perms, nil
}

// sdrScores adds the ranked SDR of every pair in res to acc (allocated when nil).
func sdrScores(res frameResult, nsrc int, acc [][]float64) [][]float64 {
	if acc == nil {
		acc = make([][]float64, nsrc)
		for est := range acc {
			acc[est] = make([]float64, nsrc)
		}
	}
	for est := range nsrc {
		for ref := range nsrc {
			acc[est][ref] += permute.Score(res.metrics[est][ref].SDR)
		}
	}
	return acc
}

// pairMask marks the (estimate, reference) pairs to decompose: all of them
// for permutation search, the diagonal otherwise.
func pairMask(nsrc int, all bool) [][]bool {
	mask := make([][]bool, nsrc)
	for est := range mask {
		mask[est] = make([]bool, nsrc)
		for ref := range mask[est] {
			mask[est][ref] = all || est == ref
		}
	}
	return mask
}

func newOutput(nsrc int, frames []Frame) *Output {
	out := &Output{
		SDR:         make([][]float64, nsrc),
		ISR:         make([][]float64, nsrc),
		SIR:         make([][]float64, nsrc),
		SAR:         make([][]float64, nsrc),
		Permutation: [][]int{},
		Frames:      frames,
	}
	for j := range nsrc {
		out.SDR[j] = make([]float64, len(frames))
		out.ISR[j] = make([]float64, len(frames))
		out.SIR[j] = make([]float64, len(frames))
		out.SAR[j] = make([]float64, len(frames))
	}
	return out
}
