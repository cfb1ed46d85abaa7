package bsseval

import (
	"fmt"

	"github.com/tphakala/go-bss-eval/internal/align"
	"github.com/tphakala/go-bss-eval/internal/engine"
	"github.com/tphakala/go-bss-eval/internal/permute"
	"github.com/tphakala/simd/cpu"
)

// Status tags how a Result was produced.
type Status int

const (
	// StatusOK indicates a normal evaluation.
	StatusOK Status = iota

	// StatusEmpty indicates zero-length input. No frame was evaluated and
	// all metric tensors are empty.
	StatusEmpty
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Frame describes one evaluated analysis window in samples.
type Frame struct {
	Start  int
	Length int
}

// Result holds the metrics of one evaluation.
type Result struct {
	// SDR, ISR, SIR and SAR are indexed [reference][frame] in decibels.
	// Values may be +Inf (perfect component) or NaN (undefined frame).
	SDR [][]float64
	ISR [][]float64
	SIR [][]float64
	SAR [][]float64

	// Permutation is indexed [frame][reference]; Permutation[t][j] is the
	// estimate evaluated against reference j in frame t. It is the identity
	// unless Config.ComputePermutation is set.
	Permutation [][]int

	// Frames lists the evaluated windows in order.
	Frames []Frame

	// Status tags degenerate results.
	Status Status
}

// Evaluate computes BSS_EVAL metrics of ests against refs.
//
// Both sets must have the same number of sources and channels. Estimates are
// zero-padded or truncated to the reference length; neither input is
// modified. When either set holds no samples the result is tagged
// StatusEmpty. A nil config uses DefaultConfig.
func Evaluate(refs, ests Signals, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := checkShapes(refs, ests); err != nil {
		return nil, err
	}

	if config.ComputePermutation {
		if err := permute.Check(len(refs)); err != nil {
			return nil, err
		}
	}

	// Either set holding no samples is degenerate.
	if len(refs) == 0 || align.Length(refs) == 0 || align.Length(ests) == 0 {
		return emptyResult(len(refs)), nil
	}

	alignedRefs, alignedEsts := align.PadOrTruncate(refs, ests)
	nsampl := align.Length(alignedRefs)

	out, err := engine.Run(alignedRefs, alignedEsts, config.options(nsampl))
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	res := &Result{
		SDR:         out.SDR,
		ISR:         out.ISR,
		SIR:         out.SIR,
		SAR:         out.SAR,
		Permutation: out.Permutation,
		Frames:      make([]Frame, len(out.Frames)),
		Status:      StatusOK,
	}
	for i, f := range out.Frames {
		res.Frames[i] = Frame{Start: f.Start, Length: f.Length}
	}
	return res, nil
}

// checkShapes verifies that both sets agree on source and channel counts
// and that neither is ragged.
func checkShapes(refs, ests Signals) error {
	if len(refs) != len(ests) {
		return fmt.Errorf("%w: %d references, %d estimates", ErrShapeMismatch, len(refs), len(ests))
	}
	if len(refs) == 0 {
		return nil
	}

	nchan := len(refs[0])
	if nchan == 0 {
		return fmt.Errorf("%w: reference 0 has no channels", ErrShapeMismatch)
	}

	for _, set := range []struct {
		name string
		sig  Signals
	}{{"reference", refs}, {"estimate", ests}} {
		for s, channels := range set.sig {
			if len(channels) != nchan {
				return fmt.Errorf("%w: %s %d has %d channels, want %d", ErrShapeMismatch, set.name, s, len(channels), nchan)
			}
		}

		nsampl := len(set.sig[0][0])
		for s, channels := range set.sig {
			for c, x := range channels {
				if len(x) != nsampl {
					return fmt.Errorf("%w: %s %d channel %d has %d samples, want %d",
						ErrShapeMismatch, set.name, s, c, len(x), nsampl)
				}
			}
		}
	}
	return nil
}

func emptyResult(nsrc int) *Result {
	res := &Result{
		SDR:         make([][]float64, nsrc),
		ISR:         make([][]float64, nsrc),
		SIR:         make([][]float64, nsrc),
		SAR:         make([][]float64, nsrc),
		Permutation: [][]int{},
		Frames:      []Frame{},
		Status:      StatusEmpty,
	}
	for j := range nsrc {
		res.SDR[j] = []float64{}
		res.ISR[j] = []float64{}
		res.SIR[j] = []float64{}
		res.SAR[j] = []float64{}
	}
	return res
}

// SIMDInfo describes the vector instruction set used by the numeric kernels.
func SIMDInfo() string {
	return cpu.Info()
}
