package filter

import (
	"github.com/tphakala/go-bss-eval/internal/simdops"
)

// Project filters refs ([source][channel][sample]) through bank and sums the
// contributions per output channel. Each output channel holds
// nsampl+Length-1 samples, i.e. the full convolution including the filter tail.
func Project(refs [][][]float64, bank *Bank) [][]float64 {
	nchan := len(refs[0])
	nsampl := len(refs[0][0])
	pad := bank.Length - 1
	outLen := nsampl + pad

	out := make([][]float64, nchan)
	for c := range nchan {
		out[c] = make([]float64, outLen)
	}

	scratch := make([]float64, outLen)
	padded := make([]float64, nsampl+2*pad)

	for src, channels := range bank.Taps {
		for rc, outputs := range channels {
			if !anyTaps(outputs) {
				continue
			}

			// Zero-pad both ends once per reference channel so the valid
			// convolution yields the full-length result.
			for i := range padded {
				padded[i] = 0
			}
			copy(padded[pad:], refs[src][rc])

			for c, taps := range outputs {
				if taps == nil {
					continue
				}
				ConvolveValid(scratch, padded, reversed(taps))
				simdops.AddTo(out[c], scratch)
			}
		}
	}
	return out
}

func anyTaps(outputs [][]float64) bool {
	for _, t := range outputs {
		if t != nil {
			return true
		}
	}
	return false
}
