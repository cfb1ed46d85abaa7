// Package align reconciles sample counts between reference and estimate sets.
package align

// PadOrTruncate returns copies of refs and ests whose per-channel sample
// counts all equal the reference length. Estimates longer than the reference
// are truncated, shorter ones are zero-padded at the end. The reference
// length is never changed and neither input is modified.
//
// Signals are indexed [source][channel][sample]. The reference length is
// taken from the first reference channel; ragged inputs are the caller's
// responsibility and are rejected before this point.
func PadOrTruncate(refs, ests [][][]float64) (alignedRefs, alignedEsts [][][]float64) {
	n := Length(refs)
	return cloneSet(refs, n), cloneSet(ests, n)
}

// Length returns the number of samples of the first channel of the first
// source, or 0 for an empty set.
func Length(set [][][]float64) int {
	if len(set) == 0 || len(set[0]) == 0 {
		return 0
	}
	return len(set[0][0])
}

// Fit returns a copy of x with exactly n samples.
func Fit(x []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, x)
	return out
}

func cloneSet(set [][][]float64, n int) [][][]float64 {
	out := make([][][]float64, len(set))
	for s, channels := range set {
		out[s] = make([][]float64, len(channels))
		for c, x := range channels {
			out[s][c] = Fit(x, n)
		}
	}
	return out
}
