package engine

// Frame is one analysis window: samples [Start, Start+Length).
type Frame struct {
	Start  int
	Length int
}

// Frames enumerates the analysis windows of a track with nsampl samples.
// A track shorter than one window is a single frame covering the whole
// track; an empty track has no frames. Trailing samples that do not fill a
// whole window are not evaluated.
func Frames(nsampl, win, hop int) []Frame {
	if nsampl <= 0 || win <= 0 || hop <= 0 {
		return nil
	}
	if nsampl < win {
		return []Frame{{Start: 0, Length: nsampl}}
	}

	n := (nsampl-win)/hop + 1
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = Frame{Start: i * hop, Length: win}
	}
	return frames
}

// window returns views of set ([source][channel][sample]) restricted to f.
// The views share memory with set and must not be modified.
func window(set [][][]float64, f Frame) [][][]float64 {
	out := make([][][]float64, len(set))
	for s, channels := range set {
		out[s] = make([][]float64, len(channels))
		for c, x := range channels {
			out[s][c] = x[f.Start : f.Start+f.Length]
		}
	}
	return out
}
