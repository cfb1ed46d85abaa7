package bsseval

// EvaluateV3 evaluates with framewise filters and per-channel projection,
// the BSS Eval v3 behaviour. window and hop are in samples; 0 means the
// whole track.
func EvaluateV3(refs, ests Signals, window, hop int) (*Result, error) {
	return evaluateMode(refs, ests, ModeV3, window, hop)
}

// EvaluateV4 evaluates with whole-track filters and spatial projection,
// the museval (BSS Eval v4) behaviour.
func EvaluateV4(refs, ests Signals, window, hop int) (*Result, error) {
	return evaluateMode(refs, ests, ModeV4, window, hop)
}

func evaluateMode(refs, ests Signals, mode Mode, window, hop int) (*Result, error) {
	config := DefaultConfig()
	config.Mode = mode
	config.Window = window
	config.Hop = hop
	return Evaluate(refs, ests, config)
}

// EvaluateMono evaluates single-channel sources given as [source][sample].
// A nil config uses DefaultConfig.
func EvaluateMono(refs, ests [][]float64, config *Config) (*Result, error) {
	return Evaluate(asMono(refs), asMono(ests), config)
}

// EvaluateStereo evaluates sources given as interleaved stereo
// [L0, R0, L1, R1, ...] per source.
func EvaluateStereo(refs, ests [][]float64, config *Config) (*Result, error) {
	return Evaluate(deinterleaveAll(refs, stereoChannels), deinterleaveAll(ests, stereoChannels), config)
}

func asMono(sources [][]float64) Signals {
	out := make(Signals, len(sources))
	for s, x := range sources {
		out[s] = [][]float64{x}
	}
	return out
}

func deinterleaveAll(sources [][]float64, channels int) Signals {
	out := make(Signals, len(sources))
	for s, x := range sources {
		out[s] = Deinterleave(x, channels)
	}
	return out
}

// Deinterleave converts interleaved frames [c0, c1, ..., c0, c1, ...] into
// planar channels. Trailing samples that do not complete a frame are dropped.
func Deinterleave(interleaved []float64, channels int) [][]float64 {
	if channels < monoChannels {
		return nil
	}
	numSamples := len(interleaved) / channels
	out := make([][]float64, channels)
	for c := range out {
		out[c] = make([]float64, numSamples)
	}
	for i := range numSamples {
		for c := range channels {
			out[c][i] = interleaved[i*channels+c]
		}
	}
	return out
}

// Interleave converts planar channels to interleaved frames. The output
// length is set by the shortest channel.
func Interleave(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	numSamples := len(channels[0])
	for _, ch := range channels[1:] {
		numSamples = min(numSamples, len(ch))
	}
	result := make([]float64, numSamples*len(channels))
	for i := range numSamples {
		for c, ch := range channels {
			result[i*len(channels)+c] = ch[i]
		}
	}
	return result
}

// FromFloat32 widens float32 planar channels to float64.
func FromFloat32(channels [][]float32) [][]float64 {
	out := make([][]float64, len(channels))
	for c, ch := range channels {
		out[c] = make([]float64, len(ch))
		for i, v := range ch {
			out[c][i] = float64(v)
		}
	}
	return out
}
