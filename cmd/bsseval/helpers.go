package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	bsseval "github.com/tphakala/go-bss-eval"
	"github.com/tphakala/go-bss-eval/internal/permute"
	"gonum.org/v1/gonum/stat"
)

const (
	// Sample format constants
	bitsPerSample8  = 8
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// Conversion constants
	maxInt8  = 127.0
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	// Number of interleaved samples read per decoder call
	readChunkSize = 65536

	wavExtension = ".wav"
)

// stemSet holds the decoded stems of one directory.
type stemSet struct {
	signals  bsseval.Signals
	rate     int
	channels int
}

// wavInput holds a decoded WAV file as planar samples in [-1, 1].
type wavInput struct {
	channels [][]float64
	rate     int
	bitDepth int
}

// targetNames lists the WAV stems in dir, sorted by name without extension.
func targetNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), wavExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no WAV files in %s", dir)
	}
	slices.Sort(names)
	return names, nil
}

// loadStems decodes <dir>/<target>.wav for every target. All stems must
// share sample rate and channel count.
func loadStems(dir string, targets []string, verbose bool) (*stemSet, error) {
	set := &stemSet{signals: make(bsseval.Signals, len(targets))}
	for i, name := range targets {
		in, err := openWAVInput(filepath.Join(dir, name+wavExtension), verbose)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			set.rate = in.rate
			set.channels = len(in.channels)
		} else if in.rate != set.rate || len(in.channels) != set.channels {
			return nil, fmt.Errorf("%s: format %d Hz/%d ch differs from %d Hz/%d ch",
				name, in.rate, len(in.channels), set.rate, set.channels)
		}
		set.signals[i] = in.channels
	}
	return set, nil
}

// openWAVInput decodes a whole WAV file.
func openWAVInput(path string, verbose bool) (*wavInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	numChannels := format.NumChannels
	if numChannels < 1 {
		return nil, fmt.Errorf("invalid channel count %d in %s", numChannels, path)
	}

	if verbose {
		log.Printf("%s: %d Hz, %d channels, %d-bit", filepath.Base(path), format.SampleRate, numChannels, bitDepth)
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, readChunkSize*numChannels),
		Format: format,
	}

	var interleaved []int
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
		if n == 0 {
			break
		}
		interleaved = append(interleaved, buf.Data[:n]...)
	}

	return &wavInput{
		channels: deinterleave(interleaved, numChannels, 1/getMaxValue(bitDepth)),
		rate:     format.SampleRate,
		bitDepth: bitDepth,
	}, nil
}

// deinterleave converts interleaved int samples to normalized planar channels.
func deinterleave(data []int, numChannels int, invMaxVal float64) [][]float64 {
	floats := make([]float64, len(data))
	for i, v := range data {
		floats[i] = float64(v) * invMaxVal
	}
	return bsseval.Deinterleave(floats, numChannels)
}

// getMaxValue returns the maximum sample value for the given bit depth.
func getMaxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample8:
		return maxInt8
	case bitsPerSample16:
		return maxInt16
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

func secondsToSamples(seconds float64, rate int) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Round(seconds * float64(rate)))
}

// median returns the median of the non-NaN values, or NaN when there are
// none. An even count averages the two middle values. +Inf values take part
// like any other value.
func median(values []float64) float64 {
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return math.NaN()
	}
	slices.Sort(kept)
	mid := len(kept) / 2
	if len(kept)%2 == 1 {
		return kept[mid]
	}
	return stat.Mean(kept[mid-1:mid+1], nil)
}

// printSummary writes per-target median metrics.
func printSummary(w io.Writer, targets []string, res *bsseval.Result) {
	width := len("target")
	for _, name := range targets {
		width = max(width, len(name))
	}

	fmt.Fprintf(w, "%-*s %8s %8s %8s %8s\n", width, "target", "SDR", "ISR", "SIR", "SAR")
	for j, name := range targets {
		fmt.Fprintf(w, "%-*s %8.3f %8.3f %8.3f %8.3f\n", width, name,
			median(res.SDR[j]), median(res.ISR[j]), median(res.SIR[j]), median(res.SAR[j]))
	}
	if len(res.Permutation) > 0 && !slices.Equal(res.Permutation[0], permute.Identity(len(targets))) {
		fmt.Fprintf(w, "\nEstimate assignment (first frame): %v\n", res.Permutation[0])
	}
}
