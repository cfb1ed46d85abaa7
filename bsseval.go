package bsseval

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tphakala/go-bss-eval/internal/engine"
	"github.com/tphakala/go-bss-eval/internal/filter"
	"github.com/tphakala/go-bss-eval/internal/permute"
)

// Signals is a set of multichannel signals indexed [source][channel][sample].
// Every source in a set must have the same channel count and every channel
// the same length.
type Signals = [][][]float64

// Mode selects how projection filters are obtained.
type Mode struct {
	// FramewiseFilters re-solves the projection filters for every analysis
	// frame. When false the filters are solved once over the whole track
	// and reused for every frame.
	FramewiseFilters bool

	// SpatialFilters couples all channels of all references when solving
	// (the image model). When false each channel is projected on its own
	// using same-channel references only, and spatial distortion is zero.
	SpatialFilters bool
}

var (
	// ModeV3 reproduces BSS Eval v3: framewise filters, per-channel projection.
	ModeV3 = Mode{FramewiseFilters: true, SpatialFilters: false}

	// ModeV4 reproduces BSS Eval v4 (museval): whole-track filters with
	// spatial projection.
	ModeV4 = Mode{FramewiseFilters: false, SpatialFilters: true}
)

// ParseMode parses "v3" or "v4" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v3":
		return ModeV3, nil
	case "v4":
		return ModeV4, nil
	default:
		return Mode{}, fmt.Errorf("%w: unknown mode %q (want v3 or v4)", ErrInvalidConfig, s)
	}
}

// String returns "v3", "v4" or a description of a custom mode.
func (m Mode) String() string {
	switch m {
	case ModeV3:
		return "v3"
	case ModeV4:
		return "v4"
	default:
		return fmt.Sprintf("framewise=%t,spatial=%t", m.FramewiseFilters, m.SpatialFilters)
	}
}

// Config holds evaluation configuration.
type Config struct {
	// Window is the analysis frame length in samples.
	// Set to 0 to evaluate the whole track as a single frame.
	Window int

	// Hop is the frame advance in samples. Set to 0 to use Window
	// (non-overlapping frames).
	Hop int

	// FilterLength is the number of taps of the projection filters,
	// i.e. the largest time shift tolerated as distortion rather than error.
	FilterLength int

	// Mode selects framewise or whole-track filters and the
	// per-channel or spatial projection model.
	Mode Mode

	// Regularization is the diagonal loading added to the normal equations,
	// relative to the mean diagonal of the Gram matrix. Zero disables the
	// relative loading; a tiny absolute floor is still applied.
	Regularization float64

	// ComputePermutation searches for the estimate/reference assignment
	// that maximises total SDR. Limited to MaxPermutationSources sources.
	ComputePermutation bool

	// SkipSilentFrames reports NaN metrics for frames in which a reference
	// or an estimate is silent instead of failing with ErrSilentReference.
	SkipSilentFrames bool

	// EnableParallel evaluates frames concurrently using goroutines.
	// Results are identical to sequential evaluation.
	EnableParallel bool

	// Workers bounds the goroutines used by EnableParallel.
	// Set to 0 to use runtime.GOMAXPROCS.
	Workers int
}

// MaxPermutationSources is the largest source count accepted when
// Config.ComputePermutation is set.
const MaxPermutationSources = permute.MaxSources

// Common errors returned by the evaluator.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid evaluation configuration")

	// ErrShapeMismatch indicates references and estimates whose source or
	// channel counts differ, or a ragged signal set.
	ErrShapeMismatch = errors.New("signal shape mismatch")

	// ErrSilentReference indicates a reference source with no energy in an
	// evaluated frame. The projection is undefined for it.
	ErrSilentReference = filter.ErrSilentReference

	// ErrTooManySources indicates a permutation search over more than
	// MaxPermutationSources sources.
	ErrTooManySources = permute.ErrTooManySources
)

// DefaultConfig returns the museval defaults: one-second windows and hops
// at 44.1 kHz, 512-tap filters and the v4 mode.
func DefaultConfig() *Config {
	return &Config{
		Window:         DefaultWindow,
		Hop:            DefaultWindow,
		FilterLength:   DefaultFilterLength,
		Mode:           ModeV4,
		Regularization: DefaultRegularization,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Window < 0 {
		return fmt.Errorf("%w: window must not be negative", ErrInvalidConfig)
	}

	if c.Hop < 0 {
		return fmt.Errorf("%w: hop must not be negative", ErrInvalidConfig)
	}

	if c.Window == 0 && c.Hop != 0 {
		return fmt.Errorf("%w: hop requires a window", ErrInvalidConfig)
	}

	if c.FilterLength < filter.MinTaps {
		return fmt.Errorf("%w: filter length must be at least %d", ErrInvalidConfig, filter.MinTaps)
	}

	if c.FilterLength > maxFilterLength {
		return fmt.Errorf("%w: filter length too large (max %d)", ErrInvalidConfig, maxFilterLength)
	}

	if c.Regularization < 0 || math.IsNaN(c.Regularization) || math.IsInf(c.Regularization, 0) {
		return fmt.Errorf("%w: regularization must be a finite non-negative number", ErrInvalidConfig)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}

	return nil
}

// options resolves the engine options for a track of nsampl samples.
func (c *Config) options(nsampl int) *engine.Options {
	win, hop := c.Window, c.Hop
	if win == 0 {
		win, hop = nsampl, nsampl
	}
	if hop == 0 {
		hop = win
	}

	return &engine.Options{
		Window:             win,
		Hop:                hop,
		Taps:               c.FilterLength,
		Regularization:     c.Regularization,
		FramewiseFilters:   c.Mode.FramewiseFilters,
		SpatialFilters:     c.Mode.SpatialFilters,
		ComputePermutation: c.ComputePermutation,
		SkipSilentFrames:   c.SkipSilentFrames,
		Parallel:           c.EnableParallel,
		Workers:            c.Workers,
	}
}
