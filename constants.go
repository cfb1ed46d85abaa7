package bsseval

import "github.com/tphakala/go-bss-eval/internal/engine"

// Default evaluation parameters
const (
	// DefaultWindow is one second at 44.1 kHz.
	DefaultWindow = 44100

	// DefaultFilterLength is the museval projection filter length.
	DefaultFilterLength = engine.DefaultTaps

	// DefaultRegularization is the relative Gram diagonal loading.
	DefaultRegularization = engine.DefaultRegularization
)

// Limits
const (
	maxFilterLength = 1 << 16 // Gram matrices grow with the square of the length
)

// Channel constants
const (
	monoChannels   = 1
	stereoChannels = 2
)
