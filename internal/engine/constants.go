package engine

// Decomposition constants
const (
	// energyFloor is the fraction of a frame's signal energy (estimate plus
	// target reference) below which a component energy is numerical residue
	// from the regularized solve and is reported as exactly zero. It sits
	// above the worst-case regularization residual (λ/4 of the filter norm)
	// and resolves ratios up to about 97 dB.
	energyFloor = 1e-10
)

// Default evaluation parameters
const (
	// DefaultTaps is the projection filter length.
	DefaultTaps = 512

	// DefaultRegularization is the Gram diagonal loading relative to its mean diagonal.
	DefaultRegularization = 1e-10
)
