package mathutil

// Decibel conversion constants
const (
	// powerDBFactor converts a power (energy) ratio to decibels: 10·log10(r).
	powerDBFactor = 10.0

	// amplitudeDBFactor converts an amplitude ratio to decibels: 20·log10(r).
	amplitudeDBFactor = 20.0
)

// Power-of-two sizing
const (
	minPowerOfTwo  = 1
	powerOfTwoBase = 2
)
