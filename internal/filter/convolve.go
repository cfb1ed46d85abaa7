package filter

import (
	"github.com/tphakala/go-bss-eval/internal/mathutil"
	"github.com/tphakala/go-bss-eval/internal/simdops"
	"github.com/tphakala/simd/c128"
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT convolution constants.
const (
	// Minimum kernel length to use FFT convolution (below this, direct is faster).
	// Benchmarking shows crossover around 400-500 taps with gonum FFT.
	minKernelForFFT = 400

	// Default FFT block size (power of 2 for efficiency)
	defaultFFTBlockSize = 512
)

// FFTConvolver performs overlap-save FFT convolution for long filters.
// This is O(N log N) vs O(N×M) for direct convolution, beneficial for the
// 512-tap projection filters.
//
// Overlap-save method:
//  1. Process input in blocks of fftSize samples (with kernelLen-1 overlap)
//  2. Each block produces blockSize = fftSize - kernelLen + 1 valid output samples
//  3. The first kernelLen-1 output samples of each block are discarded (circular wrap)
type FFTConvolver struct {
	fft       *fourier.FFT
	fftSize   int
	blockSize int // Valid output samples per block = fftSize - kernelLen + 1

	// Precomputed kernel in frequency domain
	kernelFFT []complex128
	kernelLen int
	scale     float64 // 1/fftSize for IFFT normalization (gonum doesn't normalize)

	// Working buffers (pre-allocated for zero allocation during processing)
	signalBlock []float64
	signalFFT   []complex128
	productFFT  []complex128
	ifftResult  []float64
}

// NewFFTConvolver creates a new FFT convolver for the given kernel.
// The kernel is transformed once and reused for all convolutions.
func NewFFTConvolver(kernel []float64) *FFTConvolver {
	kernelLen := len(kernel)
	if kernelLen == 0 {
		return nil
	}

	fftSize := max(defaultFFTBlockSize, mathutil.NextPowerOfTwo(2*kernelLen))
	fft := fourier.NewFFT(fftSize)

	// Reverse the kernel so the circular convolution computes the "valid"
	// product y[n] = Σ x[n+k]·h[k], matching simdops.ConvolveValid.
	kernelPadded := make([]float64, fftSize)
	for i := range kernelLen {
		kernelPadded[i] = kernel[kernelLen-1-i]
	}

	fftLen := fftSize/fftHermitianDivisor + 1

	return &FFTConvolver{
		fft:         fft,
		fftSize:     fftSize,
		blockSize:   fftSize - kernelLen + 1,
		kernelFFT:   fft.Coefficients(nil, kernelPadded),
		kernelLen:   kernelLen,
		scale:       1.0 / float64(fftSize),
		signalBlock: make([]float64, fftSize),
		signalFFT:   make([]complex128, fftLen),
		productFFT:  make([]complex128, fftLen),
		ifftResult:  make([]float64, fftSize),
	}
}

// Convolve performs overlap-save convolution.
// dst must have length >= len(signal) - kernelLen + 1
func (c *FFTConvolver) Convolve(dst, signal []float64) {
	signalLen := len(signal)
	outputLen := signalLen - c.kernelLen + 1
	if outputLen <= 0 || len(dst) < outputLen {
		return
	}

	outIdx := 0
	overlap := c.kernelLen - 1

	for outIdx < outputLen {
		for i := range c.signalBlock {
			c.signalBlock[i] = 0
		}

		copyLen := min(c.fftSize, signalLen-outIdx)
		if copyLen > 0 {
			copy(c.signalBlock, signal[outIdx:outIdx+copyLen])
		}

		c.signalFFT = c.fft.Coefficients(c.signalFFT, c.signalBlock)
		c128.Mul(c.productFFT, c.signalFFT, c.kernelFFT)
		c.ifftResult = c.fft.Sequence(c.ifftResult, c.productFFT)
		simdops.Scale(c.ifftResult, c.ifftResult, c.scale)

		// Valid output samples start at offset 'overlap' (= kernelLen - 1)
		validSamples := min(c.blockSize, outputLen-outIdx)
		copy(dst[outIdx:outIdx+validSamples], c.ifftResult[overlap:overlap+validSamples])

		outIdx += validSamples
	}
}

// ConvolveValid computes dst[n] = Σ signal[n+k]·kernel[k], using FFT
// convolution when the kernel is long enough to benefit.
func ConvolveValid(dst, signal, kernel []float64) {
	if len(kernel) < minKernelForFFT {
		simdops.ConvolveValid(dst, signal, kernel)
		return
	}

	if conv := NewFFTConvolver(kernel); conv != nil {
		conv.Convolve(dst, signal)
	}
}

// ConvolveFull returns the full linear convolution of x with h
// (length len(x)+len(h)-1).
func ConvolveFull(x, h []float64) []float64 {
	if len(x) == 0 || len(h) == 0 {
		return nil
	}
	pad := len(h) - 1
	padded := make([]float64, len(x)+2*pad)
	copy(padded[pad:], x)
	out := make([]float64, len(x)+pad)
	ConvolveValid(out, padded, reversed(h))
	return out
}

func reversed(h []float64) []float64 {
	r := make([]float64, len(h))
	for i, v := range h {
		r[len(h)-1-i] = v
	}
	return r
}
