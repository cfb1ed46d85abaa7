package filter

import (
	"github.com/tphakala/go-bss-eval/internal/mathutil"
	"github.com/tphakala/go-bss-eval/internal/simdops"
	"github.com/tphakala/simd/c128"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Correlation constants.
const (
	// Below this amount of work ((2·maxLag+1)·signalLen multiply-adds per pair)
	// direct dot products beat the FFT round trip.
	directCorrelationWork = 1 << 16

	// fftHermitianDivisor is used to calculate unique frequency bins in real FFT.
	// Due to Hermitian symmetry, a real FFT of size N has N/2 + 1 unique complex coefficients.
	fftHermitianDivisor = 2
)

// Correlator computes the short-lag part of linear cross-correlations,
//
//	xcorr_ab(k) = Σ_n a[n]·b[n+k],  k ∈ [-maxLag, maxLag],
//
// for signals of a fixed maximum length. Spectra are computed once per
// signal and shared by every pair it takes part in, which is what makes
// assembling the normal equations affordable for long frames.
//
// A Correlator owns scratch buffers and must not be shared between goroutines.
type Correlator struct {
	fft     *fourier.FFT
	fftSize int
	maxLag  int
	scale   float64 // 1/fftSize (gonum's inverse FFT doesn't normalize)
	direct  bool

	// Working buffers
	padded  []float64
	product []complex128
	seq     []float64
}

// NewCorrelator creates a correlator for signals of up to signalLen samples.
// The FFT size is the next power of two that holds signalLen+maxLag samples,
// which keeps the circular wrap clear of every lag we read back.
func NewCorrelator(signalLen, maxLag int) *Correlator {
	c := &Correlator{
		maxLag: maxLag,
		direct: (2*maxLag+1)*signalLen <= directCorrelationWork,
	}
	if c.direct {
		return c
	}

	c.fftSize = mathutil.NextPowerOfTwo(signalLen + maxLag)
	c.fft = fourier.NewFFT(c.fftSize)
	c.scale = 1.0 / float64(c.fftSize)

	fftLen := c.fftSize/fftHermitianDivisor + 1
	c.padded = make([]float64, c.fftSize)
	c.product = make([]complex128, fftLen)
	c.seq = make([]float64, c.fftSize)
	return c
}

// Lags returns the number of values written by Cross: 2·maxLag+1.
func (c *Correlator) Lags() int {
	return 2*c.maxLag + 1
}

// Direct reports whether the correlator works in the time domain.
func (c *Correlator) Direct() bool {
	return c.direct
}

// Operand is a signal prepared for correlation. In FFT mode it carries the
// zero-padded spectrum; in direct mode only the samples.
type Operand struct {
	samples  []float64
	spectrum []complex128
}

// Prepare transforms x once so it can take part in any number of Cross calls.
func (c *Correlator) Prepare(x []float64) Operand {
	op := Operand{samples: x}
	if c.direct {
		return op
	}

	for i := range c.padded {
		c.padded[i] = 0
	}
	copy(c.padded, x)
	op.spectrum = c.fft.Coefficients(nil, c.padded)
	return op
}

// Cross writes xcorr_ab(k) into dst[maxLag+k] for k ∈ [-maxLag, maxLag].
// dst must hold at least Lags() values.
func (c *Correlator) Cross(dst []float64, a, b Operand) {
	if c.direct {
		crossDirect(dst, a.samples, b.samples, c.maxLag)
		return
	}

	// IFFT(B·conj(A))[k] = Σ_n a[n]·b[n+k]
	c128.MulConj(c.product, b.spectrum, a.spectrum)
	c.seq = c.fft.Sequence(c.seq, c.product)
	simdops.Scale(c.seq, c.seq, c.scale)

	// Non-negative lags sit at the start, negative lags wrap to the end.
	for k := 0; k <= c.maxLag; k++ {
		dst[c.maxLag+k] = c.seq[k]
	}
	for k := 1; k <= c.maxLag; k++ {
		dst[c.maxLag-k] = c.seq[c.fftSize-k]
	}
}

// CrossDirect computes the same lags as Correlator.Cross with plain dot
// products. It is the reference the FFT path is checked against.
func CrossDirect(a, b []float64, maxLag int) []float64 {
	dst := make([]float64, 2*maxLag+1)
	crossDirect(dst, a, b, maxLag)
	return dst
}

func crossDirect(dst, a, b []float64, maxLag int) {
	for k := -maxLag; k <= maxLag; k++ {
		var v float64
		switch {
		case k >= 0 && k < len(b):
			// Σ_n a[n]·b[n+k]
			v = simdops.Dot(a, b[k:])
		case k < 0 && -k < len(a):
			// Σ_m a[m-k]·b[m]
			v = simdops.Dot(a[-k:], b)
		}
		dst[maxLag+k] = v
	}
}
