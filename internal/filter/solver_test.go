package filter

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-bss-eval/internal/simdops"
)

const (
	testTaps           = 8
	testSamples        = 2000
	testRegularization = 1e-10
	filterTolerance    = 1e-6
)

// refSet builds nsrc×nchan noise references whose last taps samples are
// zero, so delayed copies fit inside the window without truncation.
func refSet(seed uint64, nsrc, nchan int) [][][]float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	refs := make([][][]float64, nsrc)
	for s := range nsrc {
		refs[s] = make([][]float64, nchan)
		for c := range nchan {
			x := noise(rng, testSamples)
			for i := testSamples - testTaps; i < testSamples; i++ {
				x[i] = 0
			}
			refs[s][c] = x
		}
	}
	return refs
}

func delayed(x []float64, d int) []float64 {
	out := make([]float64, len(x))
	copy(out[d:], x[:len(x)-d])
	return out
}

func delta(n, at int) []float64 {
	d := make([]float64, n)
	d[at] = 1
	return d
}

// TestSolver_RecoversDelay verifies the all-reference filters of a delayed
// copy of one source are a shifted delta on that source and zero elsewhere.
func TestSolver_RecoversDelay(t *testing.T) {
	refs := refSet(10, 2, 1)
	est := [][]float64{delayed(refs[0][0], 3)}

	s, err := NewSolver(refs, testTaps, false, testRegularization)
	require.NoError(t, err)

	e, err := s.Correlate(est)
	require.NoError(t, err)
	bank, err := s.Filters(e)
	require.NoError(t, err)

	assert.InDeltaSlice(t, delta(testTaps, 3), bank.Taps[0][0][0], filterTolerance)
	assert.InDeltaSlice(t, make([]float64, testTaps), bank.Taps[1][0][0], filterTolerance)

	proj := Project(refs, bank)
	require.Len(t, proj[0], testSamples+testTaps-1)
	assert.InDeltaSlice(t, est[0], proj[0][:testSamples], 1e-6)
}

// TestSolver_TargetFiltersOnlyUseTarget checks that target-only banks leave
// the other sources uncoupled.
func TestSolver_TargetFiltersOnlyUseTarget(t *testing.T) {
	refs := refSet(11, 3, 1)
	est := [][]float64{make([]float64, testSamples)}
	for i := range est[0] {
		est[0][i] = refs[1][0][i] + 0.5*refs[2][0][i]
	}

	s, err := NewSolver(refs, testTaps, false, testRegularization)
	require.NoError(t, err)
	e, err := s.Correlate(est)
	require.NoError(t, err)

	bank, err := s.TargetFilters(e, 1)
	require.NoError(t, err)

	assert.Nil(t, bank.Taps[0][0][0])
	assert.Nil(t, bank.Taps[2][0][0])
	require.NotNil(t, bank.Taps[1][0][0])
	// Independent noise: the best single-source fit is the source itself.
	assert.InDelta(t, 1.0, bank.Taps[1][0][0][0], 0.1)
}

// TestSolver_SourcesModeIsPerChannel verifies that without spatial filtering
// no cross-channel filters exist and cross-channel content is not explained.
func TestSolver_SourcesModeIsPerChannel(t *testing.T) {
	refs := refSet(12, 1, 2)
	// Swapped channels: only a spatial filter can reproduce this.
	est := [][]float64{refs[0][1], refs[0][0]}

	s, err := NewSolver(refs, testTaps, false, testRegularization)
	require.NoError(t, err)
	e, err := s.Correlate(est)
	require.NoError(t, err)
	bank, err := s.Filters(e)
	require.NoError(t, err)

	assert.Nil(t, bank.Taps[0][0][1])
	assert.Nil(t, bank.Taps[0][1][0])

	proj := Project(refs, bank)
	residual := make([]float64, testSamples)
	simdops.Sub(residual, est[0], proj[0][:testSamples])
	assert.Greater(t, simdops.Energy(residual), 0.5*simdops.Energy(est[0]))
}

// TestSolver_ImagesModeCouplesChannels verifies spatial filters reproduce a
// channel swap exactly.
func TestSolver_ImagesModeCouplesChannels(t *testing.T) {
	refs := refSet(13, 1, 2)
	est := [][]float64{refs[0][1], refs[0][0]}

	s, err := NewSolver(refs, testTaps, true, testRegularization)
	require.NoError(t, err)
	e, err := s.Correlate(est)
	require.NoError(t, err)
	bank, err := s.Filters(e)
	require.NoError(t, err)

	assert.InDeltaSlice(t, delta(testTaps, 0), bank.Taps[0][1][0], filterTolerance)
	assert.InDeltaSlice(t, delta(testTaps, 0), bank.Taps[0][0][1], filterTolerance)

	proj := Project(refs, bank)
	for c := range 2 {
		assert.InDeltaSlice(t, est[c], proj[c][:testSamples], 1e-6)
	}
}

func TestNewSolver_SilentReference(t *testing.T) {
	refs := refSet(14, 2, 1)
	refs[1][0] = make([]float64, testSamples)

	_, err := NewSolver(refs, testTaps, true, testRegularization)
	require.ErrorIs(t, err, ErrSilentReference)
	assert.Contains(t, err.Error(), "source 1")
	assert.Equal(t, 1, FirstSilent(refs))
}

func TestNewSolver_InvalidTaps(t *testing.T) {
	_, err := NewSolver(refSet(15, 1, 1), 0, true, testRegularization)
	require.ErrorIs(t, err, ErrInvalidTaps)
}

func TestSolver_CorrelateShape(t *testing.T) {
	s, err := NewSolver(refSet(16, 1, 2), testTaps, true, testRegularization)
	require.NoError(t, err)

	_, err = s.Correlate([][]float64{make([]float64, testSamples)})
	require.ErrorIs(t, err, ErrShape)

	_, err = s.Correlate([][]float64{make([]float64, 10), make([]float64, 10)})
	require.ErrorIs(t, err, ErrShape)
}

// TestSolver_LongFilterUsesFFTPaths exercises the FFT correlator and the
// overlap-save projection with a realistic filter length.
func TestSolver_LongFilterUsesFFTPaths(t *testing.T) {
	const taps = 512
	rng := rand.New(rand.NewPCG(17, 18))
	refs := [][][]float64{{noise(rng, 4000)}, {noise(rng, 4000)}}
	est := [][]float64{refs[0][0]}

	s, err := NewSolver(refs, taps, false, testRegularization)
	require.NoError(t, err)
	e, err := s.Correlate(est)
	require.NoError(t, err)
	bank, err := s.Filters(e)
	require.NoError(t, err)

	proj := Project(refs, bank)
	residual := make([]float64, 4000)
	simdops.Sub(residual, est[0], proj[0][:4000])
	assert.Less(t, simdops.Energy(residual), 1e-9*simdops.Energy(est[0]))
}
