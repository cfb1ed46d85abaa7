package align

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSet(rng *rand.Rand, nsrc, nchan, nsampl int) [][][]float64 {
	set := make([][][]float64, nsrc)
	for s := range nsrc {
		set[s] = make([][]float64, nchan)
		for c := range nchan {
			set[s][c] = make([]float64, nsampl)
			for i := range nsampl {
				set[s][c][i] = rng.Float64()
			}
		}
	}
	return set
}

// TestPadOrTruncate mirrors the museval shape check for longer and shorter estimates.
func TestPadOrTruncate(t *testing.T) {
	const (
		nsrc   = 2
		nchan  = 2
		nsampl = 1000
	)

	for _, diff := range []int{-10, 10} {
		rng := rand.New(rand.NewPCG(1, uint64(diff+100)))
		refs := randomSet(rng, nsrc, nchan, nsampl)
		ests := randomSet(rng, nsrc, nchan, nsampl+diff)

		r, e := PadOrTruncate(refs, ests)

		require.Len(t, e, nsrc)
		for s := range nsrc {
			for c := range nchan {
				assert.Len(t, r[s][c], nsampl)
				assert.Len(t, e[s][c], nsampl)
				assert.Equal(t, refs[s][c], r[s][c], "reference must be unchanged")
			}
		}
	}
}

// TestPadOrTruncate_PadIsZero checks the padded tail and that inputs are not mutated.
func TestPadOrTruncate_PadIsZero(t *testing.T) {
	refs := [][][]float64{{{1, 2, 3, 4, 5}}}
	ests := [][][]float64{{{9, 8}}}

	_, e := PadOrTruncate(refs, ests)

	assert.Equal(t, []float64{9, 8, 0, 0, 0}, e[0][0])
	assert.Equal(t, []float64{9, 8}, ests[0][0], "input must not be modified")
}

// TestPadOrTruncate_Idempotent verifies pad-then-truncate is lossless.
func TestPadOrTruncate_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	short := randomSet(rng, 3, 1, 400)
	long := randomSet(rng, 3, 1, 512)

	_, padded := PadOrTruncate(long, short)
	_, restored := PadOrTruncate(short, padded)

	assert.Equal(t, short, restored)
}

func TestPadOrTruncate_Empty(t *testing.T) {
	r, e := PadOrTruncate(nil, nil)
	assert.Empty(t, r)
	assert.Empty(t, e)
	assert.Zero(t, Length(nil))
}
