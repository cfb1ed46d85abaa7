// Package permute resolves the assignment between estimated and reference
// sources by exhaustive search.
//
// The search visits all n! permutations, so n is capped at MaxSources. Callers
// must run Check before doing any expensive work.
package permute

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

const (
	// MaxSources is the largest source count accepted for permutation search
	// (9! = 362880 candidates).
	MaxSources = 9

	// maxScoreDB bounds per-pair scores so ±Inf and NaN cannot poison sums.
	maxScoreDB = 1000.0
)

// ErrTooManySources indicates a permutation search that would not finish in
// reasonable time.
var ErrTooManySources = errors.New("too many sources for permutation search")

// Check fails fast when n sources cannot be searched exhaustively.
func Check(n int) error {
	if n > MaxSources {
		return fmt.Errorf("%w: %d sources (max %d)", ErrTooManySources, n, MaxSources)
	}
	return nil
}

// Identity returns the identity permutation of length n.
func Identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// Each calls fn for every permutation of 0..n-1 in lexicographic order,
// starting with the identity. The slice passed to fn is reused between calls.
func Each(n int, fn func(perm []int)) {
	gen := combin.NewPermutationGenerator(n, n)
	p := make([]int, n)
	for gen.Next() {
		fn(gen.Permutation(p))
	}
}

// Score maps a decibel value onto a finite ranking score. NaN ranks lowest.
func Score(db float64) float64 {
	switch {
	case math.IsNaN(db):
		return -maxScoreDB
	case db > maxScoreDB:
		return maxScoreDB
	case db < -maxScoreDB:
		return -maxScoreDB
	default:
		return db
	}
}

// Best returns the permutation perm maximising Σ_j scores[perm[j]][j], where
// scores[est][ref] is the (already ranked) quality of estimate est against
// reference ref. perm[j] is the estimate assigned to reference j. Ties keep
// the lexicographically first candidate, so the identity wins when nothing
// distinguishes the assignments.
func Best(scores [][]float64) ([]int, error) {
	n := len(scores)
	if err := Check(n); err != nil {
		return nil, err
	}

	best := Identity(n)
	bestScore := total(scores, best)
	Each(n, func(perm []int) {
		if t := total(scores, perm); t > bestScore {
			bestScore = t
			copy(best, perm)
		}
	})
	return best, nil
}

func total(scores [][]float64, perm []int) float64 {
	var t float64
	for ref, est := range perm {
		t += scores[est][ref]
	}
	return t
}
