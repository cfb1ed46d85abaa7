// Package filter builds and solves the normal equations behind BSS_EVAL's
// projection filters.
//
// For an analysis window the estimate is modelled as a sum of FIR-filtered
// reference channels. The least-squares filters solve
//
//	(G + λI)·C = D
//
// where G is the (block-)Toeplitz Gram matrix of time-shifted references and
// D the cross-correlation of every shifted reference with the estimate. G is
// factorized once per window and reused for every estimate; the target-only
// systems are sub-blocks of the same G.
package filter

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-bss-eval/internal/simdops"
	"gonum.org/v1/gonum/mat"
)

// Solver constants.
const (
	// MinTaps is the shortest accepted projection filter.
	MinTaps = 1

	// silentEnergy is the total energy at or below which a source counts as silent.
	silentEnergy = 1e-20

	// fallbackRegularization is used when the Gram trace is zero.
	fallbackRegularization = 1e-12
)

var (
	// ErrSilentReference indicates a reference source with no energy in the
	// analysed window. Its normal-equation block is singular.
	ErrSilentReference = errors.New("silent reference source")

	// ErrInvalidTaps indicates a non-positive filter length.
	ErrInvalidTaps = errors.New("invalid filter length")

	// ErrShape indicates an estimate whose channel count or length does not
	// match the solver's references.
	ErrShape = errors.New("estimate shape does not match references")
)

// Bank is a set of projection filters.
// Taps[src][refChan][outChan] is the FIR filter applied to reference channel
// refChan of source src when reconstructing output channel outChan; nil when
// that pair is not coupled (other sources in target-only banks, cross-channel
// pairs in sources mode).
type Bank struct {
	Length int
	Taps   [][][][]float64
}

func newBank(nsrc, nchan, taps int) *Bank {
	b := &Bank{Length: taps, Taps: make([][][][]float64, nsrc)}
	for s := range nsrc {
		b.Taps[s] = make([][][]float64, nchan)
		for c := range nchan {
			b.Taps[s][c] = make([][]float64, nchan)
		}
	}
	return b
}

// basisSignal identifies one reference channel taking part in a system.
type basisSignal struct {
	src, ch int
}

// system is a regularized, factorized square system over a subset of a
// group's basis.
type system struct {
	members []int // indices into group.basis, in row order
	a       *mat.SymDense
	chol    mat.Cholesky
	ok      bool
}

// group is one independent least-squares problem. Images mode has a single
// group coupling all channels; sources mode has one group per channel.
type group struct {
	basis   []basisSignal
	outputs []int // estimate channels predicted by this group
	all     *system
	targets []*system // indexed by source
}

// Solver holds the factorized normal equations for one window of references.
type Solver struct {
	taps    int
	spatial bool
	nsrc    int
	nchan   int
	nsampl  int
	reg     float64

	corr     *Correlator
	operands [][]Operand // [src][ch]
	groups   []*group
}

// NewSolver prepares the projection systems for refs ([source][channel][sample]).
//
// When spatial is false each channel is solved on its own with same-channel
// references only; otherwise every channel of every reference contributes to
// every output channel. regularization is the diagonal loading relative to
// the mean Gram diagonal.
//
// A reference source whose energy is (effectively) zero makes the system
// undefined; NewSolver reports it as ErrSilentReference.
func NewSolver(refs [][][]float64, taps int, spatial bool, regularization float64) (*Solver, error) {
	if taps < MinTaps {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTaps, taps)
	}
	if src := FirstSilent(refs); src >= 0 {
		return nil, fmt.Errorf("%w: source %d", ErrSilentReference, src)
	}

	s := &Solver{
		taps:    taps,
		spatial: spatial,
		nsrc:    len(refs),
		nchan:   len(refs[0]),
		nsampl:  len(refs[0][0]),
		reg:     regularization,
	}
	s.corr = NewCorrelator(s.nsampl, taps-1)

	s.operands = make([][]Operand, s.nsrc)
	for src := range s.nsrc {
		s.operands[src] = make([]Operand, s.nchan)
		for ch := range s.nchan {
			s.operands[src][ch] = s.corr.Prepare(refs[src][ch])
		}
	}

	s.groups = s.layout()
	for _, g := range s.groups {
		s.factorize(g)
	}
	return s, nil
}

// layout enumerates the independent systems for the configured mode.
func (s *Solver) layout() []*group {
	if s.spatial {
		g := &group{}
		for src := range s.nsrc {
			for ch := range s.nchan {
				g.basis = append(g.basis, basisSignal{src, ch})
			}
		}
		for ch := range s.nchan {
			g.outputs = append(g.outputs, ch)
		}
		return []*group{g}
	}

	groups := make([]*group, s.nchan)
	for ch := range s.nchan {
		g := &group{outputs: []int{ch}}
		for src := range s.nsrc {
			g.basis = append(g.basis, basisSignal{src, ch})
		}
		groups[ch] = g
	}
	return groups
}

// factorize assembles the group's Gram matrix and factorizes the full and
// per-source target systems.
func (s *Solver) factorize(g *group) {
	gram := s.gram(g.basis)

	members := make([]int, len(g.basis))
	for i := range members {
		members[i] = i
	}
	g.all = s.newSystem(gram, members)

	g.targets = make([]*system, s.nsrc)
	for src := range s.nsrc {
		var own []int
		for i, b := range g.basis {
			if b.src == src {
				own = append(own, i)
			}
		}
		g.targets[src] = s.newSystem(gram, own)
	}
}

// gram builds G[(p,τ),(q,τ')] = xcorr_pq(τ-τ') for the given basis.
func (s *Solver) gram(basis []basisSignal) *mat.SymDense {
	l := s.taps
	n := len(basis) * l
	g := mat.NewSymDense(n, nil)
	lags := make([]float64, s.corr.Lags())
	maxLag := l - 1

	for bp, p := range basis {
		for bq := bp; bq < len(basis); bq++ {
			q := basis[bq]
			s.corr.Cross(lags, s.operands[p.src][p.ch], s.operands[q.src][q.ch])
			for tau := range l {
				start := 0
				if bp == bq {
					start = tau
				}
				for tau2 := start; tau2 < l; tau2++ {
					g.SetSym(bp*l+tau, bq*l+tau2, lags[maxLag+tau-tau2])
				}
			}
		}
	}
	return g
}

// newSystem extracts the sub-matrix for members, loads its diagonal and
// attempts a Cholesky factorization.
func (s *Solver) newSystem(gram *mat.SymDense, members []int) *system {
	l := s.taps
	n := len(members) * l
	a := mat.NewSymDense(n, nil)

	var trace float64
	for i := range n {
		ri := members[i/l]*l + i%l
		for j := i; j < n; j++ {
			rj := members[j/l]*l + j%l
			a.SetSym(i, j, gram.At(ri, rj))
		}
		trace += a.At(i, i)
	}

	lambda := s.reg * trace / float64(n)
	if lambda <= 0 {
		lambda = fallbackRegularization
	}
	for i := range n {
		a.SetSym(i, i, a.At(i, i)+lambda)
	}

	sys := &system{members: members, a: a}
	sys.ok = sys.chol.Factorize(a)
	return sys
}

// solve returns the solution of the system for right-hand side b. Cholesky
// is used when the matrix factorized as positive definite, otherwise a
// general LU/QR solve.
func (sys *system) solve(b *mat.Dense) (*mat.Dense, error) {
	var x mat.Dense
	if sys.ok {
		err := sys.chol.SolveTo(&x, b)
		if err == nil || isCondition(err) {
			return &x, nil
		}
	}
	var y mat.Dense
	if err := y.Solve(sys.a, b); err != nil && !isCondition(err) {
		return nil, fmt.Errorf("solving projection system: %w", err)
	}
	return &y, nil
}

// isCondition reports whether err only warns about a poorly conditioned
// matrix; the result is still usable in that case.
func isCondition(err error) bool {
	var cond mat.Condition
	return errors.As(err, &cond)
}

// Estimate holds the right-hand sides of every group for one estimate.
type Estimate struct {
	rhs []*mat.Dense // per group: rows basis×taps, cols outputs
}

// Correlate builds the cross-correlation right-hand sides for an estimate
// ([channel][sample]) against the solver's references.
func (s *Solver) Correlate(est [][]float64) (*Estimate, error) {
	if len(est) != s.nchan {
		return nil, fmt.Errorf("%w: %d channels, want %d", ErrShape, len(est), s.nchan)
	}
	for ch, x := range est {
		if len(x) != s.nsampl {
			return nil, fmt.Errorf("%w: channel %d has %d samples, want %d", ErrShape, ch, len(x), s.nsampl)
		}
	}

	estOps := make([]Operand, s.nchan)
	for ch := range s.nchan {
		estOps[ch] = s.corr.Prepare(est[ch])
	}

	l := s.taps
	maxLag := l - 1
	lags := make([]float64, s.corr.Lags())

	e := &Estimate{rhs: make([]*mat.Dense, len(s.groups))}
	for gi, g := range s.groups {
		d := mat.NewDense(len(g.basis)*l, len(g.outputs), nil)
		for bp, p := range g.basis {
			for oi, out := range g.outputs {
				s.corr.Cross(lags, s.operands[p.src][p.ch], estOps[out])
				for tau := range l {
					d.Set(bp*l+tau, oi, lags[maxLag+tau])
				}
			}
		}
		e.rhs[gi] = d
	}
	return e, nil
}

// Filters solves for the filters that reconstruct the estimate from all references.
func (s *Solver) Filters(e *Estimate) (*Bank, error) {
	bank := newBank(s.nsrc, s.nchan, s.taps)
	for gi, g := range s.groups {
		if err := s.solveInto(bank, g, g.all, e.rhs[gi]); err != nil {
			return nil, err
		}
	}
	return bank, nil
}

// TargetFilters solves for the filters that reconstruct the estimate from
// reference src alone.
func (s *Solver) TargetFilters(e *Estimate, src int) (*Bank, error) {
	bank := newBank(s.nsrc, s.nchan, s.taps)
	for gi, g := range s.groups {
		sys := g.targets[src]
		if len(sys.members) == 0 {
			continue
		}
		if err := s.solveInto(bank, g, sys, rowsOf(e.rhs[gi], sys.members, s.taps)); err != nil {
			return nil, err
		}
	}
	return bank, nil
}

func (s *Solver) solveInto(bank *Bank, g *group, sys *system, rhs *mat.Dense) error {
	x, err := sys.solve(rhs)
	if err != nil {
		return err
	}

	l := s.taps
	for mi, member := range sys.members {
		b := g.basis[member]
		for oi, out := range g.outputs {
			taps := make([]float64, l)
			for tau := range l {
				taps[tau] = x.At(mi*l+tau, oi)
			}
			bank.Taps[b.src][b.ch][out] = taps
		}
	}
	return nil
}

// rowsOf gathers the tap rows belonging to members.
func rowsOf(d *mat.Dense, members []int, taps int) *mat.Dense {
	_, cols := d.Dims()
	out := mat.NewDense(len(members)*taps, cols, nil)
	for mi, member := range members {
		for tau := range taps {
			for c := range cols {
				out.Set(mi*taps+tau, c, d.At(member*taps+tau, c))
			}
		}
	}
	return out
}

// FirstSilent returns the index of the first source in set
// ([source][channel][sample]) whose total energy is effectively zero, or -1.
func FirstSilent(set [][][]float64) int {
	for src, channels := range set {
		if IsSilent(channels) {
			return src
		}
	}
	return -1
}

// IsSilent reports whether a multichannel signal has effectively zero energy.
func IsSilent(channels [][]float64) bool {
	return simdops.EnergyMulti(channels) <= silentEnergy
}
