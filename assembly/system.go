package assembly

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"github.com/notargets/QuadHeat/mesh"
	"gonum.org/v1/gonum/mat"
)

// System is the assembled global problem K·D = F. K holds an entry for
// every coupling of Pattern, F one value per node.
type System struct {
	K       *sparse.DOK
	F       []float64
	N       int
	Pattern *mesh.Pattern

	// Enforced is set once Dirichlet values have been eliminated; K and F
	// are frozen afterwards
	Enforced bool
}

// NewSystem returns a zeroed system sized for the pattern
func NewSystem(p *mesh.Pattern) *System {
	n := p.N()
	return &System{
		K:       sparse.NewDOK(n, n),
		F:       make([]float64, n),
		N:       n,
		Pattern: p,
	}
}

// Dims satisfies the solver's matrix interface
func (s *System) Dims() (r, c int) { return s.N, s.N }

// At returns K[i][j]
func (s *System) At(i, j int) float64 { return s.K.At(i, j) }

// DoNonZero visits the stored entries in row-major pattern order
func (s *System) DoNonZero(fn func(i, j int, v float64)) {
	for i, row := range s.Pattern.Rows {
		for _, j := range row {
			fn(i, j, s.K.At(i, j))
		}
	}
}

// IsSymmetric compares K[i][j] with K[j][i] relative to the largest entry
func (s *System) IsSymmetric(tol float64) bool {
	scale := 0.
	s.DoNonZero(func(_, _ int, v float64) {
		scale = math.Max(scale, math.Abs(v))
	})
	if scale == 0 {
		scale = 1
	}
	for i, row := range s.Pattern.Rows {
		for _, j := range row {
			if j <= i {
				continue
			}
			if math.Abs(s.K.At(i, j)-s.K.At(j, i)) > tol*scale {
				return false
			}
		}
	}
	return true
}

// MulVec returns K·x
func (s *System) MulVec(x []float64) []float64 {
	if len(x) != s.N {
		panic(fmt.Sprintf("MulVec: length %d, system size %d", len(x), s.N))
	}
	y := make([]float64, s.N)
	for i, row := range s.Pattern.Rows {
		for _, j := range row {
			y[i] += s.K.At(i, j) * x[j]
		}
	}
	return y
}

// Dense copies K into a dense matrix
func (s *System) Dense() *mat.Dense {
	d := mat.NewDense(s.N, s.N, nil)
	s.DoNonZero(func(i, j int, v float64) {
		d.Set(i, j, v)
	})
	return d
}

// CSR returns K in compressed sparse row form
func (s *System) CSR() *sparse.CSR {
	return s.K.ToCSR()
}

func (s *System) String() string {
	return fmt.Sprintf("System: %d DOFs, %d stored couplings, bandwidth %d",
		s.N, s.Pattern.NNZ(), s.Pattern.Bandwidth())
}
