package assembly

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"github.com/notargets/QuadHeat/element"
	"github.com/notargets/QuadHeat/mesh"
	"gonum.org/v1/gonum/mat"
)

// Accumulator stores matrix values aligned with the rows of a sparsity
// pattern. Rows own separate storage, so goroutines adding elements that
// share no node may run without locking.
type Accumulator struct {
	pattern *mesh.Pattern
	vals    [][]float64
	F       []float64
}

func NewAccumulator(p *mesh.Pattern) *Accumulator {
	a := &Accumulator{
		pattern: p,
		vals:    make([][]float64, p.N()),
		F:       make([]float64, p.N()),
	}
	for i, row := range p.Rows {
		a.vals[i] = make([]float64, len(row))
	}
	return a
}

// Add accumulates v into K[i][j]
func (a *Accumulator) Add(i, j int, v float64) error {
	if i < 0 || i >= len(a.vals) {
		return fmt.Errorf("%w: row %d outside [0,%d)", ErrIndexOutOfRange, i, len(a.vals))
	}
	row := a.pattern.Rows[i]
	p := sort.SearchInts(row, j)
	if p == len(row) || row[p] != j {
		return fmt.Errorf("%w: (%d,%d) not in sparsity pattern", ErrIndexOutOfRange, i, j)
	}
	a.vals[i][p] += v
	return nil
}

// AddElement scatters one element's local matrix and load vector
func (a *Accumulator) AddElement(conn [element.NumNodes]int, Ke *mat.Dense, Fe []float64) error {
	for A, gA := range conn {
		for B, gB := range conn {
			if err := a.Add(gA, gB, Ke.At(A, B)); err != nil {
				return err
			}
		}
		a.F[gA] += Fe[A]
	}
	return nil
}

// ToDOK copies every pattern entry, zeros included, into a DOK matrix
func (a *Accumulator) ToDOK() *sparse.DOK {
	n := a.pattern.N()
	K := sparse.NewDOK(n, n)
	for i, row := range a.pattern.Rows {
		for p, j := range row {
			K.Set(i, j, a.vals[i][p])
		}
	}
	return K
}
