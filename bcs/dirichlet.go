package bcs

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/notargets/QuadHeat/assembly"
	"github.com/notargets/QuadHeat/mesh"
)

var (
	// ErrAlreadyApplied reports a second elimination on the same system
	ErrAlreadyApplied = errors.New("boundary conditions already applied")
	// ErrUnconstrained reports a connected part of the mesh without any
	// prescribed value, which leaves K singular
	ErrUnconstrained = errors.New("unconstrained degrees of freedom")
)

// ValueFunc gives the prescribed value at a boundary point
type ValueFunc func(x, y float64) float64

// Selector decides whether a node is constrained and with which value
type Selector func(x, y float64) (value float64, ok bool)

// Dirichlet maps constrained node indices to their prescribed values. It
// is filled before assembly and only read afterwards.
type Dirichlet struct {
	Values map[int]float64
	keys   []int
}

func NewDirichlet() *Dirichlet {
	return &Dirichlet{Values: make(map[int]float64)}
}

// Set prescribes v at node k. A node set twice keeps the last value.
func (d *Dirichlet) Set(k int, v float64) {
	if _, ok := d.Values[k]; !ok {
		d.keys = nil
	}
	d.Values[k] = v
}

// Keys returns the constrained nodes in ascending order
func (d *Dirichlet) Keys() []int {
	if d.keys == nil {
		d.keys = make([]int, 0, len(d.Values))
		for k := range d.Values {
			d.keys = append(d.keys, k)
		}
		sort.Ints(d.keys)
	}
	return d.keys
}

func (d *Dirichlet) Len() int { return len(d.Values) }

// FromFunction evaluates sel once per node
func FromFunction(nodes [][2]float64, sel Selector) *Dirichlet {
	d := NewDirichlet()
	for k, p := range nodes {
		if v, ok := sel(p[0], p[1]); ok {
			d.Set(k, v)
		}
	}
	return d
}

// FromSides prescribes values on the nodes the mesh generator tagged.
// Sides are applied in Side order, so a corner shared by two sides takes
// the value of the later one.
func FromSides(m *mesh.Mesh, sides map[mesh.Side]ValueFunc) *Dirichlet {
	d := NewDirichlet()
	order := make([]mesh.Side, 0, len(sides))
	for s := range sides {
		order = append(order, s)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	for _, s := range order {
		fn := sides[s]
		for _, k := range m.BoundaryNodes(s) {
			p := m.Nodes[k]
			d.Set(k, fn(p[0], p[1]))
		}
	}
	return d
}

// OnLine reports |coord - target| <= tol·max(1, |target|)
func OnLine(coord, target, tol float64) bool {
	return math.Abs(coord-target) <= tol*math.Max(1, math.Abs(target))
}

// Apply eliminates the prescribed values symmetrically. For every
// constrained node k with value v, column k moves to the right hand side
// of the free rows, row and column k are cleared, the original diagonal
// d is kept (1 if it was not positive) and F[k] = d·v, so the solution
// reproduces v exactly and K stays symmetric. The result does not depend
// on the order in which constrained nodes are visited.
func Apply(d *Dirichlet, sys *assembly.System, pattern *mesh.Pattern) error {
	if sys.Enforced {
		return ErrAlreadyApplied
	}
	if pattern == nil {
		pattern = sys.Pattern
	}
	if pattern.N() != sys.N {
		return fmt.Errorf("pattern has %d rows, system %d", pattern.N(), sys.N)
	}
	keys := d.Keys()
	for _, k := range keys {
		if k < 0 || k >= sys.N {
			return fmt.Errorf("%w: constrained node %d outside [0,%d)", assembly.ErrIndexOutOfRange, k, sys.N)
		}
	}

	// Move known columns to the right hand side using the unmodified K
	for i, row := range pattern.Rows {
		if _, fixed := d.Values[i]; fixed {
			continue
		}
		for _, k := range row {
			if v, fixed := d.Values[k]; fixed {
				sys.F[i] -= sys.K.At(i, k) * v
			}
		}
	}

	for _, k := range keys {
		diag := sys.K.At(k, k)
		if diag <= 0 {
			diag = 1
		}
		for _, j := range pattern.Rows[k] {
			sys.K.Set(k, j, 0)
			sys.K.Set(j, k, 0)
		}
		sys.K.Set(k, k, diag)
		sys.F[k] = diag * d.Values[k]
	}
	sys.Enforced = true
	return nil
}

// CheckCoverage returns ErrUnconstrained when a connected component of the
// coupling graph holds no constrained node
func CheckCoverage(d *Dirichlet, pattern *mesh.Pattern) error {
	label, n := pattern.Components()
	covered := make([]bool, n)
	for k := range d.Values {
		if k >= 0 && k < len(label) {
			covered[label[k]] = true
		}
	}
	var missing []int
	for c, ok := range covered {
		if !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	free := 0
	for _, l := range label {
		if !covered[l] {
			free++
		}
	}
	return fmt.Errorf("%w: %d of %d components (%d nodes) have no prescribed value",
		ErrUnconstrained, len(missing), n, free)
}
