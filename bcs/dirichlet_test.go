package bcs

import (
	"testing"

	"github.com/notargets/QuadHeat/assembly"
	"github.com/notargets/QuadHeat/element"
	"github.com/notargets/QuadHeat/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assembled(t *testing.T, nx, ny int) (*mesh.Mesh, *assembly.System) {
	m, err := mesh.NewRectangle(nx, ny, [2]float64{0, 0}, [2]float64{1, 2})
	require.NoError(t, err)
	m = m.Distort(0.15, 5)
	sys, err := assembly.Assemble(m, assembly.Uniform(element.Conductivity{{2, 0.3}, {0.3, 1}}),
		assembly.Options{Source: func(x, y float64) float64 { return x - y }})
	require.NoError(t, err)
	return m, sys
}

func TestFromSides(t *testing.T) {
	m, err := mesh.NewRectangle(2, 2, [2]float64{0, 0}, [2]float64{1, 1})
	require.NoError(t, err)
	d := FromSides(m, map[mesh.Side]ValueFunc{
		mesh.Top:    func(x, y float64) float64 { return 10 + x },
		mesh.Bottom: func(x, y float64) float64 { return 0 },
		mesh.Left:   func(x, y float64) float64 { return -1 },
	})
	// left is applied last, so it owns the corners 0 and 6
	assert.Equal(t, []int{0, 1, 2, 3, 6, 7, 8}, d.Keys())
	assert.Equal(t, -1., d.Values[0])
	assert.Equal(t, -1., d.Values[6])
	assert.Equal(t, 0., d.Values[2])
	assert.Equal(t, 11., d.Values[8])
	assert.Equal(t, 7, d.Len())
}

func TestFromFunction(t *testing.T) {
	m, err := mesh.NewRectangle(15, 40, [2]float64{0, 0}, [2]float64{0.03, 0.08})
	require.NoError(t, err)
	d := FromFunction(m.Nodes, func(x, y float64) (float64, bool) {
		switch {
		case OnLine(y, 0, 1.e-12):
			return 300 * (1 + x/3), true
		case OnLine(y, 0.08, 1.e-12):
			return 310 * (1 + 8*x*x), true
		}
		return 0, false
	})
	assert.Equal(t, 32, d.Len())
	sides := FromSides(m, map[mesh.Side]ValueFunc{
		mesh.Bottom: func(x, y float64) float64 { return 300 * (1 + x/3) },
		mesh.Top:    func(x, y float64) float64 { return 310 * (1 + 8*x*x) },
	})
	assert.Equal(t, sides.Values, d.Values)
}

func TestOnLine(t *testing.T) {
	assert.True(t, OnLine(0.08, 0.08, 0))
	assert.True(t, OnLine(0.1+0.2, 0.3, 1.e-12))
	assert.False(t, OnLine(0.3001, 0.3, 1.e-12))
	assert.True(t, OnLine(1000.0000001, 1000, 1.e-9))
}

func TestApply(t *testing.T) {
	m, sys := assembled(t, 4, 5)
	orig := sys.Dense()
	origF := append([]float64(nil), sys.F...)
	d := FromSides(m, map[mesh.Side]ValueFunc{
		mesh.Bottom: func(x, y float64) float64 { return 1 + x },
		mesh.Top:    func(x, y float64) float64 { return 2 * x * x },
	})
	require.NoError(t, CheckCoverage(d, sys.Pattern))
	require.NoError(t, Apply(d, sys, sys.Pattern))
	assert.True(t, sys.Enforced)
	assert.True(t, sys.IsSymmetric(1.e-14))

	for i := 0; i < sys.N; i++ {
		vi, fi := d.Values[i]
		for _, j := range sys.Pattern.Rows[i] {
			_, fj := d.Values[j]
			switch {
			case fi && i == j:
				assert.Equal(t, orig.At(i, i), sys.At(i, i))
			case fi || fj:
				assert.Equal(t, 0., sys.At(i, j), "(%d,%d)", i, j)
			default:
				assert.Equal(t, orig.At(i, j), sys.At(i, j))
			}
		}
		if fi {
			assert.InDelta(t, orig.At(i, i)*vi, sys.F[i], 1.e-12)
			continue
		}
		want := origF[i]
		for _, k := range sys.Pattern.Rows[i] {
			if v, ok := d.Values[k]; ok {
				want -= orig.At(i, k) * v
			}
		}
		assert.InDelta(t, want, sys.F[i], 1.e-12)
	}

	assert.ErrorIs(t, Apply(d, sys, nil), ErrAlreadyApplied)
}

func TestApplyIndexChecks(t *testing.T) {
	_, sys := assembled(t, 2, 2)
	d := NewDirichlet()
	d.Set(0, 1)
	d.Set(sys.N, 1)
	assert.ErrorIs(t, Apply(d, sys, nil), assembly.ErrIndexOutOfRange)
	assert.False(t, sys.Enforced)
}

func TestApplyZeroDiagonal(t *testing.T) {
	m, err := mesh.NewRectangle(1, 1, [2]float64{0, 0}, [2]float64{1, 1})
	require.NoError(t, err)
	sys := assembly.NewSystem(m.SparsityPattern())
	d := NewDirichlet()
	d.Set(2, 5)
	require.NoError(t, Apply(d, sys, nil))
	assert.Equal(t, 1., sys.At(2, 2))
	assert.Equal(t, 5., sys.F[2])
}

func TestCheckCoverage(t *testing.T) {
	verts := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {3, 0}, {4, 0}, {4, 1}, {3, 1}}
	m, err := mesh.FromCells(verts, [][4]int{{0, 1, 2, 3}, {4, 5, 6, 7}})
	require.NoError(t, err)
	p := m.SparsityPattern()

	d := NewDirichlet()
	d.Set(0, 1)
	err = CheckCoverage(d, p)
	assert.ErrorIs(t, err, ErrUnconstrained)
	assert.Contains(t, err.Error(), "1 of 2 components (4 nodes)")

	d.Set(5, 2)
	assert.NoError(t, CheckCoverage(d, p))
	assert.ErrorIs(t, CheckCoverage(NewDirichlet(), p), ErrUnconstrained)
}

func TestKeysTrackUpdates(t *testing.T) {
	d := NewDirichlet()
	d.Set(4, 1)
	d.Set(1, 1)
	assert.Equal(t, []int{1, 4}, d.Keys())
	d.Set(4, 3)
	d.Set(2, 0)
	assert.Equal(t, []int{1, 2, 4}, d.Keys())
}
