package element

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/notargets/QuadHeat/quadrature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var unitSquare = Coords{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

func TestCornerSignTable(t *testing.T) {
	// bottom-left, bottom-right, top-left, top-right
	expected := [NumNodes][2]float64{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	assert.Equal(t, expected, CornerSigns)

	// Kronecker property: N_A(corner_B) = δ_AB
	for a := 0; a < NumNodes; a++ {
		for b := 0; b < NumNodes; b++ {
			want := 0.
			if a == b {
				want = 1.
			}
			got := Basis(a, CornerSigns[b][0], CornerSigns[b][1])
			if got != want {
				t.Errorf("N_%d at corner %d = %g, want %g", a, b, got, want)
			}
		}
	}
}

func TestPartitionOfUnity(t *testing.T) {
	n := 11
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			xi1 := -1 + 2*float64(i)/float64(n-1)
			xi2 := -1 + 2*float64(j)/float64(n-1)
			var sum float64
			var gsum [2]float64
			for a := 0; a < NumNodes; a++ {
				sum += Basis(a, xi1, xi2)
				g := BasisGradient(a, xi1, xi2)
				gsum[0] += g[0]
				gsum[1] += g[1]
			}
			if math.Abs(sum-1) > 1.e-12 {
				t.Errorf("Σ N_A(%g,%g) = %.15f", xi1, xi2, sum)
			}
			if math.Abs(gsum[0]) > 1.e-12 || math.Abs(gsum[1]) > 1.e-12 {
				t.Errorf("Σ ∇N_A(%g,%g) = %v", xi1, xi2, gsum)
			}
		}
	}
}

func TestBasisGradientFiniteDifference(t *testing.T) {
	h := 1.e-6
	xi1, xi2 := 0.3, -0.7
	for a := 0; a < NumNodes; a++ {
		g := BasisGradient(a, xi1, xi2)
		d1 := (Basis(a, xi1+h, xi2) - Basis(a, xi1-h, xi2)) / (2 * h)
		d2 := (Basis(a, xi1, xi2+h) - Basis(a, xi1, xi2-h)) / (2 * h)
		assert.InDelta(t, d1, g[0], 1.e-9)
		assert.InDelta(t, d2, g[1], 1.e-9)
	}
}

func TestBasisPanicsOutsideRange(t *testing.T) {
	assert.Panics(t, func() { Basis(4, 0, 0) })
	assert.Panics(t, func() { BasisGradient(-1, 0, 0) })
}

func TestQ4ReferenceElement(t *testing.T) {
	var el ReferenceElement = Q4{}
	props := el.GetProperties()
	assert.Equal(t, 4, props.Np)
	assert.Equal(t, Quad, props.Type)
	assert.Equal(t, D2, props.Dimensions)

	geom := el.GetReferenceGeometry()
	assert.Equal(t, []float64{-1, 1, -1, 1}, geom.R)
	assert.Equal(t, []float64{-1, -1, 1, 1}, geom.S)

	N, dN1, dN2 := Matrices(el, geom.R, geom.S)
	assert.True(t, mat.EqualApprox(N, eye(4), 1.e-15))
	r, c := dN1.Dims()
	assert.Equal(t, [2]int{4, 4}, [2]int{r, c})
	// columns of the gradient matrices sum to zero
	for q := 0; q < 4; q++ {
		assert.InDelta(t, 0., mat.Sum(dN1.ColView(q)), 1.e-15)
		assert.InDelta(t, 0., mat.Sum(dN2.ColView(q)), 1.e-15)
	}
}

func TestJacobian(t *testing.T) {
	t.Run("unit square", func(t *testing.T) {
		g, err := Jacobian(unitSquare, 0.2, -0.4)
		require.NoError(t, err)
		assert.InDeltaSlicef(t, []float64{0.5, 0, 0, 0.5}, g.J.RawMatrix().Data, 1.e-15, "")
		assert.InDeltaSlicef(t, []float64{2, 0, 0, 2}, g.Inv.RawMatrix().Data, 1.e-14, "")
		assert.InDelta(t, 0.25, g.Det, 1.e-15)
	})

	t.Run("general quadrilateral", func(t *testing.T) {
		x := Coords{{0, 0}, {2, 0.1}, {0.2, 1.5}, {2.4, 1.8}}
		xi1, xi2 := 0.1, 0.3
		g, err := Jacobian(x, xi1, xi2)
		require.NoError(t, err)
		// compare with finite differences of the map
		h := 1.e-6
		for j := 0; j < 2; j++ {
			var p1, p0 [2]float64
			if j == 0 {
				p1, p0 = Map(x, xi1+h, xi2), Map(x, xi1-h, xi2)
			} else {
				p1, p0 = Map(x, xi1, xi2+h), Map(x, xi1, xi2-h)
			}
			for i := 0; i < 2; i++ {
				assert.InDelta(t, (p1[i]-p0[i])/(2*h), g.J.At(i, j), 1.e-8)
			}
		}
		var prod mat.Dense
		prod.Mul(g.J, g.Inv)
		assert.True(t, mat.EqualApprox(&prod, eye(2), 1.e-13))
	})

	t.Run("degenerate", func(t *testing.T) {
		cases := map[string]Coords{
			"inverted":  {{0, 0}, {0, 1}, {1, 0}, {1, 1}}, // mirrored numbering
			"zero area": {{0, 0}, {1, 0}, {2, 0}, {3, 0}},
			"collapsed": {{0, 0}, {0, 0}, {0, 0}, {0, 0}},
		}
		for name, x := range cases {
			_, err := Jacobian(x, 0, 0)
			if !errors.Is(err, ErrDegenerateGeometry) {
				t.Errorf("%s: expected ErrDegenerateGeometry, got %v", name, err)
			}
		}
	})

	t.Run("size independent", func(t *testing.T) {
		for _, h := range []float64{1.e-9, 1.e-7, 1., 1.e6} {
			x := Coords{{0, 0}, {h, 0}, {0, h}, {h, h}}
			g, err := Jacobian(x, -0.5, 0.5)
			require.NoError(t, err, "h = %g", h)
			assert.InDelta(t, 0.25*h*h, g.Det, 1.e-15*h*h)

			K, err := LocalStiffness(x, Isotropic(1), quadrature.Default())
			require.NoError(t, err, "h = %g", h)
			assert.InDelta(t, 2./3., K.At(0, 0), 1.e-12)
			assert.InDelta(t, -1./3., K.At(0, 3), 1.e-12)

			// same size, sliver with a 1e-16 corner angle
			_, err = Jacobian(Coords{{0, 0}, {h, 0}, {h, 1.e-16 * h}, {2 * h, 1.e-16 * h}}, 0, 0)
			assert.ErrorIs(t, err, ErrDegenerateGeometry, "h = %g", h)
			_, err = Jacobian(Coords{{0, 0}, {0, 0}, {0, 0}, {0, 0}}, 0, 0)
			assert.ErrorIs(t, err, ErrDegenerateGeometry)
		}
	})
}

// TestLocalStiffnessUnitSquare checks the analytic bilinear conductance
// matrix of a unit square with unit conductivity
func TestLocalStiffnessUnitSquare(t *testing.T) {
	K, err := LocalStiffness(unitSquare, Isotropic(1), quadrature.Default())
	require.NoError(t, err)

	a, e, d := 2./3., -1./6., -1./3.
	expected := []float64{
		a, e, e, d,
		e, a, d, e,
		e, d, a, e,
		d, e, e, a,
	}
	assert.InDeltaSlicef(t, expected, K.RawMatrix().Data, 1.e-14, "")
}

func TestLocalStiffnessProperties(t *testing.T) {
	rule := quadrature.Default()
	distorted := Coords{{0, 0}, {2, 0.1}, {0.2, 1.5}, {2.4, 1.8}}

	t.Run("anisotropic rectangle", func(t *testing.T) {
		a, b := 2., 1.
		kx, ky := 3., 5.
		x := Coords{{0, 0}, {a, 0}, {0, b}, {a, b}}
		K, err := LocalStiffness(x, Conductivity{{kx, 0}, {0, ky}}, rule)
		require.NoError(t, err)
		assert.InDelta(t, kx*b/(3*a)+ky*a/(3*b), K.At(0, 0), 1.e-13)
	})

	for name, x := range map[string]Coords{"square": unitSquare, "distorted": distorted} {
		t.Run(name, func(t *testing.T) {
			kappa := Conductivity{{4, 1}, {1, 2}}
			K, err := LocalStiffness(x, kappa, rule)
			require.NoError(t, err)
			// symmetric
			assert.True(t, mat.EqualApprox(K, K.T(), 1.e-13))
			// constants are in the null space
			for A := 0; A < NumNodes; A++ {
				assert.InDelta(t, 0., mat.Sum(K.RowView(A)), 1.e-12)
			}
			// positive semi-definite: u·Ku >= 0 for a few vectors
			for _, u := range [][]float64{{1, 0, 0, 0}, {1, -1, 2, 0.5}, {0, 1, 1, 0}} {
				v := mat.NewVecDense(4, u)
				assert.GreaterOrEqual(t, mat.Inner(v, K, v), 0.)
			}
		})
	}

	t.Run("rotation invariance", func(t *testing.T) {
		th := math.Pi / 6
		c, s := math.Cos(th), math.Sin(th)
		var rotated Coords
		for a, p := range unitSquare {
			rotated[a] = [2]float64{c*p[0] - s*p[1] + 3, s*p[0] + c*p[1] - 1}
		}
		K0, err := LocalStiffness(unitSquare, Isotropic(2), rule)
		require.NoError(t, err)
		K1, err := LocalStiffness(rotated, Isotropic(2), rule)
		require.NoError(t, err)
		assert.InDeltaSlicef(t, K0.RawMatrix().Data, K1.RawMatrix().Data, 1.e-13, "")
	})

	t.Run("degenerate element", func(t *testing.T) {
		_, err := LocalStiffness(Coords{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, Isotropic(1), rule)
		assert.ErrorIs(t, err, ErrDegenerateGeometry)
	})
}

func TestLocalLoad(t *testing.T) {
	rule := quadrature.Default()
	F, err := LocalLoad(unitSquare, nil, rule)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, F)

	F, err = LocalLoad(unitSquare, func(x, y float64) float64 { return 1 }, rule)
	require.NoError(t, err)
	assert.InDeltaSlicef(t, []float64{0.25, 0.25, 0.25, 0.25}, F, 1.e-15, "")

	// linear source: ∫ f dΩ = Σ F_A
	x := Coords{{0, 0}, {2, 0.1}, {0.2, 1.5}, {2.4, 1.8}}
	F, err = LocalLoad(x, func(x, y float64) float64 { return 1 + x + 2*y }, rule)
	require.NoError(t, err)
	var total float64
	for _, f := range F {
		total += f
	}
	var exact float64
	for _, p := range rule.Tensor() {
		g, _ := Jacobian(x, p.Xi1, p.Xi2)
		xp := Map(x, p.Xi1, p.Xi2)
		exact += (1 + xp[0] + 2*xp[1]) * g.Det * p.W
	}
	assert.InDelta(t, exact, total, 1.e-12)
}

func TestArea(t *testing.T) {
	area, err := Area(Coords{{0, 0}, {2, 0}, {0.5, 1}, {2.5, 1}}, quadrature.Default())
	require.NoError(t, err)
	assert.InDelta(t, 2., area, 1.e-14)
}

func TestConductivityValidate(t *testing.T) {
	assert.NoError(t, Isotropic(385).Validate())
	assert.NoError(t, Conductivity{{2, 1}, {1, 2}}.Validate())
	assert.Error(t, Conductivity{{1, 2}, {0, 1}}.Validate())
	assert.Error(t, Conductivity{{1, 2}, {2, 1}}.Validate())
	assert.ErrorIs(t, Isotropic(0).Validate(), ErrInvalidConductivity)
}

func TestComputeGeometricTransform(t *testing.T) {
	nodes := [][2]float64{{0, 0}, {1, 0}, {3, 0}, {0, 1}, {1, 1}, {2.5, 1.5}}
	elements := [][NumNodes]int{{0, 1, 3, 4}, {1, 2, 4, 5}}
	gt, err := ComputeGeometricTransform(nodes, elements, quadrature.Default())
	require.NoError(t, err)

	r, c := gt.J.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []bool{true, false}, gt.IsAffine)
	for q := 0; q < r; q++ {
		assert.InDelta(t, 0.25, gt.J.At(q, 0), 1.e-15)
		assert.InDelta(t, 2., gt.Rx.At(q, 0), 1.e-14)
		assert.InDelta(t, 0., gt.Ry.At(q, 0), 1.e-14)
		assert.InDelta(t, 2., gt.Sy.At(q, 0), 1.e-14)
	}

	bad := [][NumNodes]int{{0, 1, 3, 4}, {1, 4, 2, 5}}
	_, err = ComputeGeometricTransform(nodes, bad, quadrature.Default())
	assert.ErrorIs(t, err, ErrDegenerateGeometry)
	assert.Contains(t, err.Error(), fmt.Sprintf("element %d", 1))

	_, err = ComputeGeometricTransform(nodes, [][NumNodes]int{{0, 1, 3, 9}}, quadrature.Default())
	assert.Error(t, err)
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
