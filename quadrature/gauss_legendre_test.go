package quadrature

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussLegendreTwoPoint(t *testing.T) {
	r, err := GaussLegendre(2)
	require.NoError(t, err)

	a := 1. / math.Sqrt(3.)
	assert.InDeltaSlicef(t, []float64{-a, a}, r.Points(), 1.e-14, "")
	assert.InDeltaSlicef(t, []float64{1, 1}, r.Weights(), 1.e-14, "")
	assert.Equal(t, r.Points(), Default().Points())
}

// TestGaussLegendreExactness checks that n points integrate x^k exactly
// for k <= 2n-1
func TestGaussLegendreExactness(t *testing.T) {
	for n := 1; n <= 8; n++ {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			r, err := GaussLegendre(n)
			if err != nil {
				t.Fatalf("GaussLegendre(%d): %v", n, err)
			}
			if r.Len() != n {
				t.Fatalf("expected %d points, got %d", n, r.Len())
			}
			for k := 0; k <= 2*n-1; k++ {
				got := r.Integrate(func(x float64) float64 { return math.Pow(x, float64(k)) })
				want := 0.
				if k%2 == 0 {
					want = 2. / float64(k+1)
				}
				if math.Abs(got-want) > 1.e-12 {
					t.Errorf("x^%d: got %.15f, want %.15f", k, got, want)
				}
			}
			pts := r.Points()
			for i := 1; i < len(pts); i++ {
				if pts[i] <= pts[i-1] {
					t.Errorf("points not ascending: %v", pts)
				}
			}
		})
	}
}

func TestTensorProduct(t *testing.T) {
	r := Default()
	pts := r.Tensor()
	require.Len(t, pts, 4)

	a := 1. / math.Sqrt(3.)
	// q1 outer, q2 inner
	expected := [][2]float64{{-a, -a}, {-a, a}, {a, -a}, {a, a}}
	var wsum float64
	for i, p := range pts {
		assert.InDelta(t, expected[i][0], p.Xi1, 1.e-14)
		assert.InDelta(t, expected[i][1], p.Xi2, 1.e-14)
		wsum += p.W
	}
	// area of the reference square
	assert.InDelta(t, 4., wsum, 1.e-13)
}

func TestNewRuleErrors(t *testing.T) {
	_, err := NewRule(nil, nil)
	assert.Error(t, err)
	_, err = NewRule([]float64{0}, []float64{1, 1})
	assert.Error(t, err)
	_, err = GaussLegendre(0)
	assert.Error(t, err)
}

func TestJacobiGQGaussJacobi(t *testing.T) {
	// alpha=1, beta=0: weights must integrate (1-x) exactly
	x, w := JacobiGQ(1, 0, 3)
	var sum float64
	for i := range x {
		sum += w[i]
	}
	assert.InDelta(t, Gamma0(1, 0), sum, 1.e-12)
	assert.InDelta(t, 2., Gamma0(1, 0), 1.e-14)
}
