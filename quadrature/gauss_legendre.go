package quadrature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Rule is a one dimensional quadrature rule on the reference interval [-1,1]
type Rule struct {
	points  []float64
	weights []float64
}

// Point is one integration point of a tensor product rule on [-1,1]^2
type Point struct {
	Xi1, Xi2 float64
	W        float64 // product of the two 1D weights
}

// NewRule wraps explicit abscissas and weights
func NewRule(points, weights []float64) (Rule, error) {
	if len(points) == 0 {
		return Rule{}, fmt.Errorf("quadrature rule needs at least one point")
	}
	if len(points) != len(weights) {
		return Rule{}, fmt.Errorf("quadrature rule has %d points but %d weights",
			len(points), len(weights))
	}
	r := Rule{
		points:  make([]float64, len(points)),
		weights: make([]float64, len(weights)),
	}
	copy(r.points, points)
	copy(r.weights, weights)
	return r, nil
}

// GaussLegendre returns the n point Gauss-Legendre rule, exact for
// polynomials up to degree 2n-1. Points are in ascending order.
func GaussLegendre(n int) (Rule, error) {
	if n < 1 {
		return Rule{}, fmt.Errorf("invalid number of Gauss points: %d", n)
	}
	x, w := JacobiGQ(0, 0, n-1)
	return NewRule(x, w)
}

// Default is the 2 point rule used for bilinear elements: ±1/√3, weights 1
func Default() Rule {
	r, err := GaussLegendre(2)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rule) Len() int { return len(r.points) }

// Points returns a copy of the abscissas
func (r Rule) Points() []float64 {
	p := make([]float64, len(r.points))
	copy(p, r.points)
	return p
}

// Weights returns a copy of the weights
func (r Rule) Weights() []float64 {
	w := make([]float64, len(r.weights))
	copy(w, r.weights)
	return w
}

// Tensor expands the rule into the full tensor product on [-1,1]^2.
// The first coordinate varies slowest, matching a q1 outer / q2 inner loop.
func (r Rule) Tensor() []Point {
	n := len(r.points)
	pts := make([]Point, 0, n*n)
	for q1 := 0; q1 < n; q1++ {
		for q2 := 0; q2 < n; q2++ {
			pts = append(pts, Point{
				Xi1: r.points[q1],
				Xi2: r.points[q2],
				W:   r.weights[q1] * r.weights[q2],
			})
		}
	}
	return pts
}

// Integrate applies the rule to f on [-1,1]
func (r Rule) Integrate(f func(float64) float64) (sum float64) {
	for i, x := range r.points {
		sum += r.weights[i] * f(x)
	}
	return
}

// JacobiGQ computes the N+1 point Gauss quadrature for the Jacobi weight
// (1-x)^alpha (1+x)^beta. The nodes are the eigenvalues of the symmetric
// tridiagonal Jacobi matrix, the weights come from the first component of
// each eigenvector.
func JacobiGQ(alpha, beta float64, N int) (X, W []float64) {
	var (
		x          []float64
		fac        float64
		h1, d0, d1 []float64
		VVr        *mat.Dense
	)
	if N == 0 {
		x = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w := []float64{2.}
		return x, w
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: d0[i] = -(β²-α²)/((2i+α+β)*(2i+α+β+2))
	d0 = make([]float64, N+1)
	fac = (beta*beta - alpha*alpha)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}

	// 0/0 at i=0 for the Legendre case
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 := float64(i + 1)
		val := h1[i]
		d1[i] = 2.0 / (val + 2.0) * math.Sqrt(
			ip1*(ip1+alpha+beta)*(ip1+alpha)*(ip1+beta)/(val+1)/(val+3),
		)
	}

	JJ := NewSymTriDiagonal(d0, d1)

	var eig mat.EigenSym
	ok := eig.Factorize(JJ, true)
	if !ok {
		panic("eigenvalue decomposition failed")
	}
	x = eig.Values(x)

	VVr = mat.NewDense(len(x), len(x), nil)
	eig.VectorsTo(VVr)
	W = make([]float64, len(x))
	copy(W, VVr.RawRowView(0))
	g0 := Gamma0(alpha, beta)
	for i := range W {
		W[i] *= W[i] * g0
	}
	return x, W
}

// Gamma0 is the integral of the Jacobi weight over [-1,1]
func Gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

// NewSymTriDiagonal builds a symmetric matrix with main diagonal d0 and
// first off diagonal d1
func NewSymTriDiagonal(d0, d1 []float64) (Tri *mat.SymDense) {
	n := len(d0)
	Tri = mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		Tri.SetSym(i, i, d0[i])
		if i < n-1 {
			Tri.SetSym(i, i+1, d1[i])
		}
	}
	return
}
