package element

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/QuadHeat/quadrature"
	"gonum.org/v1/gonum/mat"
)

// MinDet is the smallest accepted ratio det(J) / (|J·e1|·|J·e2|), the sine
// of the angle between the mapped reference axes. It does not depend on the
// element size.
const MinDet = 1.0e-14

// ErrDegenerateGeometry reports an inverted or zero-area element: the
// reference to physical mapping is not invertible
var ErrDegenerateGeometry = errors.New("degenerate element geometry")

// Coords holds the physical coordinates of the element nodes in local order
type Coords [NumNodes][2]float64

// Geometry is the isoparametric map evaluated at one reference point
type Geometry struct {
	J   *mat.Dense // ∂x_i/∂ξ_j [2 × 2]
	Inv *mat.Dense // ∂ξ_i/∂x_j [2 × 2]
	Det float64
}

// Jacobian computes J_ij = Σ_A x_i(A) ∂N_A/∂ξ_j at (ξ1,ξ2) with its
// determinant and inverse. A determinant at or below MinDet relative to the
// lengths of the Jacobian columns returns ErrDegenerateGeometry.
func Jacobian(x Coords, xi1, xi2 float64) (g Geometry, err error) {
	g.J = mat.NewDense(2, 2, nil)
	for a := 0; a < NumNodes; a++ {
		dN := BasisGradient(a, xi1, xi2)
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				g.J.Set(i, j, g.J.At(i, j)+x[a][i]*dN[j])
			}
		}
	}
	g.Det = mat.Det(g.J)
	scale := math.Hypot(g.J.At(0, 0), g.J.At(1, 0)) * math.Hypot(g.J.At(0, 1), g.J.At(1, 1))
	if g.Det <= MinDet*scale {
		err = fmt.Errorf("%w: det(J) = %g at (%g, %g)", ErrDegenerateGeometry, g.Det, xi1, xi2)
		return
	}
	g.Inv = mat.NewDense(2, 2, nil)
	if err = g.Inv.Inverse(g.J); err != nil {
		err = fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}
	return
}

// Map returns the physical point x(ξ) = Σ_A N_A(ξ) x(A)
func Map(x Coords, xi1, xi2 float64) (p [2]float64) {
	for a := 0; a < NumNodes; a++ {
		n := Basis(a, xi1, xi2)
		p[0] += n * x[a][0]
		p[1] += n * x[a][1]
	}
	return
}

// GeometricTransform holds the inverse Jacobian terms and determinant at
// every quadrature point of every element of a mesh.
// Dimension of every matrix: [Nq × K], column k contains element k.
type GeometricTransform struct {
	Rx, Ry mat.Matrix // ∂ξ1/∂x, ∂ξ1/∂y
	Sx, Sy mat.Matrix // ∂ξ2/∂x, ∂ξ2/∂y
	J      mat.Matrix // |∂(x,y)/∂(ξ1,ξ2)|

	IsAffine []bool // Length K: true if element k has constant metric terms
}

// ComputeGeometricTransform evaluates the metric terms for all elements.
// It stops at the first element with a degenerate mapping.
func ComputeGeometricTransform(nodes [][2]float64, elements [][NumNodes]int,
	rule quadrature.Rule) (gt GeometricTransform, err error) {
	var (
		pts = rule.Tensor()
		nq  = len(pts)
		K   = len(elements)
	)
	if K == 0 {
		err = fmt.Errorf("no elements")
		return
	}
	rx := mat.NewDense(nq, K, nil)
	ry := mat.NewDense(nq, K, nil)
	sx := mat.NewDense(nq, K, nil)
	sy := mat.NewDense(nq, K, nil)
	jd := mat.NewDense(nq, K, nil)
	gt.IsAffine = make([]bool, K)

	for k, conn := range elements {
		x, cerr := Gather(nodes, conn)
		if cerr != nil {
			return gt, fmt.Errorf("element %d: %w", k, cerr)
		}
		for q, p := range pts {
			g, gerr := Jacobian(x, p.Xi1, p.Xi2)
			if gerr != nil {
				return gt, fmt.Errorf("element %d: %w", k, gerr)
			}
			rx.Set(q, k, g.Inv.At(0, 0))
			ry.Set(q, k, g.Inv.At(0, 1))
			sx.Set(q, k, g.Inv.At(1, 0))
			sy.Set(q, k, g.Inv.At(1, 1))
			jd.Set(q, k, g.Det)
		}
		gt.IsAffine[k] = isParallelogram(x)
	}
	gt.Rx, gt.Ry, gt.Sx, gt.Sy, gt.J = rx, ry, sx, sy, jd
	return
}

// Gather copies the coordinates of one element's nodes in local order
func Gather(nodes [][2]float64, conn [NumNodes]int) (x Coords, err error) {
	for a, n := range conn {
		if n < 0 || n >= len(nodes) {
			err = fmt.Errorf("node index %d outside [0,%d)", n, len(nodes))
			return
		}
		x[a] = nodes[n]
	}
	return
}

// isParallelogram reports whether the bilinear map degenerates to an affine one
func isParallelogram(x Coords) bool {
	const tol = 1.e-12
	// x0 + x3 == x1 + x2
	for i := 0; i < 2; i++ {
		d := x[0][i] + x[3][i] - x[1][i] - x[2][i]
		if d > tol || d < -tol {
			return false
		}
	}
	return true
}
