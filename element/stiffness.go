package element

import (
	"errors"
	"fmt"

	"github.com/notargets/QuadHeat/quadrature"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidConductivity reports a κ that is not symmetric positive definite
var ErrInvalidConductivity = errors.New("invalid conductivity tensor")

// Conductivity is the 2×2 material tensor κ
type Conductivity [2][2]float64

// Isotropic returns k·I
func Isotropic(k float64) Conductivity {
	return Conductivity{{k, 0}, {0, k}}
}

// Validate requires κ symmetric positive definite
func (c Conductivity) Validate() error {
	if c[0][1] != c[1][0] {
		return fmt.Errorf("%w: not symmetric, %g != %g", ErrInvalidConductivity, c[0][1], c[1][0])
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(c.Sym()); !ok {
		return fmt.Errorf("%w: not positive definite", ErrInvalidConductivity)
	}
	return nil
}

func (c Conductivity) Sym() *mat.SymDense {
	return mat.NewSymDense(2, []float64{c[0][0], c[0][1], c[1][0], c[1][1]})
}

func (c Conductivity) Matrix() *mat.Dense {
	return mat.NewDense(2, 2, []float64{c[0][0], c[0][1], c[1][0], c[1][1]})
}

// SourceFunc is a distributed volumetric source f(x,y)
type SourceFunc func(x, y float64) float64

// ReferenceGradients returns dN/dξ at one reference point as [Np × 2]
func ReferenceGradients(xi1, xi2 float64) *mat.Dense {
	g := mat.NewDense(NumNodes, 2, nil)
	for a := 0; a < NumNodes; a++ {
		d := BasisGradient(a, xi1, xi2)
		g.Set(a, 0, d[0])
		g.Set(a, 1, d[1])
	}
	return g
}

// LocalStiffness integrates Klocal[A][B] = ∫ ∇N_A · κ · ∇N_B dΩ over one
// element. Physical gradients are obtained through the chain rule,
// ∂N_A/∂x_i = Σ_I ∂N_A/∂ξ_I J⁻¹[I][i], so at each quadrature point
//
//	Klocal += (G J⁻¹) κ (G J⁻¹)ᵀ detJ w
//
// where G is the [Np × 2] matrix of reference gradients.
func LocalStiffness(x Coords, kappa Conductivity, rule quadrature.Rule) (*mat.Dense, error) {
	var (
		K    = mat.NewDense(NumNodes, NumNodes, nil)
		kmat = kappa.Matrix()
		B    = mat.NewDense(NumNodes, 2, nil)
		BK   = mat.NewDense(NumNodes, 2, nil)
		BKB  = mat.NewDense(NumNodes, NumNodes, nil)
	)
	for _, p := range rule.Tensor() {
		geom, err := Jacobian(x, p.Xi1, p.Xi2)
		if err != nil {
			return nil, err
		}
		B.Mul(ReferenceGradients(p.Xi1, p.Xi2), geom.Inv)
		BK.Mul(B, kmat)
		BKB.Mul(BK, B.T())
		BKB.Scale(geom.Det*p.W, BKB)
		K.Add(K, BKB)
	}
	return K, nil
}

// LocalLoad integrates Flocal[A] = ∫ N_A f dΩ. A nil source contributes
// nothing and returns the zero vector.
func LocalLoad(x Coords, source SourceFunc, rule quadrature.Rule) ([]float64, error) {
	F := make([]float64, NumNodes)
	if source == nil {
		return F, nil
	}
	for _, p := range rule.Tensor() {
		geom, err := Jacobian(x, p.Xi1, p.Xi2)
		if err != nil {
			return nil, err
		}
		xp := Map(x, p.Xi1, p.Xi2)
		f := source(xp[0], xp[1]) * geom.Det * p.W
		for a := 0; a < NumNodes; a++ {
			F[a] += Basis(a, p.Xi1, p.Xi2) * f
		}
	}
	return F, nil
}

// Area integrates detJ over the element
func Area(x Coords, rule quadrature.Rule) (area float64, err error) {
	for _, p := range rule.Tensor() {
		geom, gerr := Jacobian(x, p.Xi1, p.Xi2)
		if gerr != nil {
			return 0, gerr
		}
		area += geom.Det * p.W
	}
	return
}
