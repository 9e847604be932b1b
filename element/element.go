package element

import "gonum.org/v1/gonum/mat"

// Dimensionality represents the spatial dimension of an element
type Dimensionality uint8

const (
	D0 Dimensionality = iota // 0D elements (points)
	D1                       // 1D elements (lines, edges)
	D2                       // 2D elements (triangles, quadrilaterals)
	D3                       // 3D elements (tetrahedra, hexahedra, etc.)
)

type ElementGeometry uint8

const (
	Tet ElementGeometry = iota
	Hex
	Prism
	Pyramid
	Tri
	Quad
	Line
)

func (g ElementGeometry) String() string {
	switch g {
	case Tet:
		return "Tet"
	case Hex:
		return "Hex"
	case Prism:
		return "Prism"
	case Pyramid:
		return "Pyramid"
	case Tri:
		return "Tri"
	case Quad:
		return "Quad"
	case Line:
		return "Line"
	}
	return "Unknown"
}

// ElementProperties contains metadata describing an element type
type ElementProperties struct {
	Name       string          // Full descriptive name (e.g., "Lagrange Quadrilateral Order 1")
	ShortName  string          // Abbreviated name (e.g., "Q4")
	Type       ElementGeometry // Element shape
	Order      int             // Polynomial order
	Np         int             // Total number of nodes/points in element
	NVp        int             // Number of vertex nodes (equals number of vertices)
	NFaces     int             // Number of faces (edges in 2D) in each element
	Dimensions Dimensionality  // Spatial dimension (1D, 2D, or 3D)
}

// ReferenceElement defines element properties and basis in reference space [-1,1]^d
type ReferenceElement interface {
	GetProperties() ElementProperties
	GetReferenceGeometry() ReferenceGeometry

	// Basis evaluation at an arbitrary reference point
	Value(node int, xi1, xi2 float64) float64
	Gradient(node int, xi1, xi2 float64) [2]float64
}

// Matrices returns the reference basis values and gradients sampled at the
// given reference points as [Np × Npts] matrices, one row per local node
func Matrices(el ReferenceElement, xi1, xi2 []float64) (N, dN1, dN2 *mat.Dense) {
	np := el.GetProperties().Np
	npts := len(xi1)
	N = mat.NewDense(np, npts, nil)
	dN1 = mat.NewDense(np, npts, nil)
	dN2 = mat.NewDense(np, npts, nil)
	for a := 0; a < np; a++ {
		for q := 0; q < npts; q++ {
			N.Set(a, q, el.Value(a, xi1[q], xi2[q]))
			g := el.Gradient(a, xi1[q], xi2[q])
			dN1.Set(a, q, g[0])
			dN2.Set(a, q, g[1])
		}
	}
	return
}
