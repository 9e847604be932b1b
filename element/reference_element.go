package element

import "fmt"

// NumNodes is the number of nodes (and scalar DOFs) of a bilinear quadrilateral
const NumNodes = 4

// CornerSigns maps local node index to the sign pair (s1, s2) of its corner
// in the reference square. Local numbering:
//
//	2 --- 3
//	|     |
//	0 --- 1
//
// i.e. bottom-left, bottom-right, top-left, top-right. Element connectivity
// tuples and the Jacobian orientation both depend on this table.
var CornerSigns = [NumNodes][2]float64{
	{-1, -1},
	{+1, -1},
	{-1, +1},
	{+1, +1},
}

// Basis evaluates N_A(ξ1,ξ2) = ¼(1 + s1 ξ1)(1 + s2 ξ2)
func Basis(node int, xi1, xi2 float64) float64 {
	s := corner(node)
	return 0.25 * (1 + s[0]*xi1) * (1 + s[1]*xi2)
}

// BasisGradient evaluates (∂N_A/∂ξ1, ∂N_A/∂ξ2)
func BasisGradient(node int, xi1, xi2 float64) [2]float64 {
	s := corner(node)
	return [2]float64{
		0.25 * s[0] * (1 + s[1]*xi2),
		0.25 * s[1] * (1 + s[0]*xi1),
	}
}

func corner(node int) [2]float64 {
	if node < 0 || node >= NumNodes {
		panic(fmt.Sprintf("basis node %d outside 0..%d", node, NumNodes-1))
	}
	return CornerSigns[node]
}

// ReferenceGeometry defines the layout of nodes in reference space [-1,1]^d
type ReferenceGeometry struct {
	R, S []float64 // Length Np each

	VertexPoints []int   // Indices of nodes located at vertices
	EdgePoints   [][]int // [edge_num][point_indices], counter-clockwise from the bottom edge
}

// Q4 is the bilinear Lagrange quadrilateral
type Q4 struct{}

func (Q4) GetProperties() ElementProperties {
	return ElementProperties{
		Name:       "Lagrange Quadrilateral Order 1",
		ShortName:  "Q4",
		Type:       Quad,
		Order:      1,
		Np:         NumNodes,
		NVp:        NumNodes,
		NFaces:     4,
		Dimensions: D2,
	}
}

func (Q4) GetReferenceGeometry() ReferenceGeometry {
	g := ReferenceGeometry{
		R:            make([]float64, NumNodes),
		S:            make([]float64, NumNodes),
		VertexPoints: []int{0, 1, 2, 3},
		EdgePoints:   [][]int{{0, 1}, {1, 3}, {3, 2}, {2, 0}},
	}
	for a, s := range CornerSigns {
		g.R[a], g.S[a] = s[0], s[1]
	}
	return g
}

func (Q4) Value(node int, xi1, xi2 float64) float64 { return Basis(node, xi1, xi2) }

func (Q4) Gradient(node int, xi1, xi2 float64) [2]float64 { return BasisGradient(node, xi1, xi2) }
