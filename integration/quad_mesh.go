package integration

import (
	"fmt"
	"math"

	"github.com/notargets/QuadHeat/element"
	"github.com/notargets/QuadHeat/mesh"
	"github.com/notargets/QuadHeat/quadrature"
)

// QuadMesh couples a mesh with the Q4 reference element and a quadrature
// rule, for post-processing nodal fields
type QuadMesh struct {
	*mesh.Mesh
	Rule quadrature.Rule
}

// NewQuadMesh reads a quadrilateral mesh file
func NewQuadMesh(meshfile string, rule quadrature.Rule) (*QuadMesh, error) {
	m, err := mesh.ReadFile(meshfile)
	if err != nil {
		return nil, err
	}
	return &QuadMesh{Mesh: m, Rule: rule}, nil
}

// GetReferenceElement returns reference element properties and basis
func (q QuadMesh) GetReferenceElement() element.ReferenceElement {
	return element.Q4{}
}

// GetProperties returns element metadata
func (q QuadMesh) GetProperties() element.ElementProperties {
	return q.GetReferenceElement().GetProperties()
}

// GetGeometricTransform returns transformation from reference to physical space
func (q QuadMesh) GetGeometricTransform() (element.GeometricTransform, error) {
	return element.ComputeGeometricTransform(q.Nodes, q.Elements, q.Rule)
}

// Interpolate evaluates a nodal field inside element k
func (q QuadMesh) Interpolate(field []float64, k int, xi1, xi2 float64) (v float64) {
	for a, n := range q.Elements[k] {
		v += field[n] * element.Basis(a, xi1, xi2)
	}
	return
}

// L2Error integrates (field - exact)² over the mesh
func (q QuadMesh) L2Error(field []float64, exact func(x, y float64) float64) (float64, error) {
	if len(field) != q.NumNodes() {
		return 0, fmt.Errorf("field has %d values for %d nodes", len(field), q.NumNodes())
	}
	gt, err := q.GetGeometricTransform()
	if err != nil {
		return 0, err
	}
	pts := q.Rule.Tensor()
	xi1, xi2 := make([]float64, len(pts)), make([]float64, len(pts))
	for i, p := range pts {
		xi1[i], xi2[i] = p.Xi1, p.Xi2
	}
	// basis values [Np × Nq], shared by every element
	N, _, _ := element.Matrices(q.GetReferenceElement(), xi1, xi2)
	sum := 0.
	for k, conn := range q.Elements {
		for i, p := range pts {
			var x, y, uh float64
			for a, n := range conn {
				w := N.At(a, i)
				x += w * q.Nodes[n][0]
				y += w * q.Nodes[n][1]
				uh += w * field[n]
			}
			d := uh - exact(x, y)
			sum += d * d * gt.J.At(i, k) * p.W
		}
	}
	return math.Sqrt(sum), nil
}

// MaxNodalError is max |field[n] - exact(node n)|
func (q QuadMesh) MaxNodalError(field []float64, exact func(x, y float64) float64) (e float64) {
	for n, p := range q.Nodes {
		e = math.Max(e, math.Abs(field[n]-exact(p[0], p[1])))
	}
	return
}
