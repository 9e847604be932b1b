package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/QuadHeat/element"
	"github.com/notargets/gocfd/DG3D/mesh/readers"
)

// SideTolerance is the relative distance used to tag file mesh nodes onto
// bounding box sides
const SideTolerance = 1.e-10

// ReadFile loads a planar quadrilateral mesh from any format understood by
// the gocfd readers (Gmsh, Gambit neutral). Cells with two or fewer
// vertices (boundary lines and points) are ignored; any other cell must be
// a planar quadrilateral. Vertices are renumbered so only referenced nodes
// remain, and element nodes are reordered into the local convention with
// a positive orientation.
func ReadFile(path string) (m *Mesh, err error) {
	msh, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	quads := make([][4]int, 0, len(msh.EtoV))
	for k, verts := range msh.EtoV {
		switch {
		case len(verts) <= 2:
			continue
		case len(verts) != 4:
			return nil, fmt.Errorf("%s: cell %d has %d vertices, only quadrilaterals are supported",
				path, k, len(verts))
		}
		var q [4]int
		for a, v := range verts {
			if v < 0 || v >= len(msh.Vertices) {
				return nil, fmt.Errorf("%s: cell %d references vertex %d", path, k, v)
			}
			if len(msh.Vertices[v]) > 2 && msh.Vertices[v][2] != 0 {
				return nil, fmt.Errorf("%s: cell %d is not in the z=0 plane", path, k)
			}
			q[a] = v
		}
		quads = append(quads, q)
	}
	if len(quads) == 0 {
		return nil, fmt.Errorf("%s: no quadrilateral cells", path)
	}
	coords := make([][2]float64, len(msh.Vertices))
	for i, v := range msh.Vertices {
		coords[i] = [2]float64{v[0], v[1]}
	}
	if m, err = FromCells(coords, quads); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	fmt.Printf("Meshfile: %s has %d quadrilaterals...\n", path, m.NumElements())
	return m, nil
}

// FromCells builds a mesh from counter-clockwise (or clockwise) vertex
// loops. Unreferenced vertices are dropped and nodes renumbered in order
// of first use; sides are tagged from the bounding box.
func FromCells(vertices [][2]float64, cells [][4]int) (*Mesh, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("no cells")
	}
	for k, c := range cells {
		for _, v := range c {
			if v < 0 || v >= len(vertices) {
				return nil, fmt.Errorf("cell %d references vertex %d outside [0,%d)", k, v, len(vertices))
			}
		}
	}
	renum := make(map[int]int)
	m := &Mesh{
		Elements: make([][element.NumNodes]int, 0, len(cells)),
		Boundary: make(map[Side][]int),
	}
	index := func(v int) int {
		if n, ok := renum[v]; ok {
			return n
		}
		n := len(m.Nodes)
		renum[v] = n
		m.Nodes = append(m.Nodes, vertices[v])
		return n
	}
	for _, c := range cells {
		loop := c
		if signedArea(vertices, loop) < 0 {
			loop = [4]int{c[0], c[3], c[2], c[1]}
		}
		// loop order 0,1,2,3 around the cell -> BL, BR, TL, TR
		m.Elements = append(m.Elements, [element.NumNodes]int{
			index(loop[0]), index(loop[1]), index(loop[3]), index(loop[2]),
		})
	}
	m.Min = [2]float64{math.Inf(1), math.Inf(1)}
	m.Max = [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, p := range m.Nodes {
		for d := 0; d < 2; d++ {
			m.Min[d] = math.Min(m.Min[d], p[d])
			m.Max[d] = math.Max(m.Max[d], p[d])
		}
	}
	m.Boundary[Exterior] = m.exteriorNodes()
	m.tagSides(SideTolerance)
	for s := range m.Boundary {
		sort.Ints(m.Boundary[s])
	}
	return m, nil
}

// signedArea uses the shoelace formula over the vertex loop
func signedArea(v [][2]float64, loop [4]int) (a float64) {
	for i := 0; i < 4; i++ {
		p, q := v[loop[i]], v[loop[(i+1)%4]]
		a += p[0]*q[1] - q[0]*p[1]
	}
	return 0.5 * a
}
