package mesh

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/notargets/QuadHeat/element"
)

// Side identifies one boundary of a rectangular domain
type Side uint8

const (
	Bottom   Side = iota // y = ymin
	Right                // x = xmax
	Top                  // y = ymax
	Left                 // x = xmin
	Exterior             // every node on the topological boundary
)

var sideNames = map[Side]string{
	Bottom:   "bottom",
	Right:    "right",
	Top:      "top",
	Left:     "left",
	Exterior: "exterior",
}

func (s Side) String() string {
	if n, ok := sideNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

// ParseSide accepts the names returned by Side.String
func ParseSide(name string) (Side, error) {
	for s, n := range sideNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown boundary side %q", name)
}

// Mesh is the node coordinate table and the element connectivity. Both
// are immutable once built; everything else refers to nodes by index.
type Mesh struct {
	Nodes    [][2]float64
	Elements [][element.NumNodes]int

	Min, Max [2]float64 // bounding box
	Counts   [2]int     // elements per axis for structured meshes, zero otherwise

	// Boundary holds the node indices tagged by the generator, sorted
	Boundary map[Side][]int
}

// NewRectangle subdivides [min, max] into nx × ny bilinear elements.
// Nodes are numbered row by row from the bottom-left corner and the
// boundary coordinates are set exactly to the domain extents.
func NewRectangle(nx, ny int, min, max [2]float64) (m *Mesh, err error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("invalid element counts %d x %d", nx, ny)
	}
	if !(max[0] > min[0]) || !(max[1] > min[1]) {
		return nil, fmt.Errorf("invalid domain [%v, %v]", min, max)
	}
	var (
		nnx = nx + 1
		nny = ny + 1
	)
	m = &Mesh{
		Nodes:    make([][2]float64, nnx*nny),
		Elements: make([][element.NumNodes]int, 0, nx*ny),
		Min:      min,
		Max:      max,
		Counts:   [2]int{nx, ny},
		Boundary: make(map[Side][]int),
	}
	coord := func(i, n int, lo, hi float64) float64 {
		switch i {
		case 0:
			return lo
		case n:
			return hi
		}
		return lo + (hi-lo)*float64(i)/float64(n)
	}
	node := func(i, j int) int { return j*nnx + i }
	for j := 0; j < nny; j++ {
		y := coord(j, ny, min[1], max[1])
		for i := 0; i < nnx; i++ {
			m.Nodes[node(i, j)] = [2]float64{coord(i, nx, min[0], max[0]), y}
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			m.Elements = append(m.Elements, [element.NumNodes]int{
				node(i, j), node(i+1, j), node(i, j+1), node(i+1, j+1),
			})
		}
	}
	for i := 0; i < nnx; i++ {
		m.Boundary[Bottom] = append(m.Boundary[Bottom], node(i, 0))
		m.Boundary[Top] = append(m.Boundary[Top], node(i, ny))
	}
	for j := 0; j < nny; j++ {
		m.Boundary[Left] = append(m.Boundary[Left], node(0, j))
		m.Boundary[Right] = append(m.Boundary[Right], node(nx, j))
	}
	m.Boundary[Exterior] = m.exteriorNodes()
	return m, nil
}

func (m *Mesh) NumNodes() int    { return len(m.Nodes) }
func (m *Mesh) NumElements() int { return len(m.Elements) }

// ElementCoords gathers the node coordinates of element k in local order
func (m *Mesh) ElementCoords(k int) (element.Coords, error) {
	if k < 0 || k >= len(m.Elements) {
		return element.Coords{}, fmt.Errorf("element index %d outside [0,%d)", k, len(m.Elements))
	}
	return element.Gather(m.Nodes, m.Elements[k])
}

// BoundaryNodes returns a copy of the nodes tagged with side
func (m *Mesh) BoundaryNodes(side Side) []int {
	src := m.Boundary[side]
	out := make([]int, len(src))
	copy(out, src)
	return out
}

// Validate checks connectivity bounds and that every node is used
func (m *Mesh) Validate() error {
	if len(m.Elements) == 0 {
		return fmt.Errorf("mesh has no elements")
	}
	used := make([]bool, len(m.Nodes))
	for k, conn := range m.Elements {
		seen := make(map[int]bool, element.NumNodes)
		for _, n := range conn {
			if n < 0 || n >= len(m.Nodes) {
				return fmt.Errorf("element %d: node index %d outside [0,%d)", k, n, len(m.Nodes))
			}
			if seen[n] {
				return fmt.Errorf("element %d: repeated node %d", k, n)
			}
			seen[n] = true
			used[n] = true
		}
	}
	for n, u := range used {
		if !u {
			return fmt.Errorf("node %d is not referenced by any element", n)
		}
	}
	return nil
}

// Distort moves every interior node by up to amount times the local
// element size in each direction, deterministically from seed. The local
// size of a node is the smallest extent of its adjacent elements along that
// axis, so generated and file meshes are handled alike. Boundary nodes stay
// fixed, so the domain is unchanged. Below 0.25 rectangular cells cannot
// invert.
func (m *Mesh) Distort(amount float64, seed uint64) *Mesh {
	out := m.clone()
	h := m.localSize()
	onBoundary := make(map[int]bool)
	for _, n := range m.Boundary[Exterior] {
		onBoundary[n] = true
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for n := range out.Nodes {
		if onBoundary[n] {
			continue
		}
		for d := 0; d < 2; d++ {
			out.Nodes[n][d] += amount * h[n][d] * (2*rng.Float64() - 1)
		}
	}
	return out
}

// localSize is, per node and axis, the smallest bounding box extent of the
// elements using that node. Unused nodes get zero.
func (m *Mesh) localSize() [][2]float64 {
	h := make([][2]float64, len(m.Nodes))
	for n := range h {
		h[n] = [2]float64{math.Inf(1), math.Inf(1)}
	}
	for _, conn := range m.Elements {
		var ext [2]float64
		for d := 0; d < 2; d++ {
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, n := range conn {
				lo, hi = math.Min(lo, m.Nodes[n][d]), math.Max(hi, m.Nodes[n][d])
			}
			ext[d] = hi - lo
		}
		for _, n := range conn {
			for d := 0; d < 2; d++ {
				h[n][d] = math.Min(h[n][d], ext[d])
			}
		}
	}
	for n := range h {
		for d := 0; d < 2; d++ {
			if math.IsInf(h[n][d], 1) {
				h[n][d] = 0
			}
		}
	}
	return h
}

func (m *Mesh) clone() *Mesh {
	out := &Mesh{
		Nodes:    make([][2]float64, len(m.Nodes)),
		Elements: make([][element.NumNodes]int, len(m.Elements)),
		Min:      m.Min,
		Max:      m.Max,
		Counts:   m.Counts,
		Boundary: make(map[Side][]int, len(m.Boundary)),
	}
	copy(out.Nodes, m.Nodes)
	copy(out.Elements, m.Elements)
	for s := range m.Boundary {
		out.Boundary[s] = m.BoundaryNodes(s)
	}
	return out
}

// exteriorNodes finds nodes on edges that belong to exactly one element
func (m *Mesh) exteriorNodes() []int {
	type edge [2]int
	count := make(map[edge]int)
	edges := element.Q4{}.GetReferenceGeometry().EdgePoints
	for _, conn := range m.Elements {
		for _, e := range edges {
			a, b := conn[e[0]], conn[e[1]]
			if a > b {
				a, b = b, a
			}
			count[edge{a, b}]++
		}
	}
	set := make(map[int]bool)
	for e, c := range count {
		if c == 1 {
			set[e[0]] = true
			set[e[1]] = true
		}
	}
	nodes := make([]int, 0, len(set))
	for n := range set {
		nodes = append(nodes, n)
	}
	sort.Ints(nodes)
	return nodes
}

// tagSides assigns exterior nodes to the bounding box sides they lie on,
// within tol relative to the box size
func (m *Mesh) tagSides(tol float64) {
	ext := m.Boundary[Exterior]
	scale := math.Max(m.Max[0]-m.Min[0], m.Max[1]-m.Min[1])
	near := func(a, b float64) bool { return math.Abs(a-b) <= tol*scale }
	for _, n := range ext {
		p := m.Nodes[n]
		if near(p[1], m.Min[1]) {
			m.Boundary[Bottom] = append(m.Boundary[Bottom], n)
		}
		if near(p[0], m.Max[0]) {
			m.Boundary[Right] = append(m.Boundary[Right], n)
		}
		if near(p[1], m.Max[1]) {
			m.Boundary[Top] = append(m.Boundary[Top], n)
		}
		if near(p[0], m.Min[0]) {
			m.Boundary[Left] = append(m.Boundary[Left], n)
		}
	}
}

// String returns a summary of the mesh
func (m *Mesh) String() string {
	var sb strings.Builder
	sb.WriteString("=== Quadrilateral Mesh Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Number of elements: %d\n", m.NumElements()))
	sb.WriteString(fmt.Sprintf("  Number of nodes (DOFs): %d\n", m.NumNodes()))
	if m.Counts[0] > 0 {
		sb.WriteString(fmt.Sprintf("  Structured: %d x %d\n", m.Counts[0], m.Counts[1]))
	}
	sb.WriteString(fmt.Sprintf("  X range: [%.4g, %.4g]\n", m.Min[0], m.Max[0]))
	sb.WriteString(fmt.Sprintf("  Y range: [%.4g, %.4g]\n", m.Min[1], m.Max[1]))
	for _, s := range []Side{Bottom, Right, Top, Left, Exterior} {
		sb.WriteString(fmt.Sprintf("  %-8s boundary nodes: %d\n", s, len(m.Boundary[s])))
	}
	return sb.String()
}
