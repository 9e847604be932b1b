package partitions

import (
	"fmt"
	"math"
	"sort"
)

// PartitionBuilder constructs partitions from mesh connectivity
type PartitionBuilder struct {
	// Mesh connectivity
	Mesh *MeshConnectivity

	// Partitioning parameters
	NumPartitions       int // Desired partition count, takes precedence when > 0
	TargetPartitionSize int // Desired elements per partition
	Strategy            PartitionStrategy
}

// MeshConnectivity provides the mesh topology needed for partitioning
type MeshConnectivity struct {
	NumElements  int
	NumNodes     int
	ElementNodes [][]int // Global node indices of each element
}

// PartitionStrategy defines how elements are grouped
type PartitionStrategy int

const (
	// Simple strategies
	BlockPartition PartitionStrategy = iota // Consecutive elements
	RoundRobin                              // Distribute cyclically

	// NodeColoring groups elements so that no two elements of one partition
	// share a node; each partition can then scatter into the global system
	// concurrently without conflicts
	NodeColoring
)

func (s PartitionStrategy) String() string {
	switch s {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "round-robin"
	case NodeColoring:
		return "coloring"
	}
	return fmt.Sprintf("PartitionStrategy(%d)", int(s))
}

// ParseStrategy accepts the names returned by PartitionStrategy.String
func ParseStrategy(name string) (PartitionStrategy, error) {
	for _, s := range []PartitionStrategy{BlockPartition, RoundRobin, NodeColoring} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown partition strategy %q", name)
}

// BuildPartitions creates a partition layout from mesh connectivity
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.Mesh == nil || pb.Mesh.NumElements < 1 {
		return nil, fmt.Errorf("no elements to partition")
	}
	if len(pb.Mesh.ElementNodes) != pb.Mesh.NumElements {
		return nil, fmt.Errorf("connectivity lists %d elements, NumElements = %d",
			len(pb.Mesh.ElementNodes), pb.Mesh.NumElements)
	}

	var (
		eToP          []int
		numPartitions int
	)
	if pb.Strategy == NodeColoring {
		eToP, numPartitions = pb.colorElements()
	} else {
		numPartitions = pb.calculateNumPartitions()
		eToP = pb.partitionElements(numPartitions)
	}

	partitions := pb.createPartitions(eToP, numPartitions)
	maxElements := calculateMaxElements(partitions)

	layout := &PartitionLayout{
		Partitions:    partitions,
		MaxElements:   maxElements,
		TotalElements: pb.Mesh.NumElements,
		NumPartitions: numPartitions,
		EToP:          eToP,
		Strategy:      pb.Strategy,
	}

	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	if pb.Strategy == NodeColoring {
		if err := pb.validateColoring(layout); err != nil {
			return nil, fmt.Errorf("invalid partition layout: %w", err)
		}
	}

	return layout, nil
}

// calculateNumPartitions determines optimal partition count
func (pb *PartitionBuilder) calculateNumPartitions() int {
	numPartitions := pb.NumPartitions
	if numPartitions < 1 && pb.TargetPartitionSize > 0 {
		numPartitions = int(math.Ceil(float64(pb.Mesh.NumElements) / float64(pb.TargetPartitionSize)))
	}

	// Ensure at least one partition and no empty ones
	if numPartitions < 1 {
		numPartitions = 1
	}
	if numPartitions > pb.Mesh.NumElements {
		numPartitions = pb.Mesh.NumElements
	}

	return numPartitions
}

// partitionElements assigns elements to partitions
func (pb *PartitionBuilder) partitionElements(numPartitions int) []int {
	eToP := make([]int, pb.Mesh.NumElements)

	switch pb.Strategy {
	case RoundRobin:
		for i := 0; i < pb.Mesh.NumElements; i++ {
			eToP[i] = i % numPartitions
		}

	default:
		// Block partitioning with sizes differing by at most one
		base := pb.Mesh.NumElements / numPartitions
		extra := pb.Mesh.NumElements % numPartitions
		k := 0
		for p := 0; p < numPartitions; p++ {
			n := base
			if p < extra {
				n++
			}
			for i := 0; i < n; i++ {
				eToP[k] = p
				k++
			}
		}
	}

	return eToP
}

// colorElements assigns the smallest color not used by any element that
// shares a node with the current one (greedy, element order)
func (pb *PartitionBuilder) colorElements() (eToP []int, numColors int) {
	nodeElems := pb.nodeToElements()
	eToP = make([]int, pb.Mesh.NumElements)
	for k := range eToP {
		eToP[k] = -1
	}
	for k, nodes := range pb.Mesh.ElementNodes {
		used := make(map[int]bool)
		for _, n := range nodes {
			for _, other := range nodeElems[n] {
				if c := eToP[other]; c >= 0 {
					used[c] = true
				}
			}
		}
		c := 0
		for used[c] {
			c++
		}
		eToP[k] = c
		if c+1 > numColors {
			numColors = c + 1
		}
	}
	return
}

func (pb *PartitionBuilder) nodeToElements() [][]int {
	nn := pb.Mesh.NumNodes
	for _, nodes := range pb.Mesh.ElementNodes {
		for _, n := range nodes {
			if n+1 > nn {
				nn = n + 1
			}
		}
	}
	nodeElems := make([][]int, nn)
	for k, nodes := range pb.Mesh.ElementNodes {
		for _, n := range nodes {
			nodeElems[n] = append(nodeElems[n], k)
		}
	}
	return nodeElems
}

// validateColoring checks that no node is touched twice within a partition
func (pb *PartitionBuilder) validateColoring(layout *PartitionLayout) error {
	for _, p := range layout.Partitions {
		owner := make(map[int]int)
		for _, k := range p.Elements {
			for _, n := range pb.Mesh.ElementNodes[k] {
				if other, ok := owner[n]; ok && other != k {
					return fmt.Errorf("partition %d: elements %d and %d share node %d",
						p.ID, other, k, n)
				}
				owner[n] = k
			}
		}
	}
	return nil
}

// createPartitions builds partition structures from element assignments
func (pb *PartitionBuilder) createPartitions(eToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)

	for i := range partitions {
		partitions[i] = Partition{
			ID:       i,
			Elements: make([]int, 0),
		}
	}

	for elem, part := range eToP {
		partitions[part].Elements = append(partitions[part].Elements, elem)
		partitions[part].NumElements++
	}

	return partitions
}

// calculateMaxElements finds maximum elements across all partitions
func calculateMaxElements(partitions []Partition) int {
	maxElements := 0
	for _, p := range partitions {
		if p.NumElements > maxElements {
			maxElements = p.NumElements
		}
	}
	return maxElements
}

// InterfaceNodes returns, sorted, the nodes touched by elements of more
// than one partition. Their matrix rows receive contributions from several
// partitions and are only complete after all partial results are merged.
func InterfaceNodes(layout *PartitionLayout, mc *MeshConnectivity) []int {
	owner := make(map[int]int)
	shared := make(map[int]bool)
	for k, nodes := range mc.ElementNodes {
		p := layout.EToP[k]
		for _, n := range nodes {
			if o, ok := owner[n]; ok && o != p {
				shared[n] = true
			} else {
				owner[n] = p
			}
		}
	}
	out := make([]int, 0, len(shared))
	for n := range shared {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
