package partitions

import (
	"fmt"
)

// Partition represents a collection of elements that are assembled
// together as one unit of work
type Partition struct {
	// Unique identifier for this partition
	ID int

	// Element membership
	Elements    []int // Global element indices in this partition
	NumElements int   // Actual number of active elements
}

// PartitionLayout manages the complete mesh decomposition
type PartitionLayout struct {
	// All partitions in the mesh
	Partitions []Partition

	// Global sizing information
	MaxElements   int // max(NumElements) across all partitions
	TotalElements int // Sum of all actual elements across partitions
	NumPartitions int // Total number of partitions

	// Element to partition mapping
	EToP []int // Length TotalElements: element k belongs to partition EToP[k]

	Strategy PartitionStrategy
}

// GetPartition returns the partition containing element k
func (pl *PartitionLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[elementID]
}

// ValidateLayout checks partition consistency: every element belongs to
// exactly the partition EToP names, and MaxElements is the true maximum
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("%d partitions stored, NumPartitions = %d",
			len(pl.Partitions), pl.NumPartitions)
	}
	actualMax := 0
	seen := make([]bool, pl.TotalElements)
	for _, p := range pl.Partitions {
		if p.NumElements != len(p.Elements) {
			return fmt.Errorf("partition %d: NumElements %d != %d listed",
				p.ID, p.NumElements, len(p.Elements))
		}
		if p.NumElements > actualMax {
			actualMax = p.NumElements
		}
		for _, k := range p.Elements {
			if k < 0 || k >= pl.TotalElements {
				return fmt.Errorf("partition %d: element %d outside [0,%d)", p.ID, k, pl.TotalElements)
			}
			if seen[k] {
				return fmt.Errorf("element %d assigned more than once", k)
			}
			seen[k] = true
			if pl.EToP[k] != p.ID {
				return fmt.Errorf("element %d: EToP says %d, found in partition %d", k, pl.EToP[k], p.ID)
			}
		}
	}
	for k, s := range seen {
		if !s {
			return fmt.Errorf("element %d not assigned to any partition", k)
		}
	}
	if actualMax != pl.MaxElements {
		return fmt.Errorf("computed MaxElements %d != stored MaxElements %d",
			actualMax, pl.MaxElements)
	}
	return nil
}

// PartitionStats reports load balance
type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinElements:   pl.TotalElements,
		MaxElements:   0,
		AvgElements:   float64(pl.TotalElements) / float64(pl.NumPartitions),
	}

	for _, p := range pl.Partitions {
		if p.NumElements < stats.MinElements {
			stats.MinElements = p.NumElements
		}
		if p.NumElements > stats.MaxElements {
			stats.MaxElements = p.NumElements
		}
	}

	stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements

	return stats
}

func (s PartitionStats) String() string {
	return fmt.Sprintf("%d partitions, elements min/avg/max = %d/%.1f/%d, imbalance %.3f",
		s.NumPartitions, s.MinElements, s.AvgElements, s.MaxElements, s.Imbalance)
}
