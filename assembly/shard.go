package assembly

import (
	"github.com/james-bowman/sparse"
	"github.com/notargets/QuadHeat/element"
	"gonum.org/v1/gonum/mat"
)

// Shard is the private partial system of one partition. A shard is only
// written by the goroutine that owns it.
type Shard struct {
	K *sparse.DOK
	F []float64
}

func NewShard(n int) *Shard {
	return &Shard{
		K: sparse.NewDOK(n, n),
		F: make([]float64, n),
	}
}

// AddElement scatter-adds Ke into K and Fe into F. Connectivity must have
// been bounds checked.
func (s *Shard) AddElement(conn [element.NumNodes]int, Ke *mat.Dense, Fe []float64) {
	for A, gA := range conn {
		for B, gB := range conn {
			s.K.Set(gA, gB, s.K.At(gA, gB)+Ke.At(A, B))
		}
		s.F[gA] += Fe[A]
	}
}

// MergeInto adds the shard's entries into dst
func (s *Shard) MergeInto(dst *Shard) {
	s.K.DoNonZero(func(i, j int, v float64) {
		dst.K.Set(i, j, dst.K.At(i, j)+v)
	})
	for i, f := range s.F {
		dst.F[i] += f
	}
}
