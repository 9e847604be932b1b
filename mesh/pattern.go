package mesh

import "sort"

// Pattern is the nonzero structure of the global matrix: Rows[i] lists,
// in ascending order, every node sharing an element with node i
// (including i itself)
type Pattern struct {
	Rows [][]int
}

// SparsityPattern couples every pair of nodes of every element
func (m *Mesh) SparsityPattern() *Pattern {
	sets := make([]map[int]struct{}, len(m.Nodes))
	for i := range sets {
		sets[i] = map[int]struct{}{i: {}}
	}
	for _, conn := range m.Elements {
		for _, a := range conn {
			for _, b := range conn {
				sets[a][b] = struct{}{}
			}
		}
	}
	p := &Pattern{Rows: make([][]int, len(m.Nodes))}
	for i, s := range sets {
		row := make([]int, 0, len(s))
		for j := range s {
			row = append(row, j)
		}
		sort.Ints(row)
		p.Rows[i] = row
	}
	return p
}

func (p *Pattern) N() int { return len(p.Rows) }

// NNZ is the number of stored couplings
func (p *Pattern) NNZ() (nnz int) {
	for _, r := range p.Rows {
		nnz += len(r)
	}
	return
}

// Bandwidth is max |i - j| over all couplings
func (p *Pattern) Bandwidth() (bw int) {
	for i, r := range p.Rows {
		if len(r) == 0 {
			continue
		}
		if d := i - r[0]; d > bw {
			bw = d
		}
		if d := r[len(r)-1] - i; d > bw {
			bw = d
		}
	}
	return
}

// Components labels the connected components of the coupling graph
func (p *Pattern) Components() (label []int, n int) {
	label = make([]int, len(p.Rows))
	for i := range label {
		label[i] = -1
	}
	stack := make([]int, 0)
	for start := range p.Rows {
		if label[start] >= 0 {
			continue
		}
		label[start] = n
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, j := range p.Rows[i] {
				if label[j] < 0 {
					label[j] = n
					stack = append(stack, j)
				}
			}
		}
		n++
	}
	return
}
