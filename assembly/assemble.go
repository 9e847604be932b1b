package assembly

import (
	"errors"
	"fmt"

	"github.com/exascience/pargo/parallel"
	"github.com/notargets/QuadHeat/element"
	"github.com/notargets/QuadHeat/mesh"
	"github.com/notargets/QuadHeat/partitions"
	"github.com/notargets/QuadHeat/quadrature"
	"github.com/notargets/QuadHeat/runner"
	"github.com/notargets/QuadHeat/utils"
	"gonum.org/v1/gonum/mat"
)

const (
	BackendHost = "host"
	BackendOCCA = "occa"
)

// Material returns the conductivity of element k
type Material func(k int) element.Conductivity

// Uniform uses one conductivity everywhere
func Uniform(c element.Conductivity) Material {
	return func(int) element.Conductivity { return c }
}

// Options control how the global system is assembled. The zero value is
// the serial host schedule with the 2-point rule.
type Options struct {
	Workers  int // <= 1 assembles on the calling goroutine
	// PartitionSize, when positive, sets the elements per partition for the
	// block and round-robin strategies instead of one partition per worker
	PartitionSize int
	Strategy partitions.PartitionStrategy
	Backend  string   // BackendHost (default) or BackendOCCA
	Devices  []string // OCCA device properties tried in order, defaults when empty
	Rule     quadrature.Rule
	Source   element.SourceFunc
	Verbose  bool
}

type assembler struct {
	mesh   *mesh.Mesh
	kappa  []element.Conductivity
	rule   quadrature.Rule
	source element.SourceFunc
	device []float64 // precomputed local matrices, row-major, when set
}

// Assemble builds K and F from every element of the mesh. Elements are
// split into partitions; with the block and round-robin strategies every
// partition accumulates into its own shard and the shards are summed in
// partition order once all workers finish. With node coloring, partitions
// are processed one after another and the elements inside one partition
// scatter concurrently into disjoint rows. Only a fully merged system is
// returned.
func Assemble(m *mesh.Mesh, material Material, opts Options) (sys *System, err error) {
	if m == nil || m.NumElements() == 0 {
		return nil, errors.New("assemble: mesh has no elements")
	}
	if material == nil {
		return nil, errors.New("assemble: no material")
	}
	a := &assembler{
		mesh:   m,
		kappa:  make([]element.Conductivity, m.NumElements()),
		rule:   opts.Rule,
		source: opts.Source,
	}
	if a.rule.Len() == 0 {
		a.rule = quadrature.Default()
	}

	nn := m.NumNodes()
	for k, conn := range m.Elements {
		for _, g := range conn {
			if g < 0 || g >= nn {
				return nil, &ElementError{Element: k,
					Err: fmt.Errorf("%w: node %d outside [0,%d)", ErrIndexOutOfRange, g, nn)}
			}
		}
		a.kappa[k] = material(k)
		if err = a.kappa[k].Validate(); err != nil {
			return nil, &ElementError{Element: k, Err: err}
		}
	}

	layout, err := buildLayout(m, opts)
	if err != nil {
		return nil, err
	}

	switch opts.Backend {
	case "", BackendHost:
	case BackendOCCA:
		if err = a.computeOnDevice(layout, opts.Devices); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown assembly backend %q", opts.Backend)
	}

	if opts.Strategy == partitions.NodeColoring {
		sys, err = a.assembleColored(layout, opts.Workers)
	} else {
		sys, err = a.assembleSharded(layout, opts.Workers)
	}
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		fmt.Printf("Assembled %d elements, %s, %d interface nodes\n", m.NumElements(),
			layout.PartitionStatistics(), len(partitions.InterfaceNodes(layout, Connectivity(m))))
		fmt.Printf("%s\n", sys)
	}
	return sys, nil
}

// Connectivity adapts the mesh to the partition builder
func Connectivity(m *mesh.Mesh) *partitions.MeshConnectivity {
	mc := &partitions.MeshConnectivity{
		NumElements:  m.NumElements(),
		NumNodes:     m.NumNodes(),
		ElementNodes: make([][]int, m.NumElements()),
	}
	for k := range m.Elements {
		mc.ElementNodes[k] = m.Elements[k][:]
	}
	return mc
}

func buildLayout(m *mesh.Mesh, opts Options) (*partitions.PartitionLayout, error) {
	pb := &partitions.PartitionBuilder{
		Mesh:          Connectivity(m),
		NumPartitions: max(opts.Workers, 1),
		Strategy:      opts.Strategy,
	}
	if opts.PartitionSize > 0 {
		pb.NumPartitions, pb.TargetPartitionSize = 0, opts.PartitionSize
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return nil, fmt.Errorf("partitioning %d elements: %w", m.NumElements(), err)
	}
	return layout, nil
}

func (a *assembler) computeOnDevice(layout *partitions.PartitionLayout, devices []string) error {
	// the kernel cannot report a degenerate element
	for k := range a.mesh.Elements {
		x, err := a.mesh.ElementCoords(k)
		if err == nil {
			_, err = element.Area(x, a.rule)
		}
		if err != nil {
			return &ElementError{Element: k, Err: err}
		}
	}
	device, err := utils.CreateDevice(devices...)
	if err != nil {
		return err
	}
	defer device.Free()
	a.device, err = runner.LocalStiffness(device, a.mesh.Nodes, a.mesh.Elements, a.kappa, a.rule, layout)
	return err
}

// local computes the stiffness and load of element k
func (a *assembler) local(k int) (Ke *mat.Dense, Fe []float64, err error) {
	x, err := a.mesh.ElementCoords(k)
	if err != nil {
		return nil, nil, &ElementError{Element: k, Err: err}
	}
	if a.device != nil {
		n := runner.LocalMatrixSize
		Ke = mat.NewDense(element.NumNodes, element.NumNodes, a.device[n*k:n*(k+1)])
	} else if Ke, err = element.LocalStiffness(x, a.kappa[k], a.rule); err != nil {
		return nil, nil, &ElementError{Element: k, Err: err}
	}
	if Fe, err = element.LocalLoad(x, a.source, a.rule); err != nil {
		return nil, nil, &ElementError{Element: k, Err: err}
	}
	return
}

func (a *assembler) assembleSharded(layout *partitions.PartitionLayout, workers int) (*System, error) {
	var (
		n      = a.mesh.NumNodes()
		nparts = layout.NumPartitions
		shards = make([]*Shard, nparts)
		errs   = make([]error, nparts)
	)
	work := func(low, high int) {
		for p := low; p < high; p++ {
			shard := NewShard(n)
			for _, k := range layout.Partitions[p].Elements {
				Ke, Fe, err := a.local(k)
				if err != nil {
					errs[p] = err
					break
				}
				shard.AddElement(a.mesh.Elements[k], Ke, Fe)
			}
			shards[p] = shard
		}
	}
	if workers <= 1 || nparts == 1 {
		work(0, nparts)
	} else {
		parallel.Range(0, nparts, nparts, work)
	}
	if err := firstError(errs); err != nil {
		return nil, err
	}

	sys := NewSystem(a.mesh.SparsityPattern())
	total := &Shard{K: sys.K, F: sys.F}
	for _, shard := range shards {
		shard.MergeInto(total)
	}
	// Every pattern entry is stored, even where contributions cancel
	for i, row := range sys.Pattern.Rows {
		for _, j := range row {
			sys.K.Set(i, j, sys.K.At(i, j))
		}
	}
	return sys, nil
}

func (a *assembler) assembleColored(layout *partitions.PartitionLayout, workers int) (*System, error) {
	pattern := a.mesh.SparsityPattern()
	acc := NewAccumulator(pattern)
	for _, part := range layout.Partitions {
		var (
			elems = part.Elements
			errs  = make([]error, len(elems))
		)
		work := func(low, high int) {
			for i := low; i < high; i++ {
				k := elems[i]
				Ke, Fe, err := a.local(k)
				if err == nil {
					err = acc.AddElement(a.mesh.Elements[k], Ke, Fe)
				}
				if err != nil {
					errs[i] = wrapElementIndex(k, err)
				}
			}
		}
		if workers <= 1 || len(elems) < 2 {
			work(0, len(elems))
		} else {
			parallel.Range(0, len(elems), min(workers, len(elems)), work)
		}
		if err := firstError(errs); err != nil {
			return nil, err
		}
	}
	sys := NewSystem(pattern)
	sys.K = acc.ToDOK()
	copy(sys.F, acc.F)
	return sys, nil
}

func wrapElementIndex(k int, err error) error {
	var ee *ElementError
	if errors.As(err, &ee) {
		return err
	}
	return &ElementError{Element: k, Err: err}
}
