package diffusion

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/notargets/QuadHeat/assembly"
	"github.com/notargets/QuadHeat/bcs"
	"github.com/notargets/QuadHeat/element"
	"github.com/notargets/QuadHeat/mesh"
	"github.com/notargets/QuadHeat/output"
	"github.com/notargets/QuadHeat/partitions"
	"github.com/notargets/QuadHeat/quadrature"
	"github.com/notargets/QuadHeat/solver"
)

// FieldName labels the nodal solution in result files
const FieldName = "D"

// Result holds everything a run produced
type Result struct {
	RunID    uuid.UUID
	Mesh     *mesh.Mesh
	Boundary *bcs.Dirichlet
	System   *assembly.System // after boundary elimination
	D        []float64        // nodal solution, indexed like Mesh.Nodes
	Residual float64          // max |K·D - F|
}

// BuildMesh generates or reads the mesh a config describes
func BuildMesh(cfg Config) (m *mesh.Mesh, err error) {
	if cfg.Mesh.File != "" {
		if m, err = mesh.ReadFile(cfg.Mesh.File); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	} else {
		m, err = mesh.NewRectangle(cfg.Mesh.Elements[0], cfg.Mesh.Elements[1], cfg.Mesh.Min, cfg.Mesh.Max)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	if cfg.Mesh.Distortion > 0 {
		m = m.Distort(cfg.Mesh.Distortion, cfg.Mesh.Seed)
	}
	return m, nil
}

// Boundary evaluates the configured polynomials on the tagged sides
func Boundary(cfg Config, m *mesh.Mesh) (*bcs.Dirichlet, error) {
	sides := make(map[mesh.Side]bcs.ValueFunc, len(cfg.Dirichlet))
	for name, poly := range cfg.Dirichlet {
		side, err := mesh.ParseSide(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		sides[side] = poly.Eval
	}
	return bcs.FromSides(m, sides), nil
}

// Run executes mesh, assembly, boundary elimination and solve in order.
// Each stage starts only after the previous one completed. Progress is
// logged when cfg.Verbose is set; a nil logger uses the standard one.
func Run(cfg Config, logger *log.Logger) (res *Result, err error) {
	if logger == nil {
		logger = log.Default()
	}
	logf := func(format string, args ...interface{}) {
		if cfg.Verbose {
			logger.Printf(format, args...)
		}
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	res = &Result{RunID: uuid.New()}
	logf("run %s", res.RunID)

	if res.Mesh, err = BuildMesh(cfg); err != nil {
		return nil, err
	}
	logf("%s", res.Mesh)
	if res.Boundary, err = Boundary(cfg, res.Mesh); err != nil {
		return nil, err
	}
	logf("%d constrained nodes", res.Boundary.Len())

	rule, err := quadrature.GaussLegendre(cfg.Quadrature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	strategy, err := partitions.ParseStrategy(cfg.Assembly.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	opts := assembly.Options{
		Workers:       cfg.Assembly.Workers,
		PartitionSize: cfg.Assembly.PartitionSize,
		Strategy:      strategy,
		Backend:       cfg.Assembly.Backend,
		Devices:       cfg.Assembly.Devices,
		Rule:          rule,
		Verbose:       cfg.Verbose,
	}
	if cfg.Source != 0 {
		f := cfg.Source
		opts.Source = func(x, y float64) float64 { return f }
	}
	material := assembly.Uniform(element.Conductivity(cfg.Conductivity))
	if res.System, err = assembly.Assemble(res.Mesh, material, opts); err != nil {
		return nil, err
	}

	if err = bcs.CheckCoverage(res.Boundary, res.System.Pattern); err != nil {
		return nil, err
	}
	if err = bcs.Apply(res.Boundary, res.System, res.System.Pattern); err != nil {
		return nil, err
	}

	method, err := solver.ParseMethod(cfg.Solver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if res.D, err = solver.Solve(res.System, res.System.F, solver.Options{Method: method, Verbose: cfg.Verbose}); err != nil {
		return nil, err
	}
	res.Residual = solver.Residual(res.System, res.D, res.System.F)
	logf("solved %d unknowns with %s, residual %.3e", len(res.D), method, res.Residual)

	if err = res.Write(cfg.Output); err != nil {
		return nil, err
	}
	return res, nil
}

// Write stores the solution in the configured files, skipping empty paths
func (r *Result) Write(out OutputConfig) error {
	title := fmt.Sprintf("QuadHeat steady diffusion, run %s", r.RunID)
	if out.VTK != "" {
		if err := output.WriteVTKFile(out.VTK, title, r.Mesh.Nodes, r.Mesh.Elements, FieldName, r.D); err != nil {
			return err
		}
	}
	if out.CSV != "" {
		if err := output.WriteCSVFile(out.CSV, r.Mesh.Nodes, FieldName, r.D); err != nil {
			return err
		}
	}
	return nil
}

// Summary is a short human readable report of the result
func (r *Result) Summary() string {
	lo, hi := r.D[0], r.D[0]
	for _, v := range r.D {
		lo, hi = min(lo, v), max(hi, v)
	}
	return fmt.Sprintf("run %s: %d nodes, %d elements, %s in [%.6g, %.6g], residual %.3e",
		r.RunID, r.Mesh.NumNodes(), r.Mesh.NumElements(), FieldName, lo, hi, r.Residual)
}
