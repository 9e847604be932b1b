package diffusion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/notargets/QuadHeat/assembly"
	"github.com/notargets/QuadHeat/element"
	"github.com/notargets/QuadHeat/mesh"
	"github.com/notargets/QuadHeat/partitions"
	"github.com/notargets/QuadHeat/solver"
	"gopkg.in/yaml.v3"
)

// Config describes one steady diffusion run
type Config struct {
	Mesh         MeshConfig            `yaml:"mesh"`
	Conductivity [2][2]float64         `yaml:"conductivity"`
	Quadrature   int                   `yaml:"quadrature"` // Gauss points per direction
	Dirichlet    map[string]Polynomial `yaml:"dirichlet"`  // side name -> prescribed value
	Source       float64               `yaml:"source"`     // uniform volumetric source
	Assembly     AssemblyConfig        `yaml:"assembly"`
	Solver       string                `yaml:"solver"`
	Output       OutputConfig          `yaml:"output"`
	Verbose      bool                  `yaml:"verbose"`
}

type MeshConfig struct {
	Elements   [2]int     `yaml:"elements"` // nx, ny
	Min        [2]float64 `yaml:"min"`
	Max        [2]float64 `yaml:"max"`
	File       string     `yaml:"file,omitempty"` // replaces the generated rectangle
	Distortion float64    `yaml:"distortion,omitempty"`
	Seed       uint64     `yaml:"seed,omitempty"`
}

type AssemblyConfig struct {
	Workers       int      `yaml:"workers"`
	PartitionSize int      `yaml:"partition_size,omitempty"` // 0 for one partition per worker
	Strategy      string   `yaml:"strategy"`
	Backend       string   `yaml:"backend"`
	Devices       []string `yaml:"devices,omitempty"`
}

type OutputConfig struct {
	VTK string `yaml:"vtk,omitempty"`
	CSV string `yaml:"csv,omitempty"`
}

// Polynomial is Σ c·x^px·y^py, one [c, px, py] triple per term
type Polynomial struct {
	Terms [][3]float64 `yaml:"terms"`
}

func (p Polynomial) Eval(x, y float64) (v float64) {
	for _, t := range p.Terms {
		v += t[0] * math.Pow(x, t[1]) * math.Pow(y, t[2])
	}
	return
}

// DefaultConfig is a copper plate, 0.03 x 0.08, on 15 x 40 elements with
// prescribed temperatures along the bottom and the top
func DefaultConfig() Config {
	return Config{
		Mesh: MeshConfig{
			Elements: [2]int{15, 40},
			Min:      [2]float64{0, 0},
			Max:      [2]float64{0.03, 0.08},
		},
		Conductivity: [2][2]float64{{385, 0}, {0, 385}},
		Quadrature:   2,
		Dirichlet: map[string]Polynomial{
			mesh.Bottom.String(): {Terms: [][3]float64{{300, 0, 0}, {100, 1, 0}}},  // 300(1 + x/3)
			mesh.Top.String():    {Terms: [][3]float64{{310, 0, 0}, {2480, 2, 0}}}, // 310(1 + 8x²)
		},
		Assembly: AssemblyConfig{
			Workers:  1,
			Strategy: partitions.BlockPartition.String(),
			Backend:  assembly.BackendHost,
		},
		Solver: solver.BandCholesky.String(),
	}
}

// Load reads a YAML file over DefaultConfig. Unknown keys are rejected.
func Load(path string) (cfg Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return Parse(data)
}

// Parse decodes YAML over DefaultConfig. A dirichlet section replaces the
// default sides instead of adding to them.
func Parse(data []byte) (cfg Config, err error) {
	cfg = DefaultConfig()
	var doc yaml.Node
	if err = yaml.Unmarshal(data, &doc); err != nil {
		return cfg, fmt.Errorf("%w: config: %v", ErrInvalidInput, err)
	}
	if hasKey(&doc, "dirichlet") {
		cfg.Dirichlet = nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%w: config: %v", ErrInvalidInput, err)
	}
	return cfg, cfg.Validate()
}

func hasKey(doc *yaml.Node, key string) bool {
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

// Validate reports every problem found, wrapped in ErrInvalidInput
func (c Config) Validate() error {
	var errs []error
	if c.Mesh.File == "" {
		if c.Mesh.Elements[0] < 1 || c.Mesh.Elements[1] < 1 {
			errs = append(errs, fmt.Errorf("mesh elements %v must be positive", c.Mesh.Elements))
		}
		if !(c.Mesh.Max[0] > c.Mesh.Min[0]) || !(c.Mesh.Max[1] > c.Mesh.Min[1]) {
			errs = append(errs, fmt.Errorf("mesh extent %v..%v is empty", c.Mesh.Min, c.Mesh.Max))
		}
	}
	if c.Mesh.Distortion < 0 || c.Mesh.Distortion >= 0.25 {
		errs = append(errs, fmt.Errorf("mesh distortion %g outside [0, 0.25)", c.Mesh.Distortion))
	}
	if err := element.Conductivity(c.Conductivity).Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Quadrature < 1 {
		errs = append(errs, fmt.Errorf("quadrature needs at least 1 point, got %d", c.Quadrature))
	}
	if len(c.Dirichlet) == 0 {
		errs = append(errs, errors.New("no Dirichlet sides"))
	}
	for name := range c.Dirichlet {
		if _, err := mesh.ParseSide(name); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Assembly.Workers < 0 {
		errs = append(errs, fmt.Errorf("assembly workers %d is negative", c.Assembly.Workers))
	}
	if c.Assembly.PartitionSize < 0 {
		errs = append(errs, fmt.Errorf("assembly partition size %d is negative", c.Assembly.PartitionSize))
	}
	if _, err := partitions.ParseStrategy(c.Assembly.Strategy); err != nil {
		errs = append(errs, err)
	}
	switch c.Assembly.Backend {
	case "", assembly.BackendHost, assembly.BackendOCCA:
	default:
		errs = append(errs, fmt.Errorf("unknown assembly backend %q", c.Assembly.Backend))
	}
	if _, err := solver.ParseMethod(c.Solver); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}
