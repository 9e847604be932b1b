package runner

import (
	"fmt"
	"sort"
	"strings"
	"unsafe"

	"github.com/notargets/gocca"
	"gonum.org/v1/gonum/mat"
)

// Runner owns the device memory and kernels of a partitioned element loop.
// Kernels iterate partitions in an @outer loop and the elements of each
// partition in an @inner loop bounded by KpartMax.
type Runner struct {
	Device         *gocca.OCCADevice
	K              []int // Elements per partition
	NumPartitions  int
	KpartMax       int
	Kernels        map[string]*gocca.OCCAKernel
	PooledMemory   map[string]*gocca.OCCAMemory
	StaticMatrices map[string]mat.Matrix
	Defines        map[string]int
	KernelPreamble string
}

// NewRunner creates a new Runner instance
func NewRunner(device *gocca.OCCADevice, K []int) (kr *Runner) {
	if device == nil {
		panic("runner: nil Device")
	}
	if len(K) == 0 {
		panic("runner: no partitions")
	}
	kr = &Runner{
		Device:         device,
		K:              append([]int(nil), K...),
		NumPartitions:  len(K),
		Kernels:        make(map[string]*gocca.OCCAKernel),
		PooledMemory:   make(map[string]*gocca.OCCAMemory),
		StaticMatrices: make(map[string]mat.Matrix),
		Defines:        make(map[string]int),
	}
	for _, k := range K {
		if k > kr.KpartMax {
			kr.KpartMax = k
		}
	}
	if kr.KpartMax > 1048576 { // 2^20 elements
		panic(fmt.Sprintf("KpartMax exceeds 2^20 (1048576), found KpartMax=%d. "+
			"Reduce partition sizes.", kr.KpartMax))
	}

	k64 := make([]int64, len(K))
	for i, k := range K {
		k64[i] = int64(k)
	}
	kr.AllocateInt64("K", k64)
	return
}

// AllocateFloat64 copies host data into a new named device array
func (kr *Runner) AllocateFloat64(name string, data []float64) *gocca.OCCAMemory {
	kr.release(name)
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = unsafe.Pointer(&data[0])
	}
	mem := kr.Device.Malloc(int64(len(data)*8), ptr, nil)
	kr.PooledMemory[name] = mem
	return mem
}

// AllocateInt64 copies host data into a new named device array
func (kr *Runner) AllocateInt64(name string, data []int64) *gocca.OCCAMemory {
	kr.release(name)
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = unsafe.Pointer(&data[0])
	}
	mem := kr.Device.Malloc(int64(len(data)*8), ptr, nil)
	kr.PooledMemory[name] = mem
	return mem
}

// CopyBack reads a named device array into dst
func (kr *Runner) CopyBack(name string, dst []float64) error {
	mem, ok := kr.PooledMemory[name]
	if !ok {
		return fmt.Errorf("array %s not allocated", name)
	}
	if len(dst) == 0 {
		return nil
	}
	mem.CopyTo(unsafe.Pointer(&dst[0]), int64(len(dst)*8))
	return nil
}

func (kr *Runner) release(name string) {
	if mem, ok := kr.PooledMemory[name]; ok {
		mem.Free()
		delete(kr.PooledMemory, name)
	}
}

// GeneratePreamble generates the kernel preamble with constants and static data
func (kr *Runner) GeneratePreamble() string {
	var sb strings.Builder

	sb.WriteString("typedef double real_t;\n")
	sb.WriteString("typedef long int_t;\n")
	sb.WriteString("#define REAL_ZERO 0.0\n")
	sb.WriteString("#define REAL_ONE 1.0\n")
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("#define NPART %d\n", kr.NumPartitions))
	sb.WriteString(fmt.Sprintf("#define KpartMax %d\n", kr.KpartMax))
	names := make([]string, 0, len(kr.Defines))
	for name := range kr.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("#define %s %d\n", name, kr.Defines[name]))
	}
	sb.WriteString("\n")

	names = names[:0]
	for name := range kr.StaticMatrices {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(formatStaticMatrix(name, kr.StaticMatrices[name]))
	}

	kr.KernelPreamble = sb.String()
	return kr.KernelPreamble
}

// formatStaticMatrix writes m as a row-major C array, NAME[row][col]
func formatStaticMatrix(name string, m mat.Matrix) string {
	rows, cols := m.Dims()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("const real_t %s[%d][%d] = {\n", name, rows, cols))
	for i := 0; i < rows; i++ {
		sb.WriteString("    {")
		for j := 0; j < cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%.17e", m.At(i, j)))
		}
		sb.WriteString("}")
		if i < rows-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("};\n\n")
	return sb.String()
}

// BuildKernel compiles and registers a kernel with the program
func (kr *Runner) BuildKernel(kernelSource, kernelName string) (*gocca.OCCAKernel, error) {
	kr.GeneratePreamble()
	fullSource := kr.KernelPreamble + "\n" + kernelSource

	var (
		kernel *gocca.OCCAKernel
		err    error
	)
	if kr.Device.Mode() == "OpenMP" {
		// OpenMP does not get -O3 by default
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, props)
	} else {
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", kernelName, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", kernelName)
	}
	if old, ok := kr.Kernels[kernelName]; ok {
		old.Free()
	}
	kr.Kernels[kernelName] = kernel
	return kernel, nil
}

// RunKernel launches a compiled kernel with the named device arrays as
// arguments, in order, and waits for completion
func (kr *Runner) RunKernel(kernelName string, arrays ...string) error {
	kernel, ok := kr.Kernels[kernelName]
	if !ok {
		return fmt.Errorf("kernel %s not compiled", kernelName)
	}
	args := make([]interface{}, 0, len(arrays))
	for _, name := range arrays {
		mem, ok := kr.PooledMemory[name]
		if !ok {
			return fmt.Errorf("kernel %s: array %s not allocated", kernelName, name)
		}
		args = append(args, mem)
	}
	if err := kernel.RunWithArgs(args...); err != nil {
		return fmt.Errorf("kernel execution failed: %w", err)
	}
	kr.Device.Finish()
	return nil
}

// Free releases all resources
func (kr *Runner) Free() {
	for _, kernel := range kr.Kernels {
		kernel.Free()
	}
	for _, mem := range kr.PooledMemory {
		mem.Free()
	}
	kr.Kernels = make(map[string]*gocca.OCCAKernel)
	kr.PooledMemory = make(map[string]*gocca.OCCAMemory)
}
