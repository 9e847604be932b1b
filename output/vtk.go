package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/notargets/QuadHeat/element"
)

// vtkQuad is the VTK_QUAD cell type
const vtkQuad = 9

// WriteVTK writes a legacy ASCII unstructured grid with the nodal field
// attached as point data named name. VTK expects the corners of a quad in
// loop order, so local nodes are written as 0, 1, 3, 2.
func WriteVTK(w io.Writer, title string, nodes [][2]float64, elements [][element.NumNodes]int,
	name string, field []float64) error {
	if len(field) != len(nodes) {
		return fmt.Errorf("field has %d values for %d nodes", len(field), len(nodes))
	}
	bw := bufio.NewWriter(w)
	// the title is a single line of at most 256 characters
	title = strings.ReplaceAll(title, "\n", " ")
	if len(title) > 255 {
		title = title[:255]
	}
	fmt.Fprintf(bw, "# vtk DataFile Version 3.0\n%s\nASCII\nDATASET UNSTRUCTURED_GRID\n", title)

	fmt.Fprintf(bw, "POINTS %d double\n", len(nodes))
	for _, p := range nodes {
		fmt.Fprintf(bw, "%.16g %.16g 0\n", p[0], p[1])
	}

	fmt.Fprintf(bw, "CELLS %d %d\n", len(elements), 5*len(elements))
	for _, c := range elements {
		fmt.Fprintf(bw, "4 %d %d %d %d\n", c[0], c[1], c[3], c[2])
	}
	fmt.Fprintf(bw, "CELL_TYPES %d\n", len(elements))
	for range elements {
		fmt.Fprintf(bw, "%d\n", vtkQuad)
	}

	fmt.Fprintf(bw, "POINT_DATA %d\nSCALARS %s double 1\nLOOKUP_TABLE default\n", len(nodes), name)
	for _, v := range field {
		fmt.Fprintf(bw, "%.16g\n", v)
	}
	return bw.Flush()
}

// WriteVTKFile creates path and writes the grid into it
func WriteVTKFile(path, title string, nodes [][2]float64, elements [][element.NumNodes]int,
	name string, field []float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err = WriteVTK(f, title, nodes, elements, name, field); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
