package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notargets/QuadHeat/element"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	nodes    = [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	elements = [][element.NumNodes]int{{0, 1, 2, 3}}
	field    = []float64{0, 0, 1, 1}
)

func TestWriteVTK(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVTK(&buf, "run 1234\nsecond line", nodes, elements, "D", field))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Equal(t, "# vtk DataFile Version 3.0", lines[0])
	assert.Equal(t, "run 1234 second line", lines[1])
	assert.Equal(t, "DATASET UNSTRUCTURED_GRID", lines[3])
	assert.Equal(t, "POINTS 4 double", lines[4])
	assert.Equal(t, "1 1 0", lines[8])
	assert.Equal(t, "CELLS 1 5", lines[9])
	// loop order BL, BR, TR, TL
	assert.Equal(t, "4 0 1 3 2", lines[10])
	assert.Equal(t, "CELL_TYPES 1", lines[11])
	assert.Equal(t, "9", lines[12])
	assert.Equal(t, "POINT_DATA 4", lines[13])
	assert.Equal(t, "SCALARS D double 1", lines[14])
	assert.Equal(t, []string{"0", "0", "1", "1"}, lines[16:])

	assert.Error(t, WriteVTK(&buf, "", nodes, elements, "D", field[:2]))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nodes, "D", []float64{0.5, 0, 1, 1.25}))
	assert.Equal(t, "node,x,y,D\n0,0,0,0.5\n1,1,0,0\n2,0,1,1\n3,1,1,1.25\n", buf.String())
	assert.Error(t, WriteCSV(&buf, nodes, "D", nil))
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	vtk := filepath.Join(dir, "solution.vtk")
	csvPath := filepath.Join(dir, "solution.csv")
	require.NoError(t, WriteVTKFile(vtk, "t", nodes, elements, "D", field))
	require.NoError(t, WriteCSVFile(csvPath, nodes, "D", field))
	for _, p := range []string{vtk, csvPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Error(t, WriteVTKFile(filepath.Join(dir, "missing", "x.vtk"), "t", nodes, elements, "D", field))
}
