package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteCSV writes one record per node: index, x, y and the field value
func WriteCSV(out io.Writer, nodes [][2]float64, name string, field []float64) error {
	if len(field) != len(nodes) {
		return fmt.Errorf("field has %d values for %d nodes", len(field), len(nodes))
	}
	w := csv.NewWriter(out)
	if err := w.Write([]string{"node", "x", "y", name}); err != nil {
		return err
	}
	for i, p := range nodes {
		record := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(p[0], 'g', -1, 64),
			strconv.FormatFloat(p[1], 'g', -1, 64),
			strconv.FormatFloat(field[i], 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("error writing record to csv: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteCSVFile creates path and writes the table into it
func WriteCSVFile(path string, nodes [][2]float64, name string, field []float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err = WriteCSV(f, nodes, name, field); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
