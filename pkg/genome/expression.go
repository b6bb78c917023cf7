package genome

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// AttachExpression reads a CSV table of empirical expression measurements and
// binds the values onto already-loaded genes. The first column is the gene id;
// every remaining column is one independent observation set. Missing values
// (empty, "NA", "NaN") are permitted. Rows naming unknown genes are skipped.
// The column count fixes ObservationSets for the run.
func (g *Genome) AttachExpression(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read expression header: %w", err)
	}
	if len(header) < 2 {
		return DataError{Reason: "expression table needs a gene column and at least one value column"}
	}
	sets := len(header) - 1

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read expression row: %w", err)
		}
		if len(record) != sets+1 {
			return DataError{Gene: record[0], Reason: fmt.Sprintf("expected %d value columns, got %d", sets, len(record)-1)}
		}
		idx := g.Index(strings.TrimSpace(record[0]))
		if idx < 0 {
			continue
		}
		values := make([]float64, sets)
		for i := 0; i < sets; i++ {
			cell := strings.TrimSpace(record[i+1])
			if cell == "" || strings.EqualFold(cell, "na") || strings.EqualFold(cell, "nan") {
				values[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return DataError{Gene: record[0], Reason: fmt.Sprintf("bad expression value %q", cell)}
			}
			if v <= 0 {
				return DataError{Gene: record[0], Reason: fmt.Sprintf("expression value %v not positive", v)}
			}
			values[i] = v
		}
		g.setObserved(idx, values)
	}
	g.observationSets = sets
	return nil
}

// LoadExpression attaches expression measurements from a CSV file on disk.
func (g *Genome) LoadExpression(path string) error {
	f, err := os.Open(path) // #nosec G304 -- caller-supplied data path
	if err != nil {
		return fmt.Errorf("open expression table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return g.AttachExpression(f)
}
