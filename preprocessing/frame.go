package preprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
)

// Frame is a minimal table of string cells addressed by column name.
// It is what CSV files decode into before any feature transform.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// NewFrame creates a Frame and checks that every row has one cell per column.
func NewFrame(columns []string, rows [][]string) (*Frame, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, prErrors.NewDimensionError("NewFrame", len(columns), len(row), i)
		}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of column name, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]string, error) {
	idx := f.Index(name)
	if idx < 0 {
		return nil, prErrors.NewValueError("Frame.Column", fmt.Sprintf("unknown column %q", name))
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Select returns the named columns as rows, in the given column order.
func (f *Frame) Select(names []string) ([][]string, error) {
	idx := make([]int, len(names))
	for k, name := range names {
		idx[k] = f.Index(name)
		if idx[k] < 0 {
			return nil, prErrors.NewValueError("Frame.Select", fmt.Sprintf("unknown column %q", name))
		}
	}
	out := make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		sel := make([]string, len(idx))
		for k, j := range idx {
			sel[k] = row[j]
		}
		out[i] = sel
	}
	return out, nil
}

// Numeric parses the named columns as floats. Empty cells become NaN.
func (f *Frame) Numeric(names []string) (*mat.Dense, error) {
	cells, err := f.Select(names)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 || len(names) == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(len(cells), len(names), nil)
	for i, row := range cells {
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				out.Set(i, j, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, prErrors.NewValueError("Frame.Numeric",
					fmt.Sprintf("row %d column %q: %q is not numeric", i, names[j], cell))
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}
