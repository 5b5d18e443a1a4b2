package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Column dtypes, named after the pandas dtypes the schema file uses.
const (
	Int64   = "int64"
	Float64 = "float64"
	Object  = "object"
)

// ErrNoColumn is returned when a named column does not exist.
var ErrNoColumn = errors.New("data: no such column")

// Table is a tabular dataset of string cells. A missing value is "".
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable returns an empty table with the given header.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// IsMissing reports whether a cell counts as missing.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "NA", "NaN", "nan", "null":
		return true
	}
	return false
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, error) {
	j := t.ColumnIndex(name)
	if j < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out, nil
}

// NumericColumn parses the named column as floats; missing cells become NaN.
func (t *Table) NumericColumn(name string) ([]float64, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, v := range cells {
		if IsMissing(v) {
			out[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("data: column %q row %d: %w", name, i, err)
		}
		out[i] = f
	}
	return out, nil
}

// DropColumn returns a new table without the named column.
func (t *Table) DropColumn(name string) (*Table, error) {
	j := t.ColumnIndex(name)
	if j < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	out := &Table{Columns: make([]string, 0, len(t.Columns)-1), Rows: make([][]string, len(t.Rows))}
	out.Columns = append(out.Columns, t.Columns[:j]...)
	out.Columns = append(out.Columns, t.Columns[j+1:]...)
	for i, row := range t.Rows {
		r := make([]string, 0, len(row)-1)
		r = append(r, row[:j]...)
		r = append(r, row[j+1:]...)
		out.Rows[i] = r
	}
	return out, nil
}

// Subset returns a table holding the rows at idx, in that order.
func (t *Table) Subset(idx []int) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...), Rows: make([][]string, len(idx))}
	for i, k := range idx {
		out.Rows[i] = append([]string(nil), t.Rows[k]...)
	}
	return out
}

// Dtype infers the dtype of a column the way a CSV reader would:
// integers with missing values widen to float64, an all-missing column is float64.
func (t *Table) Dtype(name string) (string, error) {
	cells, err := t.Column(name)
	if err != nil {
		return "", err
	}
	return inferDtype(cells), nil
}

// Dtypes returns the inferred dtype of every column keyed by name.
func (t *Table) Dtypes() map[string]string {
	out := make(map[string]string, len(t.Columns))
	for j, name := range t.Columns {
		cells := make([]string, len(t.Rows))
		for i, row := range t.Rows {
			cells[i] = row[j]
		}
		out[name] = inferDtype(cells)
	}
	return out
}

func inferDtype(cells []string) string {
	allInt := true
	missing := false
	seen := false
	for _, v := range cells {
		if IsMissing(v) {
			missing = true
			continue
		}
		seen = true
		s := strings.TrimSpace(v)
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				continue
			}
			allInt = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return Object
		}
	}
	if !seen {
		return Float64
	}
	if allInt && !missing {
		return Int64
	}
	return Float64
}

// Read parses CSV with a header row.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("data: empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("data: read header: %w", err)
	}
	t := NewTable(header...)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("data: line %d: %w", line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("data: line %d has %d fields, want %d", line, len(rec), len(header))
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// ReadCSV loads a CSV file with a header row.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: open %s: %w", path, err)
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteCSV writes the table with its header to path, creating parent dirs.
func (t *Table) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("data: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("data: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("data: write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("data: write rows: %w", err)
	}
	return f.Close()
}

// FormatFloat renders v the way a CSV export of a float column does: always
// with a decimal point, so the column reads back as float64. NaN is missing.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eI") {
		s += ".0"
	}
	return s
}
