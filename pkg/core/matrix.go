package core

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Matrix is a dense row-major matrix of float64.
type Matrix struct {
	R, C int
	Data []float64
}

// NewMatrix allocates a zero matrix.
func NewMatrix(r, c int) *Matrix {
	return &Matrix{R: r, C: c, Data: make([]float64, r*c)}
}

// FromSlice creates a Matrix from a nested slice (copies data).
func FromSlice(a [][]float64) (*Matrix, error) {
	r := len(a)
	if r == 0 {
		return &Matrix{}, nil
	}
	c := len(a[0])
	m := NewMatrix(r, c)
	k := 0
	for i := 0; i < r; i++ {
		if len(a[i]) != c {
			return nil, fmt.Errorf("core: row %d has %d columns, want %d", i, len(a[i]), c)
		}
		for j := 0; j < c; j++ {
			m.Data[k] = a[i][j]
			k++
		}
	}
	return m, nil
}

// At returns element (i, j).
func (m *Matrix) At(i, j int) float64 { return m.Data[i*m.C+j] }

// Set sets element (i, j).
func (m *Matrix) Set(i, j int, v float64) { m.Data[i*m.C+j] = v }

// Row returns row i as a slice sharing the matrix storage.
func (m *Matrix) Row(i int) []float64 { return m.Data[i*m.C : (i+1)*m.C] }

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []float64 {
	out := make([]float64, m.R)
	for i := 0; i < m.R; i++ {
		out[i] = m.Data[i*m.C+j]
	}
	return out
}

// Rows returns the matrix as a nested slice (copies data).
func (m *Matrix) Rows() [][]float64 {
	out := make([][]float64, m.R)
	for i := 0; i < m.R; i++ {
		row := make([]float64, m.C)
		copy(row, m.Row(i))
		out[i] = row
	}
	return out
}

// Clone deep copies the matrix.
func (m *Matrix) Clone() *Matrix {
	n := &Matrix{R: m.R, C: m.C, Data: make([]float64, len(m.Data))}
	copy(n.Data, m.Data)
	return n
}

// AppendColumn returns a new matrix with col appended as the last column.
func (m *Matrix) AppendColumn(col []float64) (*Matrix, error) {
	if len(col) != m.R {
		return nil, errors.New("core: column length does not match row count")
	}
	out := NewMatrix(m.R, m.C+1)
	for i := 0; i < m.R; i++ {
		copy(out.Data[i*out.C:], m.Row(i))
		out.Data[i*out.C+m.C] = col[i]
	}
	return out, nil
}

// SplitLastColumn separates the feature rows from the last column.
func (m *Matrix) SplitLastColumn() ([][]float64, []float64, error) {
	if m.C < 2 {
		return nil, nil, errors.New("core: need at least two columns to split")
	}
	X := make([][]float64, m.R)
	y := make([]float64, m.R)
	for i := 0; i < m.R; i++ {
		row := make([]float64, m.C-1)
		copy(row, m.Data[i*m.C:i*m.C+m.C-1])
		X[i] = row
		y[i] = m.Data[i*m.C+m.C-1]
	}
	return X, y, nil
}

// SaveArray writes m gzip-compressed and gob-encoded to path, creating parent dirs.
func SaveArray(path string, m *Matrix) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("core: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("core: create %s: %w", path, err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := gob.NewEncoder(zw).Encode(m); err != nil {
		return fmt.Errorf("core: encode array: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("core: flush array: %w", err)
	}
	return f.Close()
}

// LoadArray reads a matrix written by SaveArray.
func LoadArray(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("core: open %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("core: read %s: %w", path, err)
	}
	defer zr.Close()

	var m Matrix
	if err := gob.NewDecoder(zr).Decode(&m); err != nil {
		return nil, fmt.Errorf("core: decode %s: %w", path, err)
	}
	if len(m.Data) != m.R*m.C {
		return nil, fmt.Errorf("core: corrupt array %s: %d values for %dx%d", path, len(m.Data), m.R, m.C)
	}
	return &m, nil
}
