package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSliceRejectsRaggedRows(t *testing.T) {
	_, err := FromSlice([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestAppendAndSplitLastColumn(t *testing.T) {
	m, err := FromSlice([][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)

	withY, err := m.AppendColumn([]float64{0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 3, withY.C)
	assert.Equal(t, 1.0, withY.At(1, 2))

	X, y, err := withY.SplitLastColumn()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, X)
	assert.Equal(t, []float64{0, 1, 0}, y)

	_, err = m.AppendColumn([]float64{1})
	assert.Error(t, err)
}

func TestSetAndCol(t *testing.T) {
	m := NewMatrix(2, 2)
	m.Set(1, 0, 7)
	assert.Equal(t, []float64{0, 7}, m.Col(0))
	c := m.Clone()
	c.Set(1, 0, 8)
	assert.Equal(t, 7.0, m.At(1, 0))
}

func TestSaveLoadArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "train.gob.gz")
	m, err := FromSlice([][]float64{{0.5, -1, 1}, {2, 3, 0}})
	require.NoError(t, err)

	require.NoError(t, SaveArray(path, m))
	got, err := LoadArray(path)
	require.NoError(t, err)
	assert.Equal(t, m.Rows(), got.Rows())

	_, err = LoadArray(filepath.Join(t.TempDir(), "missing.gob.gz"))
	assert.Error(t, err)
}
