package dataprep

import (
	"errors"
	"sort"

	"netsecml/pkg/data"
)

// MissingCategory stands in for a missing cell in a categorical column.
const MissingCategory = "missing"

// OneHotEncoder one-hot encodes string columns. Categories are learned in
// sorted order; a category not seen during Fit encodes as all zeros.
type OneHotEncoder struct {
	Columns    []string
	Categories [][]string
}

// Fit learns the categories of each column. cols[j] holds the cells of Columns[j].
func (e *OneHotEncoder) Fit(names []string, cols [][]string) error {
	if len(names) != len(cols) {
		return errors.New("onehot: names and columns length mismatch")
	}
	e.Columns = append([]string(nil), names...)
	e.Categories = make([][]string, len(cols))
	for j, col := range cols {
		unique := map[string]struct{}{}
		for _, v := range col {
			unique[category(v)] = struct{}{}
		}
		cats := make([]string, 0, len(unique))
		for c := range unique {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
	}
	return nil
}

// Width is the number of output features.
func (e *OneHotEncoder) Width() int {
	w := 0
	for _, c := range e.Categories {
		w += len(c)
	}
	return w
}

// FeatureNames returns "<column>_<category>" for every output feature.
func (e *OneHotEncoder) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for j, cats := range e.Categories {
		for _, c := range cats {
			names = append(names, e.Columns[j]+"_"+c)
		}
	}
	return names
}

// Encode one-hot encodes a single row of categorical cells.
func (e *OneHotEncoder) Encode(cells []string) ([]float64, error) {
	if len(cells) != len(e.Categories) {
		return nil, errors.New("onehot: cell count mismatch")
	}
	out := make([]float64, e.Width())
	offset := 0
	for j, v := range cells {
		cats := e.Categories[j]
		c := category(v)
		if k := sort.SearchStrings(cats, c); k < len(cats) && cats[k] == c {
			out[offset+k] = 1
		}
		offset += len(cats)
	}
	return out, nil
}

func category(v string) string {
	if data.IsMissing(v) {
		return MissingCategory
	}
	return v
}
