package pipeline

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"netsecml/pkg/core"
	"netsecml/pkg/data"
	"netsecml/pkg/dataprep"
	"netsecml/pkg/stats"
)

// Preprocessor turns feature tables into model-ready matrices: object columns
// are one-hot encoded, numeric columns are KNN-imputed then standardized.
// Numeric outputs come first, followed by the one-hot block.
type Preprocessor struct {
	FeatureColumns []string
	NumericIdx     []int
	CategoricalIdx []int
	Neighbors      int

	Numeric *Pipeline
	Encoder *dataprep.OneHotEncoder
}

// NewPreprocessor returns an unfitted preprocessor whose imputer uses k neighbours.
func NewPreprocessor(k int) *Preprocessor {
	return &Preprocessor{Neighbors: k}
}

// FitTransform learns the column layout, imputation and scaling from t and
// returns t transformed.
func (p *Preprocessor) FitTransform(t *data.Table) (*core.Matrix, error) {
	if t.Len() == 0 {
		return nil, errors.New("preprocessor: empty table")
	}
	p.FeatureColumns = append([]string(nil), t.Columns...)
	p.NumericIdx, p.CategoricalIdx = nil, nil
	dtypes := t.Dtypes()
	for j, name := range t.Columns {
		if dtypes[name] == data.Object {
			p.CategoricalIdx = append(p.CategoricalIdx, j)
		} else {
			p.NumericIdx = append(p.NumericIdx, j)
		}
	}

	num, cat, err := p.split(t.Rows)
	if err != nil {
		return nil, err
	}
	var numOut [][]float64
	if len(p.NumericIdx) > 0 {
		p.Numeric = NewPipeline(dataprep.NewKNNImputer(p.Neighbors), stats.NewStandardScaler())
		if numOut, err = p.Numeric.FitTransform(num); err != nil {
			return nil, err
		}
	}
	if len(p.CategoricalIdx) > 0 {
		p.Encoder = &dataprep.OneHotEncoder{}
		names := make([]string, len(p.CategoricalIdx))
		cols := make([][]string, len(p.CategoricalIdx))
		for k, j := range p.CategoricalIdx {
			names[k] = p.FeatureColumns[j]
			cols[k] = make([]string, len(cat))
			for i := range cat {
				cols[k][i] = cat[i][k]
			}
		}
		if err := p.Encoder.Fit(names, cols); err != nil {
			return nil, err
		}
	}
	return p.assemble(numOut, cat)
}

// Transform applies the fitted preprocessor. t must carry every feature
// column seen during fitting; column order does not matter.
func (p *Preprocessor) Transform(t *data.Table) (*core.Matrix, error) {
	if p.FeatureColumns == nil {
		return nil, errors.New("preprocessor: not fitted")
	}
	order := make([]int, len(p.FeatureColumns))
	for k, name := range p.FeatureColumns {
		j := t.ColumnIndex(name)
		if j < 0 {
			return nil, fmt.Errorf("preprocessor: %w: %q", data.ErrNoColumn, name)
		}
		order[k] = j
	}
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(order))
		for k, j := range order {
			r[k] = row[j]
		}
		rows[i] = r
	}
	return p.TransformRows(rows)
}

// TransformRows transforms rows whose cells follow FeatureColumns order.
func (p *Preprocessor) TransformRows(rows [][]string) (*core.Matrix, error) {
	if p.FeatureColumns == nil {
		return nil, errors.New("preprocessor: not fitted")
	}
	for i, r := range rows {
		if len(r) != len(p.FeatureColumns) {
			return nil, fmt.Errorf("preprocessor: row %d has %d features, want %d", i, len(r), len(p.FeatureColumns))
		}
	}
	num, cat, err := p.split(rows)
	if err != nil {
		return nil, err
	}
	var numOut [][]float64
	if p.Numeric != nil {
		if numOut, err = p.Numeric.Transform(num); err != nil {
			return nil, err
		}
	}
	return p.assemble(numOut, cat)
}

// TransformFloats transforms purely numeric feature vectors.
func (p *Preprocessor) TransformFloats(X [][]float64) (*core.Matrix, error) {
	if len(p.CategoricalIdx) > 0 {
		return nil, errors.New("preprocessor: categorical features need string input")
	}
	rows := make([][]string, len(X))
	for i, x := range X {
		r := make([]string, len(x))
		for j, v := range x {
			if math.IsNaN(v) {
				continue
			}
			r[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		rows[i] = r
	}
	return p.TransformRows(rows)
}

// OutputNames names every column of the transformed matrix.
func (p *Preprocessor) OutputNames() []string {
	names := make([]string, 0, len(p.NumericIdx))
	for _, j := range p.NumericIdx {
		names = append(names, p.FeatureColumns[j])
	}
	if p.Encoder != nil {
		names = append(names, p.Encoder.FeatureNames()...)
	}
	return names
}

func (p *Preprocessor) split(rows [][]string) (num [][]float64, cat [][]string, err error) {
	num = make([][]float64, len(rows))
	cat = make([][]string, len(rows))
	for i, row := range rows {
		n := make([]float64, len(p.NumericIdx))
		for k, j := range p.NumericIdx {
			v := row[j]
			if data.IsMissing(v) {
				n[k] = math.NaN()
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("preprocessor: column %q row %d: %w", p.FeatureColumns[j], i, err)
			}
			n[k] = f
		}
		c := make([]string, len(p.CategoricalIdx))
		for k, j := range p.CategoricalIdx {
			c[k] = row[j]
		}
		num[i], cat[i] = n, c
	}
	return num, cat, nil
}

func (p *Preprocessor) assemble(num [][]float64, cat [][]string) (*core.Matrix, error) {
	width := len(p.NumericIdx)
	if p.Encoder != nil {
		width += p.Encoder.Width()
	}
	m := core.NewMatrix(len(cat), width)
	for i := range cat {
		row := m.Row(i)
		if num != nil {
			copy(row, num[i])
		}
		if p.Encoder != nil {
			enc, err := p.Encoder.Encode(cat[i])
			if err != nil {
				return nil, err
			}
			copy(row[len(p.NumericIdx):], enc)
		}
	}
	return m, nil
}

// Save gob-encodes the fitted preprocessor to path.
func (p *Preprocessor) Save(path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return fmt.Errorf("preprocessor: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("preprocessor: create dir: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadPreprocessor reads a preprocessor written by Save.
func LoadPreprocessor(path string) (*Preprocessor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preprocessor: read %s: %w", path, err)
	}
	var p Preprocessor
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return nil, fmt.Errorf("preprocessor: decode %s: %w", path, err)
	}
	return &p, nil
}
