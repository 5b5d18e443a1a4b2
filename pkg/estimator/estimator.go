// Package estimator bundles the fitted preprocessor with the accepted
// classifier so callers predict from raw feature cells.
package estimator

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"netsecml/pkg/data"
	"netsecml/pkg/model"
	"netsecml/pkg/pipeline"
)

// MaliciousLabel is the positive class.
const MaliciousLabel = 1

// NetworkModel applies the preprocessor, then the classifier.
type NetworkModel struct {
	Name         string
	Preprocessor *pipeline.Preprocessor
	Classifier   model.Classifier
}

// Prediction is one classified row.
type Prediction struct {
	Label int `json:"prediction"`
	// Confidence is the probability of Label.
	Confidence float64 `json:"confidence"`
	// MaliciousProbability is the probability of the positive class.
	MaliciousProbability float64 `json:"malicious_probability"`
	// Probabilities maps each class label to its probability.
	Probabilities map[string]float64 `json:"probabilities"`
}

func New(name string, pre *pipeline.Preprocessor, clf model.Classifier) *NetworkModel {
	return &NetworkModel{Name: name, Preprocessor: pre, Classifier: clf}
}

// FeatureNames lists the input columns the model expects, in order.
func (m *NetworkModel) FeatureNames() []string {
	return m.Preprocessor.FeatureColumns
}

// Predict classifies every row of t. Columns are matched by name.
func (m *NetworkModel) Predict(t *data.Table) ([]Prediction, error) {
	if m.Preprocessor == nil || m.Classifier == nil {
		return nil, errors.New("estimator: model is not loaded")
	}
	X, err := m.Preprocessor.Transform(t)
	if err != nil {
		return nil, err
	}
	return m.classify(X.Rows()), nil
}

// PredictVectors classifies numeric vectors laid out in FeatureNames order.
// NaN marks a missing value.
func (m *NetworkModel) PredictVectors(X [][]float64) ([]Prediction, error) {
	if m.Preprocessor == nil || m.Classifier == nil {
		return nil, errors.New("estimator: model is not loaded")
	}
	names := m.FeatureNames()
	t := data.NewTable(names...)
	for i, x := range X {
		if len(x) != len(names) {
			return nil, fmt.Errorf("estimator: row %d has %d features, want %d", i, len(x), len(names))
		}
		row := make([]string, len(x))
		for j, v := range x {
			if !math.IsNaN(v) {
				row[j] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return m.Predict(t)
}

func (m *NetworkModel) classify(X [][]float64) []Prediction {
	proba := m.Classifier.PredictProba(X)
	classes := m.Classifier.Classes()
	pos := -1
	for k, c := range classes {
		if c == MaliciousLabel {
			pos = k
		}
	}
	out := make([]Prediction, len(proba))
	for i, p := range proba {
		best := 0
		for k := range p {
			if p[k] > p[best] {
				best = k
			}
		}
		pred := Prediction{Label: classes[best], Confidence: p[best], Probabilities: make(map[string]float64, len(p))}
		for k, c := range classes {
			pred.Probabilities[strconv.Itoa(c)] = p[k]
		}
		if pos >= 0 {
			pred.MaliciousProbability = p[pos]
		}
		out[i] = pred
	}
	return out
}

// Save gob-encodes the model to path, creating parent dirs.
func (m *NetworkModel) Save(path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("estimator: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("estimator: create dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("estimator: write %s: %w", path, err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(path string) (*NetworkModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("estimator: read %s: %w", path, err)
	}
	var m NetworkModel
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&m); err != nil {
		return nil, fmt.Errorf("estimator: decode %s: %w", path, err)
	}
	if m.Preprocessor == nil || m.Classifier == nil {
		return nil, fmt.Errorf("estimator: %s holds an incomplete model", path)
	}
	return &m, nil
}
