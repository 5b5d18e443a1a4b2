package pipeline

import (
	"encoding/gob"
	"fmt"

	"netsecml/pkg/dataprep"
	"netsecml/pkg/stats"
)

// Transformer is a fit-on-train, transform-anything preprocessing step.
type Transformer interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) ([][]float64, error)
}

func init() {
	gob.Register(&dataprep.KNNImputer{})
	gob.Register(&stats.StandardScaler{})
}

// Pipeline chains multiple transformers.
type Pipeline struct {
	Steps []Transformer
}

func NewPipeline(steps ...Transformer) *Pipeline {
	return &Pipeline{Steps: steps}
}

// Fit fits each step on the output of the previous one.
func (p *Pipeline) Fit(X [][]float64) error {
	_, err := p.FitTransform(X)
	return err
}

func (p *Pipeline) FitTransform(X [][]float64) ([][]float64, error) {
	var err error
	for i, step := range p.Steps {
		if err = step.Fit(X); err != nil {
			return nil, fmt.Errorf("pipeline: fit step %d: %w", i, err)
		}
		if X, err = step.Transform(X); err != nil {
			return nil, fmt.Errorf("pipeline: transform step %d: %w", i, err)
		}
	}
	return X, nil
}

func (p *Pipeline) Transform(X [][]float64) ([][]float64, error) {
	var err error
	for i, step := range p.Steps {
		if X, err = step.Transform(X); err != nil {
			return nil, fmt.Errorf("pipeline: transform step %d: %w", i, err)
		}
	}
	return X, nil
}
