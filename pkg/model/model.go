package model

import (
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
)

// Classifier is a supervised binary/multiclass classifier over dense features.
// PredictProba columns follow the order of Classes().
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
	PredictProba(X [][]float64) [][]float64
	Classes() []int
}

// Names accepted by New.
const (
	RandomForestName       = "random_forest"
	DecisionTreeName       = "decision_tree"
	LogisticRegressionName = "logistic_regression"
	KNNName                = "knn"
)

var ErrUnknownModel = errors.New("model: unknown model")

func init() {
	gob.Register(&DecisionTreeClassifier{})
	gob.Register(&RandomForest{})
	gob.Register(&LogisticRegression{})
	gob.Register(&KNN{})
}

// Hyperparameters configures every classifier New can build. Fields that do
// not apply to a model are ignored.
type Hyperparameters struct {
	NEstimators     int     `yaml:"n_estimators" json:"n_estimators"`
	MaxDepth        int     `yaml:"max_depth" json:"max_depth"`
	MinSamplesSplit int     `yaml:"min_samples_split" json:"min_samples_split"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf" json:"min_samples_leaf"`
	MaxFeatures     int     `yaml:"max_features" json:"max_features"`
	Criterion       string  `yaml:"criterion" json:"criterion"`
	LearningRate    float64 `yaml:"learning_rate" json:"learning_rate"`
	Epochs          int     `yaml:"epochs" json:"epochs"`
	BatchSize       int     `yaml:"batch_size" json:"batch_size"`
	L2              float64 `yaml:"l2" json:"l2"`
	Neighbors       int     `yaml:"neighbors" json:"neighbors"`
	RandomState     int64   `yaml:"random_state" json:"random_state"`
}

// DefaultHyperparameters mirrors the stock random forest setup: 100 trees, seed 42.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       "gini",
		LearningRate:    0.1,
		Epochs:          100,
		BatchSize:       32,
		Neighbors:       5,
		RandomState:     42,
	}
}

// New builds an unfitted classifier by name.
func New(name string, hp Hyperparameters) (Classifier, error) {
	switch name {
	case RandomForestName:
		return NewRandomForest(
			WithNEstimators(hp.NEstimators),
			WithForestMaxDepth(hp.MaxDepth),
			WithForestMinSamplesSplit(hp.MinSamplesSplit),
			WithForestMaxFeatures(hp.MaxFeatures),
			WithForestRandomState(hp.RandomState),
		), nil
	case DecisionTreeName:
		return NewDecisionTreeClassifier(
			WithMaxDepth(hp.MaxDepth),
			WithMinSamplesSplit(hp.MinSamplesSplit),
			WithMinSamplesLeaf(hp.MinSamplesLeaf),
			WithCriterion(hp.Criterion),
			WithMaxFeatures(hp.MaxFeatures),
			WithRandomState(hp.RandomState),
		), nil
	case LogisticRegressionName:
		return NewLogisticRegression(hp.LearningRate, hp.Epochs, hp.BatchSize,
			WithL2(hp.L2), WithLogisticRandomState(hp.RandomState)), nil
	case KNNName:
		return NewKNN(hp.Neighbors), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// checkXY validates a training set and returns its feature count.
func checkXY(prefix string, X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, errors.New(prefix + ": empty X")
	}
	if len(y) != len(X) {
		return 0, errors.New(prefix + ": X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return 0, errors.New(prefix + ": inconsistent number of features in X rows")
		}
	}
	return p, nil
}

// uniqueLabels returns the sorted distinct labels of y[idx] (all of y when idx is nil).
func uniqueLabels(y []int, idx []int) []int {
	seen := map[int]struct{}{}
	if idx == nil {
		for _, v := range y {
			seen[v] = struct{}{}
		}
	} else {
		for _, i := range idx {
			seen[y[i]] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func argmaxFloat(arr []float64) int {
	best := 0
	for i := 1; i < len(arr); i++ {
		if arr[i] > arr[best] {
			best = i
		}
	}
	return best
}

// labelsFromProba maps each probability row to its most likely label.
func labelsFromProba(proba [][]float64, labels []int) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if len(p) == 0 {
			continue
		}
		out[i] = labels[argmaxFloat(p)]
	}
	return out
}
