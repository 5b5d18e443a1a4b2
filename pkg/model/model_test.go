package model

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepData is linearly separable at x = 9.5; the second column is a scaled copy.
func stepData() ([][]float64, []int) {
	X := make([][]float64, 20)
	y := make([]int, 20)
	for i := range X {
		X[i] = []float64{float64(i), float64(2 * i)}
		if i >= 10 {
			y[i] = 1
		}
	}
	return X, y
}

func TestDecisionTreeFitsStep(t *testing.T) {
	X, y := stepData()
	tree := NewDecisionTreeClassifier(WithRandomState(1))
	require.NoError(t, tree.Fit(X, y))

	assert.Equal(t, []int{0, 1}, tree.Classes())
	assert.Equal(t, y, tree.Predict(X))
	assert.Equal(t, 1, tree.Depth())
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, tree.PredictProba([][]float64{{3, 6}, {15, 30}}))
}

func TestDecisionTreeRoutesNaN(t *testing.T) {
	nan := math.NaN()
	X := [][]float64{{1}, {2}, {3}, {nan}, {10}, {11}, {12}}
	y := []int{0, 0, 0, 1, 1, 1, 1}
	tree := NewDecisionTreeClassifier(WithCriterion("entropy"), WithRandomState(1))
	require.NoError(t, tree.Fit(X, y))
	assert.Equal(t, []int{1, 0}, tree.Predict([][]float64{{nan}, {2.5}}))
	assert.False(t, tree.Root.NaNLeft)
}

func TestDecisionTreeLimitsAndErrors(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}, {4}, {5}}
	y := []int{0, 1, 0, 1, 0, 1}
	tree := NewDecisionTreeClassifier(WithMaxDepth(1), WithRandomState(1))
	require.NoError(t, tree.Fit(X, y))
	assert.LessOrEqual(t, tree.Depth(), 1)

	assert.Error(t, NewDecisionTreeClassifier().Fit(nil, nil))
	assert.Error(t, NewDecisionTreeClassifier().Fit([][]float64{{1}}, []int{1, 0}))
	assert.Error(t, NewDecisionTreeClassifier().Fit([][]float64{{1}, {1, 2}}, []int{1, 0}))
	assert.Error(t, NewDecisionTreeClassifier(WithCriterion("mse")).Fit(X, y))
}

func TestDecisionTreeFitSamplesRepeatsRows(t *testing.T) {
	X, y := stepData()
	tree := NewDecisionTreeClassifier(WithRandomState(1))
	require.NoError(t, tree.FitSamples(X, y, []int{0, 0, 1, 2}))
	assert.Equal(t, []int{0}, tree.Classes())
	assert.Equal(t, []int{0, 0}, tree.Predict([][]float64{{0, 0}, {19, 38}}))
}

func TestRandomForest(t *testing.T) {
	X, y := stepData()
	rf := NewRandomForest(WithNEstimators(15), WithForestRandomState(42))
	require.NoError(t, rf.Fit(X, y))
	assert.Len(t, rf.Trees, 15)

	proba := rf.PredictProba([][]float64{{0, 0}, {19, 38}})
	for _, p := range proba {
		assert.InDelta(t, 1.0, p[0]+p[1], 1e-9)
	}
	assert.Equal(t, []int{0, 1}, rf.Predict([][]float64{{0, 0}, {19, 38}}))

	again := NewRandomForest(WithNEstimators(15), WithForestRandomState(42))
	require.NoError(t, again.Fit(X, y))
	assert.Equal(t, proba, again.PredictProba([][]float64{{0, 0}, {19, 38}}), "same seed, same forest")
}

func TestLogisticRegression(t *testing.T) {
	var X [][]float64
	var y []int
	for i := -10; i <= 10; i++ {
		if i == 0 {
			continue
		}
		X = append(X, []float64{float64(i) / 10})
		if i > 0 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	m := NewLogisticRegression(0.5, 300, 4, WithLogisticRandomState(7))
	require.NoError(t, m.Fit(X, y))
	assert.Equal(t, []int{0, 1}, m.Predict([][]float64{{-0.9}, {0.9}}))
	p := m.PredictProba([][]float64{{0.9}})[0]
	assert.Greater(t, p[1], 0.5)
	assert.InDelta(t, 1.0, p[0]+p[1], 1e-12)
	assert.Less(t, m.Loss(X, y), 0.69)

	assert.Error(t, NewLogisticRegression(0.1, 1, 1).Fit([][]float64{{1}}, []int{1}))
}

func TestKNN(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {10}, {11}, {12}}
	y := []int{0, 0, 0, 1, 1, 1}
	m := NewKNN(3)
	require.NoError(t, m.Fit(X, y))
	assert.Equal(t, []int{0, 1}, m.Predict([][]float64{{1.5}, {10.5}}))
	assert.Equal(t, []float64{1, 0}, m.PredictProba([][]float64{{1}})[0])
	assert.Equal(t, 5, NewKNN(0).K)
}

func TestMetrics(t *testing.T) {
	score := ClassificationScore([]int{1, 1, 0, 0}, []int{1, 0, 1, 0})
	assert.Equal(t, 0.5, score.PrecisionScore)
	assert.Equal(t, 0.5, score.RecallScore)
	assert.Equal(t, 0.5, score.F1Score)
	assert.Equal(t, 0.5, score.Accuracy)

	prec, rec, f1 := PrecisionRecallF1([]int{1, 0}, []int{0, 0})
	assert.Zero(t, prec)
	assert.Zero(t, rec)
	assert.Zero(t, f1)
	assert.Zero(t, Accuracy(nil, nil))
}

func TestNewByName(t *testing.T) {
	hp := DefaultHyperparameters()
	for _, name := range []string{RandomForestName, DecisionTreeName, LogisticRegressionName, KNNName} {
		c, err := New(name, hp)
		require.NoError(t, err, name)
		assert.NotNil(t, c)
	}
	rf, err := New(RandomForestName, hp)
	require.NoError(t, err)
	assert.Equal(t, 100, rf.(*RandomForest).NEstimators)
	assert.Equal(t, int64(42), rf.(*RandomForest).RandomState)

	_, err = New("svm", hp)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestClassifiersRoundTripThroughGob(t *testing.T) {
	X, y := stepData()
	hp := DefaultHyperparameters()
	hp.NEstimators = 5
	hp.Epochs = 20
	for _, name := range []string{RandomForestName, DecisionTreeName, LogisticRegressionName, KNNName} {
		c, err := New(name, hp)
		require.NoError(t, err)
		require.NoError(t, c.Fit(X, y), name)

		type envelope struct{ C Classifier }
		var buf bytes.Buffer
		require.NoError(t, gob.NewEncoder(&buf).Encode(envelope{C: c}), name)
		var back envelope
		require.NoError(t, gob.NewDecoder(&buf).Decode(&back), name)
		assert.Equal(t, c.PredictProba(X), back.C.PredictProba(X), name)
	}
}
