package estimator

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsecml/pkg/data"
	"netsecml/pkg/model"
	"netsecml/pkg/pipeline"
)

func fitted(t *testing.T) *NetworkModel {
	t.Helper()
	train := data.NewTable("text_length", "contains_malware_word")
	var y []int
	for i := 0; i < 20; i++ {
		kw := "0"
		label := 0
		if i >= 10 {
			kw = "0.7"
			label = 1
		}
		train.Rows = append(train.Rows, []string{"0." + string(rune('0'+i%10)), kw})
		y = append(y, label)
	}
	pre := pipeline.NewPreprocessor(3)
	X, err := pre.FitTransform(train)
	require.NoError(t, err)
	clf := model.NewDecisionTreeClassifier(model.WithRandomState(1))
	require.NoError(t, clf.Fit(X.Rows(), y))
	return New(model.DecisionTreeName, pre, clf)
}

func TestPredictAppliesPreprocessor(t *testing.T) {
	m := fitted(t)
	assert.Equal(t, []string{"text_length", "contains_malware_word"}, m.FeatureNames())

	in := &data.Table{
		Columns: []string{"contains_malware_word", "text_length"},
		Rows:    [][]string{{"0.7", "0.3"}, {"0", "0.3"}},
	}
	preds, err := m.Predict(in)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, Prediction{
		Label: 1, Confidence: 1, MaliciousProbability: 1,
		Probabilities: map[string]float64{"0": 0, "1": 1},
	}, preds[0])
	assert.Equal(t, Prediction{
		Label: 0, Confidence: 1, MaliciousProbability: 0,
		Probabilities: map[string]float64{"0": 1, "1": 0},
	}, preds[1])

	vec, err := m.PredictVectors([][]float64{{0.3, 0.7}, {math.NaN(), 0}})
	require.NoError(t, err)
	assert.Equal(t, 1, vec[0].Label)
	assert.Equal(t, 0, vec[1].Label)

	_, err = m.PredictVectors([][]float64{{1}})
	assert.Error(t, err)
	_, err = m.Predict(&data.Table{Columns: []string{"text_length"}, Rows: [][]string{{"1"}}})
	assert.ErrorIs(t, err, data.ErrNoColumn)
}

func TestSaveLoad(t *testing.T) {
	m := fitted(t)
	path := filepath.Join(t.TempDir(), "saved_models", "model.gob")
	require.NoError(t, m.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionTreeName, back.Name)
	want, err := m.PredictVectors([][]float64{{0.1, 0.7}})
	require.NoError(t, err)
	got, err := back.PredictVectors([][]float64{{0.1, 0.7}})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)

	_, err = (&NetworkModel{}).Predict(data.NewTable())
	assert.Error(t, err)
}
