package components

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"netsecml/pkg/artifact"
	"netsecml/pkg/config"
	"netsecml/pkg/core"
	"netsecml/pkg/estimator"
	"netsecml/pkg/model"
	"netsecml/pkg/pipeline"
)

// ErrModelRejected is returned when the best model's test F1 is below the expected score.
var ErrModelRejected = errors.New("model performance below expected score")

type ModelTrainer struct {
	in  artifact.DataTransformationArtifact
	cfg config.ModelTrainerConfig
	log *zap.Logger
}

func NewModelTrainer(in artifact.DataTransformationArtifact, cfg config.ModelTrainerConfig, log *zap.Logger) *ModelTrainer {
	return &ModelTrainer{in: in, cfg: cfg, log: log}
}

// CandidateScore is the test F1 of one fitted candidate.
type CandidateScore struct {
	Name   string  `json:"name"`
	TestF1 float64 `json:"test_f1"`
}

type candidate struct {
	name  string
	clf   model.Classifier
	score float64
}

// ErrNoCandidates is returned when no candidate model could be fitted.
var ErrNoCandidates = errors.New("no candidate model could be fitted")

// evaluateModels fits every named candidate concurrently and scores it on
// the test split. A candidate that fails to fit is logged and left out.
// Results come back in the order of names.
func evaluateModels(ctx context.Context, log *zap.Logger, names []string, hp model.Hyperparameters,
	xTrain [][]float64, yTrain []int, xTest [][]float64, yTest []int) ([]candidate, error) {
	if len(names) == 0 {
		return nil, errors.New("no candidate models")
	}
	fitted := make([]*candidate, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			clf, err := model.New(name, hp)
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := clf.Fit(xTrain, yTrain); err != nil {
				log.Warn("Skipping candidate", zap.String("model", name), zap.Error(err))
				return nil
			}
			_, _, f1 := model.PrecisionRecallF1(yTest, clf.Predict(xTest))
			fitted[i] = &candidate{name: name, clf: clf, score: f1}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(names))
	for _, c := range fitted {
		if c != nil {
			out = append(out, *c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: tried %v", ErrNoCandidates, names)
	}
	return out, nil
}

// Result is the trainer artifact plus the per-candidate scores.
type Result struct {
	Artifact   artifact.ModelTrainerArtifact
	Candidates []CandidateScore
}

// Run picks the best candidate by test F1, gates it on the expected score and
// persists it together with the fitted preprocessor.
func (m *ModelTrainer) Run(ctx context.Context) (Result, error) {
	m.log.Info("Starting model training", zap.Strings("candidates", m.cfg.Candidates))
	trainArr, err := core.LoadArray(m.in.TransformedTrainFilePath)
	if err != nil {
		return Result{}, err
	}
	testArr, err := core.LoadArray(m.in.TransformedTestFilePath)
	if err != nil {
		return Result{}, err
	}
	xTrain, yTrain, err := labelsFromArray(trainArr)
	if err != nil {
		return Result{}, fmt.Errorf("train: %w", err)
	}
	xTest, yTest, err := labelsFromArray(testArr)
	if err != nil {
		return Result{}, fmt.Errorf("test: %w", err)
	}
	pre, err := pipeline.LoadPreprocessor(m.in.TransformedObjectFilePath)
	if err != nil {
		return Result{}, err
	}

	cands, err := evaluateModels(ctx, m.log, m.cfg.Candidates, m.cfg.Hyperparameters, xTrain, yTrain, xTest, yTest)
	if err != nil {
		return Result{}, err
	}
	best := cands[0]
	scores := make([]CandidateScore, len(cands))
	for i, c := range cands {
		scores[i] = CandidateScore{Name: c.name, TestF1: c.score}
		m.log.Info("Evaluated candidate", zap.String("model", c.name), zap.Float64("test_f1", c.score))
		if c.score > best.score {
			best = c
		}
	}

	trainMetric := model.ClassificationScore(yTrain, best.clf.Predict(xTrain))
	testMetric := model.ClassificationScore(yTest, best.clf.Predict(xTest))
	m.log.Info("Best model",
		zap.String("model", best.name),
		zap.Any("train_metric", trainMetric),
		zap.Any("test_metric", testMetric))

	res := Result{
		Artifact: artifact.ModelTrainerArtifact{
			ModelName:   best.name,
			TrainMetric: trainMetric,
			TestMetric:  testMetric,
		},
		Candidates: scores,
	}
	if testMetric.F1Score < m.cfg.ExpectedScore {
		return res, fmt.Errorf("%w: test f1 %.4f < %.4f", ErrModelRejected, testMetric.F1Score, m.cfg.ExpectedScore)
	}
	if diff := math.Abs(trainMetric.F1Score - testMetric.F1Score); diff > m.cfg.OverfittingUnderfittingThreshold {
		m.log.Warn("Train and test F1 diverge",
			zap.Float64("difference", diff),
			zap.Float64("threshold", m.cfg.OverfittingUnderfittingThreshold))
	}

	nm := estimator.New(best.name, pre, best.clf)
	if err := nm.Save(m.cfg.TrainedModelFilePath); err != nil {
		return res, err
	}
	if m.cfg.FinalModelFilePath != "" {
		if err := nm.Save(m.cfg.FinalModelFilePath); err != nil {
			return res, err
		}
	}
	res.Artifact.TrainedModelFilePath = m.cfg.TrainedModelFilePath
	m.log.Info("Saved trained model", zap.String("path", m.cfg.TrainedModelFilePath))
	return res, nil
}

// labelsFromArray splits the last column off as integer class labels.
func labelsFromArray(m *core.Matrix) ([][]float64, []int, error) {
	X, yf, err := m.SplitLastColumn()
	if err != nil {
		return nil, nil, err
	}
	y := make([]int, len(yf))
	for i, v := range yf {
		if v != math.Trunc(v) || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("label %v on row %d is not a class", v, i)
		}
		y[i] = int(v)
	}
	return X, y, nil
}
