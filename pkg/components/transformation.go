package components

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"netsecml/pkg/artifact"
	"netsecml/pkg/config"
	"netsecml/pkg/core"
	"netsecml/pkg/data"
	"netsecml/pkg/pipeline"
)

type DataTransformation struct {
	in  artifact.DataValidationArtifact
	cfg config.DataTransformationConfig
	log *zap.Logger
}

func NewDataTransformation(in artifact.DataValidationArtifact, cfg config.DataTransformationConfig, log *zap.Logger) *DataTransformation {
	return &DataTransformation{in: in, cfg: cfg, log: log}
}

// Run fits the preprocessor on train features only, transforms both splits
// and stores them with the target appended as the last column.
func (d *DataTransformation) Run(ctx context.Context) (artifact.DataTransformationArtifact, error) {
	d.log.Info("Starting data transformation")
	train, err := data.ReadCSV(d.in.ValidTrainFilePath)
	if err != nil {
		return artifact.DataTransformationArtifact{}, err
	}
	test, err := data.ReadCSV(d.in.ValidTestFilePath)
	if err != nil {
		return artifact.DataTransformationArtifact{}, err
	}

	trainX, trainY, err := splitTarget(train, d.cfg.TargetColumn)
	if err != nil {
		return artifact.DataTransformationArtifact{}, fmt.Errorf("train: %w", err)
	}
	testX, testY, err := splitTarget(test, d.cfg.TargetColumn)
	if err != nil {
		return artifact.DataTransformationArtifact{}, fmt.Errorf("test: %w", err)
	}

	pre := pipeline.NewPreprocessor(d.cfg.ImputerNeighbors)
	trainArr, err := pre.FitTransform(trainX)
	if err != nil {
		return artifact.DataTransformationArtifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return artifact.DataTransformationArtifact{}, err
	}
	testArr, err := pre.Transform(testX)
	if err != nil {
		return artifact.DataTransformationArtifact{}, err
	}
	d.log.Info("Fitted preprocessor",
		zap.Int("input_features", len(pre.FeatureColumns)),
		zap.Int("output_features", trainArr.C),
		zap.Int("categorical", len(pre.CategoricalIdx)))

	trainArr, err = trainArr.AppendColumn(trainY)
	if err != nil {
		return artifact.DataTransformationArtifact{}, err
	}
	testArr, err = testArr.AppendColumn(testY)
	if err != nil {
		return artifact.DataTransformationArtifact{}, err
	}
	if err := core.SaveArray(d.cfg.TransformedTrainFilePath, trainArr); err != nil {
		return artifact.DataTransformationArtifact{}, err
	}
	if err := core.SaveArray(d.cfg.TransformedTestFilePath, testArr); err != nil {
		return artifact.DataTransformationArtifact{}, err
	}
	if err := pre.Save(d.cfg.TransformedObjectFilePath); err != nil {
		return artifact.DataTransformationArtifact{}, err
	}

	return artifact.DataTransformationArtifact{
		TransformedObjectFilePath: d.cfg.TransformedObjectFilePath,
		TransformedTrainFilePath:  d.cfg.TransformedTrainFilePath,
		TransformedTestFilePath:   d.cfg.TransformedTestFilePath,
	}, nil
}

// splitTarget drops the target column from t and returns it as numbers.
// A missing or non-numeric target is an error.
func splitTarget(t *data.Table, target string) (*data.Table, []float64, error) {
	y, err := t.NumericColumn(target)
	if err != nil {
		return nil, nil, err
	}
	for i, v := range y {
		if math.IsNaN(v) {
			return nil, nil, fmt.Errorf("target %q missing on row %d", target, i)
		}
	}
	X, err := t.DropColumn(target)
	if err != nil {
		return nil, nil, err
	}
	return X, y, nil
}
