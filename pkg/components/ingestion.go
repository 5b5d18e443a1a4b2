// Package components implements the four stages of the training pipeline.
// Each stage consumes the previous stage's artifact and returns its own.
package components

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"netsecml/pkg/artifact"
	"netsecml/pkg/config"
	"netsecml/pkg/dataprep"
	"netsecml/pkg/loader"
	"netsecml/pkg/source"
)

type DataIngestion struct {
	cfg config.DataIngestionConfig
	src source.Source
	log *zap.Logger
}

func NewDataIngestion(cfg config.DataIngestionConfig, src source.Source, log *zap.Logger) *DataIngestion {
	return &DataIngestion{cfg: cfg, src: src, log: log}
}

// Run exports the source into the feature store, then writes a seeded
// train/test split of it.
func (d *DataIngestion) Run(ctx context.Context) (artifact.DataIngestionArtifact, error) {
	d.log.Info("Entered the data ingestion method or component")
	t, err := d.src.Fetch(ctx)
	if err != nil {
		return artifact.DataIngestionArtifact{}, fmt.Errorf("export collection: %w", err)
	}
	missing := dataprep.NormalizeMissing(t)
	if err := t.WriteCSV(d.cfg.FeatureStoreFilePath); err != nil {
		return artifact.DataIngestionArtifact{}, err
	}
	d.log.Info("Exported feature store",
		zap.String("path", d.cfg.FeatureStoreFilePath),
		zap.Int("rows", t.Len()),
		zap.Int("missing_cells", missing))

	rnd := rand.New(rand.NewSource(d.cfg.Seed))
	trainIdx, testIdx, err := loader.TrainTestSplit(t.Len(), d.cfg.TrainTestSplitRatio, rnd)
	if err != nil {
		return artifact.DataIngestionArtifact{}, err
	}
	if err := t.Subset(trainIdx).WriteCSV(d.cfg.TrainingFilePath); err != nil {
		return artifact.DataIngestionArtifact{}, err
	}
	if err := t.Subset(testIdx).WriteCSV(d.cfg.TestFilePath); err != nil {
		return artifact.DataIngestionArtifact{}, err
	}
	d.log.Info("Performed train test split on the dataframe",
		zap.Int("train_rows", len(trainIdx)),
		zap.Int("test_rows", len(testIdx)))

	return artifact.DataIngestionArtifact{
		FeatureStoreFilePath: d.cfg.FeatureStoreFilePath,
		TrainFilePath:        d.cfg.TrainingFilePath,
		TestFilePath:         d.cfg.TestFilePath,
	}, nil
}
