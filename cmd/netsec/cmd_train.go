package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"netsecml/pkg/config"
	"netsecml/pkg/registry"
	"netsecml/pkg/source"
	"netsecml/pkg/training"
)

var trainFlags struct {
	stage string
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run the training pipeline",
	Long: `Runs the stages in order: data_ingestion, data_validation,
data_transformation, model_trainer. --stage stops after the named stage.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainFlags.stage, "stage", "", "Last stage to run (default: all)")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	settings, env, err := loadSettings()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := openSource(ctx, settings.Ingestion, env)
	if err != nil {
		return err
	}
	defer closeSrc()

	reg, closeReg, err := openRegistry(ctx, settings, env)
	if err != nil {
		return err
	}
	defer closeReg()

	tp := config.NewTrainingPipelineConfig(time.Now(), settings)
	sum, err := training.New(tp, src, logger, training.WithRegistry(reg)).Run(ctx, trainFlags.stage)
	if err != nil {
		return err
	}
	if sum.Trainer != nil {
		a := sum.Trainer.Artifact
		fmt.Fprintf(cmd.OutOrStdout(), "run %s accepted %s: test f1 %.4f, model %s\n",
			sum.RunID, a.ModelName, a.TestMetric.F1Score, a.TrainedModelFilePath)
	}
	return nil
}

func openSource(ctx context.Context, s config.IngestionSettings, env config.Env) (source.Source, func(), error) {
	if s.Source == config.SourceCSV {
		return source.NewCSVSource(s.CSVPath), func() {}, nil
	}
	if env.MongoURI == "" {
		return nil, nil, errors.New("MONGODB_URI is not set")
	}
	m, err := source.NewMongoSource(ctx, env.MongoURI, s.Database, s.Collection)
	if err != nil {
		return nil, nil, err
	}
	return m, func() {
		if err := m.Close(context.Background()); err != nil {
			logger.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}, nil
}

// openRegistry prefers Redis and falls back to a JSON file in the reports dir.
func openRegistry(ctx context.Context, s config.Settings, env config.Env) (registry.Registry, func(), error) {
	if env.RedisURL == "" {
		return registry.NewFileRegistry(filepath.Join(s.Trainer.ReportsDir, config.LatestRunName)), func() {}, nil
	}
	r, err := registry.NewRedisRegistry(ctx, env.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { _ = r.Close() }, nil
}

// exitCode distinguishes a rejected model from other failures for schedulers.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, training.ErrModelRejected):
		return 3
	case errors.Is(err, training.ErrSchemaMismatch):
		return 2
	default:
		return 1
	}
}
