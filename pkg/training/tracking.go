package training

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"netsecml/pkg/artifact"
	"netsecml/pkg/components"
	"netsecml/pkg/config"
	"netsecml/pkg/model"
	"netsecml/pkg/registry"
	"netsecml/pkg/report"
)

// Params is the reproducibility record written next to the metrics.
type Params struct {
	RunID           string                      `json:"run_id"`
	Timestamp       string                      `json:"timestamp"`
	ModelName       string                      `json:"model_name"`
	Candidates      []components.CandidateScore `json:"candidates"`
	Hyperparameters model.Hyperparameters       `json:"hyperparameters"`
}

// FlatMetrics keys the train and test scores as train_f1, test_accuracy, ...
func FlatMetrics(a artifact.ModelTrainerArtifact) map[string]float64 {
	out := make(map[string]float64, 8)
	for prefix, m := range map[string]artifact.ClassificationMetricArtifact{
		"train_": a.TrainMetric,
		"test_":  a.TestMetric,
	} {
		out[prefix+"accuracy"] = m.Accuracy
		out[prefix+"f1"] = m.F1Score
		out[prefix+"precision"] = m.PrecisionScore
		out[prefix+"recall"] = m.RecallScore
	}
	return out
}

func (p *Pipeline) track(ctx context.Context, log *zap.Logger, sum Summary, cfg config.ModelTrainerConfig) error {
	res := sum.Trainer
	if err := writeJSON(filepath.Join(cfg.ReportsDir, config.MetricsFileName), FlatMetrics(res.Artifact)); err != nil {
		return err
	}
	params := Params{
		RunID:           sum.RunID,
		Timestamp:       p.cfg.Timestamp,
		ModelName:       res.Artifact.ModelName,
		Candidates:      res.Candidates,
		Hyperparameters: cfg.Hyperparameters,
	}
	if err := writeJSON(filepath.Join(cfg.ReportsDir, config.ParamsFileName), params); err != nil {
		return err
	}
	if err := report.PlotMetrics(filepath.Join(cfg.ReportsDir, config.MetricsPlotName),
		res.Artifact.TrainMetric, res.Artifact.TestMetric); err != nil {
		log.Warn("Metrics plot failed", zap.Error(err))
	}

	if p.reg == nil {
		return nil
	}
	modelPath := cfg.FinalModelFilePath
	if modelPath == "" {
		modelPath = res.Artifact.TrainedModelFilePath
	}
	rec := registry.RunRecord{
		RunID:       sum.RunID,
		Timestamp:   p.cfg.Timestamp,
		ModelName:   res.Artifact.ModelName,
		ModelPath:   modelPath,
		TrainMetric: res.Artifact.TrainMetric,
		TestMetric:  res.Artifact.TestMetric,
		RecordedAt:  time.Now().UTC(),
	}
	// The model is already saved; a registry outage must not fail the run.
	if err := p.reg.Record(ctx, rec); err != nil {
		log.Warn("Registry record failed", zap.Error(err))
	}
	return nil
}

// writeProm exports the stage gauges in the node-exporter textfile format.
func (p *Pipeline) writeProm(log *zap.Logger) {
	dir := p.cfg.Settings.Trainer.ReportsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("Metrics textfile failed", zap.Error(err))
		return
	}
	if err := prometheus.WriteToTextfile(filepath.Join(dir, config.PromFileName), p.metrics); err != nil {
		log.Warn("Metrics textfile failed", zap.Error(err))
	}
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("training: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("training: create dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("training: write %s: %w", path, err)
	}
	return nil
}
