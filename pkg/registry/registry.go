// Package registry records accepted training runs so the serving layer can
// report which model it is running.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"netsecml/pkg/artifact"
)

// ErrNoRuns is returned by Latest before any run was recorded.
var ErrNoRuns = errors.New("registry: no recorded runs")

// RunRecord describes one accepted training run.
type RunRecord struct {
	RunID       string                                `json:"run_id"`
	Timestamp   string                                `json:"timestamp"`
	ModelName   string                                `json:"model_name"`
	ModelPath   string                                `json:"model_path"`
	TrainMetric artifact.ClassificationMetricArtifact `json:"train_metric"`
	TestMetric  artifact.ClassificationMetricArtifact `json:"test_metric"`
	RecordedAt  time.Time                             `json:"recorded_at"`
}

type Registry interface {
	Record(ctx context.Context, r RunRecord) error
	Latest(ctx context.Context) (RunRecord, error)
}

// FileRegistry keeps only the latest run, as JSON at Path.
type FileRegistry struct {
	Path string
}

func NewFileRegistry(path string) *FileRegistry { return &FileRegistry{Path: path} }

func (f *FileRegistry) Record(ctx context.Context, r RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal run: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("registry: create dir: %w", err)
	}
	return os.WriteFile(f.Path, raw, 0o644)
}

func (f *FileRegistry) Latest(ctx context.Context) (RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return RunRecord{}, err
	}
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return RunRecord{}, ErrNoRuns
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("registry: read %s: %w", f.Path, err)
	}
	var r RunRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return RunRecord{}, fmt.Errorf("registry: parse %s: %w", f.Path, err)
	}
	return r, nil
}
