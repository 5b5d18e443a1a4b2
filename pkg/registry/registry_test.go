package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsecml/pkg/artifact"
	"netsecml/pkg/config"
)

func record(id string, f1 float64) RunRecord {
	return RunRecord{
		RunID:      id,
		Timestamp:  "05_01_2025_10_00_00",
		ModelName:  "random_forest",
		ModelPath:  "saved_models/model.gob",
		TestMetric: artifact.ClassificationMetricArtifact{F1Score: f1},
		RecordedAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRedisRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	reg, err := NewRedisRegistry(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer reg.Close()

	_, err = reg.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoRuns)

	require.NoError(t, reg.Record(ctx, record("run-1", 0.8)))
	require.NoError(t, reg.Record(ctx, record("run-2", 0.9)))

	latest, err := reg.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, record("run-2", 0.9), latest)

	runs, err := reg.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[1].RunID)

	mr.Del(runKey + "run-2")
	latest, err = reg.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", latest.RunID, "expired head falls through to the next run")

	mr.Del(runKey + "run-1")
	_, err = reg.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoRuns)

	assert.Error(t, reg.Record(ctx, RunRecord{}))
}

func TestNewRedisRegistryErrors(t *testing.T) {
	_, err := NewRedisRegistry(context.Background(), "not a url")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisRegistry(context.Background(), "redis://"+addr)
	assert.Error(t, err)
}

func TestFileRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewFileRegistry(filepath.Join(t.TempDir(), "reports", "latest_run.json"))
	_, err := reg.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoRuns)

	require.NoError(t, reg.Record(ctx, record("a", 0.7)))
	require.NoError(t, reg.Record(ctx, record("b", 0.75)))
	got, err := reg.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, record("b", 0.75), got)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func trainedModel(artifactDir, ts string) string {
	return filepath.Join(artifactDir, ts, config.ModelTrainerDirName, config.ModelTrainerTrainedModelDir, config.ModelFileName)
}

func TestFindLatestModel(t *testing.T) {
	root := t.TempDir()
	artifactDir := filepath.Join(root, "artifact")
	saved := filepath.Join(root, "saved_models")

	_, err := FindLatestModel(artifactDir, saved)
	assert.ErrorIs(t, err, ErrNoModel)

	touch(t, filepath.Join(saved, config.ModelFileName))
	got, err := FindLatestModel(artifactDir, saved)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(saved, config.ModelFileName), got)

	// month-first names do not sort lexically across years
	touch(t, trainedModel(artifactDir, "12_31_2024_23_00_00"))
	touch(t, trainedModel(artifactDir, "01_02_2025_08_00_00"))
	require.NoError(t, os.MkdirAll(filepath.Join(artifactDir, "02_01_2025_08_00_00"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(artifactDir, "scratch"), 0o755))

	got, err = FindLatestModel(artifactDir, saved)
	require.NoError(t, err)
	assert.Equal(t, trainedModel(artifactDir, "01_02_2025_08_00_00"), got)
}
