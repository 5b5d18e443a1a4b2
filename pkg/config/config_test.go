package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsecml/pkg/model"
)

func TestStageConfigPaths(t *testing.T) {
	now := time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)
	tp := NewTrainingPipelineConfig(now, Defaults())
	assert.Equal(t, "03_09_2025_14_05_07", tp.Timestamp)
	assert.Equal(t, filepath.Join("artifact", "03_09_2025_14_05_07"), tp.ArtifactDir)
	assert.Equal(t, "networksecurity", tp.PipelineName)

	run := tp.ArtifactDir
	ing := NewDataIngestionConfig(tp)
	assert.Equal(t, filepath.Join(run, "data_ingestion", "feature_store", "cyber_threat_intelligence_train.csv"), ing.FeatureStoreFilePath)
	assert.Equal(t, filepath.Join(run, "data_ingestion", "ingested", "train.csv"), ing.TrainingFilePath)
	assert.Equal(t, filepath.Join(run, "data_ingestion", "ingested", "test.csv"), ing.TestFilePath)
	assert.Equal(t, 0.2, ing.TrainTestSplitRatio)
	assert.Equal(t, "AUSTINAI", ing.DatabaseName)
	assert.Equal(t, "network_data", ing.CollectionName)

	val := NewDataValidationConfig(tp)
	assert.Equal(t, filepath.Join(run, "data_validation", "validated", "train.csv"), val.ValidTrainFilePath)
	assert.Equal(t, filepath.Join(run, "data_validation", "invalid", "test.csv"), val.InvalidTestFilePath)
	assert.Equal(t, filepath.Join(run, "data_validation", "drift_report", "report.yaml"), val.DriftReportFilePath)
	assert.Equal(t, "data_schema/schema.yaml", val.SchemaFilePath)

	tr := NewDataTransformationConfig(tp)
	assert.Equal(t, filepath.Join(run, "data_transformation", "transformed_data", "train.gob.gz"), tr.TransformedTrainFilePath)
	assert.Equal(t, filepath.Join(run, "data_transformation", "preprocessing_object", "preprocessor.gob"), tr.TransformedObjectFilePath)
	assert.Equal(t, 3, tr.ImputerNeighbors)

	mt := NewModelTrainerConfig(tp)
	assert.Equal(t, filepath.Join(run, "model_trainer", "trained_model", "model.gob"), mt.TrainedModelFilePath)
	assert.Equal(t, filepath.Join("saved_models", "model.gob"), mt.FinalModelFilePath)
	assert.Equal(t, 0.6, mt.ExpectedScore)
	assert.Equal(t, 0.05, mt.OverfittingUnderfittingThreshold)
	assert.Equal(t, []string{model.RandomForestName}, mt.Candidates)
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_ingestion:
  source: csv
  csv_path: data/features.csv
model_trainer:
  expected_score: 0.7
  candidates: [random_forest, knn]
  hyperparameters:
    n_estimators: 10
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceCSV, s.Ingestion.Source)
	assert.Equal(t, "data/features.csv", s.Ingestion.CSVPath)
	assert.Equal(t, 0.2, s.Ingestion.TrainTestSplitRatio, "untouched keys keep defaults")
	assert.Equal(t, 0.7, s.Trainer.ExpectedScore)
	assert.Equal(t, []string{"random_forest", "knn"}, s.Trainer.Candidates)
	assert.Equal(t, 10, s.Trainer.Hyperparameters.NEstimators)
	assert.Equal(t, int64(42), s.Trainer.Hyperparameters.RandomState)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"ratio":  "data_ingestion:\n  train_test_split_ratio: 1.5\n",
		"source": "data_ingestion:\n  source: kafka\n",
		"csv":    "data_ingestion:\n  source: csv\n",
		"models": "model_trainer:\n  candidates: []\n",
		"yaml":   "data_ingestion: [",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	assert.Equal(t, DefaultConfigPath, ResolvePath(""))
	t.Setenv(ConfigPathEnv, "/etc/netsec.yaml")
	assert.Equal(t, "/etc/netsec.yaml", ResolvePath(""))
	assert.Equal(t, "x.yaml", ResolvePath("x.yaml"))
}

func TestLoadEnv(t *testing.T) {
	for _, k := range []string{"MONGODB_URI", "REDIS_URL", "ELASTICSEARCH_INDEX", "FRONTEND_ORIGINS", "PORT", "MODEL_PATH"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"MONGODB_URI=mongodb://localhost:27017\nFRONTEND_ORIGINS=http://a.test, http://b.test\nPORT=9000\n"), 0o644))

	env, err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", env.MongoURI)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, env.FrontendOrigins)
	assert.Equal(t, "9000", env.Port)
	assert.Empty(t, env.RedisURL)
	assert.Equal(t, "predictions", env.ElasticsearchIndex)
	assert.Empty(t, env.ModelPath)
}
