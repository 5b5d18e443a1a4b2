// Package config builds the per-run configuration of the training pipeline:
// static constants, an optional YAML overlay and environment endpoints.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"netsecml/pkg/model"
)

const (
	PipelineName    = "networksecurity"
	ArtifactDir     = "artifact"
	FileName        = "cyber_threat_intelligence_train.csv"
	TrainFileName   = "train.csv"
	TestFileName    = "test.csv"
	SchemaFilePath  = "data_schema/schema.yaml"
	SavedModelDir   = "saved_models"
	ModelFileName   = "model.gob"
	ReportsDir      = "reports"
	MetricsFileName = "metrics.json"
	ParamsFileName  = "params.json"
	PromFileName    = "pipeline.prom"
	MetricsPlotName = "metrics.png"
	LatestRunName   = "latest_run.json"
	LogsDir         = "logs"
	TargetColumn    = "Result"
	TimestampLayout = "01_02_2006_15_04_05"

	DefaultConfigPath = "config/pipeline.yaml"
	ConfigPathEnv     = "NETSEC_CONFIG"
)

const (
	DataIngestionCollectionName      = "network_data"
	DataIngestionDatabaseName        = "AUSTINAI"
	DataIngestionDirName             = "data_ingestion"
	DataIngestionFeatureStoreDir     = "feature_store"
	DataIngestionIngestedDir         = "ingested"
	DataIngestionTrainTestSplitRatio = 0.2

	DataValidationDirName             = "data_validation"
	DataValidationValidDir            = "validated"
	DataValidationInvalidDir          = "invalid"
	DataValidationDriftReportDir      = "drift_report"
	DataValidationDriftReportFileName = "report.yaml"
	DataValidationDriftThreshold      = 0.05

	DataTransformationDirName            = "data_transformation"
	DataTransformationTransformedDataDir = "transformed_data"
	PreprocessingObjectDirName           = "preprocessing_object"
	PreprocessingObjectFileName          = "preprocessor.gob"
	TransformedFileExt                   = ".gob.gz"
	DataTransformationImputerNeighbors   = 3

	ModelTrainerDirName                          = "model_trainer"
	ModelTrainerTrainedModelDir                  = "trained_model"
	ModelTrainerExpectedScore                    = 0.6
	ModelTrainerOverfittingUnderfittingThreshold = 0.05
)

// Source kinds for the ingestion stage.
const (
	SourceMongoDB = "mongodb"
	SourceCSV     = "csv"
)

// Stage names, in execution order.
const (
	StageDataIngestion      = "data_ingestion"
	StageDataValidation     = "data_validation"
	StageDataTransformation = "data_transformation"
	StageModelTrainer       = "model_trainer"
)

var Stages = []string{StageDataIngestion, StageDataValidation, StageDataTransformation, StageModelTrainer}

type IngestionSettings struct {
	Source              string  `yaml:"source"`
	CSVPath             string  `yaml:"csv_path"`
	Database            string  `yaml:"database"`
	Collection          string  `yaml:"collection"`
	TrainTestSplitRatio float64 `yaml:"train_test_split_ratio"`
	Seed                int64   `yaml:"seed"`
}

type ValidationSettings struct {
	SchemaFilePath string  `yaml:"schema_file_path"`
	DriftThreshold float64 `yaml:"drift_threshold"`
	DriftPlots     bool    `yaml:"drift_plots"`
}

type TransformationSettings struct {
	TargetColumn     string `yaml:"target_column"`
	ImputerNeighbors int    `yaml:"imputer_neighbors"`
}

type TrainerSettings struct {
	ExpectedScore                    float64               `yaml:"expected_score"`
	OverfittingUnderfittingThreshold float64               `yaml:"overfitting_underfitting_threshold"`
	Candidates                       []string              `yaml:"candidates"`
	Hyperparameters                  model.Hyperparameters `yaml:"hyperparameters"`
	SavedModelDir                    string                `yaml:"saved_model_dir"`
	ReportsDir                       string                `yaml:"reports_dir"`
}

// Settings are the tunables of a run. The zero value is not useful; start
// from Defaults or Load.
type Settings struct {
	ArtifactDir    string                 `yaml:"artifact_dir"`
	Ingestion      IngestionSettings      `yaml:"data_ingestion"`
	Validation     ValidationSettings     `yaml:"data_validation"`
	Transformation TransformationSettings `yaml:"data_transformation"`
	Trainer        TrainerSettings        `yaml:"model_trainer"`
}

func Defaults() Settings {
	return Settings{
		ArtifactDir: ArtifactDir,
		Ingestion: IngestionSettings{
			Source:              SourceMongoDB,
			Database:            DataIngestionDatabaseName,
			Collection:          DataIngestionCollectionName,
			TrainTestSplitRatio: DataIngestionTrainTestSplitRatio,
			Seed:                42,
		},
		Validation: ValidationSettings{
			SchemaFilePath: SchemaFilePath,
			DriftThreshold: DataValidationDriftThreshold,
		},
		Transformation: TransformationSettings{
			TargetColumn:     TargetColumn,
			ImputerNeighbors: DataTransformationImputerNeighbors,
		},
		Trainer: TrainerSettings{
			ExpectedScore:                    ModelTrainerExpectedScore,
			OverfittingUnderfittingThreshold: ModelTrainerOverfittingUnderfittingThreshold,
			Candidates:                       []string{model.RandomForestName},
			Hyperparameters:                  model.DefaultHyperparameters(),
			SavedModelDir:                    SavedModelDir,
			ReportsDir:                       ReportsDir,
		},
	}
}

// Load overlays the YAML file at path on Defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (Settings, error) {
	s := Defaults()
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return s, s.Validate()
}

// ResolvePath picks the overlay path: flag value, then NETSEC_CONFIG, then the default.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(ConfigPathEnv); env != "" {
		return env
	}
	return DefaultConfigPath
}

func (s Settings) Validate() error {
	if r := s.Ingestion.TrainTestSplitRatio; r <= 0 || r >= 1 {
		return fmt.Errorf("config: train_test_split_ratio %v outside (0, 1)", r)
	}
	switch s.Ingestion.Source {
	case SourceMongoDB:
	case SourceCSV:
		if s.Ingestion.CSVPath == "" {
			return errors.New("config: csv source needs csv_path")
		}
	default:
		return fmt.Errorf("config: unknown source %q", s.Ingestion.Source)
	}
	if len(s.Trainer.Candidates) == 0 {
		return errors.New("config: no candidate models")
	}
	if s.Transformation.TargetColumn == "" {
		return errors.New("config: empty target column")
	}
	return nil
}

// TrainingPipelineConfig is created once per invocation; every stage derives
// its paths from ArtifactDir.
type TrainingPipelineConfig struct {
	PipelineName string
	ArtifactDir  string
	Timestamp    string
	Settings     Settings
}

func NewTrainingPipelineConfig(now time.Time, s Settings) TrainingPipelineConfig {
	ts := now.Format(TimestampLayout)
	return TrainingPipelineConfig{
		PipelineName: PipelineName,
		ArtifactDir:  filepath.Join(s.ArtifactDir, ts),
		Timestamp:    ts,
		Settings:     s,
	}
}

type DataIngestionConfig struct {
	DataIngestionDir     string
	FeatureStoreFilePath string
	TrainingFilePath     string
	TestFilePath         string
	TrainTestSplitRatio  float64
	Seed                 int64
	Source               string
	CSVPath              string
	DatabaseName         string
	CollectionName       string
}

func NewDataIngestionConfig(tp TrainingPipelineConfig) DataIngestionConfig {
	dir := filepath.Join(tp.ArtifactDir, DataIngestionDirName)
	s := tp.Settings.Ingestion
	return DataIngestionConfig{
		DataIngestionDir:     dir,
		FeatureStoreFilePath: filepath.Join(dir, DataIngestionFeatureStoreDir, FileName),
		TrainingFilePath:     filepath.Join(dir, DataIngestionIngestedDir, TrainFileName),
		TestFilePath:         filepath.Join(dir, DataIngestionIngestedDir, TestFileName),
		TrainTestSplitRatio:  s.TrainTestSplitRatio,
		Seed:                 s.Seed,
		Source:               s.Source,
		CSVPath:              s.CSVPath,
		DatabaseName:         s.Database,
		CollectionName:       s.Collection,
	}
}

type DataValidationConfig struct {
	DataValidationDir    string
	ValidTrainFilePath   string
	ValidTestFilePath    string
	InvalidTrainFilePath string
	InvalidTestFilePath  string
	DriftReportFilePath  string
	SchemaFilePath       string
	DriftThreshold       float64
	DriftPlots           bool
}

func NewDataValidationConfig(tp TrainingPipelineConfig) DataValidationConfig {
	dir := filepath.Join(tp.ArtifactDir, DataValidationDirName)
	valid := filepath.Join(dir, DataValidationValidDir)
	invalid := filepath.Join(dir, DataValidationInvalidDir)
	s := tp.Settings.Validation
	return DataValidationConfig{
		DataValidationDir:    dir,
		ValidTrainFilePath:   filepath.Join(valid, TrainFileName),
		ValidTestFilePath:    filepath.Join(valid, TestFileName),
		InvalidTrainFilePath: filepath.Join(invalid, TrainFileName),
		InvalidTestFilePath:  filepath.Join(invalid, TestFileName),
		DriftReportFilePath:  filepath.Join(dir, DataValidationDriftReportDir, DataValidationDriftReportFileName),
		SchemaFilePath:       s.SchemaFilePath,
		DriftThreshold:       s.DriftThreshold,
		DriftPlots:           s.DriftPlots,
	}
}

type DataTransformationConfig struct {
	DataTransformationDir     string
	TransformedTrainFilePath  string
	TransformedTestFilePath   string
	TransformedObjectFilePath string
	TargetColumn              string
	ImputerNeighbors          int
}

func NewDataTransformationConfig(tp TrainingPipelineConfig) DataTransformationConfig {
	dir := filepath.Join(tp.ArtifactDir, DataTransformationDirName)
	data := filepath.Join(dir, DataTransformationTransformedDataDir)
	s := tp.Settings.Transformation
	return DataTransformationConfig{
		DataTransformationDir:     dir,
		TransformedTrainFilePath:  filepath.Join(data, "train"+TransformedFileExt),
		TransformedTestFilePath:   filepath.Join(data, "test"+TransformedFileExt),
		TransformedObjectFilePath: filepath.Join(dir, PreprocessingObjectDirName, PreprocessingObjectFileName),
		TargetColumn:              s.TargetColumn,
		ImputerNeighbors:          s.ImputerNeighbors,
	}
}

type ModelTrainerConfig struct {
	ModelTrainerDir                  string
	TrainedModelFilePath             string
	FinalModelFilePath               string
	ReportsDir                       string
	ExpectedScore                    float64
	OverfittingUnderfittingThreshold float64
	Candidates                       []string
	Hyperparameters                  model.Hyperparameters
}

func NewModelTrainerConfig(tp TrainingPipelineConfig) ModelTrainerConfig {
	dir := filepath.Join(tp.ArtifactDir, ModelTrainerDirName)
	s := tp.Settings.Trainer
	return ModelTrainerConfig{
		ModelTrainerDir:                  dir,
		TrainedModelFilePath:             filepath.Join(dir, ModelTrainerTrainedModelDir, ModelFileName),
		FinalModelFilePath:               filepath.Join(s.SavedModelDir, ModelFileName),
		ReportsDir:                       s.ReportsDir,
		ExpectedScore:                    s.ExpectedScore,
		OverfittingUnderfittingThreshold: s.OverfittingUnderfittingThreshold,
		Candidates:                       append([]string(nil), s.Candidates...),
		Hyperparameters:                  s.Hyperparameters,
	}
}
