// Package artifact holds the values each pipeline stage hands to the next.
// An artifact is produced once and never mutated.
package artifact

type DataIngestionArtifact struct {
	FeatureStoreFilePath string `json:"feature_store_file_path"`
	TrainFilePath        string `json:"train_file_path"`
	TestFilePath         string `json:"test_file_path"`
}

type DataValidationArtifact struct {
	ValidationStatus     bool   `json:"validation_status"`
	ValidTrainFilePath   string `json:"valid_train_file_path"`
	ValidTestFilePath    string `json:"valid_test_file_path"`
	InvalidTrainFilePath string `json:"invalid_train_file_path,omitempty"`
	InvalidTestFilePath  string `json:"invalid_test_file_path,omitempty"`
	DriftReportFilePath  string `json:"drift_report_file_path"`
	// DriftDetected is true when at least one column drifted.
	DriftDetected bool `json:"drift_detected"`
}

type DataTransformationArtifact struct {
	TransformedObjectFilePath string `json:"transformed_object_file_path"`
	TransformedTrainFilePath  string `json:"transformed_train_file_path"`
	TransformedTestFilePath   string `json:"transformed_test_file_path"`
}

// ClassificationMetricArtifact scores the positive (malicious) class.
type ClassificationMetricArtifact struct {
	F1Score        float64 `json:"f1_score"`
	PrecisionScore float64 `json:"precision_score"`
	RecallScore    float64 `json:"recall_score"`
	Accuracy       float64 `json:"accuracy"`
}

type ModelTrainerArtifact struct {
	TrainedModelFilePath string                       `json:"trained_model_file_path"`
	ModelName            string                       `json:"model_name"`
	TrainMetric          ClassificationMetricArtifact `json:"train_metric_artifact"`
	TestMetric           ClassificationMetricArtifact `json:"test_metric_artifact"`
}
