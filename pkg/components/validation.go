package components

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"netsecml/pkg/artifact"
	"netsecml/pkg/config"
	"netsecml/pkg/data"
	"netsecml/pkg/pipeline"
	"netsecml/pkg/report"
	"netsecml/pkg/stats"
)

// ErrSchemaMismatch fails validation when train or test deviates from the schema.
var ErrSchemaMismatch = errors.New("schema validation failed")

type DataValidation struct {
	in     artifact.DataIngestionArtifact
	cfg    config.DataValidationConfig
	schema *pipeline.Schema
	log    *zap.Logger
}

// NewDataValidation loads the schema file named in cfg.
func NewDataValidation(in artifact.DataIngestionArtifact, cfg config.DataValidationConfig, log *zap.Logger) (*DataValidation, error) {
	schema, err := pipeline.LoadSchema(cfg.SchemaFilePath)
	if err != nil {
		return nil, err
	}
	return &DataValidation{in: in, cfg: cfg, schema: schema, log: log}, nil
}

func (v *DataValidation) ValidateSchema(t *data.Table) pipeline.Report {
	return v.schema.Validate(t)
}

// DetectDrift runs a two-sample KS test on every numeric column of base.
// Columns with no values on either side are left out.
func (v *DataValidation) DetectDrift(base, current *data.Table) (report.DriftReport, error) {
	out := report.DriftReport{}
	dtypes := base.Dtypes()
	for _, col := range base.Columns {
		if dt := dtypes[col]; dt != data.Int64 && dt != data.Float64 {
			continue
		}
		a, err := base.NumericColumn(col)
		if err != nil {
			return nil, err
		}
		b, err := current.NumericColumn(col)
		if err != nil {
			return nil, err
		}
		res, err := stats.KSTwoSample(a, b)
		if errors.Is(err, stats.ErrEmptySample) {
			v.log.Debug("Skipping drift check on empty column", zap.String("column", col))
			continue
		}
		if err != nil {
			return nil, err
		}
		out[col] = report.ColumnDrift{
			DriftDetected: res.PValue < v.cfg.DriftThreshold,
			PValue:        res.PValue,
			Statistic:     res.Statistic,
		}
	}
	return out, nil
}

// Run validates both splits, writes the drift report and the validated copies.
func (v *DataValidation) Run(ctx context.Context) (artifact.DataValidationArtifact, error) {
	v.log.Info("Starting data validation")
	train, err := data.ReadCSV(v.in.TrainFilePath)
	if err != nil {
		return artifact.DataValidationArtifact{}, err
	}
	test, err := data.ReadCSV(v.in.TestFilePath)
	if err != nil {
		return artifact.DataValidationArtifact{}, err
	}

	trainReport := v.ValidateSchema(train)
	testReport := v.ValidateSchema(test)
	v.log.Info("Train schema validation report", zap.Any("report", trainReport))
	v.log.Info("Test schema validation report", zap.Any("report", testReport))
	if !trainReport.OK() || !testReport.OK() {
		v.log.Error("Schema validation failed")
		if err := train.WriteCSV(v.cfg.InvalidTrainFilePath); err != nil {
			return artifact.DataValidationArtifact{}, err
		}
		if err := test.WriteCSV(v.cfg.InvalidTestFilePath); err != nil {
			return artifact.DataValidationArtifact{}, err
		}
		return artifact.DataValidationArtifact{}, fmt.Errorf("%w: train %s; test %s",
			ErrSchemaMismatch, describe(trainReport), describe(testReport))
	}
	if err := ctx.Err(); err != nil {
		return artifact.DataValidationArtifact{}, err
	}

	drift, err := v.DetectDrift(train, test)
	if err != nil {
		return artifact.DataValidationArtifact{}, err
	}
	if err := report.WriteYAML(v.cfg.DriftReportFilePath, drift, false); err != nil {
		return artifact.DataValidationArtifact{}, err
	}
	drifted := drift.Drifted()
	if len(drifted) > 0 {
		v.log.Warn("Data drift detected", zap.Strings("columns", drifted))
	}
	if v.cfg.DriftPlots {
		v.plotDrift(train, test, drift)
	}

	if err := train.WriteCSV(v.cfg.ValidTrainFilePath); err != nil {
		return artifact.DataValidationArtifact{}, err
	}
	if err := test.WriteCSV(v.cfg.ValidTestFilePath); err != nil {
		return artifact.DataValidationArtifact{}, err
	}
	v.log.Info("Data validation completed successfully")
	return artifact.DataValidationArtifact{
		ValidationStatus:     true,
		ValidTrainFilePath:   v.cfg.ValidTrainFilePath,
		ValidTestFilePath:    v.cfg.ValidTestFilePath,
		InvalidTrainFilePath: v.cfg.InvalidTrainFilePath,
		InvalidTestFilePath:  v.cfg.InvalidTestFilePath,
		DriftReportFilePath:  v.cfg.DriftReportFilePath,
		DriftDetected:        len(drifted) > 0,
	}, nil
}

// plotDrift is best effort: a failed chart is logged, never fatal.
func (v *DataValidation) plotDrift(train, test *data.Table, drift report.DriftReport) {
	dir := filepath.Join(filepath.Dir(v.cfg.DriftReportFilePath), "plots")
	for col := range drift {
		a, _ := train.NumericColumn(col)
		b, _ := test.NumericColumn(col)
		path := filepath.Join(dir, col+".png")
		if err := report.PlotECDF(path, col, a, b); err != nil {
			v.log.Warn("Drift plot failed", zap.String("column", col), zap.Error(err))
		}
	}
}

func describe(r pipeline.Report) string {
	if r.OK() {
		return "ok"
	}
	if !r.ColumnsMatch {
		return fmt.Sprintf("missing=%v extra=%v", r.MissingColumns, r.ExtraColumns)
	}
	return "dtype mismatch on " + r.MismatchedColumn
}
