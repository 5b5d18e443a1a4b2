// Package training runs the stages in order and records the accepted model.
package training

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"netsecml/pkg/artifact"
	"netsecml/pkg/components"
	"netsecml/pkg/config"
	"netsecml/pkg/registry"
	"netsecml/pkg/source"
)

var (
	ErrSchemaMismatch = components.ErrSchemaMismatch
	ErrModelRejected  = components.ErrModelRejected
	ErrUnknownStage   = errors.New("training: unknown stage")
)

// StageError names the stage a run failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Summary holds what each stage produced. Stages that did not run stay nil;
// a failed stage keeps whatever it returned.
type Summary struct {
	RunID          string
	Ingestion      *artifact.DataIngestionArtifact
	Validation     *artifact.DataValidationArtifact
	Transformation *artifact.DataTransformationArtifact
	Trainer        *components.Result
}

type Pipeline struct {
	cfg config.TrainingPipelineConfig
	src source.Source
	reg registry.Registry
	log *zap.Logger

	metrics   *prometheus.Registry
	durations *prometheus.GaugeVec
	status    *prometheus.GaugeVec
}

type Option func(*Pipeline)

// WithRegistry records accepted runs in r.
func WithRegistry(r registry.Registry) Option {
	return func(p *Pipeline) { p.reg = r }
}

func New(cfg config.TrainingPipelineConfig, src source.Source, log *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		src:     src,
		log:     log,
		metrics: prometheus.NewRegistry(),
		durations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "netsec",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of the last run of each stage.",
		}, []string{"stage"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "netsec",
			Subsystem: "pipeline",
			Name:      "stage_success",
			Help:      "1 when the stage succeeded in the last run, 0 when it failed.",
		}, []string{"stage"}),
	}
	p.metrics.MustRegister(p.durations, p.status)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the stages in order up to and including stage; an empty
// stage runs all of them. A failing stage is returned as *StageError.
func (p *Pipeline) Run(ctx context.Context, stage string) (Summary, error) {
	last := len(config.Stages) - 1
	if stage != "" {
		if last = slices.Index(config.Stages, stage); last < 0 {
			return Summary{}, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
		}
	}
	sum := Summary{RunID: uuid.NewString()}
	log := p.log.With(zap.String("run_id", sum.RunID), zap.String("timestamp", p.cfg.Timestamp))
	log.Info("Training pipeline started", zap.String("artifact_dir", p.cfg.ArtifactDir))
	defer p.writeProm(log)

	steps := []func() error{
		func() error {
			a, err := components.NewDataIngestion(config.NewDataIngestionConfig(p.cfg), p.src, log).Run(ctx)
			sum.Ingestion = &a
			return err
		},
		func() error {
			v, err := components.NewDataValidation(*sum.Ingestion, config.NewDataValidationConfig(p.cfg), log)
			if err != nil {
				return err
			}
			a, err := v.Run(ctx)
			sum.Validation = &a
			return err
		},
		func() error {
			a, err := components.NewDataTransformation(*sum.Validation, config.NewDataTransformationConfig(p.cfg), log).Run(ctx)
			sum.Transformation = &a
			return err
		},
		func() error {
			cfg := config.NewModelTrainerConfig(p.cfg)
			res, err := components.NewModelTrainer(*sum.Transformation, cfg, log).Run(ctx)
			sum.Trainer = &res
			if err != nil {
				return err
			}
			return p.track(ctx, log, sum, cfg)
		},
	}
	for i, step := range steps[:last+1] {
		name := config.Stages[i]
		if err := ctx.Err(); err != nil {
			return sum, &StageError{Stage: name, Err: err}
		}
		start := time.Now()
		err := step()
		p.durations.WithLabelValues(name).Set(time.Since(start).Seconds())
		if err != nil {
			p.status.WithLabelValues(name).Set(0)
			log.Error("Stage failed", zap.String("stage", name), zap.Error(err))
			return sum, &StageError{Stage: name, Err: err}
		}
		p.status.WithLabelValues(name).Set(1)
		log.Info("Stage completed", zap.String("stage", name), zap.Duration("took", time.Since(start)))
	}
	log.Info("Training pipeline finished", zap.String("last_stage", config.Stages[last]))
	return sum, nil
}
