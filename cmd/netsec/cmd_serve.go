package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"netsecml/pkg/audit"
	"netsecml/pkg/estimator"
	"netsecml/pkg/registry"
	"netsecml/pkg/server"
)

var serveFlags struct {
	addr      string
	modelPath string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the accepted model over HTTP",
	Long: `Loads the model (--model, $MODEL_PATH, or the newest trained model) and
serves /health, /predict, /predict/text, /model-info and /metrics. The server
starts without a model when none can be loaded; /health then reports 503.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "Listen address (default :$PORT)")
	f.StringVar(&serveFlags.modelPath, "model", "", "Model file")
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, env, err := loadSettings()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := serveFlags.modelPath
	if path == "" {
		path = env.ModelPath
	}
	if path == "" {
		path, err = registry.FindLatestModel(settings.ArtifactDir, settings.Trainer.SavedModelDir)
		if err != nil {
			logger.Error("No model to load", zap.Error(err))
		}
	}
	var m *estimator.NetworkModel
	if path != "" {
		if m, err = estimator.Load(path); err != nil {
			logger.Error("Error loading model", zap.String("path", path), zap.Error(err))
			m = nil
		} else {
			logger.Info("Model loaded", zap.String("path", path), zap.String("model", m.Name))
		}
	}

	cfg := server.DefaultConfig()
	cfg.Addr = serveFlags.addr
	if cfg.Addr == "" {
		cfg.Addr = ":" + env.Port
	}
	cfg.AllowedOrigins = env.FrontendOrigins
	cfg.ReportsDir = settings.Trainer.ReportsDir

	reg, closeReg, err := openRegistry(ctx, settings, env)
	if err != nil {
		return err
	}
	defer closeReg()
	opts := []server.Option{server.WithRegistry(reg)}

	if env.ElasticsearchURL != "" {
		a, err := audit.New(audit.Config{
			Addresses: strings.Split(env.ElasticsearchURL, ","),
			Username:  env.ElasticsearchUser,
			Password:  env.ElasticsearchPass,
			Index:     env.ElasticsearchIndex,
		})
		if err != nil {
			logger.Warn("Prediction audit disabled", zap.Error(err))
		} else {
			opts = append(opts, server.WithAuditor(a))
		}
	}

	gin.SetMode(gin.ReleaseMode)
	return server.New(cfg, m, logger, opts...).Run(ctx)
}
