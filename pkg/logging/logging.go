// Package logging builds the zap loggers shared by the CLI and the server.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"netsecml/pkg/config"
)

// New returns a production JSON logger on stderr. verbose lowers the level to
// debug; a non-empty logFile receives the same lines.
func New(verbose bool, logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, fmt.Errorf("logging: create dir: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// RunLogFile is the per-run log path, logs/<timestamp>.log.
func RunLogFile(dir string, now time.Time) string {
	return filepath.Join(dir, now.Format(config.TimestampLayout)+".log")
}
