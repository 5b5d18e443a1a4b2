package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"netsecml/pkg/config"
)

// ErrNoModel is returned when neither a run directory nor the saved model holds a model.
var ErrNoModel = errors.New("registry: no trained model found")

// FindLatestModel returns the trained model of the newest run directory under
// artifactDir, falling back to the model in savedModelDir.
func FindLatestModel(artifactDir, savedModelDir string) (string, error) {
	entries, err := os.ReadDir(artifactDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("registry: list %s: %w", artifactDir, err)
	}

	var (
		newest     time.Time
		newestPath string
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ts, err := time.Parse(config.TimestampLayout, e.Name())
		if err != nil {
			continue
		}
		path := filepath.Join(artifactDir, e.Name(), config.ModelTrainerDirName,
			config.ModelTrainerTrainedModelDir, config.ModelFileName)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if newestPath == "" || ts.After(newest) {
			newest, newestPath = ts, path
		}
	}
	if newestPath != "" {
		return newestPath, nil
	}

	saved := filepath.Join(savedModelDir, config.ModelFileName)
	if _, err := os.Stat(saved); err == nil {
		return saved, nil
	}
	return "", ErrNoModel
}
