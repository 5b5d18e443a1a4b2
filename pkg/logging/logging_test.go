package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesRunLogFile(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	path := RunLogFile(filepath.Join(t.TempDir(), "logs"), now)
	assert.Equal(t, "01_02_2025_03_04_05.log", filepath.Base(path))

	logger, err := New(true, path)
	require.NoError(t, err)
	logger.Debug("stage started", zap.String("stage", "data_ingestion"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"stage":"data_ingestion"`)
	assert.Contains(t, string(raw), `"level":"debug"`)
}

func TestNewWithoutFile(t *testing.T) {
	logger, err := New(false, "")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
