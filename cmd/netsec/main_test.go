package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsecml/pkg/config"
	"netsecml/pkg/data"
	"netsecml/pkg/dataprep"
	"netsecml/pkg/registry"
	"netsecml/pkg/source"
	"netsecml/pkg/training"
)

func TestPrepareCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.csv")
	out := filepath.Join(dir, "features.csv")
	raw := "text,entities\n" +
		"\"ransomware encrypted the share\",\"[{'label': 'malware', 'start_offset': 0}]\"\n" +
		"\"patch notes for the router\",[]\n" +
		"\"broken row\",not-a-list\n"
	require.NoError(t, os.WriteFile(in, []byte(raw), 0o644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"prepare", "--input", in, "--output", out, "--env-file", filepath.Join(dir, "none.env")})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "1 malicious, 1 benign, 1 skipped\n", stdout.String())

	tbl, err := data.ReadCSV(out)
	require.NoError(t, err)
	assert.Equal(t, append(append([]string(nil), dataprep.FeatureNames...), dataprep.TargetColumn), tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 2, exitCode(&training.StageError{Stage: config.StageDataValidation, Err: training.ErrSchemaMismatch}))
	assert.Equal(t, 3, exitCode(fmt.Errorf("wrapped: %w", &training.StageError{Stage: config.StageModelTrainer, Err: training.ErrModelRejected})))
}

func TestOpenCollaboratorsWithoutEndpoints(t *testing.T) {
	ctx := context.Background()
	s := config.Defaults()
	s.Trainer.ReportsDir = t.TempDir()

	reg, closeReg, err := openRegistry(ctx, s, config.Env{})
	require.NoError(t, err)
	defer closeReg()
	assert.IsType(t, &registry.FileRegistry{}, reg)

	_, _, err = openSource(ctx, s.Ingestion, config.Env{})
	assert.Error(t, err, "mongodb source needs MONGODB_URI")

	s.Ingestion.Source = config.SourceCSV
	s.Ingestion.CSVPath = "features.csv"
	src, closeSrc, err := openSource(ctx, s.Ingestion, config.Env{})
	require.NoError(t, err)
	defer closeSrc()
	assert.IsType(t, &source.CSVSource{}, src)
}
