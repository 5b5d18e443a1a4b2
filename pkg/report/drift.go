// Package report writes the human-facing outputs of a run: the drift report
// YAML and PNG charts.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ColumnDrift is the KS test outcome for one column.
type ColumnDrift struct {
	DriftDetected bool    `yaml:"drift_detected" json:"drift_detected"`
	PValue        float64 `yaml:"p_value" json:"p_value"`
	Statistic     float64 `yaml:"statistic" json:"statistic"`
}

// DriftReport maps column name to its drift outcome.
type DriftReport map[string]ColumnDrift

// Drifted returns the sorted names of the columns that drifted.
func (r DriftReport) Drifted() []string {
	var out []string
	for name, c := range r {
		if c.DriftDetected {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// WriteYAML writes content as a YAML mapping. Unless replace is set, the
// top-level keys of an existing file are kept and overwritten key by key.
func WriteYAML(path string, content any, replace bool) error {
	raw, err := yaml.Marshal(content)
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	fresh := map[string]any{}
	if err := yaml.Unmarshal(raw, &fresh); err != nil {
		return fmt.Errorf("report: content is not a mapping: %w", err)
	}

	merged := fresh
	if !replace {
		existing, err := os.ReadFile(path)
		switch {
		case err == nil:
			merged = map[string]any{}
			if err := yaml.Unmarshal(existing, &merged); err != nil {
				return fmt.Errorf("report: parse existing %s: %w", path, err)
			}
			if merged == nil {
				merged = map[string]any{}
			}
			for k, v := range fresh {
				merged[k] = v
			}
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("report: read %s: %w", path, err)
		}
	}

	out, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: create dir: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

// ReadDriftReport loads a report written by WriteYAML.
func ReadDriftReport(path string) (DriftReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: read %s: %w", path, err)
	}
	r := DriftReport{}
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("report: parse %s: %w", path, err)
	}
	return r, nil
}
