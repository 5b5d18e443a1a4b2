package dataprep

import (
	"netsecml/pkg/data"
)

// NormalizeMissing rewrites every missing-value token in t to "" in place and
// returns how many cells were missing.
func NormalizeMissing(t *data.Table) int {
	n := 0
	for _, row := range t.Rows {
		for j, v := range row {
			if data.IsMissing(v) {
				row[j] = ""
				n++
			}
		}
	}
	return n
}

// MissingRatios returns the fraction of missing cells per column.
func MissingRatios(t *data.Table) map[string]float64 {
	out := make(map[string]float64, len(t.Columns))
	if t.Len() == 0 {
		return out
	}
	for j, name := range t.Columns {
		missing := 0
		for _, row := range t.Rows {
			if data.IsMissing(row[j]) {
				missing++
			}
		}
		out[name] = float64(missing) / float64(t.Len())
	}
	return out
}
