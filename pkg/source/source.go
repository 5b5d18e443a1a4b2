// Package source supplies the raw records the ingestion stage snapshots.
package source

import (
	"context"
	"errors"

	"netsecml/pkg/data"
)

// ErrEmpty is returned when a source yields no records.
var ErrEmpty = errors.New("source: no records")

// Source yields the full dataset as a table.
type Source interface {
	Fetch(ctx context.Context) (*data.Table, error)
}

// CSVSource reads a local CSV export, for offline runs.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource { return &CSVSource{Path: path} }

func (s *CSVSource) Fetch(ctx context.Context) (*data.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := data.ReadCSV(s.Path)
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, ErrEmpty
	}
	return t, nil
}
