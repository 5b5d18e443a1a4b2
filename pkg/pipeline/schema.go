package pipeline

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"netsecml/pkg/data"
)

// Column is a declared column and its dtype.
type Column struct {
	Name  string
	Dtype string
}

// Schema describes the structure of a dataset. Columns keep the file order.
type Schema struct {
	Columns          []Column
	NumericalColumns []string
}

type schemaFile struct {
	Columns          yaml.Node `yaml:"columns"`
	NumericalColumns []string  `yaml:"numerical_columns"`
}

// LoadSchema reads a schema YAML file of the form
//
//	columns:
//	  text_length: float64
//	  Result: int64
//	numerical_columns: [text_length]
func LoadSchema(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return ParseSchema(raw)
}

// ParseSchema parses schema YAML.
func ParseSchema(raw []byte) (*Schema, error) {
	var f schemaFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}
	if f.Columns.Kind != yaml.MappingNode || len(f.Columns.Content) == 0 {
		return nil, fmt.Errorf("schema: columns must be a non-empty mapping")
	}
	s := &Schema{NumericalColumns: f.NumericalColumns}
	for i := 0; i+1 < len(f.Columns.Content); i += 2 {
		s.Columns = append(s.Columns, Column{
			Name:  f.Columns.Content[i].Value,
			Dtype: f.Columns.Content[i+1].Value,
		})
	}
	return s, nil
}

// Names returns the declared column names in file order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// Report is the outcome of checking a table against the schema.
type Report struct {
	ColumnsMatch   bool     `json:"columns_match" yaml:"columns_match"`
	MissingColumns []string `json:"missing_columns" yaml:"missing_columns"`
	ExtraColumns   []string `json:"extra_columns" yaml:"extra_columns"`
	DtypeMatch     bool     `json:"dtype_match" yaml:"dtype_match"`
	// MismatchedColumn is the first column whose dtype differs, if any.
	MismatchedColumn string `json:"mismatched_column,omitempty" yaml:"mismatched_column,omitempty"`
}

// OK reports whether columns and dtypes both conform.
func (r Report) OK() bool { return r.ColumnsMatch && r.DtypeMatch }

// Validate checks column presence first; dtypes are only compared once the
// column sets match.
func (s *Schema) Validate(t *data.Table) Report {
	rep := Report{ColumnsMatch: true, DtypeMatch: true, MissingColumns: []string{}, ExtraColumns: []string{}}
	expected := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		expected[c.Name] = struct{}{}
	}
	actual := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		actual[c] = struct{}{}
	}
	for name := range expected {
		if _, ok := actual[name]; !ok {
			rep.MissingColumns = append(rep.MissingColumns, name)
		}
	}
	for name := range actual {
		if _, ok := expected[name]; !ok {
			rep.ExtraColumns = append(rep.ExtraColumns, name)
		}
	}
	sort.Strings(rep.MissingColumns)
	sort.Strings(rep.ExtraColumns)
	if len(rep.MissingColumns) > 0 || len(rep.ExtraColumns) > 0 {
		rep.ColumnsMatch = false
		return rep
	}

	dtypes := t.Dtypes()
	for _, c := range s.Columns {
		if dtypes[c.Name] != c.Dtype {
			rep.DtypeMatch = false
			rep.MismatchedColumn = c.Name
			break
		}
	}
	return rep
}
