package dataprep

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"netsecml/pkg/data"
)

// TargetColumn is the label column produced by Prepare.
const TargetColumn = "Result"

type keyword struct {
	name   string
	word   string
	weight float64
}

var keywords = []keyword{
	{"contains_malware_word", "malware", 0.7},
	{"contains_trojan", "trojan", 0.6},
	{"contains_virus", "virus", 0.6},
	{"contains_ransomware", "ransomware", 0.8},
	{"contains_attack", "attack", 0.4},
	{"contains_threat", "threat", 0.3},
	{"contains_vulnerability", "vulnerability", 0.5},
	{"contains_exploit", "exploit", 0.5},
	{"contains_security", "security", 0.2},
}

// FeatureNames lists the text features in the order ExtractTextFeatures emits them.
var FeatureNames = func() []string {
	names := []string{"text_length", "word_count"}
	for _, k := range keywords {
		names = append(names, k.name)
	}
	return names
}()

// ExtractTextFeatures turns threat-intel text into the numeric feature vector
// the classifier is trained on.
func ExtractTextFeatures(text string) []float64 {
	lower := strings.ToLower(text)
	out := make([]float64, 0, len(FeatureNames))
	out = append(out,
		math.Min(float64(utf8.RuneCountInString(text))/5000.0, 1.0),
		math.Min(float64(len(strings.Fields(text)))/500.0, 1.0),
	)
	for _, k := range keywords {
		if strings.Contains(lower, k.word) {
			out = append(out, k.weight)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

var malwareEntity = regexp.MustCompile(`['"]label['"]\s*:\s*['"]malware['"]`)

// PrepareStats counts what Prepare kept and skipped.
type PrepareStats struct {
	Malicious int
	Benign    int
	Skipped   int
}

// Prepare converts a raw threat-intel table (columns "text" and "entities")
// into the feature table with a binary Result label: 1 when any entity is
// labelled malware. At most maxPerClass rows are kept per class (0 = no cap).
// Rows whose entities cell is present but not a list literal are skipped.
func Prepare(raw *data.Table, maxPerClass int) (*data.Table, PrepareStats, error) {
	var st PrepareStats
	ti, ei := raw.ColumnIndex("text"), raw.ColumnIndex("entities")
	if ti < 0 || ei < 0 {
		return nil, st, errors.New("dataprep: raw table needs text and entities columns")
	}
	out := data.NewTable(append(append([]string(nil), FeatureNames...), TargetColumn)...)
	for _, row := range raw.Rows {
		ents := strings.TrimSpace(row[ei])
		if ents != "" && !(strings.HasPrefix(ents, "[") && strings.HasSuffix(ents, "]")) {
			st.Skipped++
			continue
		}
		malicious := malwareEntity.MatchString(ents)
		if maxPerClass > 0 {
			if malicious && st.Malicious >= maxPerClass || !malicious && st.Benign >= maxPerClass {
				continue
			}
		}
		label := "0"
		if malicious {
			label = "1"
			st.Malicious++
		} else {
			st.Benign++
		}
		feats := ExtractTextFeatures(row[ti])
		cells := make([]string, 0, len(feats)+1)
		for _, f := range feats {
			cells = append(cells, data.FormatFloat(f))
		}
		out.Rows = append(out.Rows, append(cells, label))
	}
	if out.Len() == 0 {
		return nil, st, fmt.Errorf("dataprep: no usable rows (%d skipped)", st.Skipped)
	}
	return out, st, nil
}
