package dataprep

import (
	"errors"
	"math"
	"sort"
)

// KNNImputer fills NaN entries with the uniform mean of the column over the
// K nearest training rows, using the nan-euclidean distance
// (squared differences over coordinates present in both rows, rescaled by
// total/present coordinate count).
type KNNImputer struct {
	K     int
	Train [][]float64
	// Fallback holds the training column means, used when no neighbour has the column.
	Fallback []float64
}

// NewKNNImputer returns an imputer using k neighbours.
func NewKNNImputer(k int) *KNNImputer {
	if k <= 0 {
		k = 3
	}
	return &KNNImputer{K: k}
}

// Fit stores the training rows and per-column means.
func (m *KNNImputer) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("imputer: empty X")
	}
	p := len(X[0])
	m.Train = make([][]float64, len(X))
	sums := make([]float64, p)
	counts := make([]int, p)
	for i, row := range X {
		if len(row) != p {
			return errors.New("imputer: inconsistent number of features")
		}
		m.Train[i] = append([]float64(nil), row...)
		for j, v := range row {
			if !math.IsNaN(v) {
				sums[j] += v
				counts[j]++
			}
		}
	}
	m.Fallback = make([]float64, p)
	for j := range sums {
		if counts[j] > 0 {
			m.Fallback[j] = sums[j] / float64(counts[j])
		}
	}
	return nil
}

// Transform returns a copy of X with every NaN imputed.
func (m *KNNImputer) Transform(X [][]float64) ([][]float64, error) {
	if m.Train == nil {
		return nil, errors.New("imputer: not fitted")
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(m.Fallback) {
			return nil, errors.New("imputer: feature count mismatch")
		}
		filled := append([]float64(nil), row...)
		for j, v := range row {
			if math.IsNaN(v) {
				filled[j] = m.imputeValue(row, j)
			}
		}
		out[i] = filled
	}
	return out, nil
}

type neighbour struct {
	d float64
	v float64
}

func (m *KNNImputer) imputeValue(row []float64, col int) float64 {
	nbrs := make([]neighbour, 0, len(m.Train))
	for _, cand := range m.Train {
		if math.IsNaN(cand[col]) {
			continue
		}
		d, ok := nanEuclidean(row, cand)
		if !ok {
			continue
		}
		nbrs = append(nbrs, neighbour{d: d, v: cand[col]})
	}
	if len(nbrs) == 0 {
		return m.Fallback[col]
	}
	sort.SliceStable(nbrs, func(a, b int) bool { return nbrs[a].d < nbrs[b].d })
	k := min(m.K, len(nbrs))
	sum := 0.0
	for _, n := range nbrs[:k] {
		sum += n.v
	}
	return sum / float64(k)
}

// nanEuclidean is false when the rows share no present coordinate.
func nanEuclidean(a, b []float64) (float64, bool) {
	sum := 0.0
	present := 0
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		d := a[i] - b[i]
		sum += d * d
		present++
	}
	if present == 0 {
		return 0, false
	}
	return math.Sqrt(sum * float64(len(a)) / float64(present)), true
}
