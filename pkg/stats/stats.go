package stats

import (
	"math"
	"sort"
)

// DropNaN returns the non-NaN values of x (allocates a copy).
func DropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// SortedCopy returns a sorted copy of x.
func SortedCopy(x []float64) []float64 {
	cp := make([]float64, len(x))
	copy(cp, x)
	sort.Float64s(cp)
	return cp
}

// ECDF returns the step points of the empirical CDF of x: distinct sorted values
// and the fraction of samples <= each value.
func ECDF(x []float64) (xs, ps []float64) {
	s := SortedCopy(DropNaN(x))
	n := float64(len(s))
	for i := 0; i < len(s); i++ {
		if i+1 < len(s) && s[i+1] == s[i] {
			continue
		}
		xs = append(xs, s[i])
		ps = append(ps, float64(i+1)/n)
	}
	return xs, ps
}
