package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptySample is returned when a sample has no finite values.
var ErrEmptySample = errors.New("stats: empty sample")

// maxExactN is the largest sample size for which the exact p-value is computed.
const maxExactN = 10000

// KSResult is the outcome of a two-sample Kolmogorov-Smirnov test.
type KSResult struct {
	Statistic float64
	PValue    float64
}

// KSTwoSample compares the empirical distributions of a and b. NaNs are ignored.
//
// The two-sided p-value is exact while both samples have at most 10000 values.
// Larger samples use the one-sample Kolmogorov distribution at the effective
// size round(n*m/(n+m)).
func KSTwoSample(a, b []float64) (KSResult, error) {
	x := SortedCopy(DropNaN(a))
	y := SortedCopy(DropNaN(b))
	if len(x) == 0 || len(y) == 0 {
		return KSResult{}, ErrEmptySample
	}
	d := stat.KolmogorovSmirnov(x, nil, y, nil)

	n1, n2 := len(x), len(y)
	var p float64
	if max(n1, n2) <= maxExactN {
		p = ksExact(n1, n2, d)
	} else {
		en := math.Round(float64(n1) * float64(n2) / float64(n1+n2))
		p = ksOneSampleSurvival(d, en)
	}
	return KSResult{Statistic: d, PValue: math.Min(math.Max(p, 0), 1)}, nil
}

// ksExact returns P(D >= d) for samples of size m and n under the null.
// Every ordering of the pooled sample is a monotone lattice path from (0,0)
// to (m,n); the path stays inside while |x/m - y/n| < d. The walk is carried
// as probabilities rather than path counts so no binomial coefficient is formed.
func ksExact(m, n int, d float64) float64 {
	g := gcd(m, n)
	mg, ng := m/g, n/g
	h := int(math.Round(d * float64(mg*n)))
	if h <= 0 {
		return 1
	}

	// row x of the walk: |x*ng - y*mg| < h
	band := func(x int) (lo, hi int) {
		lo = max(floorDiv(x*ng-h, mg)+1, 0)
		hi = min(ceilDiv(x*ng+h, mg)-1, n)
		return lo, hi
	}

	total := m + n
	prob := make([]float64, n+1)
	_, hi := band(0)
	prob[0] = 1
	for y := 1; y <= hi; y++ {
		prob[y] = prob[y-1] * float64(n-y+1) / float64(total-y+1)
	}
	prevLo := 0
	for x := 1; x <= m; x++ {
		lo, hi := band(x)
		if lo > hi {
			return 1
		}
		for y := lo; y <= hi; y++ {
			v := prob[y] * float64(m-x+1)
			if y > lo {
				v += prob[y-1] * float64(n-y+1)
			}
			prob[y] = v / float64(total-x-y+1)
		}
		for y := prevLo; y < lo; y++ {
			prob[y] = 0
		}
		prevLo = lo
	}
	return 1 - prob[n]
}

// ksOneSampleSurvival approximates P(D_n >= d) with Stephens' correction of
// the limiting Kolmogorov distribution, accurate to about 1e-3 for n > 100.
func ksOneSampleSurvival(d, n float64) float64 {
	sn := math.Sqrt(n)
	return kolmogorovSurvival((sn + 0.12 + 0.11/sn) * d)
}

// kolmogorovSurvival evaluates Q_KS(lambda) = 2 * sum_{j>=1} (-1)^(j-1) exp(-2 j^2 lambda^2).
func kolmogorovSurvival(lambda float64) float64 {
	const (
		eps1 = 1e-3
		eps2 = 1e-8
	)
	a2 := -2 * lambda * lambda
	fac, sum, prev := 2.0, 0.0, 0.0
	for j := 1; j <= 100; j++ {
		term := fac * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= eps1*prev || math.Abs(term) <= eps2*sum {
			return math.Min(math.Max(sum, 0), 1)
		}
		fac = -fac
		prev = math.Abs(term)
	}
	// series did not converge: lambda is ~0, distributions indistinguishable
	return 1
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}
