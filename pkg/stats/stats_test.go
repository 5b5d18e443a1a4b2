package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKSTwoSampleIdentical(t *testing.T) {
	a := []float64{0.1, 0.4, 0.2, 0.9, 0.5}
	res, err := KSTwoSample(a, a)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Statistic)
	assert.Equal(t, 1.0, res.PValue)
}

func TestKSTwoSampleSeparated(t *testing.T) {
	a := make([]float64, 100)
	b := make([]float64, 100)
	for i := range a {
		a[i] = float64(i)
		b[i] = float64(i + 100)
	}
	res, err := KSTwoSample(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Statistic, 1e-12)
	assert.Less(t, res.PValue, 1e-10)

	small, err := KSTwoSample([]float64{1, 2, 3, 4, 5}, []float64{6, 7, 8, 9, 10})
	require.NoError(t, err)
	assert.Less(t, small.PValue, 0.05)
}

func TestKSTwoSampleIgnoresNaNAndOrder(t *testing.T) {
	a := []float64{3, math.NaN(), 1, 2}
	b := []float64{2, 1, 3}
	res, err := KSTwoSample(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Statistic)

	_, err = KSTwoSample([]float64{math.NaN()}, b)
	assert.ErrorIs(t, err, ErrEmptySample)
}

func TestKSTwoSampleExactPValue(t *testing.T) {
	a := make([]float64, 10)
	b := make([]float64, 10)
	for i := range a {
		a[i] = float64(i + 1)
		b[i] = float64(i + 7)
	}
	res, err := KSTwoSample(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, res.Statistic, 1e-12)
	assert.InDelta(t, 0.0524476, res.PValue, 1e-6)

	// unequal sizes against counts of all C(10,4) orderings
	res, err = KSTwoSample([]float64{1, 2, 5, 9}, []float64{3, 4, 6, 7, 8, 10})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Statistic, 1e-12)
	assert.InDelta(t, 116.0/210.0, res.PValue, 1e-9)
}

func TestKSExactSmallCases(t *testing.T) {
	assert.Equal(t, 1.0, ksExact(1, 1, 1))
	assert.InDelta(t, 1.0/3.0, ksExact(2, 2, 1), 1e-12)
	assert.InDelta(t, 2.0/252.0, ksExact(5, 5, 1), 1e-12)
	assert.Equal(t, 1.0, ksExact(3, 4, 0))
}

func TestKSTwoSampleLargeUsesAsymptotic(t *testing.T) {
	a := make([]float64, maxExactN+1)
	b := make([]float64, maxExactN+1)
	for i := range a {
		a[i] = float64(i)
		b[i] = float64(i) + 100
	}
	res, err := KSTwoSample(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/float64(maxExactN+1), res.Statistic, 1e-12)
	assert.Greater(t, res.PValue, 0.3)
	assert.Less(t, res.PValue, 0.8)
}

func TestKolmogorovSurvivalBounds(t *testing.T) {
	assert.Equal(t, 1.0, kolmogorovSurvival(0))
	assert.InDelta(t, 0.27, kolmogorovSurvival(1.0), 0.01)
	assert.Less(t, kolmogorovSurvival(3), 1e-6)
}

func TestStandardScaler(t *testing.T) {
	s := NewStandardScaler()
	out, err := s.FitTransform([][]float64{{1, 5}, {3, 5}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-1, 0}, {1, 0}}, out)
	assert.Equal(t, []float64{1, 1}, s.Std)

	_, err = s.Transform([][]float64{{1}})
	assert.Error(t, err)

	_, err = NewStandardScaler().Transform([][]float64{{1}})
	assert.Error(t, err)
}

func TestECDF(t *testing.T) {
	xs, ps := ECDF([]float64{2, 1, 2, math.NaN(), 4})
	assert.Equal(t, []float64{1, 2, 4}, xs)
	assert.Equal(t, []float64{0.25, 0.75, 1}, ps)
}
