package loader

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainTestSplitSizes(t *testing.T) {
	train, test, err := TrainTestSplit(11, 0.2, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Len(t, test, 3, "test size is ceil(11*0.2)")
	assert.Len(t, train, 8)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
}

func TestTrainTestSplitDeterministic(t *testing.T) {
	a, _, err := TrainTestSplit(50, 0.3, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	b, _, err := TrainTestSplit(50, 0.3, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTrainTestSplitInvalid(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	_, _, err := TrainTestSplit(10, 0, rnd)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, 1, rnd)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(1, 0.2, rnd)
	assert.Error(t, err)

	train, test, err := TrainTestSplit(2, 0.9, rnd)
	require.NoError(t, err)
	assert.Len(t, train, 1)
	assert.Len(t, test, 1)
}

func TestMiniBatches(t *testing.T) {
	batches := MiniBatches(10, 4, rand.New(rand.NewSource(3)))
	require.Len(t, batches, 3)
	assert.Len(t, batches[2], 2)

	whole := MiniBatches(5, 0, rand.New(rand.NewSource(3)))
	require.Len(t, whole, 1)
	assert.Len(t, whole[0], 5)
}
