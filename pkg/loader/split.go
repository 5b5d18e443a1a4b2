package loader

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplit shuffles row indices 0..n-1 and cuts them into train and test sets.
// The test set gets ceil(n*testRatio) rows; both sets are non-empty when n >= 2.
func TrainTestSplit(n int, testRatio float64, rnd *rand.Rand) (trainIdx, testIdx []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("loader: test ratio %v outside (0, 1)", testRatio)
	}
	if n < 2 {
		return nil, nil, fmt.Errorf("loader: need at least 2 rows to split, got %d", n)
	}
	nTest := int(math.Ceil(float64(n) * testRatio))
	if nTest >= n {
		nTest = n - 1
	}
	indices := rnd.Perm(n)
	return indices[nTest:], indices[:nTest], nil
}

// MiniBatches returns a shuffled partition of 0..n-1 into batches of at most size.
func MiniBatches(n, size int, rnd *rand.Rand) [][]int {
	if size <= 0 || size > n {
		size = n
	}
	indices := rnd.Perm(n)
	batches := make([][]int, 0, (n+size-1)/max(size, 1))
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batches = append(batches, indices[start:end])
	}
	return batches
}
