package model

import (
	"errors"
	"math"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// RandomForest for classification. Trees are grown in parallel on bootstrap
// samples; predictions average the per-tree class probabilities.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int // 0 => sqrt(p) at fit time
	Bootstrap       bool
	RandomState     int64

	Trees  []*DecisionTreeClassifier
	Labels []int
}

// RandomForestOption functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForest) {
		if n > 0 {
			rf.NEstimators = n
		}
	}
}
func WithBootstrap(b bool) RandomForestOption { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}
func WithForestMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForest) {
		if n > 0 {
			rf.MinSamplesSplit = n
		}
	}
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains the random forest. Bootstrap samples are index slices into X.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	p, err := checkXY("randomforest", X, y)
	if err != nil {
		return err
	}
	if rf.NEstimators <= 0 {
		return errors.New("randomforest: NEstimators must be positive")
	}
	n := len(X)
	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(p))))
	}
	rf.Labels = uniqueLabels(y, nil)
	rf.Trees = make([]*DecisionTreeClassifier, rf.NEstimators)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < rf.NEstimators; i++ {
		g.Go(func() error {
			seed := rf.RandomState + int64(i)
			treeRand := rand.New(rand.NewSource(seed))
			sample := make([]int, n)
			for j := range sample {
				if rf.Bootstrap {
					sample[j] = treeRand.Intn(n)
				} else {
					sample[j] = j
				}
			}
			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMaxFeatures(maxFeatures),
				WithRandomState(seed),
			)
			if err := tree.FitSamples(X, y, sample); err != nil {
				return err
			}
			rf.Trees[i] = tree
			return nil
		})
	}
	return g.Wait()
}

// Classes returns the sorted labels seen during Fit.
func (rf *RandomForest) Classes() []int { return rf.Labels }

// PredictProba averages the tree probabilities. A tree whose bootstrap sample
// missed a class contributes zero for it.
func (rf *RandomForest) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	if len(rf.Trees) == 0 {
		return out
	}
	pos := make(map[int]int, len(rf.Labels))
	for i, l := range rf.Labels {
		pos[l] = i
	}
	parallelRows(len(X), func(start, end int) {
		for i := start; i < end; i++ {
			acc := make([]float64, len(rf.Labels))
			for _, tree := range rf.Trees {
				probs := tree.leaf(X[i])
				for k, pr := range probs {
					acc[pos[tree.Labels[k]]] += pr
				}
			}
			for k := range acc {
				acc[k] /= float64(len(rf.Trees))
			}
			out[i] = acc
		}
	})
	return out
}

// Predict returns the label with the highest averaged probability.
func (rf *RandomForest) Predict(X [][]float64) []int {
	return labelsFromProba(rf.PredictProba(X), rf.Labels)
}
