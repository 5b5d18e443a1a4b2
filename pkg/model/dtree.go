package model

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// parallelSplitMin is the node size from which candidate features are
// searched concurrently.
const parallelSplitMin = 2048

// DecisionTreeClassifier is a CART-style classifier.
type DecisionTreeClassifier struct {
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => all features, >0 => features sampled per split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for feature subsampling

	Root   *TreeNode
	Labels []int // sorted class labels, the column order of PredictProba
}

// TreeNode is a node of a fitted tree. Rows with x[Feature] <= Threshold go
// left; NaNs follow NaNLeft.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64
	NaNLeft   bool
	Left      *TreeNode
	Right     *TreeNode

	N      int
	Probas []float64 // leaf class distribution aligned with Labels
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) {
		if n > 0 {
			t.MinSamplesSplit = n
		}
	}
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) {
		if n > 0 {
			t.MinSamplesLeaf = n
		}
	}
}
func WithCriterion(c string) Option {
	return func(t *DecisionTreeClassifier) {
		if c != "" {
			t.Criterion = c
		}
	}
}
func WithMaxFeatures(k int) Option { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       "gini",
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Fit trains the tree on every row of X. Missing values must be math.NaN().
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	if _, err := checkXY("dtree", X, y); err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitSamples(X, y, idx)
}

// FitSamples trains the tree on the rows listed in idx. Indices may repeat,
// which is how bootstrap samples are passed without copying X.
func (t *DecisionTreeClassifier) FitSamples(X [][]float64, y []int, idx []int) error {
	p, err := checkXY("dtree", X, y)
	if err != nil {
		return err
	}
	if len(idx) == 0 {
		return errors.New("dtree: no samples")
	}
	if t.Criterion != "gini" && t.Criterion != "entropy" {
		return errors.New("dtree: criterion must be gini or entropy")
	}
	t.Labels = uniqueLabels(y, idx)
	pos := make(map[int]int, len(t.Labels))
	for i, l := range t.Labels {
		pos[l] = i
	}
	yc := make([]int, len(y))
	for _, i := range idx {
		yc[i] = pos[y[i]]
	}

	b := &builder{
		tree:     t,
		X:        X,
		y:        yc,
		p:        p,
		nClasses: len(t.Labels),
		rnd:      rand.New(rand.NewSource(t.RandomState)),
		impurity: giniFromCounts,
	}
	if t.Criterion == "entropy" {
		b.impurity = entropyFromCounts
	}
	t.Root = b.build(append([]int(nil), idx...), 0)
	return nil
}

// Classes returns the sorted labels seen during Fit.
func (t *DecisionTreeClassifier) Classes() []int { return t.Labels }

// Predict returns the most probable label for each row.
func (t *DecisionTreeClassifier) Predict(X [][]float64) []int {
	return labelsFromProba(t.PredictProba(X), t.Labels)
}

// PredictProba returns the per-class probability vectors for rows in X.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = append([]float64(nil), t.leaf(X[i])...)
	}
	return out
}

// Depth returns the depth of the fitted tree (a lone leaf has depth 0).
func (t *DecisionTreeClassifier) Depth() int { return nodeDepth(t.Root) }

func nodeDepth(n *TreeNode) int {
	if n == nil || n.Leaf {
		return 0
	}
	return 1 + max(nodeDepth(n.Left), nodeDepth(n.Right))
}

func (t *DecisionTreeClassifier) leaf(x []float64) []float64 {
	if t.Root == nil {
		p := make([]float64, len(t.Labels))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	node := t.Root
	for !node.Leaf {
		v := x[node.Feature]
		if math.IsNaN(v) {
			if node.NaNLeft {
				node = node.Left
			} else {
				node = node.Right
			}
			continue
		}
		if v <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Probas
}

// builder carries the per-fit state of the recursive construction.
type builder struct {
	tree     *DecisionTreeClassifier
	X        [][]float64
	y        []int // class index per row
	p        int
	nClasses int
	rnd      *rand.Rand
	impurity func([]int) float64
}

// splitResult is the best split found on a single feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
	nanLeft   bool
}

// pair is a feature value and its class index.
type pair struct {
	v float64
	c int
}

func (b *builder) build(idx []int, depth int) *TreeNode {
	t := b.tree
	counts := make([]int, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	node := &TreeNode{N: len(idx)}
	if isPure(counts) || len(idx) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return leafNode(node, counts)
	}

	feats := make([]int, b.p)
	for j := range feats {
		feats[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < b.p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + b.rnd.Intn(b.p-i)
			feats[i], feats[j] = feats[j], feats[i]
		}
		feats = feats[:t.MaxFeatures]
		sort.Ints(feats)
	}

	parent := b.impurity(counts)
	results := make([]splitResult, len(feats))
	if len(idx) >= parallelSplitMin {
		var wg sync.WaitGroup
		for k, f := range feats {
			wg.Add(1)
			go func(k, f int) {
				defer wg.Done()
				results[k] = b.bestSplit(idx, f, parent)
			}(k, f)
		}
		wg.Wait()
	} else {
		for k, f := range feats {
			results[k] = b.bestSplit(idx, f, parent)
		}
	}

	best := splitResult{feature: -1}
	for _, r := range results {
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}
	if best.feature < 0 || best.gain <= t.MinImpurityDecrease {
		return leafNode(node, counts)
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		v := b.X[i][best.feature]
		if (math.IsNaN(v) && best.nanLeft) || v <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.NaNLeft = best.nanLeft
	node.Left = b.build(left, depth+1)
	node.Right = b.build(right, depth+1)
	return node
}

// bestSplit scans the sorted values of feature f once, keeping running class
// counts, and tries NaNs on both sides of every threshold.
func (b *builder) bestSplit(idx []int, f int, parent float64) splitResult {
	result := splitResult{feature: -1}
	minLeaf := b.tree.MinSamplesLeaf

	valid := make([]pair, 0, len(idx))
	nanCounts := make([]int, b.nClasses)
	nNaN := 0
	for _, i := range idx {
		v := b.X[i][f]
		if math.IsNaN(v) {
			nanCounts[b.y[i]]++
			nNaN++
			continue
		}
		valid = append(valid, pair{v, b.y[i]})
	}
	if len(valid) < 2 {
		return result
	}
	sort.Slice(valid, func(a, c int) bool { return valid[a].v < valid[c].v })

	total := make([]int, b.nClasses)
	for _, pv := range valid {
		total[pv.c]++
	}
	leftCounts := make([]int, b.nClasses)
	rightCounts := make([]int, b.nClasses)
	lc := make([]int, b.nClasses)
	rc := make([]int, b.nClasses)
	n := float64(len(idx))

	for s := 1; s < len(valid); s++ {
		leftCounts[valid[s-1].c]++
		if valid[s].v == valid[s-1].v {
			continue
		}
		for k := range total {
			rightCounts[k] = total[k] - leftCounts[k]
		}
		thr := (valid[s-1].v + valid[s].v) / 2.0

		for _, nanLeft := range []bool{true, false} {
			if nNaN == 0 && !nanLeft {
				break
			}
			copy(lc, leftCounts)
			copy(rc, rightCounts)
			nl, nr := s, len(valid)-s
			if nanLeft {
				addCounts(lc, nanCounts)
				nl += nNaN
			} else {
				addCounts(rc, nanCounts)
				nr += nNaN
			}
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			weighted := float64(nl)/n*b.impurity(lc) + float64(nr)/n*b.impurity(rc)
			if gain := parent - weighted; gain > result.gain {
				result = splitResult{gain: gain, feature: f, threshold: thr, nanLeft: nanLeft}
			}
		}
	}
	return result
}

func leafNode(node *TreeNode, counts []int) *TreeNode {
	node.Leaf = true
	node.Probas = countsToProbas(counts)
	return node
}

func addCounts(dst, src []int) {
	for i := range src {
		dst[i] += src[i]
	}
}

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}
