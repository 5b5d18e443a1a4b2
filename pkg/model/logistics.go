package model

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"netsecml/pkg/loader"
	"netsecml/pkg/optim"
)

// LogisticRegression is a binary classifier trained with mini-batch SGD on
// binary cross-entropy. The larger of the two labels is the positive class.
type LogisticRegression struct {
	W           []float64
	Bias        float64
	Lr          float64
	Epochs      int
	BatchSize   int
	L2          float64
	RandomState int64

	Labels []int
}

// LogisticOption functional config for LogisticRegression
type LogisticOption func(*LogisticRegression)

func WithL2(l2 float64) LogisticOption { return func(m *LogisticRegression) { m.L2 = l2 } }
func WithLogisticRandomState(seed int64) LogisticOption {
	return func(m *LogisticRegression) { m.RandomState = seed }
}

// NewLogisticRegression stores the hyperparameters; weights are sized at Fit.
func NewLogisticRegression(lr float64, epochs, batchSize int, opts ...LogisticOption) *LogisticRegression {
	m := &LogisticRegression{
		Lr:          lr,
		Epochs:      epochs,
		BatchSize:   batchSize,
		RandomState: time.Now().UnixNano(),
	}
	if m.Lr <= 0 {
		m.Lr = 0.1
	}
	if m.Epochs <= 0 {
		m.Epochs = 100
	}
	if m.BatchSize <= 0 {
		m.BatchSize = 32
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Fit trains the model using mini-batch gradient descent.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	p, err := checkXY("logistic", X, y)
	if err != nil {
		return err
	}
	m.Labels = uniqueLabels(y, nil)
	if len(m.Labels) != 2 {
		return errors.New("logistic: need exactly two classes in y")
	}
	target := make([]float64, len(y))
	for i, v := range y {
		if v == m.Labels[1] {
			target[i] = 1
		}
	}

	rnd := rand.New(rand.NewSource(m.RandomState))
	m.W = make([]float64, p)
	// small random weights break symmetry
	for i := range m.W {
		m.W[i] = rnd.NormFloat64() * 0.01
	}
	m.Bias = 0
	opt := optim.NewSGD(m.Lr, m.L2)

	gW := make([]float64, p)
	for ep := 0; ep < m.Epochs; ep++ {
		for _, batch := range loader.MiniBatches(len(X), m.BatchSize, rnd) {
			bx := make([][]float64, len(batch))
			by := make([]float64, len(batch))
			for k, i := range batch {
				bx[k], by[k] = X[i], target[i]
			}
			_, dy := bce(by, m.probs(bx))
			for j := range gW {
				gW[j] = 0
			}
			gb := 0.0
			for i, row := range bx {
				for j, xij := range row {
					gW[j] += dy[i] * xij
				}
				gb += dy[i]
			}
			opt.Step(m.W, gW)
			m.Bias -= m.Lr * gb
		}
	}
	return nil
}

// Loss returns the mean binary cross-entropy of the fitted model on (X, y).
func (m *LogisticRegression) Loss(X [][]float64, y []int) float64 {
	target := make([]float64, len(y))
	for i, v := range y {
		if len(m.Labels) == 2 && v == m.Labels[1] {
			target[i] = 1
		}
	}
	loss, _ := bce(target, m.probs(X))
	return loss
}

func (m *LogisticRegression) Classes() []int { return m.Labels }

// PredictProba returns [p(negative), p(positive)] for each row.
func (m *LogisticRegression) PredictProba(X [][]float64) [][]float64 {
	ps := m.probs(X)
	out := make([][]float64, len(ps))
	for i, p := range ps {
		out[i] = []float64{1 - p, p}
	}
	return out
}

// Predict applies a 0.5 threshold on the positive-class probability.
func (m *LogisticRegression) Predict(X [][]float64) []int {
	ps := m.probs(X)
	out := make([]int, len(ps))
	if len(m.Labels) != 2 {
		return out
	}
	for i, p := range ps {
		if p >= 0.5 {
			out[i] = m.Labels[1]
		} else {
			out[i] = m.Labels[0]
		}
	}
	return out
}

func (m *LogisticRegression) probs(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if m.W == nil {
		return out
	}
	parallelRows(len(X), func(start, end int) {
		for i := start; i < end; i++ {
			sum := m.Bias
			for j, v := range X[i] {
				sum += m.W[j] * v
			}
			out[i] = sigmoid(sum)
		}
	})
	return out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

// bce is the mean binary cross-entropy and its gradient w.r.t. the logits.
func bce(yTrue, yPred []float64) (float64, []float64) {
	n := len(yTrue)
	s := 0.0
	grad := make([]float64, n)
	for i := range n {
		p := math.Min(math.Max(yPred[i], 1e-12), 1-1e-12)
		y := yTrue[i]
		s += -(y*math.Log(p) + (1-y)*math.Log(1-p))
		grad[i] = (p - y) / float64(n)
	}
	return s / float64(n), grad
}
