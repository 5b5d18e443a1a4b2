package model

import (
	"errors"
	"sort"
)

// KNN classifies by majority vote of the K nearest training rows (Euclidean).
type KNN struct {
	K      int
	X      [][]float64
	Y      []int
	Labels []int
}

// NewKNN creates and returns a new KNN model.
func NewKNN(k int) *KNN {
	if k <= 0 {
		k = 5
	}
	return &KNN{K: k}
}

// Fit stores a copy of the training data.
func (m *KNN) Fit(X [][]float64, y []int) error {
	if _, err := checkXY("knn", X, y); err != nil {
		return err
	}
	if m.K <= 0 {
		return errors.New("knn: K must be positive")
	}
	m.X = make([][]float64, len(X))
	for i, row := range X {
		m.X[i] = append([]float64(nil), row...)
	}
	m.Y = append([]int(nil), y...)
	m.Labels = uniqueLabels(y, nil)
	return nil
}

func (m *KNN) Classes() []int { return m.Labels }

// PredictProba returns the vote share of each label among the K neighbours.
func (m *KNN) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	if len(m.X) == 0 {
		return out
	}
	pos := make(map[int]int, len(m.Labels))
	for i, l := range m.Labels {
		pos[l] = i
	}
	parallelRows(len(X), func(start, end int) {
		for i := start; i < end; i++ {
			votes := make([]float64, len(m.Labels))
			nbrs := m.neighbours(X[i])
			for _, nb := range nbrs {
				votes[pos[nb.label]]++
			}
			for k := range votes {
				votes[k] /= float64(len(nbrs))
			}
			out[i] = votes
		}
	})
	return out
}

// Predict returns the majority label; ties go to the smaller label.
func (m *KNN) Predict(X [][]float64) []int {
	return labelsFromProba(m.PredictProba(X), m.Labels)
}

type knnNeighbour struct {
	d     float64
	label int
}

// neighbours keeps a small sorted slice of the K closest rows seen so far.
func (m *KNN) neighbours(xi []float64) []knnNeighbour {
	nbrs := make([]knnNeighbour, 0, m.K+1)
	for j, xj := range m.X {
		d := euclidSquared(xi, xj)
		if len(nbrs) < m.K {
			nbrs = append(nbrs, knnNeighbour{d, m.Y[j]})
			sort.SliceStable(nbrs, func(a, b int) bool { return nbrs[a].d < nbrs[b].d })
		} else if d < nbrs[len(nbrs)-1].d {
			nbrs[len(nbrs)-1] = knnNeighbour{d, m.Y[j]}
			sort.SliceStable(nbrs, func(a, b int) bool { return nbrs[a].d < nbrs[b].d })
		}
	}
	return nbrs
}

// euclidSquared avoids the square root; ordering is all that matters here.
func euclidSquared(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
