package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"netsecml/pkg/artifact"
	"netsecml/pkg/stats"
)

var (
	trainColor = color.RGBA{B: 255, A: 255, R: 50, G: 50}
	testColor  = color.RGBA{R: 255, A: 255}
)

// PlotECDF draws the empirical CDFs of a column's train and test values.
func PlotECDF(path, column string, train, test []float64) error {
	p := plot.New()
	p.Title.Text = column + " ECDF (train vs test)"
	p.X.Label.Text = column
	p.Y.Label.Text = "P(X <= x)"
	p.Legend.Top = false
	p.Legend.Left = false

	added := 0
	for _, s := range []struct {
		name string
		vals []float64
		c    color.Color
	}{{"train", train, trainColor}, {"test", test, testColor}} {
		xs, ps := stats.ECDF(s.vals)
		if len(xs) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i].X = xs[i]
			pts[i].Y = ps[i]
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("report: %s line: %w", s.name, err)
		}
		l.StepStyle = plotter.PostStep
		l.Color = s.c
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(s.name, l)
		added++
	}
	if added == 0 {
		return errors.New("report: nothing to plot for " + column)
	}
	return save(p, path, 6*vg.Inch, 4*vg.Inch)
}

// PlotMetrics draws train and test scores side by side.
func PlotMetrics(path string, train, test artifact.ClassificationMetricArtifact) error {
	p := plot.New()
	p.Title.Text = "Classification metrics"
	p.Y.Label.Text = "score"
	p.Y.Min, p.Y.Max = 0, 1

	values := func(m artifact.ClassificationMetricArtifact) plotter.Values {
		return plotter.Values{m.PrecisionScore, m.RecallScore, m.F1Score, m.Accuracy}
	}
	w := vg.Points(18)
	trainBars, err := plotter.NewBarChart(values(train), w)
	if err != nil {
		return fmt.Errorf("report: train bars: %w", err)
	}
	trainBars.Color = trainColor
	trainBars.Offset = -w / 2
	testBars, err := plotter.NewBarChart(values(test), w)
	if err != nil {
		return fmt.Errorf("report: test bars: %w", err)
	}
	testBars.Color = testColor
	testBars.Offset = w / 2

	p.Add(trainBars, testBars)
	p.Legend.Add("train", trainBars)
	p.Legend.Add("test", testBars)
	p.Legend.Top = true
	p.NominalX("precision", "recall", "f1", "accuracy")
	return save(p, path, 5*vg.Inch, 4*vg.Inch)
}

func save(p *plot.Plot, path string, w, h vg.Length) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: create dir: %w", err)
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}
