package model

import "netsecml/pkg/artifact"

// Accuracy is the fraction of matching labels (0 for empty input).
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 scores the positive class 1. Undefined ratios are 0.
func PrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		if yPred[i] == 1 && yTrue[i] == 1 {
			tp++
		}
		if yPred[i] == 1 && yTrue[i] != 1 {
			fp++
		}
		if yPred[i] != 1 && yTrue[i] == 1 {
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ClassificationScore bundles precision, recall, F1 and accuracy.
func ClassificationScore(yTrue, yPred []int) artifact.ClassificationMetricArtifact {
	prec, rec, f1 := PrecisionRecallF1(yTrue, yPred)
	return artifact.ClassificationMetricArtifact{
		F1Score:        f1,
		PrecisionScore: prec,
		RecallScore:    rec,
		Accuracy:       Accuracy(yTrue, yPred),
	}
}
