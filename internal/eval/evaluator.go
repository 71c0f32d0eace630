package eval

import (
	"fmt"
	"math"
	"sort"

	"permsig/domain/core"
	"permsig/domain/sig"
)

// DefaultThreshold is the decision threshold used when the caller does not
// supply one.
const DefaultThreshold = 0.5

// Evaluate computes the performance record for predicted scores against true
// class labels at a decision threshold.
//
// Precondition: every score must be strictly inside (0, 1). Deviance is
// undefined at the boundary and this function does not guard against it;
// trainers are required to emit interior scores.
//
// If every score lands at or above the threshold (degenerate separation),
// the effective threshold is reset to the median score so both predicted
// classes are non-empty. This is a deliberate special case that keeps
// precision and recall defined; it is not an error.
func Evaluate(name string, scores []float64, truth []string, positiveClass string, threshold float64) (sig.PerformanceRecord, error) {
	if len(scores) != len(truth) {
		return sig.PerformanceRecord{}, fmt.Errorf("%w: %d scores vs %d labels",
			core.ErrLengthMismatch, len(scores), len(truth))
	}
	if len(scores) == 0 {
		return sig.PerformanceRecord{}, core.ErrInsufficientData
	}
	positivePresent := false
	for _, label := range truth {
		if label == positiveClass {
			positivePresent = true
			break
		}
	}
	if !positivePresent {
		return sig.PerformanceRecord{}, fmt.Errorf("%w: %q", core.ErrUnknownClass, positiveClass)
	}

	effective, strict := adjustThreshold(scores, threshold)

	// Confusion matrix from thresholded scores vs. truth
	var tp, fp, tn, fn int
	deviance := 0.0
	for i, score := range scores {
		y := 0.0
		if truth[i] == positiveClass {
			y = 1.0
		}
		deviance += y*math.Log(score) + (1-y)*math.Log(1-score)

		predictedPositive := score >= effective
		if strict {
			predictedPositive = score > effective
		}
		switch {
		case predictedPositive && y == 1.0:
			tp++
		case predictedPositive && y == 0.0:
			fp++
		case !predictedPositive && y == 1.0:
			fn++
		default:
			tn++
		}
	}
	deviance *= -2

	total := float64(len(scores))
	record := sig.PerformanceRecord{
		Name:     name,
		Deviance: deviance,
		Accuracy: float64(tp+tn) / total,
	}
	if tp+fp > 0 {
		record.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		record.Recall = float64(tp) / float64(tp+fn)
	}
	return record, nil
}

// adjustThreshold returns the caller's threshold unless all scores sit at or
// above it, in which case the median score becomes the threshold so that
// both predicted classes are non-empty whenever the scores are not all
// identical. When ties drag the median down to the minimum score, the
// inclusive comparison would still predict every row positive, so the
// comparison turns strict and rows at the median fall to the negative side.
func adjustThreshold(scores []float64, threshold float64) (float64, bool) {
	allAbove := true
	lowest := scores[0]
	for _, s := range scores {
		if s < threshold {
			allAbove = false
		}
		if s < lowest {
			lowest = s
		}
	}
	if !allAbove {
		return threshold, false
	}
	med := median(scores)
	return med, med == lowest
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
