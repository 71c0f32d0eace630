// Package signif estimates the significance of an observed model statistic
// two independent ways: an empirical tail area against a permutation null
// sample, and the asymptotic chi-square likelihood-ratio test from deviance
// reduction. The two should agree when the asymptotic approximation is
// valid (large sample, well-separated classes) and diverge instructively
// when it is not, which is the reason both are provided.
package signif

import (
	"gonum.org/v1/gonum/stat/distuv"

	"permsig/domain/core"
	"permsig/domain/sig"
)

// RightTail is the fraction of null draws at or above the observed score.
// Used when a higher statistic is better (accuracy, precision, recall).
// Ties count in favor of the null: the comparison is inclusive, which is a
// deliberately conservative choice.
func RightTail(score float64, null sig.NullSample) (float64, error) {
	if len(null) == 0 {
		return 0, core.ErrEmptyNullSample
	}
	extreme := 0
	for _, n := range null {
		if n >= score {
			extreme++
		}
	}
	return float64(extreme) / float64(len(null)), nil
}

// LeftTail is the fraction of null draws at or below the observed score.
// Used when a lower statistic is better (deviance). Inclusive, as above.
func LeftTail(score float64, null sig.NullSample) (float64, error) {
	if len(null) == 0 {
		return 0, core.ErrEmptyNullSample
	}
	extreme := 0
	for _, n := range null {
		if n <= score {
			extreme++
		}
	}
	return float64(extreme) / float64(len(null)), nil
}

// TailArea picks the tail that treats the statistic's better direction as
// extreme: left tail for deviance, right tail for the classification rates.
func TailArea(statistic sig.Statistic, score float64, null sig.NullSample) (float64, error) {
	if statistic.LowerIsBetter() {
		return LeftTail(score, null)
	}
	return RightTail(score, null)
}

// ChiSquareSignificance is the standard asymptotic likelihood-ratio test:
// the upper-tail probability of the deviance reduction under a chi-square
// distribution with the given degrees of freedom. Degrees of freedom are
// parameter count minus one for a whole model, exactly one for a
// single-feature model.
func ChiSquareSignificance(nullDeviance, residualDeviance float64, degreesOfFreedom int) (float64, error) {
	if degreesOfFreedom < 1 {
		return 0, core.NewValidationError("degrees_of_freedom", "must be at least 1")
	}
	delta := nullDeviance - residualDeviance
	if delta <= 0 {
		return 1.0, nil
	}
	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	return 1 - chiDist.CDF(delta), nil
}
