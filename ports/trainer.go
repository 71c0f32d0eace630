package ports

import (
	"context"

	"permsig/domain/core"
	"permsig/domain/frame"
)

// FittedModel is the opaque artifact produced by a Trainer. It is owned
// exclusively by the call that created it and never mutated after fitting.
type FittedModel interface {
	// Predict scores every row of the frame, returning one probability in
	// (0, 1) per row. Scores are strictly interior so the evaluator's
	// deviance precondition holds.
	Predict(f *frame.Frame) ([]float64, error)

	// NullDeviance is the deviance of the intercept-only model
	NullDeviance() float64

	// ResidualDeviance is the deviance of the fitted model
	ResidualDeviance() float64

	// ParameterCount is the number of fitted parameters including intercept
	ParameterCount() int
}

// Trainer fits a binomial-link scoring model on a frame restricted to a
// feature subset. Implementations must be deterministic given
// (frame, features) and must not resample: all resampling belongs to the
// permutation engine.
type Trainer interface {
	Fit(ctx context.Context, f *frame.Frame, positiveClass string, features []core.FeatureKey) (FittedModel, error)
}
