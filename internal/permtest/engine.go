package permtest

import (
	"context"
	"math/rand"

	"permsig/domain/core"
	"permsig/domain/frame"
	"permsig/domain/sig"
	"permsig/internal/errors"
	"permsig/internal/eval"
	"permsig/ports"
)

// Scorer reduces one permutation trial to a scalar statistic. It receives
// the trial's fitted model, the model's predictions, and the label vector
// the statistic is computed against.
type Scorer func(model ports.FittedModel, predictions []float64, labels []string) (float64, error)

// Engine builds empirical null distributions by repeatedly destroying the
// label-to-feature association. Each trial reassigns the label vector via a
// uniformly random permutation of row indices while the feature matrix is
// held fixed in its original order, refits the trainer, and records the
// scorer's output. The engine performs no aggregation and no early
// stopping: a run either returns exactly the requested number of trial
// outputs or fails fast on the first trainer or scorer error.
//
// The engine never owns seed state. Reproducibility is the caller's
// responsibility through the injected random stream.
type Engine struct {
	trainer ports.Trainer
}

// NewEngine creates a permutation engine around a trainer
func NewEngine(trainer ports.Trainer) *Engine {
	return &Engine{trainer: trainer}
}

// Run executes the whole-model procedure: per trial, permute the labels,
// fit on (permuted labels, features), then predict back on the original,
// unpermuted feature rows so the label's new, decorrelated relationship to
// the features is genuinely tested. The scorer receives the permuted label
// vector, i.e. the labels the trial model was fit to.
func (e *Engine) Run(ctx context.Context, rng *rand.Rand, f *frame.Frame, positiveClass string,
	features []core.FeatureKey, trials int, scorer Scorer) (sig.NullSample, error) {

	if trials < 1 {
		return nil, core.ErrInvalidTrials
	}
	if err := f.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid frame for permutation run")
	}

	null := make(sig.NullSample, trials)
	for trial := 0; trial < trials; trial++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := e.runTrial(ctx, rng, f, f, positiveClass, features, scorer)
		if err != nil {
			return nil, errors.Wrapf(err, "permutation trial %d failed", trial)
		}
		null[trial] = value
	}
	return null, nil
}

// ScreenFeature executes the single-feature screening procedure: the same
// label-only permutation restricted to one feature, except that predictions
// are made on the permuted-fit training rows rather than staged as a
// held-out pass over the original rows. With a fixed feature matrix the two
// constructions coincide numerically, but they are kept as separate entry
// points because they test different null constructions; callers choose
// deliberately.
func (e *Engine) ScreenFeature(ctx context.Context, rng *rand.Rand, f *frame.Frame, positiveClass string,
	feature core.FeatureKey, trials int, scorer Scorer) (sig.NullSample, error) {

	if trials < 1 {
		return nil, core.ErrInvalidTrials
	}
	if _, ok := f.Column(feature); !ok {
		return nil, core.NewFeatureError(feature, core.ErrUnknownFeature)
	}

	null := make(sig.NullSample, trials)
	for trial := 0; trial < trials; trial++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		permuted, err := f.WithPermutedLabels(rng.Perm(f.RowCount()))
		if err != nil {
			return nil, err
		}
		model, err := e.trainer.Fit(ctx, permuted, positiveClass, []core.FeatureKey{feature})
		if err != nil {
			return nil, errors.Wrapf(err, "screening trial %d failed for %s", trial, feature)
		}
		// Predict on training data: the permuted-fit rows themselves
		predictions, err := model.Predict(permuted)
		if err != nil {
			return nil, errors.Wrapf(err, "screening trial %d failed for %s", trial, feature)
		}
		value, err := scorer(model, predictions, permuted.Labels())
		if err != nil {
			return nil, errors.Wrapf(err, "screening trial %d failed for %s", trial, feature)
		}
		null[trial] = value
	}
	return null, nil
}

// runTrial performs one whole-model trial: shuffle labels, refit, predict
// at predictFrame's rows, score against the permuted labels.
func (e *Engine) runTrial(ctx context.Context, rng *rand.Rand, f, predictFrame *frame.Frame,
	positiveClass string, features []core.FeatureKey, scorer Scorer) (float64, error) {

	permuted, err := f.WithPermutedLabels(rng.Perm(f.RowCount()))
	if err != nil {
		return 0, err
	}
	model, err := e.trainer.Fit(ctx, permuted, positiveClass, features)
	if err != nil {
		return 0, err
	}
	predictions, err := model.Predict(predictFrame)
	if err != nil {
		return 0, err
	}
	return scorer(model, predictions, permuted.Labels())
}

// StatScorer builds a scorer that evaluates the trial's predictions against
// the trial labels and extracts a single performance statistic.
func StatScorer(statistic sig.Statistic, positiveClass string, threshold float64) Scorer {
	return func(_ ports.FittedModel, predictions []float64, labels []string) (float64, error) {
		record, err := eval.Evaluate("permutation", predictions, labels, positiveClass, threshold)
		if err != nil {
			return 0, err
		}
		return statistic.Value(record), nil
	}
}

// DevianceScorer is the default scorer: residual deviance of the trial fit.
// It reads the deviance off the fitted model rather than recomputing it
// from predictions, matching the trainer's own likelihood bookkeeping.
func DevianceScorer() Scorer {
	return func(model ports.FittedModel, _ []float64, _ []string) (float64, error) {
		return model.ResidualDeviance(), nil
	}
}
