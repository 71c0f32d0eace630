package app

import (
	"context"
	"time"

	"permsig/domain/core"
	"permsig/domain/frame"
	"permsig/domain/sig"
	"permsig/internal"
	"permsig/internal/errors"
	"permsig/internal/eval"
	"permsig/internal/permtest"
	"permsig/internal/signif"
	"permsig/internal/synth"
	"permsig/ports"
)

// ExperimentRequest defines one whole-model synthetic experiment
type ExperimentRequest struct {
	Title       string
	RowCount    int
	SignalCount int
	NoiseCount  int
	Trials      int
	Alpha       float64
	Statistic   sig.Statistic
	Seed        int64
	Workers     int // > 1 enables the parallel runner
}

// ExperimentResult is the complete output of a whole-model run
type ExperimentResult struct {
	Manifest     *sig.RunManifest
	Observed     sig.PerformanceRecord
	Null         sig.NullSample
	Significance sig.SignificanceRecord
	Coefficients []synth.Coefficient
}

// ExperimentService wires generator, trainer, evaluator, permutation engine
// and significance scorer into one deterministic whole-model experiment.
type ExperimentService struct {
	trainer ports.Trainer
	rng     ports.RNG
	archive ports.ResultRepository // optional
}

// NewExperimentService creates the service; archive may be nil
func NewExperimentService(trainer ports.Trainer, rng ports.RNG, archive ports.ResultRepository) *ExperimentService {
	return &ExperimentService{
		trainer: trainer,
		rng:     rng,
		archive: archive,
	}
}

// Run generates a synthetic frame, fits and evaluates the model on it,
// builds the permutation null, and scores the observed statistic against it
// both empirically and via the chi-square cross-check.
func (s *ExperimentService) Run(ctx context.Context, req ExperimentRequest) (*ExperimentResult, error) {
	start := time.Now()
	manifest := sig.NewRunManifest(req.Seed, req.Trials, req.RowCount,
		req.SignalCount, req.NoiseCount, req.Alpha, req.Statistic)

	genStream, err := s.rng.Stream(ctx, "generate", "", req.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create generation stream")
	}
	generator := synth.NewGenerator(genStream)
	coefficients := generator.SignalCoefficients(req.SignalCount)
	f, err := generator.Generate(req.RowCount, coefficients, req.NoiseCount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate experiment data")
	}

	features := f.FeatureKeys()
	model, err := s.trainer.Fit(ctx, f, frame.ClassPositive, features)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fit observed model")
	}
	scores, err := model.Predict(f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to score observed model")
	}
	observed, err := eval.Evaluate(req.Title, scores, f.Labels(), frame.ClassPositive, eval.DefaultThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "failed to evaluate observed model")
	}

	permStream, err := s.rng.Stream(ctx, "permute", "", req.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create permutation stream")
	}
	scorer := permtest.StatScorer(req.Statistic, frame.ClassPositive, eval.DefaultThreshold)
	engine := permtest.NewEngine(s.trainer)

	var null sig.NullSample
	if req.Workers > 1 {
		null, err = permtest.NewParallelRunner(engine, req.Workers).
			Run(ctx, permStream, f, frame.ClassPositive, features, req.Trials, scorer)
	} else {
		null, err = engine.Run(ctx, permStream, f, frame.ClassPositive, features, req.Trials, scorer)
	}
	if err != nil {
		return nil, err
	}

	observedStat := req.Statistic.Value(observed)
	tail, err := signif.TailArea(req.Statistic, observedStat, null)
	if err != nil {
		return nil, err
	}
	chiP, err := signif.ChiSquareSignificance(model.NullDeviance(), model.ResidualDeviance(),
		model.ParameterCount()-1)
	if err != nil {
		return nil, err
	}
	record, err := sig.NewSignificanceRecord("", req.Statistic, observedStat, tail, chiP,
		req.Trials, req.Alpha)
	if err != nil {
		return nil, err
	}

	manifest.RuntimeMs = time.Since(start).Milliseconds()
	internal.DefaultLogger.Info("experiment %s: %d trials, tail=%.4g, chi2 p=%.4g, %d ms",
		manifest.RunID, req.Trials, tail, chiP, manifest.RuntimeMs)
	result := &ExperimentResult{
		Manifest:     manifest,
		Observed:     observed,
		Null:         null,
		Significance: *record,
		Coefficients: coefficients,
	}

	if s.archive != nil {
		if err := s.archive.SaveRun(ctx, manifest, []sig.SignificanceRecord{*record}); err != nil {
			return nil, errors.Wrap(err, "failed to archive experiment run")
		}
	}
	return result, nil
}

// featureSubset narrows keys to the ones present in the frame, preserving
// request order
func featureSubset(f *frame.Frame, requested []core.FeatureKey) []core.FeatureKey {
	if len(requested) == 0 {
		return f.FeatureKeys()
	}
	subset := make([]core.FeatureKey, 0, len(requested))
	for _, key := range requested {
		if _, ok := f.Column(key); ok {
			subset = append(subset, key)
		}
	}
	return subset
}
