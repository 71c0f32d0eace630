package app

import (
	"context"
	"math/rand"
	"time"

	"permsig/domain/core"
	"permsig/domain/frame"
	"permsig/domain/sig"
	"permsig/internal"
	"permsig/internal/errors"
	"permsig/internal/eval"
	"permsig/internal/permtest"
	"permsig/internal/signif"
	"permsig/ports"
)

// ScreeningRequest defines a per-feature screening pass over a frame
type ScreeningRequest struct {
	Frame         *frame.Frame
	PositiveClass string
	Features      []core.FeatureKey // empty means every feature column
	Trials        int
	Alpha         float64
	Statistic     sig.Statistic
	Seed          int64

	// SharePermutations reuses the same permutation sequence for every
	// feature, for correlated comparisons. Default is independent draws
	// per feature.
	SharePermutations bool
}

// ScreeningResult carries one significance record per screened feature, in
// request order
type ScreeningResult struct {
	Manifest *sig.RunManifest
	Records  []sig.SignificanceRecord
	Selected []core.FeatureKey
}

// ScreeningService runs the single-feature permutation procedure
// independently for each feature of interest and combines the empirical
// tail area with the one-degree-of-freedom chi-square cross-check.
type ScreeningService struct {
	trainer ports.Trainer
	rng     ports.RNG
	archive ports.ResultRepository // optional
}

// NewScreeningService creates the service; archive may be nil
func NewScreeningService(trainer ports.Trainer, rng ports.RNG, archive ports.ResultRepository) *ScreeningService {
	return &ScreeningService{
		trainer: trainer,
		rng:     rng,
		archive: archive,
	}
}

// Screen scores every requested feature. Each feature's observed statistic
// comes from a single-feature fit on the original labels; its null sample
// comes from the engine's screening procedure. Screening trials across
// features are independent repetitions unless SharePermutations is set.
func (s *ScreeningService) Screen(ctx context.Context, req ScreeningRequest) (*ScreeningResult, error) {
	if req.Frame == nil {
		return nil, errors.InvalidInput("screening request needs a frame")
	}
	if err := req.Frame.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid frame for screening")
	}

	start := time.Now()
	features := featureSubset(req.Frame, req.Features)
	manifest := sig.NewRunManifest(req.Seed, req.Trials, req.Frame.RowCount(),
		len(features), 0, req.Alpha, req.Statistic)

	engine := permtest.NewEngine(s.trainer)
	scorer := permtest.StatScorer(req.Statistic, req.PositiveClass, eval.DefaultThreshold)

	records := make([]sig.SignificanceRecord, 0, len(features))
	var selected []core.FeatureKey
	for _, feature := range features {
		// Observed statistic: single-feature fit on the original labels,
		// scored on the same training rows as the screening nulls
		model, err := s.trainer.Fit(ctx, req.Frame, req.PositiveClass, []core.FeatureKey{feature})
		if err != nil {
			return nil, errors.Wrapf(err, "observed fit failed for %s", feature)
		}
		scores, err := model.Predict(req.Frame)
		if err != nil {
			return nil, errors.Wrapf(err, "observed prediction failed for %s", feature)
		}
		observedRec, err := eval.Evaluate(feature.String(), scores, req.Frame.Labels(),
			req.PositiveClass, eval.DefaultThreshold)
		if err != nil {
			return nil, errors.Wrapf(err, "observed evaluation failed for %s", feature)
		}
		observed := req.Statistic.Value(observedRec)

		stream, err := s.screenStream(ctx, feature, req)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create screening stream for %s", feature)
		}
		null, err := engine.ScreenFeature(ctx, stream, req.Frame, req.PositiveClass,
			feature, req.Trials, scorer)
		if err != nil {
			return nil, err
		}

		tail, err := signif.TailArea(req.Statistic, observed, null)
		if err != nil {
			return nil, err
		}
		// Single-feature model: exactly one degree of freedom
		chiP, err := signif.ChiSquareSignificance(model.NullDeviance(), model.ResidualDeviance(), 1)
		if err != nil {
			return nil, err
		}

		record, err := sig.NewSignificanceRecord(feature, req.Statistic, observed, tail, chiP,
			req.Trials, req.Alpha)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
		if record.Selected {
			selected = append(selected, feature)
		}
	}

	manifest.RuntimeMs = time.Since(start).Milliseconds()
	internal.DefaultLogger.Info("screening %s: %d/%d features selected, %d ms",
		manifest.RunID, len(selected), len(features), manifest.RuntimeMs)
	result := &ScreeningResult{
		Manifest: manifest,
		Records:  records,
		Selected: selected,
	}

	if s.archive != nil {
		if err := s.archive.SaveRun(ctx, manifest, records); err != nil {
			return nil, errors.Wrap(err, "failed to archive screening run")
		}
	}
	return result, nil
}

// screenStream derives the per-feature RNG stream. Shared permutations use
// one stream name for every feature so the draws repeat exactly;
// independent screening keys the stream by feature. Either way the name is
// free of per-run state, so the same seed replays the same screening.
func (s *ScreeningService) screenStream(ctx context.Context,
	feature core.FeatureKey, req ScreeningRequest) (*rand.Rand, error) {
	target := feature.String()
	if req.SharePermutations {
		target = "shared"
	}
	return s.rng.Stream(ctx, "screen", target, req.Seed)
}
