package sig

import (
	"fmt"

	"permsig/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// PerformanceRecord is the fixed-shape performance tuple for one
// (model, evaluation-set) pair. Immutable once computed.
// INVARIANTS:
// - Deviance >= 0 for strictly interior scores
// - Accuracy, Precision, Recall all in [0.0, 1.0]
type PerformanceRecord struct {
	Name      string  `json:"name" db:"name"`
	Deviance  float64 `json:"deviance" db:"deviance"`
	Accuracy  float64 `json:"accuracy" db:"accuracy"`
	Precision float64 `json:"precision" db:"precision"`
	Recall    float64 `json:"recall" db:"recall"`
}

// Statistic selects which scalar of a PerformanceRecord a permutation run
// collects, and fixes the tail direction used when scoring it.
type Statistic string

const (
	StatDeviance  Statistic = "deviance"  // lower is better: left tail
	StatAccuracy  Statistic = "accuracy"  // higher is better: right tail
	StatPrecision Statistic = "precision" // higher is better: right tail
	StatRecall    Statistic = "recall"    // higher is better: right tail
)

// LowerIsBetter reports the tail direction for the statistic
func (s Statistic) LowerIsBetter() bool {
	return s == StatDeviance
}

// Value extracts the selected scalar from a performance record
func (s Statistic) Value(rec PerformanceRecord) float64 {
	switch s {
	case StatAccuracy:
		return rec.Accuracy
	case StatPrecision:
		return rec.Precision
	case StatRecall:
		return rec.Recall
	default:
		return rec.Deviance
	}
}

// NullSample is the empirical null distribution from one permutation run:
// one scalar statistic per trial, in trial order. Local to the run that
// produced it; consumed by the significance estimators.
type NullSample []float64

// SignificanceRecord holds both significance estimates for one target
// (a whole model or a single screened feature).
type SignificanceRecord struct {
	Target        core.FeatureKey `json:"target" db:"target"` // empty for whole-model records
	Statistic     Statistic       `json:"statistic" db:"statistic"`
	Observed      float64         `json:"observed" db:"observed"`
	EmpiricalTail float64         `json:"empirical_tail" db:"empirical_tail"`
	ChiSquareP    float64         `json:"chi_square_p" db:"chi_square_p"`
	Trials        int             `json:"trials" db:"trials"`
	Selected      bool            `json:"selected" db:"selected"`
}

// ============================================================================
// RUN METADATA (Audit trail)
// ============================================================================

// RunManifest captures the complete specification of a permutation run so
// results are replayable from the seed alone.
type RunManifest struct {
	RunID        core.RunID     `json:"run_id" db:"run_id"`
	Seed         int64          `json:"seed" db:"seed"`
	Trials       int            `json:"trials" db:"trials"`
	RowCount     int            `json:"row_count" db:"row_count"`
	SignalCount  int            `json:"signal_count" db:"signal_count"`
	NoiseCount   int            `json:"noise_count" db:"noise_count"`
	Alpha        float64        `json:"alpha" db:"alpha"`
	Statistic    Statistic      `json:"statistic" db:"statistic"`
	RuntimeMs    int64          `json:"runtime_ms" db:"runtime_ms"`
	CreatedAt    core.Timestamp `json:"created_at" db:"created_at"`
}

// ============================================================================
// CONSTRUCTORS
// ============================================================================

// NewSignificanceRecord creates a significance record with validation
func NewSignificanceRecord(target core.FeatureKey, statistic Statistic,
	observed, empiricalTail, chiSquareP float64, trials int, alpha float64) (*SignificanceRecord, error) {

	if trials < 1 {
		return nil, core.ErrInvalidTrials
	}
	if empiricalTail < 0.0 || empiricalTail > 1.0 {
		return nil, core.NewValidationError("empirical_tail",
			fmt.Sprintf("must be in [0.0, 1.0], got %f", empiricalTail))
	}
	if chiSquareP < 0.0 || chiSquareP > 1.0 {
		return nil, core.NewValidationError("chi_square_p",
			fmt.Sprintf("must be in [0.0, 1.0], got %f", chiSquareP))
	}

	return &SignificanceRecord{
		Target:        target,
		Statistic:     statistic,
		Observed:      observed,
		EmpiricalTail: empiricalTail,
		ChiSquareP:    chiSquareP,
		Trials:        trials,
		Selected:      empiricalTail < alpha,
	}, nil
}

// NewRunManifest creates a manifest with a fresh run ID
func NewRunManifest(seed int64, trials, rowCount, signalCount, noiseCount int,
	alpha float64, statistic Statistic) *RunManifest {

	return &RunManifest{
		RunID:       core.RunID(core.NewID()),
		Seed:        seed,
		Trials:      trials,
		RowCount:    rowCount,
		SignalCount: signalCount,
		NoiseCount:  noiseCount,
		Alpha:       alpha,
		Statistic:   statistic,
		CreatedAt:   core.Now(),
	}
}
