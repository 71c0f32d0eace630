package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Validation errors
	ErrLengthMismatch   = errors.New("sequence length mismatch")
	ErrUnknownFeature   = errors.New("unknown feature column")
	ErrUnknownClass     = errors.New("class label not present in truth")
	ErrDuplicateFeature = errors.New("duplicate feature column")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Significance errors
	ErrEmptyNullSample = errors.New("empty null-distribution sample")
	ErrInvalidTrials   = errors.New("trial count must be at least 1")

	// Training errors
	ErrNoConvergence = errors.New("model fit did not converge")
	ErrDegenerateFit = errors.New("degenerate fit: separated or constant labels")
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewFeatureError(key FeatureKey, err error) error {
	return fmt.Errorf("%w: %s", err, key)
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrLengthMismatch) ||
		errors.Is(err, ErrUnknownFeature) ||
		errors.Is(err, ErrUnknownClass) ||
		errors.Is(err, ErrDuplicateFeature) ||
		errors.Is(err, ErrInsufficientData)
}

func IsTrainingError(err error) bool {
	return errors.Is(err, ErrNoConvergence) ||
		errors.Is(err, ErrDegenerateFit)
}
