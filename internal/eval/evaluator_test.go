package eval

import (
	"errors"
	"math"
	"testing"

	"permsig/domain/core"
	"permsig/domain/frame"
)

func TestEvaluate_KnownValues(t *testing.T) {
	scores := []float64{0.9, 0.1, 0.8, 0.3}
	truth := []string{frame.ClassPositive, frame.ClassNegative, frame.ClassPositive, frame.ClassNegative}

	record, err := Evaluate("known", scores, truth, frame.ClassPositive, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// -2 * (ln .9 + ln .9 + ln .8 + ln .7)
	expectedDeviance := -2 * (math.Log(0.9) + math.Log(0.9) + math.Log(0.8) + math.Log(0.7))
	if math.Abs(record.Deviance-expectedDeviance) > 1e-9 {
		t.Errorf("Expected deviance %f, got %f", expectedDeviance, record.Deviance)
	}
	if record.Accuracy != 1.0 {
		t.Errorf("Expected accuracy 1.0, got %f", record.Accuracy)
	}
	if record.Precision != 1.0 || record.Recall != 1.0 {
		t.Errorf("Expected perfect precision/recall, got %f/%f", record.Precision, record.Recall)
	}
}

func TestEvaluate_DevianceNonNegative(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		truth  []string
	}{
		{
			name:   "confident and right",
			scores: []float64{0.99, 0.01},
			truth:  []string{frame.ClassPositive, frame.ClassNegative},
		},
		{
			name:   "confident and wrong",
			scores: []float64{0.01, 0.99},
			truth:  []string{frame.ClassPositive, frame.ClassNegative},
		},
		{
			name:   "uninformative",
			scores: []float64{0.5, 0.5, 0.5},
			truth:  []string{frame.ClassPositive, frame.ClassNegative, frame.ClassPositive},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := Evaluate(tt.name, tt.scores, tt.truth, frame.ClassPositive, DefaultThreshold)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if record.Deviance < 0 {
				t.Errorf("Deviance must be non-negative, got %f", record.Deviance)
			}
		})
	}
}

func TestEvaluate_ThresholdAdjustment(t *testing.T) {
	// Every score sits at or above the caller's threshold: the evaluator
	// resets the threshold to the median so both predicted classes are
	// non-empty.
	scores := []float64{0.6, 0.7, 0.8, 0.9}
	truth := []string{frame.ClassNegative, frame.ClassNegative, frame.ClassPositive, frame.ClassPositive}

	record, err := Evaluate("degenerate", scores, truth, frame.ClassPositive, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// Median 0.75: rows scoring 0.8 and 0.9 are predicted positive
	if record.Accuracy != 1.0 {
		t.Errorf("Expected accuracy 1.0 after median adjustment, got %f", record.Accuracy)
	}
	if record.Precision != 1.0 {
		t.Errorf("Expected precision 1.0 after median adjustment, got %f", record.Precision)
	}
	if record.Recall != 1.0 {
		t.Errorf("Expected recall 1.0 after median adjustment, got %f", record.Recall)
	}
}

func TestEvaluate_ThresholdAdjustmentWithTies(t *testing.T) {
	// Median ties with the minimum: an inclusive comparison at the median
	// would predict every row positive, so the comparison must turn strict
	// and leave the tied rows on the negative side.
	scores := []float64{0.6, 0.6, 0.6, 0.9}
	truth := []string{frame.ClassNegative, frame.ClassNegative, frame.ClassNegative, frame.ClassPositive}

	record, err := Evaluate("tied", scores, truth, frame.ClassPositive, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if record.Accuracy != 1.0 {
		t.Errorf("Expected accuracy 1.0 with a strict tied-median threshold, got %f", record.Accuracy)
	}
	if record.Precision != 1.0 {
		t.Errorf("Expected precision 1.0, got %f", record.Precision)
	}
	if record.Recall != 1.0 {
		t.Errorf("Expected recall 1.0, got %f", record.Recall)
	}
}

func TestEvaluate_InputValidation(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float64
		truth    []string
		positive string
		wantErr  error
	}{
		{
			name:     "length mismatch",
			scores:   []float64{0.5, 0.5},
			truth:    []string{frame.ClassPositive},
			positive: frame.ClassPositive,
			wantErr:  core.ErrLengthMismatch,
		},
		{
			name:     "empty input",
			scores:   []float64{},
			truth:    []string{},
			positive: frame.ClassPositive,
			wantErr:  core.ErrInsufficientData,
		},
		{
			name:     "positive class absent",
			scores:   []float64{0.5, 0.5},
			truth:    []string{frame.ClassNegative, frame.ClassNegative},
			positive: frame.ClassPositive,
			wantErr:  core.ErrUnknownClass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.name, tt.scores, tt.truth, tt.positive, DefaultThreshold)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{name: "odd count", values: []float64{0.9, 0.1, 0.5}, expected: 0.5},
		{name: "even count", values: []float64{0.6, 0.7, 0.8, 0.9}, expected: 0.75},
		{name: "single value", values: []float64{0.42}, expected: 0.42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.values); math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("Expected median %f, got %f", tt.expected, got)
			}
		})
	}
}
