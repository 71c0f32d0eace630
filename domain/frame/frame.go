package frame

import (
	"fmt"

	"permsig/domain/core"
)

// Class labels used by the synthetic generator and the default experiment
// drivers. Frames built from external sources may carry any two classes.
const (
	ClassPositive = "positive"
	ClassNegative = "negative"
)

// Frame is the canonical data object for permutation testing: an ordered
// collection of rows with one two-class label column and a fixed set of
// named numeric feature columns. A frame is read-only after construction;
// the only sanctioned "mutation" is WithPermutedLabels, which produces a
// variant that shares feature storage and reorders labels only.
type Frame struct {
	keys    []core.FeatureKey
	columns [][]float64 // column-major, one slice per feature
	labels  []string

	CreatedAt core.Timestamp
}

// New creates an empty frame expecting rowCount rows per column
func New(labels []string) *Frame {
	return &Frame{
		labels:    labels,
		CreatedAt: core.Now(),
	}
}

// AddColumn appends a named feature column. Column names must be unique and
// every column must cover every row.
func (f *Frame) AddColumn(key core.FeatureKey, values []float64) error {
	if len(values) != len(f.labels) {
		return fmt.Errorf("%w: column %s has %d values, frame has %d rows",
			core.ErrLengthMismatch, key, len(values), len(f.labels))
	}
	for _, existing := range f.keys {
		if existing == key {
			return core.NewFeatureError(key, core.ErrDuplicateFeature)
		}
	}
	f.keys = append(f.keys, key)
	f.columns = append(f.columns, values)
	return nil
}

// Column returns the data for a feature column
func (f *Frame) Column(key core.FeatureKey) ([]float64, bool) {
	for i, k := range f.keys {
		if k == key {
			return f.columns[i], true
		}
	}
	return nil, false
}

// FeatureKeys returns the declared feature columns in insertion order
func (f *Frame) FeatureKeys() []core.FeatureKey {
	keys := make([]core.FeatureKey, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Labels returns the label column in row order
func (f *Frame) Labels() []string {
	return f.labels
}

// RowCount returns the number of rows
func (f *Frame) RowCount() int {
	return len(f.labels)
}

// ColumnCount returns the number of feature columns
func (f *Frame) ColumnCount() int {
	return len(f.keys)
}

// LabelCounts returns the multiset of label values
func (f *Frame) LabelCounts() map[string]int {
	counts := make(map[string]int, 2)
	for _, l := range f.labels {
		counts[l]++
	}
	return counts
}

// WithPermutedLabels returns a frame whose label column is reordered by the
// given permutation of row indices while every feature column is shared with
// the receiver in its original order. perm must be a bijection on
// [0, RowCount): position i of the result takes the label from row perm[i].
func (f *Frame) WithPermutedLabels(perm []int) (*Frame, error) {
	if len(perm) != len(f.labels) {
		return nil, fmt.Errorf("%w: permutation has %d indices, frame has %d rows",
			core.ErrLengthMismatch, len(perm), len(f.labels))
	}
	seen := make([]bool, len(perm))
	permuted := make([]string, len(perm))
	for i, j := range perm {
		if j < 0 || j >= len(perm) || seen[j] {
			return nil, core.NewValidationError("permutation",
				fmt.Sprintf("index %d is out of range or repeated", j))
		}
		seen[j] = true
		permuted[i] = f.labels[j]
	}
	return &Frame{
		keys:      f.keys,
		columns:   f.columns, // shared: the feature matrix never moves
		labels:    permuted,
		CreatedAt: f.CreatedAt,
	}, nil
}

// Validate ensures the frame is internally consistent
func (f *Frame) Validate() error {
	if len(f.labels) == 0 {
		return core.ErrInsufficientData
	}
	classes := f.LabelCounts()
	if len(classes) > 2 {
		return core.NewValidationError("labels",
			fmt.Sprintf("expected at most 2 classes, found %d", len(classes)))
	}
	for i, col := range f.columns {
		if len(col) != len(f.labels) {
			return core.NewValidationError("columns",
				fmt.Sprintf("column %s has %d values, expected %d", f.keys[i], len(col), len(f.labels)))
		}
	}
	return nil
}
