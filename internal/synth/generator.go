package synth

import (
	"fmt"
	"math/rand"
	"sort"

	"permsig/domain/core"
	"permsig/domain/frame"
)

// Coefficient is a fixed, caller-supplied weight for one signal feature.
// Weights are used only to construct the label signal and never refit.
type Coefficient struct {
	Key    core.FeatureKey
	Weight float64
}

// Generator produces labeled tabular data where the label is a thresholded
// noisy linear combination of the signal features. Pure function of its
// inputs plus the injected random stream.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator drawing from the given stream
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate builds a frame with rowCount rows, one standard-normal column per
// coefficient plus noiseCount pure-noise columns unrelated to the label.
// The label signal starts as an independent standard-normal draw per row and
// accumulates weight * column for each signal feature; the label is positive
// when the accumulated signal exceeds zero. coefficients may be empty
// (pure-noise dataset) and noiseCount may be zero.
func (g *Generator) Generate(rowCount int, coefficients []Coefficient, noiseCount int) (*frame.Frame, error) {
	if rowCount < 1 {
		return nil, core.NewValidationError("row_count", "must be at least 1")
	}
	if noiseCount < 0 {
		return nil, core.NewValidationError("noise_count", "must not be negative")
	}

	// Base signal: independent standard-normal noise on the label itself
	signal := make([]float64, rowCount)
	for i := range signal {
		signal[i] = g.rng.NormFloat64()
	}

	type column struct {
		key    core.FeatureKey
		values []float64
	}
	columns := make([]column, 0, len(coefficients)+noiseCount)

	for _, coef := range coefficients {
		values := make([]float64, rowCount)
		for i := range values {
			values[i] = g.rng.NormFloat64()
			signal[i] += coef.Weight * values[i]
		}
		columns = append(columns, column{key: coef.Key, values: values})
	}

	for n := 0; n < noiseCount; n++ {
		values := make([]float64, rowCount)
		for i := range values {
			values[i] = g.rng.NormFloat64()
		}
		key := core.FeatureKey(fmt.Sprintf("n_%d", n+1))
		columns = append(columns, column{key: key, values: values})
	}

	labels := make([]string, rowCount)
	for i := range labels {
		if signal[i] > 0 {
			labels[i] = frame.ClassPositive
		} else {
			labels[i] = frame.ClassNegative
		}
	}

	f := frame.New(labels)
	for _, col := range columns {
		if err := f.AddColumn(col.key, col.values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// SignalCoefficients builds a deterministic coefficient set g_1..g_count with
// weights drawn from the generator's stream. Convenience for the drivers.
func (g *Generator) SignalCoefficients(count int) []Coefficient {
	coefs := make([]Coefficient, count)
	for i := range coefs {
		coefs[i] = Coefficient{
			Key:    core.FeatureKey(fmt.Sprintf("g_%d", i+1)),
			Weight: g.rng.NormFloat64(),
		}
	}
	return coefs
}

// CoefficientsFromMap converts a name->weight mapping into a coefficient
// slice with a stable (sorted) order, so generation is deterministic even
// when the caller supplies a map.
func CoefficientsFromMap(weights map[core.FeatureKey]float64) []Coefficient {
	keys := make([]core.FeatureKey, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	coefs := make([]Coefficient, 0, len(keys))
	for _, k := range keys {
		coefs = append(coefs, Coefficient{Key: k, Weight: weights[k]})
	}
	return coefs
}
