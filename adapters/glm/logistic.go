// Package glm provides the concrete binomial-link trainer behind
// ports.Trainer: logistic regression fit by iteratively reweighted least
// squares. The fit is deterministic given (frame, feature subset) and
// performs no resampling.
package glm

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"permsig/domain/core"
	"permsig/domain/frame"
	"permsig/internal/errors"
	"permsig/ports"
)

const (
	defaultMaxIter = 25
	defaultTol     = 1e-8

	// probClamp keeps fitted probabilities strictly interior so deviance
	// stays finite and evaluator preconditions hold
	probClamp = 1e-12
)

// LogisticTrainer fits logistic regression via IRLS
type LogisticTrainer struct {
	MaxIter int
	Tol     float64
}

// NewTrainer creates a trainer with default convergence settings
func NewTrainer() *LogisticTrainer {
	return &LogisticTrainer{
		MaxIter: defaultMaxIter,
		Tol:     defaultTol,
	}
}

// maxIter returns the iteration cap, defaulting a zero value
func (t *LogisticTrainer) maxIter() int {
	if t.MaxIter > 0 {
		return t.MaxIter
	}
	return defaultMaxIter
}

// tol returns the convergence tolerance, defaulting a zero value
func (t *LogisticTrainer) tol() float64 {
	if t.Tol > 0 {
		return t.Tol
	}
	return defaultTol
}

// Model is the opaque fitted artifact: intercept plus one coefficient per
// requested feature, with the deviance bookkeeping the significance scorer
// needs.
type Model struct {
	positiveClass    string
	features         []core.FeatureKey
	coefficients     []float64 // index 0 is the intercept
	nullDeviance     float64
	residualDeviance float64
}

// Fit trains on the frame restricted to the feature subset. An empty
// feature subset fits the intercept-only (null) model. Non-convergence and
// singular working matrices surface as errors; per the failure policy the
// caller aborts rather than retrying.
func (t *LogisticTrainer) Fit(ctx context.Context, f *frame.Frame, positiveClass string, features []core.FeatureKey) (ports.FittedModel, error) {
	if err := f.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid frame for fit")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := f.RowCount()
	p := len(features) + 1 // intercept

	design, err := designMatrix(f, features)
	if err != nil {
		return nil, err
	}

	y := make([]float64, n)
	positives := 0.0
	for i, label := range f.Labels() {
		if label == positiveClass {
			y[i] = 1.0
			positives++
		}
	}

	beta := make([]float64, p)
	// Initialize the intercept at the logit of the base rate; slopes at zero
	baseRate := clampProb(positives / float64(n))
	beta[0] = math.Log(baseRate / (1 - baseRate))

	mu := make([]float64, n)
	converged := false
	for iter := 0; iter < t.maxIter(); iter++ {
		eta := make([]float64, n)
		for i := 0; i < n; i++ {
			row := design.RawRowView(i)
			for j := 0; j < p; j++ {
				eta[i] += row[j] * beta[j]
			}
			mu[i] = clampProb(sigmoid(eta[i]))
		}

		// Weighted normal equations: (X'WX) beta = X'Wz with
		// w_i = mu_i(1-mu_i), z_i = eta_i + (y_i-mu_i)/w_i
		a := mat.NewSymDense(p, nil)
		b := make([]float64, p)
		for i := 0; i < n; i++ {
			w := mu[i] * (1 - mu[i])
			z := eta[i] + (y[i]-mu[i])/w
			row := design.RawRowView(i)
			for j := 0; j < p; j++ {
				b[j] += w * row[j] * z
				for k := j; k < p; k++ {
					a.SetSym(j, k, a.At(j, k)+w*row[j]*row[k])
				}
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(a); !ok {
			return nil, errors.TrainingError("IRLS working matrix is singular", core.ErrDegenerateFit)
		}
		var next mat.VecDense
		if err := chol.SolveVecTo(&next, mat.NewVecDense(p, b)); err != nil {
			return nil, errors.TrainingError("IRLS solve failed", core.ErrDegenerateFit)
		}

		shift := 0.0
		for j := 0; j < p; j++ {
			delta := math.Abs(next.AtVec(j) - beta[j])
			if delta > shift {
				shift = delta
			}
			beta[j] = next.AtVec(j)
		}
		if shift < t.tol() {
			converged = true
			break
		}
	}
	if !converged {
		return nil, errors.TrainingError("IRLS exceeded iteration budget", core.ErrNoConvergence)
	}

	// Final fitted probabilities for deviance bookkeeping
	for i := 0; i < n; i++ {
		eta := 0.0
		row := design.RawRowView(i)
		for j := 0; j < p; j++ {
			eta += row[j] * beta[j]
		}
		mu[i] = clampProb(sigmoid(eta))
	}

	return &Model{
		positiveClass:    positiveClass,
		features:         append([]core.FeatureKey(nil), features...),
		coefficients:     beta,
		nullDeviance:     binomialDeviance(y, constantSlice(baseRate, n)),
		residualDeviance: binomialDeviance(y, mu),
	}, nil
}

// Predict scores every row of the frame, clamped strictly inside (0, 1)
func (m *Model) Predict(f *frame.Frame) ([]float64, error) {
	design, err := designMatrix(f, m.features)
	if err != nil {
		return nil, err
	}
	n := f.RowCount()
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		eta := 0.0
		row := design.RawRowView(i)
		for j := range m.coefficients {
			eta += row[j] * m.coefficients[j]
		}
		scores[i] = clampProb(sigmoid(eta))
	}
	return scores, nil
}

// NullDeviance is the deviance of the intercept-only model
func (m *Model) NullDeviance() float64 { return m.nullDeviance }

// ResidualDeviance is the deviance of the fitted model
func (m *Model) ResidualDeviance() float64 { return m.residualDeviance }

// ParameterCount includes the intercept
func (m *Model) ParameterCount() int { return len(m.coefficients) }

// Coefficients returns intercept-first fitted weights (reporting only)
func (m *Model) Coefficients() []float64 {
	return append([]float64(nil), m.coefficients...)
}

// designMatrix builds the n x (p+1) matrix [1 | features...]
func designMatrix(f *frame.Frame, features []core.FeatureKey) (*mat.Dense, error) {
	n := f.RowCount()
	p := len(features) + 1
	design := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1.0)
	}
	for j, key := range features {
		col, ok := f.Column(key)
		if !ok {
			return nil, core.NewFeatureError(key, core.ErrUnknownFeature)
		}
		for i := 0; i < n; i++ {
			design.Set(i, j+1, col[i])
		}
	}
	return design, nil
}

func sigmoid(eta float64) float64 {
	return 1.0 / (1.0 + math.Exp(-eta))
}

func clampProb(p float64) float64 {
	if p < probClamp {
		return probClamp
	}
	if p > 1-probClamp {
		return 1 - probClamp
	}
	return p
}

func binomialDeviance(y, mu []float64) float64 {
	deviance := 0.0
	for i := range y {
		deviance += y[i]*math.Log(mu[i]) + (1-y[i])*math.Log(1-mu[i])
	}
	return -2 * deviance
}

func constantSlice(value float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = value
	}
	return s
}
