package sim

import (
	"github.com/pahal2007/SIMTree/core/model"
	"github.com/pahal2007/SIMTree/pkg/errors"
	"github.com/pahal2007/SIMTree/pkg/log"
	"github.com/pahal2007/SIMTree/spline"
)

// Option is a functional option shared by SimRegressor and SimClassifier.
type Option func(*baseSim)

// WithRegLambda sets the sparsity strength of the direction estimate.
// Zero selects the plain Stein's-identity estimator; positive values switch
// to Lasso-based shrinkage of the direction.
func WithRegLambda(regLambda float64) Option {
	return func(b *baseSim) {
		b.regLambda = regLambda
	}
}

// WithRegGamma sets the roughness-penalty strength of the spline smoother.
func WithRegGamma(regGamma float64) Option {
	return func(b *baseSim) {
		b.regGamma = regGamma
	}
}

// WithKnotNum sets the number of interior spline knots.
func WithKnotNum(knotNum int) Option {
	return func(b *baseSim) {
		b.knotNum = knotNum
	}
}

// WithDegree sets the spline degree. Sensible values are 1 and 3.
func WithDegree(degree int) Option {
	return func(b *baseSim) {
		b.degree = degree
	}
}

// WithKnotDist sets the knot spacing strategy, spline.KnotDistUniform or
// spline.KnotDistQuantile.
func WithKnotDist(knotDist string) Option {
	return func(b *baseSim) {
		b.knotDist = knotDist
	}
}

// WithRandomState sets the random seed used for validation splitting and
// mini-batch shuffling.
func WithRandomState(seed int64) Option {
	return func(b *baseSim) {
		b.randomState = seed
	}
}

func newBaseSim(opts ...Option) baseSim {
	b := baseSim{
		state:       model.NewStateManager(),
		logger:      log.GetLoggerWithName("sim"),
		regLambda:   0,
		regGamma:    1e-5,
		knotNum:     5,
		degree:      3,
		knotDist:    spline.KnotDistUniform,
		randomState: 0,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// validateParams rejects unusable hyperparameters before any numeric work.
func (b *baseSim) validateParams() error {
	if b.regLambda < 0 {
		return errors.NewValidationError("reg_lambda", "must be non-negative", b.regLambda)
	}
	if b.regGamma < 0 {
		return errors.NewValidationError("reg_gamma", "must be non-negative", b.regGamma)
	}
	if b.knotNum < 1 {
		return errors.NewValidationError("knot_num", "must be at least 1", b.knotNum)
	}
	if b.degree < 1 {
		return errors.NewValidationError("degree", "must be at least 1", b.degree)
	}
	return nil
}
