// Package linear provides L1-penalized linear regression used for sparse
// projection-direction estimation.
package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pahal2007/SIMTree/core/model"
	"github.com/pahal2007/SIMTree/pkg/errors"
)

// Lasso is an L1-penalized linear regression fitted by cyclic coordinate
// descent. It minimizes
//
//	(1/2n) * ||y - Xw - b||^2 + alpha * ||w||_1
//
// which matches scikit-learn's Lasso objective scaling.
type Lasso struct {
	state *model.StateManager

	alpha        float64
	maxIter      int
	tol          float64
	fitIntercept bool

	// Coef_ holds the fitted coefficients.
	Coef_ []float64

	// Intercept_ holds the fitted intercept (0 when fitIntercept is false).
	Intercept_ float64

	// NIter_ is the number of coordinate-descent sweeps performed.
	NIter_ int
}

// LassoOption is a functional option for Lasso.
type LassoOption func(*Lasso)

// WithLassoAlpha sets the L1 penalty strength.
func WithLassoAlpha(alpha float64) LassoOption {
	return func(l *Lasso) {
		l.alpha = alpha
	}
}

// WithLassoMaxIter sets the maximum number of coordinate-descent sweeps.
func WithLassoMaxIter(maxIter int) LassoOption {
	return func(l *Lasso) {
		l.maxIter = maxIter
	}
}

// WithLassoTol sets the convergence tolerance on the maximum coefficient
// change per sweep.
func WithLassoTol(tol float64) LassoOption {
	return func(l *Lasso) {
		l.tol = tol
	}
}

// WithLassoFitIntercept sets whether an intercept is fitted.
func WithLassoFitIntercept(fit bool) LassoOption {
	return func(l *Lasso) {
		l.fitIntercept = fit
	}
}

// NewLasso creates a Lasso regressor with scikit-learn-compatible defaults.
func NewLasso(opts ...LassoOption) *Lasso {
	l := &Lasso{
		state:        model.NewStateManager(),
		alpha:        1.0,
		maxIter:      1000,
		tol:          1e-4,
		fitIntercept: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fit runs cyclic coordinate descent on X (n_samples x n_features) and the
// column vector y.
func (l *Lasso) Fit(X, y mat.Matrix) error {
	n, d := X.Dims()
	yr, yc := y.Dims()

	if n == 0 || d == 0 {
		return errors.NewModelError("Lasso.Fit", "empty data", errors.ErrEmptyData)
	}
	if yr != n {
		return errors.NewDimensionError("Lasso.Fit", n, yr, 0)
	}
	if yc != 1 {
		return errors.NewValueError("Lasso.Fit", "y must be a column vector")
	}
	if l.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", l.alpha)
	}

	// Center X and y so the intercept drops out of the descent.
	xMean := make([]float64, d)
	yMean := 0.0
	if l.fitIntercept {
		for j := 0; j < d; j++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += X.At(i, j)
			}
			xMean[j] = sum / float64(n)
		}
		for i := 0; i < n; i++ {
			yMean += y.At(i, 0)
		}
		yMean /= float64(n)
	}

	xc := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			xc.Set(i, j, X.At(i, j)-xMean[j])
		}
	}

	// colSq[j] = (1/n) * sum_i x_ij^2, the coordinate curvature.
	colSq := make([]float64, d)
	for j := 0; j < d; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			v := xc.At(i, j)
			sum += v * v
		}
		colSq[j] = sum / float64(n)
	}

	w := make([]float64, d)
	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		residual[i] = y.At(i, 0) - yMean
	}

	l.NIter_ = 0
	for iter := 0; iter < l.maxIter; iter++ {
		maxDelta := 0.0
		for j := 0; j < d; j++ {
			if colSq[j] == 0 {
				w[j] = 0
				continue
			}

			// rho is the correlation of feature j with the partial residual
			// that excludes feature j's own contribution.
			rho := 0.0
			for i := 0; i < n; i++ {
				rho += xc.At(i, j) * (residual[i] + xc.At(i, j)*w[j])
			}
			rho /= float64(n)

			wNew := softThreshold(rho, l.alpha) / colSq[j]
			if wNew != w[j] {
				delta := wNew - w[j]
				for i := 0; i < n; i++ {
					residual[i] -= xc.At(i, j) * delta
				}
				if math.Abs(delta) > maxDelta {
					maxDelta = math.Abs(delta)
				}
				w[j] = wNew
			}
		}

		l.NIter_ = iter + 1
		if maxDelta < l.tol {
			break
		}
	}

	if l.NIter_ == l.maxIter {
		errors.Warn(errors.NewConvergenceWarning("Lasso", l.maxIter,
			"coordinate descent did not reach the requested tolerance"))
	}

	l.Coef_ = w
	l.Intercept_ = 0
	if l.fitIntercept {
		l.Intercept_ = yMean
		for j := 0; j < d; j++ {
			l.Intercept_ -= xMean[j] * w[j]
		}
	}

	l.state.SetFitted()
	l.state.SetDimensions(d, n)
	return nil
}

// Predict returns Xw + b for fitted coefficients.
func (l *Lasso) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := l.state.RequireFitted("Lasso", "Predict"); err != nil {
		return nil, err
	}

	n, d := X.Dims()
	if d != len(l.Coef_) {
		return nil, errors.NewDimensionError("Lasso.Predict", len(l.Coef_), d, 1)
	}

	pred := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		v := l.Intercept_
		for j := 0; j < d; j++ {
			v += X.At(i, j) * l.Coef_[j]
		}
		pred.Set(i, 0, v)
	}
	return pred, nil
}

// GetParams returns the model hyperparameters.
func (l *Lasso) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         l.alpha,
		"max_iter":      l.maxIter,
		"tol":           l.tol,
		"fit_intercept": l.fitIntercept,
	}
}

// softThreshold is the proximal operator of the L1 penalty.
func softThreshold(z, gamma float64) float64 {
	switch {
	case z > gamma:
		return z - gamma
	case z < -gamma:
		return z + gamma
	default:
		return 0
	}
}
