package sim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/pahal2007/SIMTree/metrics"
	"github.com/pahal2007/SIMTree/pkg/errors"
	"github.com/pahal2007/SIMTree/spline"
)

// SimRegressor is a single-index regression model y ≈ f(βᵀx) with a
// smoothing-spline shape function.
type SimRegressor struct {
	baseSim
}

// NewSimRegressor creates a SimRegressor.
//
// Example:
//
//	reg := sim.NewSimRegressor(sim.WithKnotNum(10), sim.WithRandomState(42))
//	if err := reg.Fit(X, y); err != nil { ... }
//	pred, err := reg.Predict(XTest)
func NewSimRegressor(opts ...Option) *SimRegressor {
	sr := &SimRegressor{baseSim: newBaseSim(opts...)}
	sr.variant = sr
	return sr
}

// Fit estimates the projection direction and the shape function from the
// training data X (n_samples x n_features) and continuous targets y
// (n_samples x 1).
func (sr *SimRegressor) Fit(X, y mat.Matrix) error {
	if err := sr.validateParams(); err != nil {
		return err
	}
	return sr.fit("SimRegressor.Fit", X, y)
}

// Predict returns f(βᵀx) for the given samples.
func (sr *SimRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	pred, err := sr.decisionFunction("Predict", X)
	if err != nil {
		return nil, err
	}
	return vecToColumn(pred), nil
}

// Score returns the coefficient of determination R² of the predictions on
// (X, y).
func (sr *SimRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := sr.decisionFunction("Score", X)
	if err != nil {
		return 0, err
	}
	yv, err := sr.validateTargets("SimRegressor.Score", y)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yv, pred)
}

func (sr *SimRegressor) modelName() string { return "SimRegressor" }

func (sr *SimRegressor) validateTargets(op string, y mat.Matrix) (*mat.VecDense, error) {
	n, _ := y.Dims()
	yv := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yv.SetVec(i, y.At(i, 0))
	}
	if err := errors.CheckNumericalStability(op, vecToSlice(yv), 0); err != nil {
		return nil, err
	}
	return yv, nil
}

func (sr *SimRegressor) newShape(xmin, xmax float64) ShapeFunction {
	return spline.NewSMSplineRegressor(sr.knotNum, sr.degree, sr.regGamma, xmin, xmax, sr.knotDist)
}

// predictForLoss feeds the raw prediction into residuals and losses.
func (sr *SimRegressor) predictForLoss(shape ShapeFunction, xb *mat.VecDense) *mat.VecDense {
	return shape.DecisionFunction(xb)
}

func (sr *SimRegressor) canStratify() bool { return false }
