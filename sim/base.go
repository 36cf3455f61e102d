// Package sim implements single-index models: estimators of the form
// y ≈ f(βᵀx), where β is a unit-norm projection direction and f is a
// penalized smoothing spline fitted on the scalar projection.
//
// Fitting is two-stage: the direction is first estimated in closed form via
// first-order Stein's identity (optionally with Lasso-based sparse
// shrinkage), then the shape function is fitted along the projection.
// FitMiddleUpdate optionally fine-tunes both jointly with a nested
// mini-batch Adam loop and held-out early stopping.
package sim

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/pahal2007/SIMTree/core/model"
	"github.com/pahal2007/SIMTree/core/parallel"
	"github.com/pahal2007/SIMTree/pkg/errors"
	"github.com/pahal2007/SIMTree/pkg/log"
)

// ShapeFunction is the contract the single-index estimators require of
// their shape-function collaborator (the 1-D ridge function estimator).
type ShapeFunction interface {
	// Fit estimates the function from scalar projections and targets.
	Fit(xb, y *mat.VecDense) error

	// DecisionFunction evaluates the fitted function at the given points.
	DecisionFunction(xb *mat.VecDense) *mat.VecDense

	// Diff evaluates the order-th derivative at the given points.
	Diff(xb *mat.VecDense, order int) (*mat.VecDense, error)

	// Loss reports the scalar loss between targets and predictions.
	Loss(yTrue, yPred *mat.VecDense) (float64, error)

	// Domain returns the fitted domain bounds of the projection.
	Domain() (xmin, xmax float64)

	// Histogram returns the density diagnostic of the training projection.
	Histogram() (edges, density []float64)
}

// simVariant captures where regression and classification differ: target
// validation, shape-function construction, the prediction fed into the loss
// and residual, and the validation-split strategy. The projection and
// refinement routines are shared.
type simVariant interface {
	modelName() string
	validateTargets(op string, y mat.Matrix) (*mat.VecDense, error)
	newShape(xmin, xmax float64) ShapeFunction
	predictForLoss(shape ShapeFunction, xb *mat.VecDense) *mat.VecDense
	canStratify() bool
}

// parallelThreshold is the row count above which projection loops run on
// multiple cores.
const parallelThreshold = 1000

type baseSim struct {
	state  *model.StateManager
	logger log.Logger

	regLambda   float64
	regGamma    float64
	knotNum     int
	degree      int
	knotDist    string
	randomState int64

	// Beta_ is the fitted unit-norm projection direction.
	Beta_ *mat.VecDense

	// ShapeFit_ is the fitted shape function along the projection.
	ShapeFit_ ShapeFunction

	variant simVariant
}

// fit runs the one-shot estimate: projection direction via Stein's identity
// (or its sparse variant), then a shape-function fit on the projection.
func (b *baseSim) fit(op string, x, y mat.Matrix) error {
	xd, yv, err := b.validateXY(op, x, y)
	if err != nil {
		return err
	}
	n, d := xd.Dims()

	b.logger.Info("fitting single-index model",
		log.ModelNameKey, b.variant.modelName(),
		log.OperationKey, "fit",
		log.SamplesKey, n,
		log.FeaturesKey, d,
	)

	beta, err := b.estimateDirection(xd, yv)
	if err != nil {
		return err
	}

	xb := b.project(xd, beta)
	xmin, xmax := vecBounds(xb)
	shape := b.variant.newShape(xmin, xmax)
	if err := shape.Fit(xb, yv); err != nil {
		return err
	}

	b.Beta_ = beta
	b.ShapeFit_ = shape
	b.state.SetFitted()
	b.state.SetDimensions(d, n)
	return nil
}

// validateXY checks shapes and converts targets before any numeric work.
func (b *baseSim) validateXY(op string, x, y mat.Matrix) (*mat.Dense, *mat.VecDense, error) {
	n, d := x.Dims()
	if n == 0 || d == 0 {
		return nil, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yr, yc := y.Dims()
	if yr != n {
		return nil, nil, errors.NewDimensionError(op, n, yr, 0)
	}
	if yc != 1 {
		return nil, nil, errors.NewValueError(op, "y must be a column vector")
	}

	yv, err := b.variant.validateTargets(op, y)
	if err != nil {
		return nil, nil, err
	}

	xd := mat.DenseCopyOf(x)
	return xd, yv, nil
}

// checkFeatures verifies the feature count of prediction-time input.
func (b *baseSim) checkFeatures(op string, x mat.Matrix) error {
	nFeatures, _ := b.state.GetDimensions()
	_, d := x.Dims()
	if d != nFeatures {
		return errors.NewDimensionError(op, nFeatures, d, 1)
	}
	return nil
}

// project computes the scalar projections x·beta.
func (b *baseSim) project(x mat.Matrix, beta *mat.VecDense) *mat.VecDense {
	n, d := x.Dims()
	out := mat.NewVecDense(n, nil)
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			v := 0.0
			for j := 0; j < d; j++ {
				v += x.At(i, j) * beta.AtVec(j)
			}
			out.SetVec(i, v)
		}
	})
	return out
}

// decisionFunction computes f(βᵀx) for the committed model.
func (b *baseSim) decisionFunction(op string, x mat.Matrix) (*mat.VecDense, error) {
	if err := b.state.RequireFitted(b.variant.modelName(), op); err != nil {
		return nil, err
	}
	if err := b.checkFeatures(b.variant.modelName()+"."+op, x); err != nil {
		return nil, err
	}
	xb := b.project(x, b.Beta_)
	return b.ShapeFit_.DecisionFunction(xb), nil
}

// DecisionFunction returns f(βᵀx) for the given samples as an n x 1 matrix.
func (b *baseSim) DecisionFunction(x mat.Matrix) (mat.Matrix, error) {
	pred, err := b.decisionFunction("DecisionFunction", x)
	if err != nil {
		return nil, err
	}
	return vecToColumn(pred), nil
}

// GetParams returns the estimator's hyperparameters.
func (b *baseSim) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"reg_lambda":   b.regLambda,
		"reg_gamma":    b.regGamma,
		"knot_num":     b.knotNum,
		"degree":       b.degree,
		"knot_dist":    b.knotDist,
		"random_state": b.randomState,
	}
}

// SetParams sets the estimator's hyperparameters.
func (b *baseSim) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "reg_lambda":
			b.regLambda = value.(float64)
		case "reg_gamma":
			b.regGamma = value.(float64)
		case "knot_num":
			b.knotNum = value.(int)
		case "degree":
			b.degree = value.(int)
		case "knot_dist":
			b.knotDist = value.(string)
		case "random_state":
			b.randomState = value.(int64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

// newRNG returns a fresh deterministic random source. Each fitting call
// builds its own source from randomState so calls stay independent and
// reproducible.
func (b *baseSim) newRNG() *rand.Rand {
	return rand.New(rand.NewSource(b.randomState))
}

// normalizeDirection scales beta to unit L2 norm (zero vectors pass through
// unchanged) and fixes the sign so the largest-magnitude component is
// non-negative. The sign convention makes (β, f) identifiable: without it
// (−β, x ↦ f(−x)) represents the same model.
func normalizeDirection(beta *mat.VecDense) {
	norm := mat.Norm(beta, 2)
	if norm > 0 {
		beta.ScaleVec(1/norm, beta)
	}

	maxIdx := 0
	maxAbs := 0.0
	for i := 0; i < beta.Len(); i++ {
		if a := math.Abs(beta.AtVec(i)); a > maxAbs {
			maxAbs = a
			maxIdx = i
		}
	}
	if beta.AtVec(maxIdx) < 0 {
		beta.ScaleVec(-1, beta)
	}
}

func vecBounds(v *mat.VecDense) (min, max float64) {
	min = v.AtVec(0)
	max = v.AtVec(0)
	for i := 1; i < v.Len(); i++ {
		x := v.AtVec(i)
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}

func vecToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func vecToColumn(v *mat.VecDense) *mat.Dense {
	n := v.Len()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, v.AtVec(i))
	}
	return out
}
