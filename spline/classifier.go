package spline

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pahal2007/SIMTree/metrics"
	"github.com/pahal2007/SIMTree/pkg/errors"
)

// Bounds of the IRLS working weights; weights collapsing to zero would make
// the working response explode.
const irlsWeightFloor = 1e-6

// irlsMaxIter bounds the penalized IRLS iterations.
const irlsMaxIter = 50

// irlsTol is the convergence tolerance on the coefficient change.
const irlsTol = 1e-6

// SMSplineClassifier is a penalized smoothing spline for binary targets in
// {0, 1}, fitted by penalized iteratively reweighted least squares on the
// logit scale. The decision value is the logit of the class-1 probability.
type SMSplineClassifier struct {
	smSpline
}

// NewSMSplineClassifier creates a classification smoother with the given
// knot count, spline degree, roughness-penalty strength, domain bounds and
// knot spacing strategy.
func NewSMSplineClassifier(knotNum, degree int, regGamma, xmin, xmax float64, knotDist string) *SMSplineClassifier {
	return &SMSplineClassifier{
		smSpline: newSMSpline(knotNum, degree, regGamma, xmin, xmax, knotDist),
	}
}

// Fit estimates the spline coefficients from scalar inputs xb and binary
// targets y. A degenerate domain yields a constant fit at the empirical
// logit of the positive rate.
func (s *SMSplineClassifier) Fit(xb, y *mat.VecDense) error {
	const op = "SMSplineClassifier.Fit"

	if err := s.validateParams(op); err != nil {
		return err
	}
	n := xb.Len()
	if n == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError(op, n, y.Len(), 0)
	}

	x := vecToSlice(xb)
	targets := vecToSlice(y)
	s.computeHistogram(x)

	if s.xmax-s.xmin < degenerateSpan {
		s.degenerate = true
		rate := errors.ClipValue(stat.Mean(targets, nil), 1e-10, 1-1e-10)
		s.constVal = math.Log(rate / (1 - rate))
		s.fitted = true
		return nil
	}

	s.degenerate = false
	s.buildBasis(x)

	clamped := make([]float64, n)
	for i, xi := range x {
		clamped[i] = s.clamp(xi)
	}
	design := s.basis.designMatrix(clamped)
	nb := s.basis.nBasis

	coef := make([]float64, nb)
	eta := make([]float64, n)
	weights := make([]float64, n)
	working := make([]float64, n)

	for iter := 0; iter < irlsMaxIter; iter++ {
		for i := 0; i < n; i++ {
			mu := sigmoid(eta[i])
			w := mu * (1 - mu)
			if w < irlsWeightFloor {
				w = irlsWeightFloor
			}
			weights[i] = w
			working[i] = eta[i] + (targets[i]-mu)/w
		}

		newCoef, err := s.solvePenalized(op, design, working, weights)
		if err != nil {
			return err
		}

		maxDelta := 0.0
		for j := 0; j < nb; j++ {
			if d := math.Abs(newCoef[j] - coef[j]); d > maxDelta {
				maxDelta = d
			}
		}
		coef = newCoef

		for i := 0; i < n; i++ {
			eta[i] = 0
			for j := 0; j < nb; j++ {
				eta[i] += design.At(i, j) * coef[j]
			}
		}

		if maxDelta < irlsTol {
			break
		}
	}

	s.coef = coef
	s.fitted = true
	return nil
}

// DecisionFunction returns the fitted logit at the given points.
func (s *SMSplineClassifier) DecisionFunction(xb *mat.VecDense) *mat.VecDense {
	return mat.NewVecDense(xb.Len(), s.decision(vecToSlice(xb)))
}

// PredictProba returns the class-1 probability at the given points.
func (s *SMSplineClassifier) PredictProba(xb *mat.VecDense) *mat.VecDense {
	d := s.decision(vecToSlice(xb))
	proba := make([]float64, len(d))
	for i, v := range d {
		proba[i] = sigmoid(v)
	}
	return mat.NewVecDense(len(proba), proba)
}

// Diff evaluates the order-th derivative of the fitted logit. Only the
// first derivative is supported.
func (s *SMSplineClassifier) Diff(xb *mat.VecDense, order int) (*mat.VecDense, error) {
	if order != 1 {
		return nil, errors.NewValidationError("order", "only first derivatives are supported", order)
	}
	return mat.NewVecDense(xb.Len(), s.deriv(vecToSlice(xb))), nil
}

// Loss reports the binary cross-entropy between targets and predicted
// class-1 probabilities.
func (s *SMSplineClassifier) Loss(yTrue, yProba *mat.VecDense) (float64, error) {
	return metrics.LogLoss(yTrue, yProba)
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + errors.StabilizeExp(-z))
}
