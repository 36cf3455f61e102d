package spline

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pahal2007/SIMTree/pkg/errors"
)

// degenerateSpan is the domain width below which the projection is treated
// as constant and the smoother falls back to a constant fit.
const degenerateSpan = 1e-12

// histogramBins is the bin count of the fitted-projection density diagnostic.
const histogramBins = 10

// smSpline holds the state shared by the regression and classification
// smoothers: basis, penalty strength, fitted coefficients, domain bounds and
// the training-density diagnostic.
type smSpline struct {
	knotNum  int
	degree   int
	regGamma float64
	knotDist string

	xmin, xmax float64

	basis *bsplineBasis
	coef  []float64

	// degenerate marks an (xmax - xmin) span too small to carry a basis;
	// the smoother then evaluates to constVal everywhere.
	degenerate bool
	constVal   float64

	fitted bool

	// Bins_ holds the histogram bin edges of the training projection.
	Bins_ []float64

	// Density_ holds the normalized bin densities of the training projection.
	Density_ []float64
}

func newSMSpline(knotNum, degree int, regGamma, xmin, xmax float64, knotDist string) smSpline {
	return smSpline{
		knotNum:  knotNum,
		degree:   degree,
		regGamma: regGamma,
		knotDist: knotDist,
		xmin:     xmin,
		xmax:     xmax,
	}
}

func (s *smSpline) validateParams(op string) error {
	if s.knotNum < 1 {
		return errors.NewValidationError("knot_num", "must be at least 1", s.knotNum)
	}
	if s.degree < 1 {
		return errors.NewValidationError("degree", "must be at least 1", s.degree)
	}
	if s.regGamma < 0 {
		return errors.NewValidationError("reg_gamma", "must be non-negative", s.regGamma)
	}
	if s.knotDist != KnotDistUniform && s.knotDist != KnotDistQuantile {
		return errors.NewValidationError("knot_dist", "must be \"uniform\" or \"quantile\"", s.knotDist)
	}
	if s.xmax < s.xmin {
		return errors.NewValueError(op, "xmax must not be smaller than xmin")
	}
	return nil
}

// clamp pulls x into the fitted domain; the basis is undefined outside it.
func (s *smSpline) clamp(x float64) float64 {
	if x < s.xmin {
		return s.xmin
	}
	if x > s.xmax {
		return s.xmax
	}
	return x
}

// buildBasis constructs the knot layout for the configured spacing strategy.
func (s *smSpline) buildBasis(data []float64) {
	if s.knotDist == KnotDistQuantile {
		s.basis = newQuantileBasis(s.xmin, s.xmax, data, s.knotNum, s.degree)
		return
	}
	s.basis = newUniformBasis(s.xmin, s.xmax, s.knotNum, s.degree)
}

// computeHistogram records the density diagnostic of the training
// projection over the fitted domain.
func (s *smSpline) computeHistogram(data []float64) {
	if s.xmax-s.xmin < degenerateSpan {
		s.Bins_ = nil
		s.Density_ = nil
		return
	}

	// Histogram requires data within the dividers; out-of-domain values are
	// clamped to the boundaries, like everywhere else the fitted domain is
	// applied.
	sorted := make([]float64, len(data))
	for i, v := range data {
		sorted[i] = s.clamp(v)
	}
	sort.Float64s(sorted)

	dividers := make([]float64, histogramBins+1)
	floats.Span(dividers, s.xmin, s.xmax)
	// The clamped projection sits exactly on the boundaries, so widen the
	// outermost edges a hair.
	dividers[0] = math.Nextafter(dividers[0], math.Inf(-1))
	dividers[histogramBins] = math.Nextafter(dividers[histogramBins], math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)

	width := (s.xmax - s.xmin) / histogramBins
	density := make([]float64, histogramBins)
	total := float64(len(data))
	for i, c := range counts {
		density[i] = c / (total * width)
	}

	edges := make([]float64, histogramBins+1)
	floats.Span(edges, s.xmin, s.xmax)
	s.Bins_ = edges
	s.Density_ = density
}

// decision evaluates the fitted spline at the given (clamped) points.
func (s *smSpline) decision(x []float64) []float64 {
	out := make([]float64, len(x))
	if s.degenerate {
		for i := range out {
			out[i] = s.constVal
		}
		return out
	}
	for i, xi := range x {
		row := s.basis.evalAll(s.clamp(xi))
		out[i] = floats.Dot(row, s.coef)
	}
	return out
}

// deriv evaluates the first derivative of the fitted spline.
func (s *smSpline) deriv(x []float64) []float64 {
	out := make([]float64, len(x))
	if s.degenerate {
		return out
	}
	for i, xi := range x {
		row := s.basis.derivAll(s.clamp(xi))
		out[i] = floats.Dot(row, s.coef)
	}
	return out
}

// solvePenalized solves (B'WB + gamma*P + ridge*I) c = B'Wz for the basis
// coefficients. weights may be nil for an unweighted solve.
func (s *smSpline) solvePenalized(op string, design *mat.Dense, z, weights []float64) ([]float64, error) {
	n, nb := design.Dims()

	sys := mat.NewSymDense(nb, nil)
	rhs := make([]float64, nb)
	for j := 0; j < nb; j++ {
		for k := j; k < nb; k++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				w := 1.0
				if weights != nil {
					w = weights[i]
				}
				sum += w * design.At(i, j) * design.At(i, k)
			}
			sys.SetSym(j, k, sum)
		}
		sum := 0.0
		for i := 0; i < n; i++ {
			w := 1.0
			if weights != nil {
				w = weights[i]
			}
			sum += w * design.At(i, j) * z[i]
		}
		rhs[j] = sum
	}

	pen := s.basis.penaltyMatrix()
	for j := 0; j < nb; j++ {
		for k := j; k < nb; k++ {
			v := sys.At(j, k) + s.regGamma*pen.At(j, k)
			if j == k {
				// Small ridge keeps the system positive definite when the
				// projection leaves basis segments empty.
				v += 1e-10
			}
			sys.SetSym(j, k, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sys); !ok {
		return nil, errors.NewModelError(op, "penalized system is not positive definite", errors.ErrSingularMatrix)
	}

	coefVec := mat.NewVecDense(nb, nil)
	if err := chol.SolveVecTo(coefVec, mat.NewVecDense(nb, rhs)); err != nil {
		return nil, errors.NewModelError(op, "penalized solve failed", err)
	}

	coef := make([]float64, nb)
	copy(coef, coefVec.RawVector().Data)
	if err := errors.CheckNumericalStability(op, coef, 0); err != nil {
		return nil, err
	}
	return coef, nil
}

// Domain returns the fitted domain bounds [xmin, xmax] of the projection.
func (s *smSpline) Domain() (xmin, xmax float64) {
	return s.xmin, s.xmax
}

// Histogram returns the bin edges and densities of the training projection.
func (s *smSpline) Histogram() (edges, density []float64) {
	return s.Bins_, s.Density_
}

func vecToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
