// Package spline implements penalized smoothing splines ("P-splines") used
// as the shape-function estimators of the single-index models: a clamped
// B-spline basis on a fixed domain with a second-order difference penalty on
// the coefficients, fitted by penalized least squares (regression) or
// penalized IRLS (binary classification).
package spline

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Knot spacing strategies.
const (
	KnotDistUniform  = "uniform"
	KnotDistQuantile = "quantile"
)

// bsplineBasis is a clamped B-spline basis on [xmin, xmax]: the boundary
// knots are repeated degree+1 times and knotNum interior knots sit strictly
// inside the domain, so the basis has knotNum+degree+1 functions.
type bsplineBasis struct {
	knots  []float64
	degree int
	nBasis int
}

// newUniformBasis places the interior knots equally spaced over the domain.
func newUniformBasis(xmin, xmax float64, knotNum, degree int) *bsplineBasis {
	interior := make([]float64, knotNum)
	step := (xmax - xmin) / float64(knotNum+1)
	for i := range interior {
		interior[i] = xmin + float64(i+1)*step
	}
	return newBasisFromInterior(xmin, xmax, interior, degree)
}

// newQuantileBasis places the interior knots at the empirical quantiles of
// the training projection, so knot density follows data density.
func newQuantileBasis(xmin, xmax float64, data []float64, knotNum, degree int) *bsplineBasis {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	interior := make([]float64, 0, knotNum)
	span := xmax - xmin
	prev := xmin
	for i := 1; i <= knotNum; i++ {
		q := stat.Quantile(float64(i)/float64(knotNum+1), stat.Empirical, sorted, nil)
		// Knots must stay strictly increasing inside the domain; ties in the
		// data collapse onto a uniform fallback position.
		if q <= prev || q >= xmax {
			q = xmin + float64(i)*span/float64(knotNum+1)
		}
		if q > prev && q < xmax {
			interior = append(interior, q)
			prev = q
		}
	}
	return newBasisFromInterior(xmin, xmax, interior, degree)
}

func newBasisFromInterior(xmin, xmax float64, interior []float64, degree int) *bsplineBasis {
	knots := make([]float64, 0, 2*(degree+1)+len(interior))
	for i := 0; i <= degree; i++ {
		knots = append(knots, xmin)
	}
	knots = append(knots, interior...)
	for i := 0; i <= degree; i++ {
		knots = append(knots, xmax)
	}
	return &bsplineBasis{
		knots:  knots,
		degree: degree,
		nBasis: len(interior) + degree + 1,
	}
}

// evalAll returns the values of every basis function at x via the Cox-de
// Boor recursion. x is assumed to lie inside the domain.
func (b *bsplineBasis) evalAll(x float64) []float64 {
	return b.evalDegree(x, b.degree)[:b.nBasis]
}

// evalDegree runs the recursion up to the requested degree and returns the
// raw coefficient array over all knot spans.
func (b *bsplineBasis) evalDegree(x float64, degree int) []float64 {
	t := b.knots
	nSpans := len(t) - 1

	vals := make([]float64, nSpans)
	span := -1
	for i := 0; i < nSpans; i++ {
		if t[i] <= x && x < t[i+1] {
			span = i
			break
		}
	}
	if span == -1 {
		// x sits on the right boundary: assign it to the last nonempty span.
		for i := nSpans - 1; i >= 0; i-- {
			if t[i] < t[i+1] {
				span = i
				break
			}
		}
	}
	if span >= 0 {
		vals[span] = 1
	}

	for d := 1; d <= degree; d++ {
		next := make([]float64, nSpans)
		for i := 0; i+d+1 < len(t); i++ {
			var left, right float64
			if den := t[i+d] - t[i]; den > 0 {
				left = (x - t[i]) / den * vals[i]
			}
			if den := t[i+d+1] - t[i+1]; den > 0 {
				right = (t[i+d+1] - x) / den * vals[i+1]
			}
			next[i] = left + right
		}
		vals = next
	}
	return vals
}

// derivAll returns the first derivative of every basis function at x.
func (b *bsplineBasis) derivAll(x float64) []float64 {
	t := b.knots
	p := b.degree
	lower := b.evalDegree(x, p-1)

	deriv := make([]float64, b.nBasis)
	for i := 0; i < b.nBasis; i++ {
		var left, right float64
		if den := t[i+p] - t[i]; den > 0 {
			left = lower[i] / den
		}
		if den := t[i+p+1] - t[i+1]; den > 0 {
			right = lower[i+1] / den
		}
		deriv[i] = float64(p) * (left - right)
	}
	return deriv
}

// designMatrix evaluates the basis at every point of x.
func (b *bsplineBasis) designMatrix(x []float64) *mat.Dense {
	design := mat.NewDense(len(x), b.nBasis, nil)
	for i, xi := range x {
		design.SetRow(i, b.evalAll(xi))
	}
	return design
}

// penaltyMatrix returns D'D for the second-order difference matrix D over
// the basis coefficients (the P-spline roughness penalty).
func (b *bsplineBasis) penaltyMatrix() *mat.SymDense {
	nb := b.nBasis
	pen := mat.NewSymDense(nb, nil)
	if nb < 3 {
		return pen
	}

	diff := mat.NewDense(nb-2, nb, nil)
	for i := 0; i < nb-2; i++ {
		diff.Set(i, i, 1)
		diff.Set(i, i+1, -2)
		diff.Set(i, i+2, 1)
	}

	var dtd mat.Dense
	dtd.Mul(diff.T(), diff)
	for i := 0; i < nb; i++ {
		for j := i; j < nb; j++ {
			pen.SetSym(i, j, dtd.At(i, j))
		}
	}
	return pen
}
