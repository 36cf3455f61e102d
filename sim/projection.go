package sim

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pahal2007/SIMTree/linear"
	"github.com/pahal2007/SIMTree/pkg/errors"
)

// pinvTolerance is the relative singular-value cutoff of the covariance
// pseudo-inverse. Rank-deficient (collinear) feature sets are handled here
// instead of erroring out.
const pinvTolerance = 1e-7

// stdFloor keeps the per-feature standardization of the sparse branch away
// from division by zero on constant features.
const stdFloor = 1e-7

// estimateDirection computes the initial projection direction from (x, y).
//
// With regLambda == 0 it applies first-order Stein's identity: per-sample
// score vectors s_i = Σ⁻¹(x_i − μ) averaged with weights y_i estimate the
// gradient direction of E[y|x] under an (approximately) Gaussian design.
// With regLambda > 0 it fits a Lasso on standardized features and rescales
// the coefficients back, yielding a sparse, shrunken direction.
//
// The result is unit-norm unless the raw estimate is the zero vector, which
// is passed through unchanged (after a DegenerateDirectionWarning), and
// sign-fixed so the largest-magnitude component is non-negative.
func (b *baseSim) estimateDirection(x *mat.Dense, y *mat.VecDense) (*mat.VecDense, error) {
	const op = "estimateDirection"
	n, d := x.Dims()

	zbar := mat.NewVecDense(d, nil)
	if b.regLambda == 0 {
		mu := make([]float64, d)
		for j := 0; j < d; j++ {
			mu[j] = stat.Mean(mat.Col(nil, j, x), nil)
		}

		var cov mat.SymDense
		stat.CovarianceMatrix(&cov, x, nil)

		invCov, err := pseudoInverse(&cov, pinvTolerance)
		if err != nil {
			return nil, err
		}

		// Per-sample scores s_i = Σ⁻¹(x_i − μ); the raw direction is the
		// y-weighted average of the scores.
		centered := mat.NewDense(n, d, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < d; j++ {
				centered.Set(i, j, x.At(i, j)-mu[j])
			}
		}
		var scores mat.Dense
		scores.Mul(centered, invCov) // invCov is symmetric

		for j := 0; j < d; j++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += y.AtVec(i) * scores.At(i, j)
			}
			zbar.SetVec(j, sum/float64(n))
		}
	} else {
		mx := make([]float64, d)
		sx := make([]float64, d)
		for j := 0; j < d; j++ {
			col := mat.Col(nil, j, x)
			mx[j] = stat.Mean(col, nil)
			variance := 0.0
			for _, v := range col {
				diff := v - mx[j]
				variance += diff * diff
			}
			sx[j] = math.Sqrt(variance/float64(n)) + stdFloor
		}

		nx := mat.NewDense(n, d, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < d; j++ {
				nx.Set(i, j, (x.At(i, j)-mx[j])/sx[j])
			}
		}

		lasso := linear.NewLasso(linear.WithLassoAlpha(b.regLambda))
		if err := lasso.Fit(nx, vecToColumn(y)); err != nil {
			return nil, err
		}
		for j := 0; j < d; j++ {
			zbar.SetVec(j, lasso.Coef_[j]/sx[j])
		}
	}

	if mat.Norm(zbar, 2) == 0 {
		errors.Warn(errors.NewDegenerateDirectionWarning(op, d))
	}
	normalizeDirection(zbar)
	return zbar, nil
}

// pseudoInverse computes the Moore-Penrose pseudo-inverse of a symmetric
// matrix via SVD, zeroing singular values below rcond times the largest.
func pseudoInverse(a *mat.SymDense, rcond float64) (*mat.Dense, error) {
	d, _ := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.NewModelError("pseudoInverse", "SVD factorization failed", errors.ErrSingularMatrix)
	}

	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	cutoff := 0.0
	for _, s := range values {
		if s > cutoff {
			cutoff = s
		}
	}
	cutoff *= rcond

	// V * diag(1/s) * Uᵀ with small singular values dropped.
	scaled := mat.NewDense(d, len(values), nil)
	for j, s := range values {
		inv := 0.0
		if s > cutoff {
			inv = 1 / s
		}
		for i := 0; i < d; i++ {
			scaled.Set(i, j, v.At(i, j)*inv)
		}
	}

	inv := mat.NewDense(d, d, nil)
	inv.Mul(scaled, u.T())
	return inv, nil
}
