package sim

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func gaussianDesign(rng *rand.Rand, n, d int) *mat.Dense {
	x := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
	}
	return x
}

// TestEstimateDirection_LinearSignal checks the Stein estimate recovers the
// true direction of a linear model under a Gaussian design.
func TestEstimateDirection_LinearSignal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n, d := 2000, 5
	x := gaussianDesign(rng, n, d)

	// y = 2*x1 + x2, true direction (2,1,0,0,0)/sqrt(5)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		y.SetVec(i, 2*x.At(i, 0)+x.At(i, 1))
	}

	b := newBaseSim()
	beta, err := b.estimateDirection(x, y)
	if err != nil {
		t.Fatalf("estimateDirection failed: %v", err)
	}

	norm := mat.Norm(beta, 2)
	if math.Abs(norm-1) > 1e-12 {
		t.Errorf("Direction norm: got %v, want 1", norm)
	}

	s := math.Sqrt(5)
	want := []float64{2 / s, 1 / s, 0, 0, 0}
	for j := 0; j < d; j++ {
		if math.Abs(beta.AtVec(j)-want[j]) > 0.08 {
			t.Errorf("beta[%d]: got %v, want ~%v", j, beta.AtVec(j), want[j])
		}
	}
}

// TestEstimateDirection_SignConvention verifies the largest-magnitude
// component of the estimate is non-negative.
func TestEstimateDirection_SignConvention(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n, d := 1000, 3
	x := gaussianDesign(rng, n, d)

	// Negative signal should be flipped to the canonical sign.
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		y.SetVec(i, -3*x.At(i, 1))
	}

	b := newBaseSim()
	beta, err := b.estimateDirection(x, y)
	if err != nil {
		t.Fatalf("estimateDirection failed: %v", err)
	}

	maxAbs, argmax := 0.0, 0
	for j := 0; j < d; j++ {
		if a := math.Abs(beta.AtVec(j)); a > maxAbs {
			maxAbs, argmax = a, j
		}
	}
	if beta.AtVec(argmax) < 0 {
		t.Errorf("Largest component should be non-negative, got %v at %d", beta.AtVec(argmax), argmax)
	}
	if argmax != 1 {
		t.Errorf("Dominant component: got index %d, want 1", argmax)
	}
}

// TestEstimateDirection_ZeroSignal verifies a constant target yields a zero
// direction without an error.
func TestEstimateDirection_ZeroSignal(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n, d := 100, 4
	x := gaussianDesign(rng, n, d)
	y := mat.NewVecDense(n, nil) // all zeros

	b := newBaseSim()
	beta, err := b.estimateDirection(x, y)
	if err != nil {
		t.Fatalf("Zero signal should not error: %v", err)
	}
	if norm := mat.Norm(beta, 2); norm != 0 {
		t.Errorf("Zero-signal direction norm: got %v, want 0", norm)
	}
}

// TestEstimateDirection_SparseLasso checks the L1 branch zeroes out inactive
// features.
func TestEstimateDirection_SparseLasso(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n, d := 500, 6
	x := gaussianDesign(rng, n, d)

	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		y.SetVec(i, 5*x.At(i, 0)+0.01*rng.NormFloat64())
	}

	b := newBaseSim(WithRegLambda(0.5))
	beta, err := b.estimateDirection(x, y)
	if err != nil {
		t.Fatalf("estimateDirection failed: %v", err)
	}

	if math.Abs(beta.AtVec(0)) < 0.9 {
		t.Errorf("Active feature shrunk too far: %v", beta.AtVec(0))
	}
	for j := 1; j < d; j++ {
		if math.Abs(beta.AtVec(j)) > 1e-8 {
			t.Errorf("Inactive feature %d not zeroed: %v", j, beta.AtVec(j))
		}
	}
}

// TestEstimateDirection_CollinearFeatures verifies the pseudo-inverse handles
// a rank-deficient covariance.
func TestEstimateDirection_CollinearFeatures(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	n := 500
	x := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v := rng.NormFloat64()
		x.Set(i, 0, v)
		x.Set(i, 1, 2*v) // exact duplicate direction
		x.Set(i, 2, rng.NormFloat64())
		y.SetVec(i, v)
	}

	b := newBaseSim()
	beta, err := b.estimateDirection(x, y)
	if err != nil {
		t.Fatalf("Collinear design should not error: %v", err)
	}
	if norm := mat.Norm(beta, 2); math.Abs(norm-1) > 1e-12 {
		t.Errorf("Direction norm: got %v, want 1", norm)
	}
}

// TestNormalizeDirection covers the unit-norm and sign-fix behavior directly.
func TestNormalizeDirection(t *testing.T) {
	v := mat.NewVecDense(3, []float64{0, -4, 3})
	normalizeDirection(v)
	if math.Abs(mat.Norm(v, 2)-1) > 1e-12 {
		t.Errorf("Norm after normalize: got %v, want 1", mat.Norm(v, 2))
	}
	if v.AtVec(1) < 0 {
		t.Errorf("Sign fix: dominant component is %v, want positive", v.AtVec(1))
	}
	if math.Abs(v.AtVec(1)-0.8) > 1e-12 || math.Abs(v.AtVec(2)+0.6) > 1e-12 {
		t.Errorf("Unexpected normalized vector: %v", mat.Formatted(v.T()))
	}

	zero := mat.NewVecDense(2, nil)
	normalizeDirection(zero)
	if zero.AtVec(0) != 0 || zero.AtVec(1) != 0 {
		t.Error("Zero vector should pass through unchanged")
	}
}

// TestPseudoInverse_Identity verifies pinv of a full-rank matrix matches the
// true inverse.
func TestPseudoInverse_Identity(t *testing.T) {
	a := mat.NewSymDense(2, []float64{4, 1, 1, 3})
	inv, err := pseudoInverse(a, pinvTolerance)
	if err != nil {
		t.Fatalf("pseudoInverse failed: %v", err)
	}

	var prod mat.Dense
	prod.Mul(a, inv)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(prod.At(i, j)-want) > 1e-10 {
				t.Errorf("A·pinv(A)[%d,%d]: got %v, want %v", i, j, prod.At(i, j), want)
			}
		}
	}
}

// TestPseudoInverse_Singular verifies small singular values are cut off
// instead of being inverted.
func TestPseudoInverse_Singular(t *testing.T) {
	// Rank-1 matrix; pinv must not blow up on the zero singular value.
	a := mat.NewSymDense(2, []float64{1, 1, 1, 1})
	inv, err := pseudoInverse(a, pinvTolerance)
	if err != nil {
		t.Fatalf("pseudoInverse failed: %v", err)
	}
	// pinv of [[1,1],[1,1]] is [[.25,.25],[.25,.25]]
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(inv.At(i, j)-0.25) > 1e-10 {
				t.Errorf("pinv[%d,%d]: got %v, want 0.25", i, j, inv.At(i, j))
			}
		}
	}
}
