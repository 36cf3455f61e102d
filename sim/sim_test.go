package sim

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/pahal2007/SIMTree/pkg/errors"
)

// simDataset builds a single-index dataset y = g(2*x1 + x2)/sqrt(5) + noise
// on a Gaussian design.
func simDataset(seed int64, n, d int, g func(float64) float64, noise float64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	s := math.Sqrt(5)
	x := mat.NewDense(n, d, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
		z := (2*x.At(i, 0) + x.At(i, 1)) / s
		y.Set(i, 0, g(z)+noise*rng.NormFloat64())
	}
	return x, y
}

// TestSimRegressor_FitPredict fits a nonlinear single-index model and checks
// both direction recovery and prediction accuracy.
func TestSimRegressor_FitPredict(t *testing.T) {
	x, y := simDataset(42, 500, 5, math.Sin, 0.1)

	reg := NewSimRegressor(WithRandomState(0))
	if err := reg.Fit(x, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	if reg.Beta_ == nil || reg.ShapeFit_ == nil {
		t.Fatal("Fitted attributes not populated")
	}
	if norm := mat.Norm(reg.Beta_, 2); math.Abs(norm-1) > 1e-12 {
		t.Errorf("Beta_ norm: got %v, want 1", norm)
	}

	// The first two components carry the signal.
	b0, b1 := math.Abs(reg.Beta_.AtVec(0)), math.Abs(reg.Beta_.AtVec(1))
	for j := 2; j < 5; j++ {
		if a := math.Abs(reg.Beta_.AtVec(j)); a > b0 || a > b1 {
			t.Errorf("Noise component %d dominates signal: |beta| = %v", j, a)
		}
	}

	pred, err := reg.Predict(x)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	pn, pc := pred.Dims()
	if pn != 500 || pc != 1 {
		t.Fatalf("Prediction shape: got %dx%d, want 500x1", pn, pc)
	}

	mse := 0.0
	for i := 0; i < 500; i++ {
		diff := pred.At(i, 0) - y.At(i, 0)
		mse += diff * diff
	}
	mse /= 500
	// Noise variance is 0.01; a decent fit lands near it.
	if mse > 0.05 {
		t.Errorf("Training MSE too high: %v", mse)
	}
}

// TestSimRegressor_NotFitted verifies calls before Fit return a
// NotFittedError.
func TestSimRegressor_NotFitted(t *testing.T) {
	reg := NewSimRegressor()
	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := reg.Predict(x)
	if err == nil {
		t.Fatal("Expected error predicting before fit")
	}
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("Expected NotFittedError, got %T: %v", err, err)
	}

	if _, err := reg.DecisionFunction(x); err == nil {
		t.Error("Expected error from DecisionFunction before fit")
	}
	y := mat.NewDense(2, 1, []float64{0, 1})
	if err := reg.FitMiddleUpdate(x, y, DefaultRefineConfig()); err == nil {
		t.Error("Expected error from FitMiddleUpdate before fit")
	}
}

// TestSimRegressor_DimensionMismatch verifies prediction with the wrong
// feature count fails with a DimensionError.
func TestSimRegressor_DimensionMismatch(t *testing.T) {
	x, y := simDataset(1, 100, 4, math.Sin, 0.1)
	reg := NewSimRegressor()
	if err := reg.Fit(x, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	bad := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	_, err := reg.Predict(bad)
	if err == nil {
		t.Fatal("Expected error on feature mismatch")
	}
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Errorf("Expected DimensionError, got %T: %v", err, err)
	}
}

// TestSimRegressor_RowCountMismatch verifies X and y row counts must agree.
func TestSimRegressor_RowCountMismatch(t *testing.T) {
	reg := NewSimRegressor()
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(2, 1, []float64{1, 2})
	if err := reg.Fit(x, y); err == nil {
		t.Error("Expected error on mismatched row counts")
	}
}

// TestSimRegressor_ConstantTarget verifies a signal-free fit survives and
// predicts the target mean.
func TestSimRegressor_ConstantTarget(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	n := 50
	x := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
		y.Set(i, 0, 7.0)
	}

	reg := NewSimRegressor()
	if err := reg.Fit(x, y); err != nil {
		t.Fatalf("Degenerate fit should not error: %v", err)
	}
	pred, err := reg.Predict(x)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i := 0; i < n; i++ {
		if math.Abs(pred.At(i, 0)-7.0) > 1e-6 {
			t.Fatalf("Degenerate prediction: got %v, want 7", pred.At(i, 0))
		}
	}
}

// TestSimRegressor_Deterministic verifies two fits with the same seed produce
// identical coefficients.
func TestSimRegressor_Deterministic(t *testing.T) {
	x, y := simDataset(5, 300, 4, math.Tanh, 0.1)

	a := NewSimRegressor(WithRandomState(123))
	b := NewSimRegressor(WithRandomState(123))
	if err := a.Fit(x, y); err != nil {
		t.Fatalf("Failed to fit model a: %v", err)
	}
	if err := b.Fit(x, y); err != nil {
		t.Fatalf("Failed to fit model b: %v", err)
	}
	cfg := DefaultRefineConfig()
	cfg.MaxMiddleIter = 3
	if err := a.FitMiddleUpdate(x, y, cfg); err != nil {
		t.Fatalf("Refinement a failed: %v", err)
	}
	if err := b.FitMiddleUpdate(x, y, cfg); err != nil {
		t.Fatalf("Refinement b failed: %v", err)
	}

	for j := 0; j < 4; j++ {
		if a.Beta_.AtVec(j) != b.Beta_.AtVec(j) {
			t.Errorf("Coefficient %d differs between runs: %v vs %v",
				j, a.Beta_.AtVec(j), b.Beta_.AtVec(j))
		}
	}
}

// TestSimRegressor_Score checks R² on training data for a good fit.
func TestSimRegressor_Score(t *testing.T) {
	x, y := simDataset(25, 400, 4, math.Sin, 0.05)

	reg := NewSimRegressor(WithRandomState(0))
	if err := reg.Fit(x, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	r2, err := reg.Score(x, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if r2 < 0.8 {
		t.Errorf("Training R²: got %v, want > 0.8", r2)
	}

	if _, err := NewSimRegressor().Score(x, y); err == nil {
		t.Error("Expected error scoring before fit")
	}
}

// TestSimClassifier_Score checks accuracy on training data.
func TestSimClassifier_Score(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	n := 300
	x := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, rng.NormFloat64())
		x.Set(i, 1, rng.NormFloat64())
		if x.At(i, 0)+0.5*x.At(i, 1) > 0 {
			y.Set(i, 0, 1)
		}
	}

	clf := NewSimClassifier(WithRandomState(0))
	if err := clf.Fit(x, y); err != nil {
		t.Fatalf("Failed to fit classifier: %v", err)
	}
	acc, err := clf.Score(x, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if acc < 0.85 {
		t.Errorf("Training accuracy: got %v, want > 0.85", acc)
	}
}

// TestSimRegressor_GetSetParams round-trips hyperparameters.
func TestSimRegressor_GetSetParams(t *testing.T) {
	reg := NewSimRegressor(WithRegLambda(0.1), WithKnotNum(12))
	params := reg.GetParams()
	if params["reg_lambda"].(float64) != 0.1 {
		t.Errorf("reg_lambda: got %v, want 0.1", params["reg_lambda"])
	}
	if params["knot_num"].(int) != 12 {
		t.Errorf("knot_num: got %v, want 12", params["knot_num"])
	}

	other := NewSimRegressor()
	if err := other.SetParams(params); err != nil {
		t.Fatalf("SetParams failed: %v", err)
	}
	got := other.GetParams()
	for k, v := range params {
		if got[k] != v {
			t.Errorf("Param %s: got %v, want %v", k, got[k], v)
		}
	}
}

// TestSimRegressor_InvalidParams verifies hyperparameter validation at Fit.
func TestSimRegressor_InvalidParams(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})

	for name, reg := range map[string]*SimRegressor{
		"negative lambda": NewSimRegressor(WithRegLambda(-1)),
		"negative gamma":  NewSimRegressor(WithRegGamma(-1)),
		"zero knots":      NewSimRegressor(WithKnotNum(0)),
		"zero degree":     NewSimRegressor(WithDegree(0)),
		"bad knot dist":   NewSimRegressor(WithKnotDist("spread")),
	} {
		if err := reg.Fit(x, y); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

// TestSimClassifier_FitPredict fits a binary single-index classifier and
// checks labels, probabilities and class bookkeeping.
func TestSimClassifier_FitPredict(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	n, d := 600, 4
	s := math.Sqrt(5)
	x := mat.NewDense(n, d, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
		z := (2*x.At(i, 0) + x.At(i, 1)) / s
		p := 1 / (1 + math.Exp(-4*z))
		if rng.Float64() < p {
			y.Set(i, 0, 1)
		}
	}

	clf := NewSimClassifier(WithRandomState(0))
	if err := clf.Fit(x, y); err != nil {
		t.Fatalf("Failed to fit classifier: %v", err)
	}

	classes := clf.Classes()
	if len(classes) != 2 || classes[0] != 0 || classes[1] != 1 {
		t.Fatalf("Classes: got %v, want [0 1]", classes)
	}

	proba, err := clf.PredictProba(x)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}
	pn, pc := proba.Dims()
	if pn != n || pc != 2 {
		t.Fatalf("Probability shape: got %dx%d, want %dx2", pn, pc, n)
	}
	for i := 0; i < n; i++ {
		p0, p1 := proba.At(i, 0), proba.At(i, 1)
		if p0 < 0 || p0 > 1 || p1 < 0 || p1 > 1 {
			t.Fatalf("Probability out of range at %d: %v, %v", i, p0, p1)
		}
		if math.Abs(p0+p1-1) > 1e-12 {
			t.Fatalf("Probabilities do not sum to 1 at %d: %v", i, p0+p1)
		}
	}

	pred, err := clf.Predict(x)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	correct := 0
	for i := 0; i < n; i++ {
		lbl := pred.At(i, 0)
		if lbl != 0 && lbl != 1 {
			t.Fatalf("Prediction is not an original label: %v", lbl)
		}
		if lbl == y.At(i, 0) {
			correct++
		}
	}
	if acc := float64(correct) / float64(n); acc < 0.8 {
		t.Errorf("Training accuracy too low: %v", acc)
	}
}

// TestSimClassifier_LabelMapping verifies arbitrary integer labels are
// preserved in predictions.
func TestSimClassifier_LabelMapping(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	n := 200
	x := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, rng.NormFloat64())
		x.Set(i, 1, rng.NormFloat64())
		if x.At(i, 0) > 0 {
			y.Set(i, 0, 5)
		} else {
			y.Set(i, 0, -3)
		}
	}

	clf := NewSimClassifier(WithRandomState(0))
	if err := clf.Fit(x, y); err != nil {
		t.Fatalf("Failed to fit classifier: %v", err)
	}
	classes := clf.Classes()
	if len(classes) != 2 || classes[0] != -3 || classes[1] != 5 {
		t.Fatalf("Classes: got %v, want [-3 5]", classes)
	}

	pred, err := clf.Predict(x)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i := 0; i < n; i++ {
		lbl := pred.At(i, 0)
		if lbl != -3 && lbl != 5 {
			t.Fatalf("Prediction is not an original label: %v", lbl)
		}
	}
}

// TestSimClassifier_InvalidTargets rejects non-binary and non-integer labels.
func TestSimClassifier_InvalidTargets(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	clf := NewSimClassifier()
	three := mat.NewDense(4, 1, []float64{0, 1, 2, 1})
	if err := clf.Fit(x, three); err == nil {
		t.Error("Expected error on three classes")
	}

	clf = NewSimClassifier()
	frac := mat.NewDense(4, 1, []float64{0, 0.5, 1, 0})
	if err := clf.Fit(x, frac); err == nil {
		t.Error("Expected error on fractional labels")
	}

	clf = NewSimClassifier()
	one := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	if err := clf.Fit(x, one); err == nil {
		t.Error("Expected error on a single class")
	}
}

// TestSimRegressor_ScaleInvariance verifies that scaling x by a positive
// constant and refitting yields the same predictions, since the direction is
// renormalized to unit length and the spline domain scales with the
// projection.
func TestSimRegressor_ScaleInvariance(t *testing.T) {
	x, y := simDataset(17, 300, 4, math.Sin, 0.1)

	n, d := x.Dims()
	scaled := mat.NewDense(n, d, nil)
	scaled.Scale(10, x)

	a := NewSimRegressor(WithRandomState(0))
	b := NewSimRegressor(WithRandomState(0))
	if err := a.Fit(x, y); err != nil {
		t.Fatalf("Failed to fit on original data: %v", err)
	}
	if err := b.Fit(scaled, y); err != nil {
		t.Fatalf("Failed to fit on scaled data: %v", err)
	}

	predA, err := a.Predict(x)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	predB, err := b.Predict(scaled)
	if err != nil {
		t.Fatalf("Failed to predict on scaled data: %v", err)
	}
	for i := 0; i < n; i++ {
		if math.Abs(predA.At(i, 0)-predB.At(i, 0)) > 1e-6 {
			t.Fatalf("Prediction %d differs under scaling: %v vs %v",
				i, predA.At(i, 0), predB.At(i, 0))
		}
	}
}

// TestSimRegressor_ScaledFeatures verifies the fit tolerates features on very
// different scales.
func TestSimRegressor_ScaledFeatures(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	n := 400
	x := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1000*rng.NormFloat64())
		x.Set(i, 1, 0.001*rng.NormFloat64())
		y.Set(i, 0, x.At(i, 0)/1000+0.05*rng.NormFloat64())
	}

	reg := NewSimRegressor(WithRandomState(0))
	if err := reg.Fit(x, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	pred, err := reg.Predict(x)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	mse := 0.0
	for i := 0; i < n; i++ {
		diff := pred.At(i, 0) - y.At(i, 0)
		mse += diff * diff
	}
	if mse/float64(n) > 0.05 {
		t.Errorf("MSE with scaled features too high: %v", mse/float64(n))
	}
}
