package sim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/pahal2007/SIMTree/metrics"
	"github.com/pahal2007/SIMTree/pkg/errors"
	"github.com/pahal2007/SIMTree/spline"
)

// SimClassifier is a single-index binary classifier. The shape function is
// fitted on the logit scale; predicted probabilities are the two-class
// softmax of [−d, +d]/2 over the decision value d, which reduces to the
// sigmoid of d for the positive class.
type SimClassifier struct {
	baseSim

	// Classes_ holds the two original class labels, sorted ascending.
	// Targets are binarized against them: Classes_[1] maps to 1.
	Classes_ []int
}

// NewSimClassifier creates a SimClassifier.
func NewSimClassifier(opts ...Option) *SimClassifier {
	sc := &SimClassifier{baseSim: newBaseSim(opts...)}
	sc.variant = sc
	return sc
}

// Fit estimates the projection direction and the shape function from the
// training data X (n_samples x n_features) and binary labels y
// (n_samples x 1).
func (sc *SimClassifier) Fit(X, y mat.Matrix) error {
	if err := sc.validateParams(); err != nil {
		return err
	}
	return sc.fit("SimClassifier.Fit", X, y)
}

// PredictProba returns an n x 2 matrix of class probabilities, columns
// ordered like Classes_. Rows sum to 1.
func (sc *SimClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	decision, err := sc.decisionFunction("PredictProba", X)
	if err != nil {
		return nil, err
	}

	n := decision.Len()
	proba := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p1 := sigmoid(decision.AtVec(i))
		proba.Set(i, 0, 1-p1)
		proba.Set(i, 1, p1)
	}
	return proba, nil
}

// Predict returns the predicted class labels, inverting the internal
// binarization: thresholded at probability 0.5.
func (sc *SimClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probaMat, err := sc.PredictProba(X)
	if err != nil {
		return nil, err
	}

	n, _ := probaMat.Dims()
	pred := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if probaMat.At(i, 1) > 0.5 {
			pred.Set(i, 0, float64(sc.Classes_[1]))
		} else {
			pred.Set(i, 0, float64(sc.Classes_[0]))
		}
	}
	return pred, nil
}

// Score returns the mean accuracy of the predicted labels on (X, y).
func (sc *SimClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := sc.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := y.Dims()
	yv := mat.NewVecDense(n, nil)
	pv := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yv.SetVec(i, y.At(i, 0))
		pv.SetVec(i, pred.At(i, 0))
	}
	return metrics.Accuracy(yv, pv)
}

// Classes returns the class labels seen during fitting.
func (sc *SimClassifier) Classes() []int {
	return sc.Classes_
}

func (sc *SimClassifier) modelName() string { return "SimClassifier" }

// validateTargets binarizes the labels to {0, 1}. Exactly two distinct
// labels are required; once fitted, later calls must use the same labels.
func (sc *SimClassifier) validateTargets(op string, y mat.Matrix) (*mat.VecDense, error) {
	n, _ := y.Dims()

	seen := make(map[int]bool)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		label := int(y.At(i, 0))
		if float64(label) != y.At(i, 0) {
			return nil, errors.NewValueError(op, "class labels must be integer-valued")
		}
		labels[i] = label
		seen[label] = true
	}

	classes := make([]int, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	if len(classes) != 2 {
		return nil, errors.NewValueError(op, "exactly 2 classes are required for binary classification")
	}
	if classes[0] > classes[1] {
		classes[0], classes[1] = classes[1], classes[0]
	}

	if sc.Classes_ == nil {
		sc.Classes_ = classes
	} else if classes[0] != sc.Classes_[0] || classes[1] != sc.Classes_[1] {
		return nil, errors.NewValueError(op, "labels differ from the classes seen during the initial fit")
	}

	yv := mat.NewVecDense(n, nil)
	for i, label := range labels {
		if label == sc.Classes_[1] {
			yv.SetVec(i, 1)
		}
	}
	return yv, nil
}

func (sc *SimClassifier) newShape(xmin, xmax float64) ShapeFunction {
	return spline.NewSMSplineClassifier(sc.knotNum, sc.degree, sc.regGamma, xmin, xmax, sc.knotDist)
}

// predictForLoss feeds the class-1 probability, not the raw decision value,
// into residuals and losses.
func (sc *SimClassifier) predictForLoss(shape ShapeFunction, xb *mat.VecDense) *mat.VecDense {
	decision := shape.DecisionFunction(xb)
	n := decision.Len()
	proba := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		proba.SetVec(i, sigmoid(decision.AtVec(i)))
	}
	return proba
}

func (sc *SimClassifier) canStratify() bool { return true }

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + errors.StabilizeExp(-z))
}
