package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pahal2007/SIMTree/pkg/errors"
)

// probEps bounds probabilities away from {0, 1} before taking logs.
const probEps = 1e-15

// LogLoss computes the binary cross-entropy between 0/1 targets and
// predicted class-1 probabilities. Probabilities are clipped to
// [probEps, 1-probEps].
func LogLoss(yTrue, yProba *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("LogLoss", "empty vector")
	}
	if yProba.Len() != n {
		return 0, errors.NewDimensionError("LogLoss", n, yProba.Len(), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yProba.AtVec(i), probEps, 1-probEps)
		if yTrue.AtVec(i) > 0.5 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// Accuracy computes the fraction of exact label matches.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}
