package sim

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pahal2007/SIMTree/pkg/errors"
	"github.com/pahal2007/SIMTree/pkg/log"
	"github.com/pahal2007/SIMTree/preprocessing"
)

// adamEps floors Adam's denominator away from zero.
const adamEps = 1e-8

// RefineConfig configures FitMiddleUpdate, the joint fine-tuning of the
// projection direction and the shape function.
type RefineConfig struct {
	// ValRatio is the fraction of samples held out for validation.
	ValRatio float64

	// Tol is the minimum validation-loss improvement that resets a
	// patience counter.
	Tol float64

	// MaxMiddleIter bounds the middle iterations (direction refinement
	// followed by a shape-function refit).
	MaxMiddleIter int

	// NMiddleIterNoChange is the middle-iteration early-stopping patience.
	NMiddleIterNoChange int

	// MaxInnerIter bounds the inner epochs of mini-batch Adam updates per
	// middle iteration.
	MaxInnerIter int

	// NInnerIterNoChange is the inner-epoch early-stopping patience.
	NInnerIterNoChange int

	// BatchSize is the mini-batch size, clamped to the training-set size.
	BatchSize int

	// LearningRate is the Adam step size.
	LearningRate float64

	// Beta1 and Beta2 are the Adam moment decay rates.
	Beta1 float64
	Beta2 float64

	// Stratify splits the validation set per class label. Only effective
	// for classification.
	Stratify bool
}

// DefaultRefineConfig returns the standard fine-tuning configuration.
func DefaultRefineConfig() RefineConfig {
	return RefineConfig{
		ValRatio:            0.2,
		Tol:                 1e-4,
		MaxMiddleIter:       100,
		NMiddleIterNoChange: 5,
		MaxInnerIter:        100,
		NInnerIterNoChange:  5,
		BatchSize:           100,
		LearningRate:        1e-3,
		Beta1:               0.9,
		Beta2:               0.999,
		Stratify:            true,
	}
}

func (cfg RefineConfig) validate() error {
	if cfg.ValRatio <= 0 || cfg.ValRatio >= 1 {
		return errors.NewValidationError("val_ratio", "must be in (0, 1)", cfg.ValRatio)
	}
	if cfg.MaxMiddleIter < 0 || cfg.MaxInnerIter < 0 {
		return errors.NewValidationError("max_middle_iter/max_inner_iter", "must be non-negative", cfg.MaxMiddleIter)
	}
	if cfg.BatchSize < 1 {
		return errors.NewValidationError("batch_size", "must be at least 1", cfg.BatchSize)
	}
	if cfg.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", cfg.LearningRate)
	}
	if cfg.Beta1 < 0 || cfg.Beta1 >= 1 || cfg.Beta2 < 0 || cfg.Beta2 >= 1 {
		return errors.NewValidationError("beta_1/beta_2", "must be in [0, 1)", cfg.Beta1)
	}
	return nil
}

// FitMiddleUpdate fine-tunes the fitted model with the middle-update
// method: an outer loop of direction refinements, each consisting of
// several epochs of mini-batch Adam steps on β against the current shape
// function, followed by a shape-function refit on the moved projection.
// The refined (β, shape) pair is committed onto the model only when it
// strictly improves the held-out validation loss, so the committed model is
// never worse than the one-shot fit.
//
// During the inner epochs the validation loss is deliberately computed with
// the updated β but the shape function of the previous middle iteration:
// the gradient steps optimize β against that stale shape, and scoring must
// match the surface being optimized. The shape catches up once per middle
// iteration.
func (b *baseSim) FitMiddleUpdate(x, y mat.Matrix, cfg RefineConfig) error {
	op := b.variant.modelName() + ".FitMiddleUpdate"

	if err := b.state.RequireFitted(b.variant.modelName(), "FitMiddleUpdate"); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	xd, yv, err := b.validateXY(op, x, y)
	if err != nil {
		return err
	}
	if err := b.checkFeatures(op, xd); err != nil {
		return err
	}

	n, d := xd.Dims()
	rng := b.newRNG()

	// Held-out split; for classification the split can be stratified so
	// both sides keep the class balance.
	var trainIdx, valIdx []int
	if cfg.Stratify && b.variant.canStratify() {
		trainIdx, valIdx, err = preprocessing.StratifiedSplit(vecToSlice(yv), cfg.ValRatio, rng)
	} else {
		trainIdx, valIdx, err = preprocessing.TrainTestSplit(n, cfg.ValRatio, rng)
	}
	if err != nil {
		return err
	}

	trX, trY := takeRows(xd, yv, trainIdx)
	valX, valY := takeRows(xd, yv, valIdx)
	trainSize := len(trainIdx)

	batchSize := cfg.BatchSize
	if batchSize > trainSize {
		batchSize = trainSize
	}

	// Baseline: validation loss of the committed one-shot model.
	bestLoss, err := b.validationLoss(b.Beta_, b.ShapeFit_, valX, valY)
	if err != nil {
		return err
	}

	b.logger.Info("starting middle-update refinement",
		log.ModelNameKey, b.variant.modelName(),
		log.OperationKey, "fit_middle_update",
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.BatchSizeKey, batchSize,
		log.ValLossKey, bestLoss,
	)

	// Speculative state: the candidate direction and shape are refined
	// privately and copied onto the model only on improvement.
	candidateBeta := mat.VecDenseCopyOf(b.Beta_)
	candidateShape := b.ShapeFit_

	order := make([]int, trainSize)
	for i := range order {
		order[i] = i
	}

	grad := make([]float64, d)
	mMom := make([]float64, d)
	vMom := make([]float64, d)

	noMiddleChange := 0
	stopped := false

	for middleIter := 0; middleIter < cfg.MaxMiddleIter; middleIter++ {
		// Adam state is scoped to one middle iteration.
		for j := 0; j < d; j++ {
			mMom[j] = 0
			vMom[j] = 0
		}
		numUpdates := 0
		noInnerChange := 0
		innerBest := math.Inf(1)
		theta := mat.VecDenseCopyOf(candidateBeta)

		for innerIter := 0; innerIter < cfg.MaxInnerIter; innerIter++ {
			rng.Shuffle(trainSize, func(a, c int) { order[a], order[c] = order[c], order[a] })

			for it := 0; it < trainSize/batchSize; it++ {
				numUpdates++
				rows := order[it*batchSize : (it+1)*batchSize]

				xb := projectRows(trX, rows, theta)
				pred := b.variant.predictForLoss(candidateShape, xb)
				dfxb, err := candidateShape.Diff(xb, 1)
				if err != nil {
					return err
				}

				// Chain rule through f(βᵀx): the per-sample contribution is
				// −f'(βᵀx)·(y − ŷ) spread over the sample's features.
				for j := 0; j < d; j++ {
					grad[j] = 0
				}
				for bi, row := range rows {
					residual := trY.AtVec(row) - pred.AtVec(bi)
					scale := -dfxb.AtVec(bi) * residual
					for j := 0; j < d; j++ {
						grad[j] += scale * trX.At(row, j)
					}
				}

				for j := 0; j < d; j++ {
					g := grad[j] / float64(batchSize)
					mMom[j] = cfg.Beta1*mMom[j] + (1-cfg.Beta1)*g
					vMom[j] = cfg.Beta2*vMom[j] + (1-cfg.Beta2)*g*g
					mHat := mMom[j] / (1 - math.Pow(cfg.Beta1, float64(numUpdates)))
					vHat := vMom[j] / (1 - math.Pow(cfg.Beta2, float64(numUpdates)))
					theta.SetVec(j, theta.AtVec(j)-cfg.LearningRate*mHat/(math.Sqrt(vHat)+adamEps))
				}
			}

			// Epoch score: the moved direction against the stale shape.
			epochLoss, err := b.validationLoss(theta, candidateShape, valX, valY)
			if err != nil {
				return err
			}

			b.logger.Debug("refinement epoch",
				log.MiddleIterKey, middleIter+1,
				log.InnerIterKey, innerIter+1,
				log.ValLossKey, epochLoss,
			)

			if epochLoss > innerBest-cfg.Tol {
				noInnerChange++
			} else {
				noInnerChange = 0
			}
			if epochLoss < innerBest {
				innerBest = epochLoss
			}
			if noInnerChange >= cfg.NInnerIterNoChange {
				break
			}
		}

		normalizeDirection(theta)
		candidateBeta = theta

		// Middle update: re-estimate the shape function on the moved
		// projection. Domain and basis depend on β, so the old shape
		// cannot be reused.
		trXb := b.project(trX, candidateBeta)
		xmin, xmax := vecBounds(trXb)
		refit := b.variant.newShape(xmin, xmax)
		if err := refit.Fit(trXb, trY); err != nil {
			return err
		}
		candidateShape = refit

		middleLoss, err := b.validationLoss(candidateBeta, candidateShape, valX, valY)
		if err != nil {
			return err
		}

		if middleLoss > bestLoss-cfg.Tol {
			noMiddleChange++
		} else {
			noMiddleChange = 0
		}
		if middleLoss < bestLoss {
			b.Beta_ = mat.VecDenseCopyOf(candidateBeta)
			b.ShapeFit_ = candidateShape
			bestLoss = middleLoss
		}

		b.logger.Debug("middle iteration finished",
			log.MiddleIterKey, middleIter+1,
			log.ValLossKey, middleLoss,
		)

		if noMiddleChange >= cfg.NMiddleIterNoChange {
			stopped = true
			break
		}
	}

	if !stopped && cfg.MaxMiddleIter > 0 {
		errors.Warn(errors.NewConvergenceWarning("FitMiddleUpdate", cfg.MaxMiddleIter,
			"middle loop exhausted its iteration bound before the patience criterion"))
	}

	b.logger.Info("middle-update refinement finished",
		log.ModelNameKey, b.variant.modelName(),
		log.OperationKey, "fit_middle_update",
		log.ValLossKey, bestLoss,
	)
	return nil
}

// validationLoss scores a (direction, shape) pair on the held-out split.
func (b *baseSim) validationLoss(beta *mat.VecDense, shape ShapeFunction, valX *mat.Dense, valY *mat.VecDense) (float64, error) {
	xb := b.project(valX, beta)
	pred := b.variant.predictForLoss(shape, xb)
	return shape.Loss(valY, pred)
}

// takeRows copies the selected rows of x and y into fresh storage.
func takeRows(x *mat.Dense, y *mat.VecDense, idx []int) (*mat.Dense, *mat.VecDense) {
	_, d := x.Dims()
	outX := mat.NewDense(len(idx), d, nil)
	outY := mat.NewVecDense(len(idx), nil)
	for i, row := range idx {
		for j := 0; j < d; j++ {
			outX.Set(i, j, x.At(row, j))
		}
		outY.SetVec(i, y.AtVec(row))
	}
	return outX, outY
}

// projectRows computes βᵀx for the selected rows only.
func projectRows(x *mat.Dense, rows []int, beta *mat.VecDense) *mat.VecDense {
	_, d := x.Dims()
	out := mat.NewVecDense(len(rows), nil)
	for i, row := range rows {
		v := 0.0
		for j := 0; j < d; j++ {
			v += x.At(row, j) * beta.AtVec(j)
		}
		out.SetVec(i, v)
	}
	return out
}
