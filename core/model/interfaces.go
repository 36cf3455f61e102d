package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is the interface for trainable models.
type Fitter interface {
	// Fit trains the model on X (n_samples x n_features) and y (n_samples x 1).
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for models that produce predictions.
type Predictor interface {
	// Predict returns predictions for X as an n_samples x 1 matrix.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor combines the interfaces a regression model satisfies.
type Regressor interface {
	Fitter
	Predictor
}

// Classifier combines the interfaces a classification model satisfies.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns per-class probability estimates.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique class labels seen during fitting.
	Classes() []int
}

// ParameterGetter is the interface for models that expose hyperparameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models with settable hyperparameters.
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}
