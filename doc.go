// Package simtree provides single-index model (SIM) estimators for Go:
// regression and binary classification models of the form y ≈ f(βᵀx),
// where β is a learned unit-norm projection direction and f is a penalized
// smoothing spline fitted along that projection.
//
// The estimators follow a scikit-learn-like API on gonum matrices.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/pahal2007/SIMTree/sim"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 2, []float64{1, 0, 2, 1, 3, 1, 4, 2})
//	    y := mat.NewDense(4, 1, []float64{1, 3, 4, 6})
//
//	    reg := sim.NewSimRegressor(sim.WithRandomState(0))
//	    if err := reg.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Optional joint fine-tuning of direction and shape.
//	    if err := reg.FitMiddleUpdate(X, y, sim.DefaultRefineConfig()); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := reg.Predict(X)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(mat.Formatted(pred))
//	}
//
// # Packages
//
//   - sim: the SimRegressor / SimClassifier estimators, projection-direction
//     estimation and the middle-update refinement loop
//   - spline: penalized smoothing-spline shape functions
//   - linear: L1-penalized regression for sparse direction estimates
//   - preprocessing: standardization and train/validation splitting
//   - metrics: regression and classification metrics
package simtree
