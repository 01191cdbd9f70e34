package model

import "gonum.org/v1/gonum/mat"

// Regressor is the contract for the tabular regression fitters that back the
// feature-based forecasting models (linear trend, harmonic regression,
// boosted trees). X is a design matrix of one row per timestamp.
type Regressor interface {
	// Fit learns parameters from the design matrix and targets.
	Fit(X, y mat.Matrix) error

	// Predict returns one prediction per row of X.
	Predict(X mat.Matrix) ([]float64, error)
}
