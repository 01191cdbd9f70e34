// Package model holds the estimator state machine and the contracts shared
// by forecasters and transforms.
package model

// EstimatorState is the fitted/unfitted state of an estimator.
type EstimatorState int

const (
	// NotFitted means Fit has not completed yet.
	NotFitted EstimatorState = iota
	// Fitted means Fit completed successfully.
	Fitted
)

// BaseEstimator is embedded by every model and transform. It carries the
// fitted flag that guards Forecast/Transform calls.
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted reports whether the estimator has been fitted.
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted marks the estimator as fitted.
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset returns the estimator to the unfitted state.
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}
