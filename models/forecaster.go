// Package models provides the forecasting models: naive and moving-average
// baselines, per-segment linear regression, seasonal ARIMA with optional
// exogenous regressors, an additive trend/seasonality model in the Prophet
// mold, and gradient-boosted trees over feature columns. All models share
// one contract: Fit on a TSDataset, Forecast into a future slab produced by
// TSDataset.MakeFuture.
package models

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Forecaster is the contract every model implements.
type Forecaster interface {
	// Fit trains the model on every segment of the dataset.
	Fit(ds *dataset.TSDataset) error

	// Forecast fills the target column of the future slab and returns it.
	// The slab's index must directly continue the fitted index.
	Forecast(future *dataset.TSDataset) (*dataset.TSDataset, error)
}

// IntervalForecaster is implemented by models that can produce prediction
// intervals. The bounds are written to the target_lower and target_upper
// columns. width is the central coverage, e.g. 0.95.
type IntervalForecaster interface {
	Forecaster
	ForecastWithInterval(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error)
}

// InSamplePredictor is implemented by models that can reconstruct their
// fitted values with intervals over the training index. The outlier
// detection in the outliers package relies on this.
type InSamplePredictor interface {
	PredictInSample(width float64) (*dataset.TSDataset, error)
}

// checkContinues validates that the future slab picks up exactly where the
// fitted index ended.
func checkContinues(op string, fitIndex dataset.TimeIndex, future *dataset.TSDataset) error {
	fi := future.Index()
	if fi.Freq != fitIndex.Freq {
		return errors.NewValueError(op, "future frequency differs from the fitted frequency")
	}
	if !fi.Start.Equal(fitIndex.At(fitIndex.N)) {
		return errors.NewValueError(op, "future index must directly continue the fitted index")
	}
	return nil
}

// zScore returns the two-sided normal quantile for a central interval of the
// given width, e.g. 1.96 for width 0.95.
func zScore(width float64) float64 {
	if width <= 0 || width >= 1 {
		width = 0.95
	}
	normal := distuv.Normal{Mu: 0, Sigma: 1}
	return normal.Quantile((1 + width) / 2)
}

// residualStd is the standard deviation of non-NaN residuals, used for the
// interval spread of models without an analytic error variance.
func residualStd(residuals []float64) float64 {
	var sum float64
	count := 0
	for _, r := range residuals {
		if math.IsNaN(r) {
			continue
		}
		sum += r * r
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}

// tail returns a copy of the trailing n values of a series.
func tail(values []float64, n int) []float64 {
	if n >= len(values) {
		return append([]float64(nil), values...)
	}
	return append([]float64(nil), values[len(values)-n:]...)
}

// cleanSeries validates a target series for models that cannot handle NaN:
// every value must be observed.
func cleanSeries(op, segment string, values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) {
			return errors.NewValueError(op,
				"segment "+segment+" contains NaN; impute or drop before fitting")
		}
	}
	return nil
}
