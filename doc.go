// Package tsgo is a time-series forecasting library for Go: a panel dataset
// container, feature transforms, statistical and machine-learning forecast
// models, anomaly detection, and parallel backtesting behind one consistent
// fit/forecast API.
//
// # Features
//
// - TSDataset: wide-format panel of segments over one evenly spaced index
// - Transforms: scaling, Box-Cox, log, lags, rolling statistics, differencing
// - Models: naive, seasonal moving average, linear, SARIMA, auto SARIMA,
// additive trend-seasonality, gradient-boosted trees, ensembles
// - Prediction intervals on every model
// - Backtesting with expanding or rolling windows, fully parallel folds
// - Outlier detection by sliding median, MAD, or model prediction intervals
// - Plotting of series, forecasts, anomalies, and correlograms
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "time"
//
//	    "github.com/YuminosukeSato/tsgo/dataset"
//	    "github.com/YuminosukeSato/tsgo/models"
//	    "github.com/YuminosukeSato/tsgo/pipeline"
//	    "github.com/YuminosukeSato/tsgo/transform"
//	)
//
//	func main() {
//	    ts, err := dataset.FromSeries(
//	        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), dataset.Daily,
//	        dataset.Series{Name: "sales", Values: history},
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    p := pipeline.New(
//	        models.NewLinear("target_lag_7"),
//	        7,
//	        transform.NewLag(7),
//	    )
//	    if err := p.Fit(ts); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    forecast, err := p.Forecast()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(forecast.Target("sales"))
//	}
//
// Each package documents its own surface: dataset holds the container,
// transform the feature engineering, models the forecasters, pipeline and
// backtest the orchestration, metrics the scores, outliers and plot the
// analysis utilities.
package tsgo
