// Package metrics provides the forecast quality metrics used by backtest and
// direct evaluation. All metrics skip pairs where either side is NaN, so
// they compose with datasets that carry missing values.
package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Func is the shape shared by all metrics: truth and prediction slices of
// equal length.
type Func func(yTrue, yPred []float64) (float64, error)

// Metric pairs a metric function with the name it is reported under.
type Metric struct {
	Name string
	Fn   Func
}

// Defaults is the metric set backtest uses when none is configured.
func Defaults() []Metric {
	return []Metric{
		{Name: "MAE", Fn: MAE},
		{Name: "MSE", Fn: MSE},
		{Name: "SMAPE", Fn: SMAPE},
	}
}

// cleanPairs drops pairs where either value is NaN and validates shapes.
func cleanPairs(op string, yTrue, yPred []float64) ([]float64, []float64, error) {
	if len(yTrue) == 0 {
		return nil, nil, errors.NewValueError(op, "empty input")
	}
	if len(yTrue) != len(yPred) {
		return nil, nil, errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}

	t := make([]float64, 0, len(yTrue))
	p := make([]float64, 0, len(yPred))
	for i := range yTrue {
		if math.IsNaN(yTrue[i]) || math.IsNaN(yPred[i]) {
			continue
		}
		t = append(t, yTrue[i])
		p = append(p, yPred[i])
	}
	if len(t) == 0 {
		return nil, nil, errors.NewValueError(op, "all pairs contain NaN")
	}
	return t, p, nil
}

// MSE is the mean squared error.
func MSE(yTrue, yPred []float64) (float64, error) {
	t, p, err := cleanPairs("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := range t {
		diff := t[i] - p[i]
		sum += diff * diff
	}
	return sum / float64(len(t)), nil
}

// RMSE is the root mean squared error.
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE is the mean absolute error.
func MAE(yTrue, yPred []float64) (float64, error) {
	t, p, err := cleanPairs("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := range t {
		sum += math.Abs(t[i] - p[i])
	}
	return sum / float64(len(t)), nil
}

// MedAE is the median absolute error.
func MedAE(yTrue, yPred []float64) (float64, error) {
	t, p, err := cleanPairs("MedAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	abs := make([]float64, len(t))
	for i := range t {
		abs[i] = math.Abs(t[i] - p[i])
	}
	sort.Float64s(abs)

	mid := len(abs) / 2
	if len(abs)%2 == 1 {
		return abs[mid], nil
	}
	return (abs[mid-1] + abs[mid]) / 2, nil
}

// MaxError is the largest absolute error.
func MaxError(yTrue, yPred []float64) (float64, error) {
	t, p, err := cleanPairs("MaxError", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var maxAbs float64
	for i := range t {
		if d := math.Abs(t[i] - p[i]); d > maxAbs {
			maxAbs = d
		}
	}
	return maxAbs, nil
}

// MAPE is the mean absolute percentage error, in percent. Zero truth values
// are skipped; an UndefinedMetricWarning is emitted when any are.
func MAPE(yTrue, yPred []float64) (float64, error) {
	t, p, err := cleanPairs("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	validCount := 0
	for i := range t {
		if t[i] == 0 {
			continue
		}
		sum += math.Abs(t[i]-p[i]) / math.Abs(t[i])
		validCount++
	}

	if validCount == 0 {
		return 0, errors.Newf("MAPE: all yTrue values are zero")
	}
	if validCount < len(t) {
		errors.Warn(errors.NewUndefinedMetricWarning("MAPE",
			"zero values in yTrue were skipped", math.NaN()))
	}
	return (sum / float64(validCount)) * 100, nil
}

// SMAPE is the symmetric mean absolute percentage error, in percent.
// Pairs where both sides are zero contribute zero error.
func SMAPE(yTrue, yPred []float64) (float64, error) {
	t, p, err := cleanPairs("SMAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := range t {
		denom := (math.Abs(t[i]) + math.Abs(p[i])) / 2
		sum += errors.SafeDivide(math.Abs(t[i]-p[i]), denom)
	}
	return (sum / float64(len(t))) * 100, nil
}

// R2 is the coefficient of determination.
func R2(yTrue, yPred []float64) (float64, error) {
	t, p, err := cleanPairs("R2", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var yMean float64
	for _, v := range t {
		yMean += v
	}
	yMean /= float64(len(t))

	var tss, rss float64
	for i := range t {
		tss += (t[i] - yMean) * (t[i] - yMean)
		rss += (t[i] - p[i]) * (t[i] - p[i])
	}

	if tss == 0 {
		return 0, errors.Newf("R2: total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}
