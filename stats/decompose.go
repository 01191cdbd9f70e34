package stats

import (
	"math"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Decomposition is the classical seasonal-trend split of a series:
// Y = Trend + Seasonal + Residual. Trend and Residual carry NaN at the edges
// where the centered moving average is undefined.
type Decomposition struct {
	Trend    []float64
	Seasonal []float64
	Residual []float64
	Period   int
}

// Decompose performs additive classical decomposition with a centered moving
// average trend. The series must cover at least two full periods.
func Decompose(values []float64, period int) (*Decomposition, error) {
	n := len(values)
	if period < 2 {
		return nil, errors.NewValidationError("period", "must be at least 2", period)
	}
	if n < 2*period {
		return nil, errors.Wrapf(errors.ErrInsufficientData,
			"stats.Decompose: need at least %d points, got %d", 2*period, n)
	}

	trend := centeredMovingAverage(values, period)

	// Detrend, then average within each phase of the period.
	seasonalPattern := make([]float64, period)
	counts := make([]int, period)
	for i := 0; i < n; i++ {
		if math.IsNaN(trend[i]) {
			continue
		}
		phase := i % period
		seasonalPattern[phase] += values[i] - trend[i]
		counts[phase]++
	}
	for i := 0; i < period; i++ {
		if counts[i] > 0 {
			seasonalPattern[i] /= float64(counts[i])
		}
	}

	// Center the seasonal component so it sums to zero over a period.
	var mean float64
	for _, v := range seasonalPattern {
		mean += v
	}
	mean /= float64(period)
	for i := range seasonalPattern {
		seasonalPattern[i] -= mean
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		seasonal[i] = seasonalPattern[i%period]
		if math.IsNaN(trend[i]) {
			residual[i] = math.NaN()
		} else {
			residual[i] = values[i] - trend[i] - seasonal[i]
		}
	}

	return &Decomposition{
		Trend:    trend,
		Seasonal: seasonal,
		Residual: residual,
		Period:   period,
	}, nil
}

// centeredMovingAverage computes the trend estimate. An even period uses the
// 2xMA convention with half weights on the end points.
func centeredMovingAverage(values []float64, period int) []float64 {
	n := len(values)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2
	if period%2 == 0 {
		for i := half; i < n-half; i++ {
			sum := values[i-half]*0.5 + values[i+half]*0.5
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
			trend[i] = sum / float64(period)
		}
	} else {
		for i := half; i < n-half; i++ {
			var sum float64
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
			trend[i] = sum / float64(period)
		}
	}
	return trend
}
