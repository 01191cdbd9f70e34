// Package stats provides the exploratory statistics used for model order
// selection and residual diagnostics: autocorrelation, seasonal
// decomposition, and portmanteau tests.
package stats

import (
	"math"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// ACF returns the autocorrelation function for lags 0..maxLag.
func ACF(values []float64, maxLag int) ([]float64, error) {
	n := len(values)
	if n == 0 {
		return nil, errors.NewModelError("stats.ACF", "empty series", errors.ErrEmptyData)
	}
	if maxLag < 0 {
		return nil, errors.NewValidationError("maxLag", "must be non-negative", maxLag)
	}
	if maxLag >= n {
		maxLag = n - 1
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	if variance == 0 {
		return nil, errors.NewValueError("stats.ACF", "series has zero variance")
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		var sum float64
		for i := k; i < n; i++ {
			sum += (values[i] - mean) * (values[i-k] - mean)
		}
		acf[k] = sum / variance
	}
	return acf, nil
}

// PACF returns the partial autocorrelation function for lags 0..maxLag,
// computed with the Durbin-Levinson recursion. PACF at lag 0 is 1.
func PACF(values []float64, maxLag int) ([]float64, error) {
	if maxLag < 1 {
		return nil, errors.NewValidationError("maxLag", "must be at least 1", maxLag)
	}
	acf, err := ACF(values, maxLag)
	if err != nil {
		return nil, err
	}
	maxLag = len(acf) - 1

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1.0
	if maxLag == 0 {
		return pacf, nil
	}

	phi := make([][]float64, maxLag+1)
	for i := range phi {
		phi[i] = make([]float64, maxLag+1)
	}

	phi[1][1] = acf[1]
	pacf[1] = acf[1]

	for k := 2; k <= maxLag; k++ {
		num := acf[k]
		den := 1.0
		for j := 1; j < k; j++ {
			num -= phi[k-1][j] * acf[k-j]
			den -= phi[k-1][j] * acf[j]
		}

		if den == 0 {
			pacf[k] = 0
			continue
		}

		phi[k][k] = num / den
		pacf[k] = phi[k][k]

		for j := 1; j < k; j++ {
			phi[k][j] = phi[k-1][j] - phi[k][k]*phi[k-1][k-j]
		}
	}

	return pacf, nil
}

// CorrelogramResult holds ACF or PACF values with their confidence bound.
type CorrelogramResult struct {
	Lags       []int
	Values     []float64
	ConfBounds float64 // +-1.96/sqrt(n)
}

// ACFWithConfidence computes the ACF together with the 95% white-noise
// confidence bound.
func ACFWithConfidence(values []float64, maxLag int) (*CorrelogramResult, error) {
	acf, err := ACF(values, maxLag)
	if err != nil {
		return nil, err
	}
	return newCorrelogram(acf, len(values)), nil
}

// PACFWithConfidence computes the PACF together with the 95% white-noise
// confidence bound.
func PACFWithConfidence(values []float64, maxLag int) (*CorrelogramResult, error) {
	pacf, err := PACF(values, maxLag)
	if err != nil {
		return nil, err
	}
	return newCorrelogram(pacf, len(values)), nil
}

func newCorrelogram(values []float64, n int) *CorrelogramResult {
	lags := make([]int, len(values))
	for i := range lags {
		lags[i] = i
	}
	return &CorrelogramResult{
		Lags:       lags,
		Values:     values,
		ConfBounds: 1.96 / math.Sqrt(float64(n)),
	}
}

// SignificantLags returns the lags (excluding lag 0) whose value exceeds the
// confidence bound in absolute terms.
func SignificantLags(values []float64, confBound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > confBound {
			significant = append(significant, i)
		}
	}
	return significant
}
