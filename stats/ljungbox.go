package stats

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// LjungBoxResult is the outcome of a Ljung-Box portmanteau test.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

// LjungBox tests residuals for autocorrelation up to the given lag. The null
// hypothesis is no autocorrelation; a p-value below 0.05 indicates the model
// left structure in the residuals. fitdf is the number of parameters the
// model estimated (p+q+P+Q for SARIMA).
func LjungBox(residuals []float64, lags, fitdf int) (*LjungBoxResult, error) {
	n := len(residuals)
	if n < 10 {
		return nil, errors.Wrapf(errors.ErrInsufficientData,
			"stats.LjungBox: need at least 10 residuals, got %d", n)
	}
	if lags < 1 {
		return nil, errors.NewValidationError("lags", "must be at least 1", lags)
	}
	if lags >= n {
		lags = n - 1
	}

	acf, err := ACF(residuals, lags)
	if err != nil {
		return nil, err
	}

	var q float64
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi2 := distuv.ChiSquared{K: float64(dof)}
	pValue := chi2.Survival(q)

	return &LjungBoxResult{
		Statistic: q,
		PValue:    pValue,
		Lags:      lags,
		DOF:       dof,
	}, nil
}
