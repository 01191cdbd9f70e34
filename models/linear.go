package models

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/core/parallel"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
	"github.com/YuminosukeSato/tsgo/pkg/log"
)

// Linear fits an independent regression per segment on a deterministic
// linear trend plus the configured feature columns (typically lag or rolling
// columns written by the transform package). Rows containing NaN in the
// target or any feature are dropped from the fit, so the leading NaN of lag
// features is handled naturally.
type Linear struct {
	model.BaseEstimator

	// Features are the regressor columns. May be empty for a pure trend
	// model.
	Features []string

	// Alpha is the L2 penalty. Zero gives plain OLS.
	Alpha float64

	// Trend controls the deterministic trend regressor (default on via
	// NewLinear).
	Trend bool

	mu       sync.Mutex
	fitIndex dataset.TimeIndex
	regs     map[string]*ridgeRegressor
	sigma    map[string]float64
}

// NewLinear creates a trend-plus-features linear model.
func NewLinear(features ...string) *Linear {
	return &Linear{Features: features, Trend: true}
}

func (l *Linear) nRegressors() int {
	n := len(l.Features)
	if l.Trend {
		n++
	}
	return n
}

// designRow fills one design-matrix row. pos is the global position on the
// fitted axis (continuing into the future for forecasts).
func (l *Linear) designRow(row []float64, pos int, features [][]float64, i int) {
	j := 0
	if l.Trend {
		row[j] = float64(pos)
		j++
	}
	for _, f := range features {
		row[j] = f[i]
		j++
	}
}

// Fit trains one regression per segment, in parallel across segments.
func (l *Linear) Fit(ds *dataset.TSDataset) error {
	if l.nRegressors() == 0 {
		return errors.NewValidationError("Features",
			"need at least one regressor (trend or feature columns)", l.Features)
	}

	logger := log.With("models")
	l.fitIndex = ds.Index()
	l.regs = make(map[string]*ridgeRegressor)
	l.sigma = make(map[string]float64)

	segments := ds.Segments()
	err := parallel.ForEachErr(len(segments), func(idx int) error {
		segment := segments[idx]
		target, err := ds.Target(segment)
		if err != nil {
			return err
		}
		features, err := l.featureColumns(ds, segment)
		if err != nil {
			return err
		}

		// Collect complete rows only.
		var rows []int
		for t := range target {
			if math.IsNaN(target[t]) {
				continue
			}
			ok := true
			for _, f := range features {
				if math.IsNaN(f[t]) {
					ok = false
					break
				}
			}
			if ok {
				rows = append(rows, t)
			}
		}
		if len(rows) <= l.nRegressors() {
			return errors.Wrapf(errors.ErrInsufficientData,
				"Linear.Fit: segment %q has %d usable rows", segment, len(rows))
		}

		X := mat.NewDense(len(rows), l.nRegressors(), nil)
		y := mat.NewDense(len(rows), 1, nil)
		row := make([]float64, l.nRegressors())
		for i, t := range rows {
			l.designRow(row, t, features, t)
			X.SetRow(i, row)
			y.Set(i, 0, target[t])
		}

		reg := newRidgeRegressor(l.Alpha)
		if err := reg.Fit(X, y); err != nil {
			return errors.Wrapf(err, "Linear.Fit: segment %q", segment)
		}

		fittedVals, err := reg.Predict(X)
		if err != nil {
			return err
		}
		residuals := make([]float64, len(rows))
		for i, t := range rows {
			residuals[i] = target[t] - fittedVals[i]
		}

		l.mu.Lock()
		l.regs[segment] = reg
		l.sigma[segment] = residualStd(residuals)
		l.mu.Unlock()

		logger.Debug().
			Str(log.KeyOperation, "fit").
			Str(log.KeyModel, "Linear").
			Str(log.KeySegment, segment).
			Int(log.KeySamples, len(rows)).
			Msg("segment fitted")
		return nil
	})
	if err != nil {
		return err
	}

	l.SetFitted()
	return nil
}

func (l *Linear) featureColumns(ds *dataset.TSDataset, segment string) ([][]float64, error) {
	features := make([][]float64, len(l.Features))
	for i, name := range l.Features {
		col, err := ds.Column(segment, name)
		if err != nil {
			return nil, err
		}
		features[i] = col
	}
	return features, nil
}

// Forecast predicts the future slab. Feature columns must be populated on
// the slab (via SetColumn or a transform applied to the future).
func (l *Linear) Forecast(future *dataset.TSDataset) (*dataset.TSDataset, error) {
	return l.forecast(future, 0)
}

// ForecastWithInterval adds constant-width normal-approximation bounds from
// the in-sample residual spread.
func (l *Linear) ForecastWithInterval(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	return l.forecast(future, width)
}

func (l *Linear) forecast(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("Linear", "Forecast")
	}
	if err := checkContinues("Linear.Forecast", l.fitIndex, future); err != nil {
		return nil, err
	}

	out := future.Clone()
	z := zScore(width)
	horizon := out.Len()

	for _, segment := range out.Segments() {
		reg, ok := l.regs[segment]
		if !ok {
			return nil, errors.NewSegmentError("Linear.Forecast", segment, "")
		}
		features, err := l.featureColumns(out, segment)
		if err != nil {
			return nil, err
		}
		for _, f := range features {
			for _, v := range f {
				if math.IsNaN(v) {
					return nil, errors.NewValueError("Linear.Forecast",
						"feature columns of the future slab contain NaN for segment "+segment)
				}
			}
		}

		X := mat.NewDense(horizon, l.nRegressors(), nil)
		row := make([]float64, l.nRegressors())
		for h := 0; h < horizon; h++ {
			l.designRow(row, l.fitIndex.N+h, features, h)
			X.SetRow(h, row)
		}

		point, err := reg.Predict(X)
		if err != nil {
			return nil, err
		}
		if err := out.SetColumn(segment, dataset.TargetColumn, point); err != nil {
			return nil, err
		}

		if width > 0 {
			lower := make([]float64, horizon)
			upper := make([]float64, horizon)
			for h := 0; h < horizon; h++ {
				spread := z * l.sigma[segment]
				lower[h] = point[h] - spread
				upper[h] = point[h] + spread
			}
			if err := out.SetColumn(segment, dataset.LowerColumn, lower); err != nil {
				return nil, err
			}
			if err := out.SetColumn(segment, dataset.UpperColumn, upper); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
