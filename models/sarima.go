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
	"github.com/YuminosukeSato/tsgo/stats"
)

// SARIMAOrder is the model order (p,d,q)(P,D,Q)m.
type SARIMAOrder struct {
	P int // non-seasonal AR order
	D int // non-seasonal differencing
	Q int // non-seasonal MA order
	// Seasonal part
	SP int // seasonal AR order
	SD int // seasonal differencing
	SQ int // seasonal MA order
	M  int // seasonal period
}

func (o SARIMAOrder) numParams() int {
	return o.P + o.Q + o.SP + o.SQ + 1
}

// minObservations is the shortest series the order can be fitted on.
func (o SARIMAOrder) minObservations() int {
	return o.P + o.Q + o.D + (o.SP+o.SD+o.SQ)*o.M + 20
}

// SARIMA is a seasonal ARIMA model fitted per segment by conditional sum of
// squares with momentum gradient descent. Optional exogenous regressor
// columns are handled by an OLS pre-regression: the regression explains what
// it can, SARIMA models the remainder (the SARIMAX formulation).
type SARIMA struct {
	model.BaseEstimator

	// Order is the (p,d,q)(P,D,Q)m order.
	Order SARIMAOrder

	// Features are optional exogenous regressor columns. Future slabs must
	// carry their values for the forecast horizon.
	Features []string

	mu       sync.Mutex
	fitIndex dataset.TimeIndex
	states   map[string]*sarimaState
}

// NewSARIMA creates a SARIMA model with the given order.
func NewSARIMA(order SARIMAOrder) *SARIMA {
	return &SARIMA{Order: order}
}

// sarimaState is the fitted state of one segment.
type sarimaState struct {
	order SARIMAOrder

	arCoeffs  []float64
	maCoeffs  []float64
	sarCoeffs []float64
	smaCoeffs []float64
	intercept float64
	variance  float64

	logLik float64
	aic    float64
	aicc   float64
	bic    float64

	data       []float64 // series the SARIMA part was fitted on (after exog removal)
	diffData   []float64 // after differencing
	residuals  []float64 // on the differenced scale
	fittedOrig []float64 // one-step fitted values on the original scale, NaN head

	exog *ridgeRegressor // nil when no exogenous features
}

// Fit fits every segment in parallel. Segment fits run on worker
// goroutines, so each one converts its own panics; recover does not cross
// goroutines.
func (s *SARIMA) Fit(ds *dataset.TSDataset) error {
	if err := s.validateOrder(); err != nil {
		return err
	}
	if ds.Len() < s.Order.minObservations() {
		return errors.Wrapf(errors.ErrInsufficientData,
			"SARIMA.Fit: order needs at least %d points, got %d",
			s.Order.minObservations(), ds.Len())
	}

	logger := log.With("models")
	s.fitIndex = ds.Index()
	s.states = make(map[string]*sarimaState)

	segments := ds.Segments()
	fitErr := parallel.ForEachErr(len(segments), func(i int) error {
		segment := segments[i]
		return errors.SafeExecute("SARIMA.Fit", func() error {
			target, err := ds.Target(segment)
			if err != nil {
				return err
			}
			if err := cleanSeries("SARIMA.Fit", segment, target); err != nil {
				return err
			}

			state := &sarimaState{order: s.Order}

			// Exogenous pre-regression: SARIMA models what the regression
			// leaves behind.
			series := target
			if len(s.Features) > 0 {
				X, err := s.exogMatrix(ds, segment, 0, ds.Len())
				if err != nil {
					return err
				}
				y := mat.NewDense(len(target), 1, append([]float64(nil), target...))
				reg := newRidgeRegressor(0)
				if err := reg.Fit(X, y); err != nil {
					return errors.Wrapf(err, "SARIMA.Fit: exogenous regression on segment %q", segment)
				}
				explained, err := reg.Predict(X)
				if err != nil {
					return err
				}
				series = make([]float64, len(target))
				for t := range target {
					series[t] = target[t] - explained[t]
				}
				state.exog = reg
			}

			if err := state.fit(series); err != nil {
				return errors.Wrapf(err, "SARIMA.Fit: segment %q", segment)
			}

			s.mu.Lock()
			s.states[segment] = state
			s.mu.Unlock()

			logger.Debug().
				Str(log.KeyOperation, "fit").
				Str(log.KeyModel, "SARIMA").
				Str(log.KeySegment, segment).
				Int(log.KeySamples, len(target)).
				Float64("aicc", state.aicc).
				Msg("segment fitted")
			return nil
		})
	})
	if fitErr != nil {
		return fitErr
	}

	s.SetFitted()
	return nil
}

func (s *SARIMA) validateOrder() error {
	o := s.Order
	if o.P < 0 || o.D < 0 || o.Q < 0 || o.SP < 0 || o.SD < 0 || o.SQ < 0 {
		return errors.NewValidationError("Order", "orders must be non-negative", o)
	}
	if (o.SP > 0 || o.SD > 0 || o.SQ > 0) && o.M < 2 {
		return errors.NewValidationError("Order",
			"seasonal components need a period M of at least 2", o)
	}
	if o.P+o.Q+o.SP+o.SQ+o.D+o.SD == 0 {
		return errors.NewValidationError("Order", "order is empty", o)
	}
	return nil
}

// exogMatrix builds the exogenous design matrix over rows [from, to) of ds.
func (s *SARIMA) exogMatrix(ds *dataset.TSDataset, segment string, from, to int) (*mat.Dense, error) {
	X := mat.NewDense(to-from, len(s.Features), nil)
	for j, name := range s.Features {
		col, err := ds.Column(segment, name)
		if err != nil {
			return nil, err
		}
		for i := from; i < to; i++ {
			if math.IsNaN(col[i]) {
				return nil, errors.NewValueError("SARIMA",
					"exogenous column "+name+" contains NaN for segment "+segment)
			}
			X.Set(i-from, j, col[i])
		}
	}
	return X, nil
}

// Forecast fills the future slab with point forecasts.
func (s *SARIMA) Forecast(future *dataset.TSDataset) (*dataset.TSDataset, error) {
	return s.forecast(future, 0)
}

// ForecastWithInterval adds prediction intervals at the given central
// coverage width.
func (s *SARIMA) ForecastWithInterval(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	return s.forecast(future, width)
}

func (s *SARIMA) forecast(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SARIMA", "Forecast")
	}
	if err := checkContinues("SARIMA.Forecast", s.fitIndex, future); err != nil {
		return nil, err
	}

	out := future.Clone()
	horizon := out.Len()
	z := zScore(width)

	for _, segment := range out.Segments() {
		state, ok := s.states[segment]
		if !ok {
			return nil, errors.NewSegmentError("SARIMA.Forecast", segment, "")
		}

		point, se := state.predict(horizon)

		// Add the exogenous contribution back.
		if state.exog != nil {
			X, err := s.exogMatrix(out, segment, 0, horizon)
			if err != nil {
				return nil, err
			}
			explained, err := state.exog.Predict(X)
			if err != nil {
				return nil, err
			}
			for h := range point {
				point[h] += explained[h]
			}
		}

		if err := out.SetColumn(segment, dataset.TargetColumn, point); err != nil {
			return nil, err
		}
		if width > 0 {
			lower := make([]float64, horizon)
			upper := make([]float64, horizon)
			for h := 0; h < horizon; h++ {
				lower[h] = point[h] - z*se[h]
				upper[h] = point[h] + z*se[h]
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

// PredictInSample reconstructs one-step fitted values with intervals over
// the training index. Rows the model cannot predict (differencing head) are
// NaN.
func (s *SARIMA) PredictInSample(width float64) (*dataset.TSDataset, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SARIMA", "PredictInSample")
	}

	z := zScore(width)
	segments := make(map[string]map[string][]float64, len(s.states))
	for segment, state := range s.states {
		n := len(state.fittedOrig)
		point := append([]float64(nil), state.fittedOrig...)
		lower := make([]float64, n)
		upper := make([]float64, n)
		se := math.Sqrt(state.variance)
		for t := 0; t < n; t++ {
			if math.IsNaN(point[t]) {
				lower[t] = math.NaN()
				upper[t] = math.NaN()
				continue
			}
			lower[t] = point[t] - z*se
			upper[t] = point[t] + z*se
		}
		segments[segment] = map[string][]float64{
			dataset.TargetColumn: point,
			dataset.LowerColumn:  lower,
			dataset.UpperColumn:  upper,
		}
	}
	return dataset.New(s.fitIndex, segments)
}

// SARIMASummary reports the fitted parameters and diagnostics of one
// segment.
type SARIMASummary struct {
	Order     SARIMAOrder
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	LogLik    float64
	AIC       float64
	AICc      float64
	BIC       float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
}

// Summary returns the fit summary of a segment, including a Ljung-Box
// residual test at lag 10.
func (s *SARIMA) Summary(segment string) (*SARIMASummary, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SARIMA", "Summary")
	}
	state, ok := s.states[segment]
	if !ok {
		return nil, errors.NewSegmentError("SARIMA.Summary", segment, "")
	}

	o := state.order
	lb, err := stats.LjungBox(state.residuals, 10, o.P+o.Q+o.SP+o.SQ)
	if err != nil {
		// Short residual series: report without the test.
		lb = nil
	}

	return &SARIMASummary{
		Order:     state.order,
		ARCoeffs:  append([]float64(nil), state.arCoeffs...),
		MACoeffs:  append([]float64(nil), state.maCoeffs...),
		SARCoeffs: append([]float64(nil), state.sarCoeffs...),
		SMACoeffs: append([]float64(nil), state.smaCoeffs...),
		Intercept: state.intercept,
		Variance:  state.variance,
		LogLik:    state.logLik,
		AIC:       state.aic,
		AICc:      state.aicc,
		BIC:       state.bic,
		NObs:      len(state.data),
		LjungBox:  lb,
	}, nil
}
