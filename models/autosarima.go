package models

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tsgo/core/parallel"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
	"github.com/YuminosukeSato/tsgo/pkg/log"
	"github.com/YuminosukeSato/tsgo/stats"
)

// Criterion selects the information criterion a model search minimizes.
type Criterion string

const (
	CriterionAIC  Criterion = "aic"
	CriterionAICc Criterion = "aicc"
	CriterionBIC  Criterion = "bic"
)

// AutoSARIMA searches the SARIMA order grid per segment and keeps the model
// minimizing the information criterion. The differencing orders are chosen
// first by heuristics (variance reduction for d, seasonal autocorrelation
// for D), then (p,q)(P,Q) are searched exhaustively.
type AutoSARIMA struct {
	// MaxP and MaxQ bound the non-seasonal grid (defaults 3).
	MaxP int
	MaxQ int

	// MaxD bounds the differencing heuristic (default 2).
	MaxD int

	// M is the seasonal period. Zero disables the seasonal part.
	M int

	// MaxSP, MaxSQ bound the seasonal grid (defaults 1 when M > 0).
	MaxSP int
	MaxSQ int

	// Crit is the criterion to minimize (default AICc).
	Crit Criterion

	// Features are optional exogenous regressor columns, as in SARIMA.
	Features []string

	inner  SARIMA
	orders map[string]SARIMAOrder
}

// NewAutoSARIMA creates a search with default bounds. Pass the seasonal
// period m, or 0 for a non-seasonal search.
func NewAutoSARIMA(m int) *AutoSARIMA {
	a := &AutoSARIMA{MaxP: 3, MaxQ: 3, MaxD: 2, M: m, Crit: CriterionAICc}
	if m > 0 {
		a.MaxSP, a.MaxSQ = 1, 1
	}
	return a
}

// Fit searches the order grid for every segment in parallel. Each segment
// search converts its own panics on the worker goroutine.
func (a *AutoSARIMA) Fit(ds *dataset.TSDataset) error {
	if a.MaxP < 0 || a.MaxQ < 0 || a.MaxD < 0 || a.MaxSP < 0 || a.MaxSQ < 0 {
		return errors.NewValidationError("AutoSARIMA", "grid bounds must be non-negative", a)
	}
	if a.Crit == "" {
		a.Crit = CriterionAICc
	}

	logger := log.With("models")
	a.inner.Features = a.Features
	a.inner.fitIndex = ds.Index()
	a.inner.states = make(map[string]*sarimaState)
	a.orders = make(map[string]SARIMAOrder)

	segments := ds.Segments()
	fitErr := parallel.ForEachErr(len(segments), func(i int) error {
		segment := segments[i]
		return errors.SafeExecute("AutoSARIMA.Fit", func() error {
			target, err := ds.Target(segment)
			if err != nil {
				return err
			}
			if err := cleanSeries("AutoSARIMA.Fit", segment, target); err != nil {
				return err
			}

			series := target
			var exog *ridgeRegressor
			if len(a.Features) > 0 {
				X, err := a.inner.exogMatrix(ds, segment, 0, ds.Len())
				if err != nil {
					return err
				}
				y := mat.NewDense(len(target), 1, append([]float64(nil), target...))
				reg := newRidgeRegressor(0)
				if err := reg.Fit(X, y); err != nil {
					return errors.Wrapf(err, "AutoSARIMA.Fit: exogenous regression on segment %q", segment)
				}
				explained, err := reg.Predict(X)
				if err != nil {
					return err
				}
				series = make([]float64, len(target))
				for t := range target {
					series[t] = target[t] - explained[t]
				}
				exog = reg
			}

			best, order, evaluated, err := a.searchSegment(series)
			if err != nil {
				return errors.Wrapf(err, "AutoSARIMA.Fit: segment %q", segment)
			}
			best.exog = exog

			a.inner.mu.Lock()
			a.inner.states[segment] = best
			a.orders[segment] = order
			a.inner.mu.Unlock()

			logger.Debug().
				Str(log.KeyOperation, "fit").
				Str(log.KeyModel, "AutoSARIMA").
				Str(log.KeySegment, segment).
				Int("models_evaluated", evaluated).
				Float64("criterion", a.criterionOf(best)).
				Msg("order selected")
			return nil
		})
	})
	if fitErr != nil {
		return fitErr
	}

	a.inner.SetFitted()
	return nil
}

func (a *AutoSARIMA) criterionOf(st *sarimaState) float64 {
	switch a.Crit {
	case CriterionAIC:
		return st.aic
	case CriterionBIC:
		return st.bic
	default:
		return st.aicc
	}
}

// searchSegment picks d and D by heuristics, then grid-searches the
// remaining orders.
func (a *AutoSARIMA) searchSegment(series []float64) (*sarimaState, SARIMAOrder, int, error) {
	d := chooseDifferencing(series, a.MaxD)
	sd := 0
	if a.M > 1 {
		sd = chooseSeasonalDifferencing(series, a.M)
	}

	bestCrit := math.Inf(1)
	var best *sarimaState
	var bestOrder SARIMAOrder
	evaluated := 0

	for p := 0; p <= a.MaxP; p++ {
		for q := 0; q <= a.MaxQ; q++ {
			for sp := 0; sp <= a.MaxSP; sp++ {
				for sq := 0; sq <= a.MaxSQ; sq++ {
					order := SARIMAOrder{P: p, D: d, Q: q, SP: sp, SD: sd, SQ: sq, M: a.M}
					if p+q+sp+sq+d+sd == 0 {
						continue
					}
					if len(series) < order.minObservations() {
						continue
					}
					cand := &sarimaState{order: order}
					if err := cand.fit(series); err != nil {
						continue
					}
					evaluated++
					if c := a.criterionOf(cand); c < bestCrit {
						bestCrit = c
						best = cand
						bestOrder = order
					}
				}
			}
		}
	}
	if best == nil {
		return nil, SARIMAOrder{}, evaluated,
			errors.Wrap(errors.ErrInsufficientData, "no candidate order could be fitted")
	}
	return best, bestOrder, evaluated, nil
}

// chooseDifferencing differences while the sample variance keeps dropping.
func chooseDifferencing(series []float64, maxD int) int {
	current := series
	for d := 0; d < maxD; d++ {
		next := diffOnce(current, 1)
		if len(next) < 10 {
			return d
		}
		if sampleVariance(next) >= sampleVariance(current) {
			return d
		}
		current = next
	}
	return maxD
}

// chooseSeasonalDifferencing applies one round of seasonal differencing when
// the autocorrelation at the seasonal lag is strong.
func chooseSeasonalDifferencing(series []float64, m int) int {
	acf, err := stats.ACF(series, 2*m)
	if err != nil || len(acf) <= m {
		return 0
	}
	if math.Abs(acf[m]) > 0.5 {
		return 1
	}
	return 0
}

func sampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return ss / float64(len(values)-1)
}

// IsFitted reports whether Fit has completed.
func (a *AutoSARIMA) IsFitted() bool { return a.inner.IsFitted() }

// SelectedOrder returns the order chosen for a segment.
func (a *AutoSARIMA) SelectedOrder(segment string) (SARIMAOrder, error) {
	if !a.inner.IsFitted() {
		return SARIMAOrder{}, errors.NewNotFittedError("AutoSARIMA", "SelectedOrder")
	}
	order, ok := a.orders[segment]
	if !ok {
		return SARIMAOrder{}, errors.NewSegmentError("AutoSARIMA.SelectedOrder", segment, "")
	}
	return order, nil
}

// Forecast fills the future slab with point forecasts from the selected
// per-segment models.
func (a *AutoSARIMA) Forecast(future *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !a.inner.IsFitted() {
		return nil, errors.NewNotFittedError("AutoSARIMA", "Forecast")
	}
	return a.inner.Forecast(future)
}

// ForecastWithInterval adds prediction intervals at the given width.
func (a *AutoSARIMA) ForecastWithInterval(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	if !a.inner.IsFitted() {
		return nil, errors.NewNotFittedError("AutoSARIMA", "ForecastWithInterval")
	}
	return a.inner.ForecastWithInterval(future, width)
}

// PredictInSample reconstructs one-step fitted values over the training
// index.
func (a *AutoSARIMA) PredictInSample(width float64) (*dataset.TSDataset, error) {
	if !a.inner.IsFitted() {
		return nil, errors.NewNotFittedError("AutoSARIMA", "PredictInSample")
	}
	return a.inner.PredictInSample(width)
}

// Summary returns the fit summary of a segment's selected model.
func (a *AutoSARIMA) Summary(segment string) (*SARIMASummary, error) {
	if !a.inner.IsFitted() {
		return nil, errors.NewNotFittedError("AutoSARIMA", "Summary")
	}
	return a.inner.Summary(segment)
}
