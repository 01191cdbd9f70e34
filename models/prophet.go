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

// Seasonality is one Fourier seasonality block: Period is the cycle length
// in steps of the dataset frequency, Order the number of harmonics.
type Seasonality struct {
	Period float64
	Order  int
}

// Prophet is an additive model: piecewise-linear trend with automatic
// changepoints plus Fourier seasonality, fitted per segment by ridge
// regression. Changepoints are placed uniformly over the first 80% of the
// history; the trend extrapolates with its final slope.
type Prophet struct {
	model.BaseEstimator

	// NChangepoints is the number of trend changepoints (default 10).
	NChangepoints int

	// Seasonalities are the Fourier blocks. Empty gives a pure trend model.
	Seasonalities []Seasonality

	// Alpha is the ridge penalty shared by all regressors (default 1).
	Alpha float64

	mu       sync.Mutex
	fitIndex dataset.TimeIndex
	states   map[string]*prophetState
}

type prophetState struct {
	reg          *ridgeRegressor
	changepoints []float64 // positions on the fit axis
	sigma        float64
	fitted       []float64 // in-sample fitted values
}

// NewProphet creates the model with default changepoints and penalty.
func NewProphet(seasonalities ...Seasonality) *Prophet {
	return &Prophet{NChangepoints: 10, Seasonalities: seasonalities, Alpha: 1}
}

func (p *Prophet) nRegressors() int {
	n := 1 + p.NChangepoints
	for _, s := range p.Seasonalities {
		n += 2 * s.Order
	}
	return n
}

// designRow fills one row for position pos on the fit axis.
func (p *Prophet) designRow(row []float64, pos float64, changepoints []float64) {
	j := 0
	row[j] = pos
	j++
	for _, cp := range changepoints {
		if pos > cp {
			row[j] = pos - cp
		} else {
			row[j] = 0
		}
		j++
	}
	for _, s := range p.Seasonalities {
		for k := 1; k <= s.Order; k++ {
			angle := 2 * math.Pi * float64(k) * pos / s.Period
			row[j] = math.Sin(angle)
			row[j+1] = math.Cos(angle)
			j += 2
		}
	}
}

// Fit fits every segment in parallel. Each segment fit converts its own
// panics on the worker goroutine.
func (p *Prophet) Fit(ds *dataset.TSDataset) error {
	if p.NChangepoints < 0 {
		return errors.NewValidationError("NChangepoints", "must be non-negative", p.NChangepoints)
	}
	for _, s := range p.Seasonalities {
		if s.Period <= 1 || s.Order < 1 {
			return errors.NewValidationError("Seasonalities",
				"period must exceed 1 and order be at least 1", s)
		}
	}
	if ds.Len() <= p.nRegressors() {
		return errors.Wrapf(errors.ErrInsufficientData,
			"Prophet.Fit: %d regressors need more than %d points", p.nRegressors(), p.nRegressors())
	}

	logger := log.With("models")
	p.fitIndex = ds.Index()
	p.states = make(map[string]*prophetState)

	// Changepoints over the first 80% of the history, uniformly spaced.
	changepoints := make([]float64, p.NChangepoints)
	span := 0.8 * float64(ds.Len()-1)
	for i := range changepoints {
		changepoints[i] = span * float64(i+1) / float64(p.NChangepoints+1)
	}

	segments := ds.Segments()
	fitErr := parallel.ForEachErr(len(segments), func(i int) error {
		segment := segments[i]
		return errors.SafeExecute("Prophet.Fit", func() error {
			target, err := ds.Target(segment)
			if err != nil {
				return err
			}
			if err := cleanSeries("Prophet.Fit", segment, target); err != nil {
				return err
			}

			n := len(target)
			X := mat.NewDense(n, p.nRegressors(), nil)
			y := mat.NewDense(n, 1, append([]float64(nil), target...))
			row := make([]float64, p.nRegressors())
			for t := 0; t < n; t++ {
				p.designRow(row, float64(t), changepoints)
				X.SetRow(t, row)
			}

			reg := newRidgeRegressor(p.Alpha)
			if err := reg.Fit(X, y); err != nil {
				return errors.Wrapf(err, "Prophet.Fit: segment %q", segment)
			}
			fitted, err := reg.Predict(X)
			if err != nil {
				return err
			}
			residuals := make([]float64, n)
			for t := range residuals {
				residuals[t] = target[t] - fitted[t]
			}

			p.mu.Lock()
			p.states[segment] = &prophetState{
				reg:          reg,
				changepoints: changepoints,
				sigma:        residualStd(residuals),
				fitted:       fitted,
			}
			p.mu.Unlock()

			logger.Debug().
				Str(log.KeyOperation, "fit").
				Str(log.KeyModel, "Prophet").
				Str(log.KeySegment, segment).
				Int(log.KeySamples, n).
				Msg("segment fitted")
			return nil
		})
	})
	if fitErr != nil {
		return fitErr
	}

	p.SetFitted()
	return nil
}

// Forecast fills the future slab with point forecasts.
func (p *Prophet) Forecast(future *dataset.TSDataset) (*dataset.TSDataset, error) {
	return p.forecast(future, 0)
}

// ForecastWithInterval adds normal-approximation bounds widening slowly with
// the horizon.
func (p *Prophet) ForecastWithInterval(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	return p.forecast(future, width)
}

func (p *Prophet) forecast(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Prophet", "Forecast")
	}
	if err := checkContinues("Prophet.Forecast", p.fitIndex, future); err != nil {
		return nil, err
	}

	out := future.Clone()
	horizon := out.Len()
	z := zScore(width)
	fitN := float64(p.fitIndex.N)

	for _, segment := range out.Segments() {
		state, ok := p.states[segment]
		if !ok {
			return nil, errors.NewSegmentError("Prophet.Forecast", segment, "")
		}

		X := mat.NewDense(horizon, p.nRegressors(), nil)
		row := make([]float64, p.nRegressors())
		for h := 0; h < horizon; h++ {
			p.designRow(row, fitN+float64(h), state.changepoints)
			X.SetRow(h, row)
		}
		point, err := state.reg.Predict(X)
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
				spread := z * state.sigma * math.Sqrt(1+float64(h)/fitN)
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

// PredictInSample returns the fitted values with intervals over the training
// index.
func (p *Prophet) PredictInSample(width float64) (*dataset.TSDataset, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Prophet", "PredictInSample")
	}

	z := zScore(width)
	segments := make(map[string]map[string][]float64, len(p.states))
	for segment, state := range p.states {
		n := len(state.fitted)
		point := append([]float64(nil), state.fitted...)
		lower := make([]float64, n)
		upper := make([]float64, n)
		for t := 0; t < n; t++ {
			lower[t] = point[t] - z*state.sigma
			upper[t] = point[t] + z*state.sigma
		}
		segments[segment] = map[string][]float64{
			dataset.TargetColumn: point,
			dataset.LowerColumn:  lower,
			dataset.UpperColumn:  upper,
		}
	}
	return dataset.New(p.fitIndex, segments)
}

// ProphetComponents is the additive decomposition of the fit over the
// training index.
type ProphetComponents struct {
	Trend    []float64
	Seasonal []float64
}

// Components splits the fitted values of a segment into trend and seasonal
// parts.
func (p *Prophet) Components(segment string) (*ProphetComponents, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Prophet", "Components")
	}
	state, ok := p.states[segment]
	if !ok {
		return nil, errors.NewSegmentError("Prophet.Components", segment, "")
	}

	coef := state.reg.Coef()
	intercept := state.reg.Intercept()
	n := p.fitIndex.N
	trendTerms := 1 + p.NChangepoints

	out := &ProphetComponents{
		Trend:    make([]float64, n),
		Seasonal: make([]float64, n),
	}
	row := make([]float64, p.nRegressors())
	for t := 0; t < n; t++ {
		p.designRow(row, float64(t), state.changepoints)
		trend := intercept
		for j := 0; j < trendTerms; j++ {
			trend += coef[j] * row[j]
		}
		seasonal := 0.0
		for j := trendTerms; j < len(coef); j++ {
			seasonal += coef[j] * row[j]
		}
		out.Trend[t] = trend
		out.Seasonal[t] = seasonal
	}
	return out, nil
}
