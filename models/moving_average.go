package models

import (
	"math"
	"sync"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/core/parallel"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// SeasonalMovingAverage forecasts each step as the mean of the last Window
// values observed at the same seasonal phase: with Seasonality m and Window
// w, the forecast for time t is the mean of y_{t-m}, y_{t-2m}, ..., y_{t-wm}.
// Multi-step forecasts are recursive, feeding forecasts back in.
// Seasonality 1 degenerates to the plain moving average.
type SeasonalMovingAverage struct {
	model.BaseEstimator

	// Window is how many seasonal cycles are averaged, at least 1.
	Window int

	// Seasonality is the seasonal period, at least 1.
	Seasonality int

	mu       sync.Mutex
	fitIndex dataset.TimeIndex
	history  map[string][]float64
	sigma    map[string]float64
}

// NewSeasonalMovingAverage creates the model with the given window and
// seasonal period.
func NewSeasonalMovingAverage(window, seasonality int) *SeasonalMovingAverage {
	return &SeasonalMovingAverage{Window: window, Seasonality: seasonality}
}

// NewMovingAverage creates a plain (non-seasonal) moving-average model.
func NewMovingAverage(window int) *SeasonalMovingAverage {
	return &SeasonalMovingAverage{Window: window, Seasonality: 1}
}

// span is how much history a single prediction looks back over.
func (m *SeasonalMovingAverage) span() int {
	return m.Window * m.Seasonality
}

// Fit stores the trailing history of every segment.
func (m *SeasonalMovingAverage) Fit(ds *dataset.TSDataset) error {
	if m.Window < 1 {
		return errors.NewValidationError("Window", "must be at least 1", m.Window)
	}
	if m.Seasonality < 1 {
		return errors.NewValidationError("Seasonality", "must be at least 1", m.Seasonality)
	}
	if ds.Len() < m.span()+1 {
		return errors.Wrapf(errors.ErrInsufficientData,
			"SeasonalMovingAverage.Fit: need at least %d points", m.span()+1)
	}

	m.fitIndex = ds.Index()
	m.history = make(map[string][]float64)
	m.sigma = make(map[string]float64)

	segments := ds.Segments()
	err := parallel.ForEachErr(len(segments), func(i int) error {
		segment := segments[i]
		target, err := ds.Target(segment)
		if err != nil {
			return err
		}
		if err := cleanSeries("SeasonalMovingAverage.Fit", segment, target); err != nil {
			return err
		}

		// One-step in-sample residuals for the interval spread.
		residuals := make([]float64, 0, len(target)-m.span())
		for t := m.span(); t < len(target); t++ {
			residuals = append(residuals, target[t]-m.predictAt(target, t))
		}

		m.mu.Lock()
		m.history[segment] = tail(target, m.span())
		m.sigma[segment] = residualStd(residuals)
		m.mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	m.SetFitted()
	return nil
}

// predictAt averages the Window values at the same phase before position t.
func (m *SeasonalMovingAverage) predictAt(values []float64, t int) float64 {
	var sum float64
	for k := 1; k <= m.Window; k++ {
		sum += values[t-k*m.Seasonality]
	}
	return sum / float64(m.Window)
}

// Forecast produces recursive multi-step forecasts.
func (m *SeasonalMovingAverage) Forecast(future *dataset.TSDataset) (*dataset.TSDataset, error) {
	return m.forecast(future, 0)
}

// ForecastWithInterval adds normal-approximation bounds widening with the
// horizon.
func (m *SeasonalMovingAverage) ForecastWithInterval(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	return m.forecast(future, width)
}

func (m *SeasonalMovingAverage) forecast(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("SeasonalMovingAverage", "Forecast")
	}
	if err := checkContinues("SeasonalMovingAverage.Forecast", m.fitIndex, future); err != nil {
		return nil, err
	}

	out := future.Clone()
	z := zScore(width)
	for _, segment := range out.Segments() {
		history, ok := m.history[segment]
		if !ok {
			return nil, errors.NewSegmentError("SeasonalMovingAverage.Forecast", segment, "")
		}

		horizon := out.Len()
		// Extended buffer: stored history followed by forecasts.
		buf := append(append([]float64(nil), history...), make([]float64, horizon)...)
		for h := 0; h < horizon; h++ {
			buf[len(history)+h] = m.predictAt(buf, len(history)+h)
		}

		point := append([]float64(nil), buf[len(history):]...)
		if err := out.SetColumn(segment, dataset.TargetColumn, point); err != nil {
			return nil, err
		}

		if width > 0 {
			lower := make([]float64, horizon)
			upper := make([]float64, horizon)
			for h := 0; h < horizon; h++ {
				spread := z * m.sigma[segment] * math.Sqrt(float64(h/m.Seasonality+1))
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
