package models

import (
	"math"
	"sync"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/core/parallel"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Naive forecasts the value observed Lag steps back. Lag 1 repeats the last
// observation; Lag equal to the seasonal period gives the seasonal naive
// model.
type Naive struct {
	model.BaseEstimator

	// Lag is the repeat offset, at least 1.
	Lag int

	mu       sync.Mutex
	fitIndex dataset.TimeIndex
	history  map[string][]float64
	sigma    map[string]float64
}

// NewNaive creates a lag-1 naive model.
func NewNaive() *Naive {
	return &Naive{Lag: 1}
}

// Fit stores the trailing history of every segment and the one-step
// residual spread used for intervals.
func (n *Naive) Fit(ds *dataset.TSDataset) error {
	if n.Lag < 1 {
		return errors.NewValidationError("Lag", "must be at least 1", n.Lag)
	}
	if ds.Len() <= n.Lag {
		return errors.Wrapf(errors.ErrInsufficientData, "Naive.Fit: need more than %d points", n.Lag)
	}

	n.fitIndex = ds.Index()
	n.history = make(map[string][]float64)
	n.sigma = make(map[string]float64)

	segments := ds.Segments()
	err := parallel.ForEachErr(len(segments), func(i int) error {
		segment := segments[i]
		target, err := ds.Target(segment)
		if err != nil {
			return err
		}
		if err := cleanSeries("Naive.Fit", segment, target); err != nil {
			return err
		}

		residuals := make([]float64, 0, len(target)-n.Lag)
		for t := n.Lag; t < len(target); t++ {
			residuals = append(residuals, target[t]-target[t-n.Lag])
		}

		n.setSegment(segment, tail(target, n.Lag), residualStd(residuals))
		return nil
	})
	if err != nil {
		return err
	}

	n.SetFitted()
	return nil
}

func (n *Naive) setSegment(segment string, history []float64, sigma float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.history[segment] = history
	n.sigma[segment] = sigma
}

// Forecast repeats the stored history cyclically over the horizon.
func (n *Naive) Forecast(future *dataset.TSDataset) (*dataset.TSDataset, error) {
	return n.forecast(future, 0)
}

// ForecastWithInterval adds normal-approximation bounds that widen with the
// number of completed lag cycles.
func (n *Naive) ForecastWithInterval(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	return n.forecast(future, width)
}

func (n *Naive) forecast(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	if !n.IsFitted() {
		return nil, errors.NewNotFittedError("Naive", "Forecast")
	}
	if err := checkContinues("Naive.Forecast", n.fitIndex, future); err != nil {
		return nil, err
	}

	out := future.Clone()
	z := zScore(width)
	for _, segment := range out.Segments() {
		history, ok := n.history[segment]
		if !ok {
			return nil, errors.NewSegmentError("Naive.Forecast", segment, "")
		}

		horizon := out.Len()
		point := make([]float64, horizon)
		for h := 0; h < horizon; h++ {
			point[h] = history[h%n.Lag]
		}
		if err := out.SetColumn(segment, dataset.TargetColumn, point); err != nil {
			return nil, err
		}

		if width > 0 {
			lower := make([]float64, horizon)
			upper := make([]float64, horizon)
			for h := 0; h < horizon; h++ {
				// Error variance grows linearly with completed cycles.
				k := float64(h/n.Lag + 1)
				spread := z * n.sigma[segment] * math.Sqrt(k)
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
