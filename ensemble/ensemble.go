// Package ensemble combines the forecasts of several pipelines into one. All
// pipelines must share the same horizon; fitting and forecasting run the
// members in parallel.
package ensemble

import (
	"github.com/YuminosukeSato/tsgo/core/parallel"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pipeline"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
	"github.com/YuminosukeSato/tsgo/pkg/log"
)

// Ensemble averages member pipeline forecasts, optionally weighted.
type Ensemble struct {
	pipelines []*pipeline.Pipeline
	weights   []float64
	fitted    bool
}

// NewMean creates an equally weighted ensemble. At least two pipelines are
// required and their horizons must match.
func NewMean(pipelines ...*pipeline.Pipeline) (*Ensemble, error) {
	weights := make([]float64, len(pipelines))
	for i := range weights {
		weights[i] = 1
	}
	return NewWeighted(weights, pipelines...)
}

// NewWeighted creates a weighted ensemble. Weights must be positive and are
// normalized to sum to one.
func NewWeighted(weights []float64, pipelines ...*pipeline.Pipeline) (*Ensemble, error) {
	if len(pipelines) < 2 {
		return nil, errors.NewValidationError("pipelines",
			"an ensemble needs at least two pipelines", len(pipelines))
	}
	if len(weights) != len(pipelines) {
		return nil, errors.NewDimensionError("ensemble.NewWeighted",
			len(pipelines), len(weights), 0)
	}

	horizon := pipelines[0].Horizon
	for _, p := range pipelines {
		if p == nil {
			return nil, errors.NewValidationError("pipelines", "nil pipeline", nil)
		}
		if p.Horizon != horizon {
			return nil, errors.NewValidationError("pipelines",
				"all pipelines must share one horizon", p.Horizon)
		}
	}

	var total float64
	for _, w := range weights {
		if err := errors.CheckScalar("ensemble.NewWeighted", w, 0); err != nil {
			return nil, err
		}
		if w <= 0 {
			return nil, errors.NewValidationError("weights", "must be positive", w)
		}
		total += w
	}
	normalized := make([]float64, len(weights))
	for i, w := range weights {
		normalized[i] = w / total
	}

	return &Ensemble{pipelines: pipelines, weights: normalized}, nil
}

// Horizon returns the shared forecast horizon.
func (e *Ensemble) Horizon() int {
	return e.pipelines[0].Horizon
}

// Fit fits every member pipeline in parallel.
func (e *Ensemble) Fit(ds *dataset.TSDataset) error {
	err := parallel.ForEachErr(len(e.pipelines), func(i int) error {
		if err := e.pipelines[i].Fit(ds); err != nil {
			return errors.Wrapf(err, "ensemble.Fit: pipeline %d", i)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.fitted = true

	logger := log.With("ensemble")
	logger.Debug().
		Str(log.KeyOperation, "fit").
		Int("pipelines", len(e.pipelines)).
		Msg("ensemble fitted")
	return nil
}

// Forecast produces the weighted mean of the member forecasts.
func (e *Ensemble) Forecast() (*dataset.TSDataset, error) {
	if !e.fitted {
		return nil, errors.NewNotFittedError("Ensemble", "Forecast")
	}

	forecasts := make([]*dataset.TSDataset, len(e.pipelines))
	err := parallel.ForEachErr(len(e.pipelines), func(i int) error {
		fc, err := e.pipelines[i].Forecast()
		if err != nil {
			return errors.Wrapf(err, "ensemble.Forecast: pipeline %d", i)
		}
		forecasts[i] = fc
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := forecasts[0].Clone()
	for _, segment := range out.Segments() {
		combined := make([]float64, out.Len())
		for i, fc := range forecasts {
			target, err := fc.Target(segment)
			if err != nil {
				return nil, err
			}
			if len(target) != len(combined) {
				return nil, errors.NewDimensionError("ensemble.Forecast",
					len(combined), len(target), 0)
			}
			for t, v := range target {
				combined[t] += e.weights[i] * v
			}
		}
		if err := out.SetColumn(segment, dataset.TargetColumn, combined); err != nil {
			return nil, err
		}
	}
	return out, nil
}
