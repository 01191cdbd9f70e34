// Package pipeline composes transforms and a forecasting model into one
// fit/forecast unit with a fixed horizon. Forecasting extends the fitted
// history so feature transforms can populate the future rows, runs the
// model, and undoes the transforms on the result.
package pipeline

import (
	"time"

	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/models"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
	"github.com/YuminosukeSato/tsgo/pkg/log"
	"github.com/YuminosukeSato/tsgo/transform"
)

// Pipeline binds a model, its feature transforms, and the forecast horizon.
type Pipeline struct {
	// Model is the forecaster. Required.
	Model models.Forecaster

	// Transforms run in order before the model; their inverse runs in
	// reverse order on the forecast.
	Transforms []transform.Transform

	// Horizon is the number of steps every forecast covers, at least 1.
	Horizon int

	chain  *transform.Chain
	raw    *dataset.TSDataset
	fitted bool
}

// New creates a pipeline.
func New(model models.Forecaster, horizon int, transforms ...transform.Transform) *Pipeline {
	return &Pipeline{Model: model, Transforms: transforms, Horizon: horizon}
}

func (p *Pipeline) validate() error {
	if p.Model == nil {
		return errors.NewValidationError("Model", "must not be nil", nil)
	}
	if p.Horizon < 1 {
		return errors.NewValidationError("Horizon", "must be at least 1", p.Horizon)
	}
	return nil
}

// Fit fits the transforms, then the model on the transformed dataset. The
// raw dataset is retained for forecasting.
func (p *Pipeline) Fit(ds *dataset.TSDataset) error {
	if err := p.validate(); err != nil {
		return err
	}

	started := time.Now()
	p.raw = ds.Clone()
	p.chain = transform.NewChain(p.Transforms...)

	if err := p.chain.Fit(ds); err != nil {
		return err
	}
	transformed, err := p.chain.Transform(ds)
	if err != nil {
		return err
	}
	if err := p.Model.Fit(transformed); err != nil {
		return err
	}
	p.fitted = true

	logger := log.With("pipeline")
	logger.Debug().
		Str(log.KeyOperation, "fit").
		Int(log.KeyHorizon, p.Horizon).
		Int(log.KeySegments, len(ds.Segments())).
		Int64(log.KeyDurationMs, time.Since(started).Milliseconds()).
		Msg("pipeline fitted")
	return nil
}

// Forecast produces the point forecast over the pipeline horizon, on the
// original scale.
func (p *Pipeline) Forecast() (*dataset.TSDataset, error) {
	return p.forecast(0)
}

// ForecastWithInterval produces the forecast with prediction intervals at
// the given central coverage width. The model must support intervals.
func (p *Pipeline) ForecastWithInterval(width float64) (*dataset.TSDataset, error) {
	if width <= 0 || width >= 1 {
		return nil, errors.NewValidationError("width", "must be in (0, 1)", width)
	}
	return p.forecast(width)
}

func (p *Pipeline) forecast(width float64) (*dataset.TSDataset, error) {
	if !p.fitted {
		return nil, errors.NewNotFittedError("Pipeline", "Forecast")
	}

	// Transforms run over history plus future in one frame, so lag and
	// rolling features of the future rows come from real history.
	extended, err := p.raw.ExtendBy(p.Horizon)
	if err != nil {
		return nil, err
	}
	transformed, err := p.chain.Transform(extended)
	if err != nil {
		return nil, err
	}
	future, err := transformed.Slice(p.raw.Len(), p.raw.Len()+p.Horizon)
	if err != nil {
		return nil, err
	}

	var forecast *dataset.TSDataset
	if width > 0 {
		interval, ok := p.Model.(models.IntervalForecaster)
		if !ok {
			return nil, errors.Wrap(errors.ErrNotImplemented,
				"Pipeline.ForecastWithInterval: model does not produce prediction intervals")
		}
		forecast, err = interval.ForecastWithInterval(future, width)
	} else {
		forecast, err = p.Model.Forecast(future)
	}
	if err != nil {
		return nil, err
	}

	return p.chain.InverseTransform(forecast)
}

// Clone returns an unfitted copy of the pipeline. The model must implement
// models.Cloneable.
func (p *Pipeline) Clone() (*Pipeline, error) {
	cloneable, ok := p.Model.(models.Cloneable)
	if !ok {
		return nil, errors.NewValueError("Pipeline.Clone",
			"model does not support cloning")
	}
	transforms := make([]transform.Transform, len(p.Transforms))
	for i, t := range p.Transforms {
		transforms[i] = t.Clone()
	}
	return &Pipeline{
		Model:      cloneable.CloneUnfitted(),
		Transforms: transforms,
		Horizon:    p.Horizon,
	}, nil
}
