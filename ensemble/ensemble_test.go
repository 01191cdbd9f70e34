package ensemble

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/models"
	"github.com/YuminosukeSato/tsgo/pipeline"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func trendDataset(t *testing.T, n int) *dataset.TSDataset {
	t.Helper()
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i + 1)
	}
	ds, err := dataset.FromSeries(testStart, dataset.Daily,
		dataset.Series{Name: "a", Values: values},
	)
	require.NoError(t, err)
	return ds
}

func members(horizon int) (*pipeline.Pipeline, *pipeline.Pipeline) {
	return pipeline.New(models.NewNaive(), horizon),
		pipeline.New(models.NewMovingAverage(2), horizon)
}

func TestEnsembleMeanForecast(t *testing.T) {
	ds := trendDataset(t, 10)
	naive, ma := members(2)

	e, err := NewMean(naive, ma)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Horizon())

	require.NoError(t, e.Fit(ds))
	fc, err := e.Forecast()
	require.NoError(t, err)

	target, err := fc.Target("a")
	require.NoError(t, err)
	// Naive repeats 10; the moving average forecasts 9.5 then 9.75.
	assert.InDelta(t, 9.75, target[0], 1e-9)
	assert.InDelta(t, 9.875, target[1], 1e-9)
}

func TestEnsembleWeightedForecast(t *testing.T) {
	ds := trendDataset(t, 10)
	naive, ma := members(2)

	e, err := NewWeighted([]float64{3, 1}, naive, ma)
	require.NoError(t, err)

	require.NoError(t, e.Fit(ds))
	fc, err := e.Forecast()
	require.NoError(t, err)

	target, err := fc.Target("a")
	require.NoError(t, err)
	assert.InDelta(t, 0.75*10+0.25*9.5, target[0], 1e-9)
	assert.InDelta(t, 0.75*10+0.25*9.75, target[1], 1e-9)
}

func TestEnsembleValidation(t *testing.T) {
	naive, ma := members(2)

	_, err := NewMean(naive)
	assert.Error(t, err)

	mismatched := pipeline.New(models.NewNaive(), 3)
	_, err = NewMean(naive, mismatched)
	assert.Error(t, err)

	_, err = NewWeighted([]float64{1}, naive, ma)
	assert.Error(t, err)
	_, err = NewWeighted([]float64{1, 0}, naive, ma)
	assert.Error(t, err)
	_, err = NewWeighted([]float64{1, -2}, naive, ma)
	assert.Error(t, err)

	// A NaN weight is not caught by the sign check.
	_, err = NewWeighted([]float64{1, math.NaN()}, naive, ma)
	assert.Error(t, err)
	var instErr *errors.NumericalInstabilityError
	assert.ErrorAs(t, err, &instErr)
}

func TestEnsembleNotFitted(t *testing.T) {
	naive, ma := members(2)
	e, err := NewMean(naive, ma)
	require.NoError(t, err)

	_, err = e.Forecast()
	assert.Error(t, err)
}
