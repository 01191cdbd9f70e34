package backtest

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/metrics"
	"github.com/YuminosukeSato/tsgo/models"
	"github.com/YuminosukeSato/tsgo/pipeline"
	"github.com/YuminosukeSato/tsgo/pkg/log"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func trendDataset(t *testing.T, n int) *dataset.TSDataset {
	t.Helper()
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	ds, err := dataset.FromSeries(testStart, dataset.Daily,
		dataset.Series{Name: "a", Values: values},
	)
	require.NoError(t, err)
	return ds
}

func TestBacktestExpanding(t *testing.T) {
	ds := trendDataset(t, 20)
	p := pipeline.New(models.NewNaive(), 2)

	result, err := Run(context.Background(), ds, p, Config{NFolds: 3})
	require.NoError(t, err)
	require.Len(t, result.Folds, 3)
	require.Len(t, result.Scores, 3)
	require.Len(t, result.Forecasts, 3)

	ix := ds.Index()
	// 20 points, 3 folds of horizon 2: the first training window spans
	// rows [0, 14) and every fold trains from the start.
	for i, fold := range result.Folds {
		assert.Equal(t, i, fold.Index)
		assert.True(t, fold.TrainStart.Equal(ix.At(0)), "fold %d", i)
		assert.True(t, fold.TrainEnd.Equal(ix.At(13+2*i)), "fold %d", i)
		assert.True(t, fold.TestStart.Equal(ix.At(14+2*i)), "fold %d", i)
		assert.True(t, fold.TestEnd.Equal(ix.At(15+2*i)), "fold %d", i)
	}

	// Naive carries the last training value; on y = t the truth runs one
	// and two steps ahead, so every fold scores MAE 1.5.
	for i, scores := range result.Scores {
		assert.InDelta(t, 1.5, scores["a"]["MAE"], 1e-9, "fold %d", i)
	}
	mean := result.MeanScores()
	assert.InDelta(t, 1.5, mean["a"]["MAE"], 1e-9)

	for i, fc := range result.Forecasts {
		require.NotNil(t, fc, "fold %d", i)
		assert.Equal(t, 2, fc.Len(), "fold %d", i)
		assert.True(t, fc.Index().Start.Equal(result.Folds[i].TestStart), "fold %d", i)
	}
}

func TestBacktestRolling(t *testing.T) {
	ds := trendDataset(t, 20)
	p := pipeline.New(models.NewNaive(), 2)

	result, err := Run(context.Background(), ds, p, Config{NFolds: 3, Mode: ModeRolling})
	require.NoError(t, err)

	ix := ds.Index()
	// The training window keeps its length and slides by one horizon.
	for i, fold := range result.Folds {
		assert.True(t, fold.TrainStart.Equal(ix.At(2*i)), "fold %d", i)
		assert.True(t, fold.TrainEnd.Equal(ix.At(13+2*i)), "fold %d", i)
	}
}

func TestBacktestCustomMetrics(t *testing.T) {
	ds := trendDataset(t, 20)
	p := pipeline.New(models.NewNaive(), 2)

	result, err := Run(context.Background(), ds, p, Config{
		NFolds:  2,
		Metrics: []metrics.Metric{{Name: "RMSE", Fn: metrics.RMSE}},
	})
	require.NoError(t, err)

	for _, scores := range result.Scores {
		_, hasRMSE := scores["a"]["RMSE"]
		_, hasMAE := scores["a"]["MAE"]
		assert.True(t, hasRMSE)
		assert.False(t, hasMAE)
	}
}

func TestBacktestValidation(t *testing.T) {
	ds := trendDataset(t, 20)
	p := pipeline.New(models.NewNaive(), 2)

	_, err := Run(context.Background(), ds, p, Config{NFolds: -1})
	assert.Error(t, err)
	_, err = Run(context.Background(), ds, p, Config{Mode: Mode("bogus")})
	assert.Error(t, err)
	_, err = Run(context.Background(), ds, nil, Config{})
	assert.Error(t, err)

	// 10 points cannot hold 5 folds of horizon 2 plus training data.
	short := trendDataset(t, 10)
	_, err = Run(context.Background(), short, p, Config{})
	assert.Error(t, err)
}

func TestBacktestWarnsOnDriftingFold(t *testing.T) {
	// A level shift inside the last test window makes that fold score far
	// above the cross-fold mean.
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i)
	}
	values[18] += 100
	values[19] += 100
	ds, err := dataset.FromSeries(testStart, dataset.Daily,
		dataset.Series{Name: "a", Values: values},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	p := pipeline.New(models.NewNaive(), 2)
	_, err = Run(context.Background(), ds, p, Config{NFolds: 3})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"type":"ForecastDriftWarning"`)
	assert.Contains(t, out, `"segment":"a"`)
	assert.Contains(t, out, `"fold":2`)
}

func TestBacktestSteadyFoldsStayQuiet(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	ds := trendDataset(t, 20)
	p := pipeline.New(models.NewNaive(), 2)
	_, err := Run(context.Background(), ds, p, Config{NFolds: 3})
	require.NoError(t, err)

	assert.NotContains(t, buf.String(), "ForecastDriftWarning")
}

func TestBacktestCancelledContext(t *testing.T) {
	ds := trendDataset(t, 20)
	p := pipeline.New(models.NewNaive(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, ds, p, Config{NFolds: 3})
	assert.ErrorIs(t, err, context.Canceled)
}
