// Package backtest evaluates a pipeline on historical data by refitting it
// over a sequence of time-based folds and scoring each fold's forecast
// against the held-out truth. Folds run fully in parallel: each one gets an
// unfitted clone of the pipeline.
package backtest

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/tsgo/core/parallel"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/metrics"
	"github.com/YuminosukeSato/tsgo/pipeline"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
	"github.com/YuminosukeSato/tsgo/pkg/log"
)

// Mode selects how the training window grows across folds.
type Mode string

const (
	// ModeExpanding grows the training window; every fold trains from the
	// start of the data.
	ModeExpanding Mode = "expanding"

	// ModeRolling keeps the training window at a constant length, sliding
	// it forward with each fold.
	ModeRolling Mode = "rolling"
)

// Config controls the fold layout and scoring.
type Config struct {
	// NFolds is the number of validation folds (default 5). Each fold's
	// test window spans one pipeline horizon.
	NFolds int

	// Mode is the training window strategy (default expanding).
	Mode Mode

	// Metrics are the scores computed per fold and segment (default
	// metrics.Defaults).
	Metrics []metrics.Metric
}

// Fold describes one train/test split on the time axis.
type Fold struct {
	Index      int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// Result is the backtest outcome: per-fold scores and forecasts plus the
// fold layout.
type Result struct {
	// Scores[i] holds fold i's metric values per segment.
	Scores []metrics.SegmentScores

	// Forecasts[i] is fold i's forecast over its test window.
	Forecasts []*dataset.TSDataset

	// Folds is the split layout.
	Folds []Fold
}

// MeanScores averages each segment's metric over the folds, skipping NaN
// fold values.
func (r *Result) MeanScores() metrics.SegmentScores {
	sums := make(map[string]map[string]float64)
	counts := make(map[string]map[string]int)
	for _, fold := range r.Scores {
		for segment, row := range fold {
			if sums[segment] == nil {
				sums[segment] = make(map[string]float64)
				counts[segment] = make(map[string]int)
			}
			for name, v := range row {
				if math.IsNaN(v) {
					continue
				}
				sums[segment][name] += v
				counts[segment][name]++
			}
		}
	}

	out := make(metrics.SegmentScores, len(sums))
	for segment, row := range sums {
		mean := make(map[string]float64, len(row))
		for name, sum := range row {
			if c := counts[segment][name]; c > 0 {
				mean[name] = sum / float64(c)
			} else {
				mean[name] = math.NaN()
			}
		}
		out[segment] = mean
	}
	return out
}

// Run backtests the pipeline over ts. The pipeline is never fitted itself;
// every fold fits its own clone, so folds can run concurrently. Run stops
// early when ctx is cancelled.
func Run(ctx context.Context, ts *dataset.TSDataset, p *pipeline.Pipeline, cfg Config) (*Result, error) {
	if cfg.NFolds == 0 {
		cfg.NFolds = 5
	}
	if cfg.NFolds < 1 {
		return nil, errors.NewValidationError("NFolds", "must be at least 1", cfg.NFolds)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeExpanding
	}
	if cfg.Mode != ModeExpanding && cfg.Mode != ModeRolling {
		return nil, errors.NewValidationError("Mode", "unknown mode", cfg.Mode)
	}
	if p == nil || p.Horizon < 1 {
		return nil, errors.NewValidationError("pipeline", "need a pipeline with a positive horizon", nil)
	}

	horizon := p.Horizon
	testSpan := cfg.NFolds * horizon
	minTrain := ts.Len() - testSpan
	if minTrain < 2*horizon {
		return nil, errors.Wrapf(errors.ErrInsufficientData,
			"backtest.Run: %d points cannot hold %d folds of horizon %d",
			ts.Len(), cfg.NFolds, horizon)
	}

	folds := layoutFolds(ts.Index(), cfg, horizon, minTrain)

	logger := log.With("backtest")
	logger.Info().
		Str(log.KeyOperation, "run").
		Int("folds", cfg.NFolds).
		Int(log.KeyHorizon, horizon).
		Str("mode", string(cfg.Mode)).
		Msg("backtest started")

	started := time.Now()
	result := &Result{
		Scores:    make([]metrics.SegmentScores, cfg.NFolds),
		Forecasts: make([]*dataset.TSDataset, cfg.NFolds),
		Folds:     folds,
	}

	runErr := parallel.ForEachErr(cfg.NFolds, func(i int) (err error) {
		defer errors.Recover(&err, "backtest.fold")

		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "backtest.Run")
		}

		trainStart, trainEnd := trainBounds(cfg.Mode, i, horizon, minTrain)
		train, err := ts.Slice(trainStart, trainEnd)
		if err != nil {
			return err
		}

		fp, err := p.Clone()
		if err != nil {
			return err
		}
		if err := fp.Fit(train); err != nil {
			return errors.Wrapf(err, "backtest.Run: fold %d", i)
		}
		forecast, err := fp.Forecast()
		if err != nil {
			return errors.Wrapf(err, "backtest.Run: fold %d", i)
		}

		scores, err := metrics.Evaluate(ts, forecast, cfg.Metrics)
		if err != nil {
			return errors.Wrapf(err, "backtest.Run: fold %d", i)
		}

		result.Scores[i] = scores
		result.Forecasts[i] = forecast

		logger.Debug().
			Str(log.KeyOperation, "fold").
			Int(log.KeyFold, i).
			Int(log.KeySamples, trainEnd-trainStart).
			Msg("fold completed")
		return nil
	})
	if runErr != nil {
		log.Err(logger.Error().Str(log.KeyOperation, "run"), runErr).
			Msg("backtest failed")
		return nil, runErr
	}

	warnDrift(result)

	logger.Info().
		Str(log.KeyOperation, "run").
		Int64(log.KeyDurationMs, time.Since(started).Milliseconds()).
		Msg("backtest finished")
	return result, nil
}

// driftRatio is how far above the cross-fold mean a fold score must sit to
// count as forecast drift.
const driftRatio = 2.0

// warnDrift flags folds whose score diverges from the cross-fold mean. With
// fewer than three folds the mean is too thin to call anything an outlier.
func warnDrift(result *Result) {
	if len(result.Scores) < 3 {
		return
	}
	mean := result.MeanScores()
	for segment, row := range mean {
		for metric, m := range row {
			if m <= 0 || math.IsNaN(m) {
				continue
			}
			for i, fold := range result.Scores {
				score, ok := fold[segment][metric]
				if !ok || math.IsNaN(score) {
					continue
				}
				if score > driftRatio*m {
					errors.Warn(errors.NewForecastDriftWarning(segment, metric, i, score, m))
				}
			}
		}
	}
}

// layoutFolds materializes the fold windows on the time axis.
func layoutFolds(ix dataset.TimeIndex, cfg Config, horizon, minTrain int) []Fold {
	folds := make([]Fold, cfg.NFolds)
	for i := range folds {
		trainStart, trainEnd := trainBounds(cfg.Mode, i, horizon, minTrain)
		folds[i] = Fold{
			Index:      i,
			TrainStart: ix.At(trainStart),
			TrainEnd:   ix.At(trainEnd - 1),
			TestStart:  ix.At(trainEnd),
			TestEnd:    ix.At(trainEnd + horizon - 1),
		}
	}
	return folds
}

// trainBounds returns the [start, end) training rows of fold i.
func trainBounds(mode Mode, i, horizon, minTrain int) (int, int) {
	end := minTrain + i*horizon
	if mode == ModeRolling {
		return i * horizon, end
	}
	return 0, end
}
