package models

import (
	"math"
	"math/rand"
	"sync"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/core/parallel"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
	"github.com/YuminosukeSato/tsgo/pkg/log"
)

// Boosted fits a gradient-boosted tree ensemble per segment on lagged target
// values plus optional extra feature columns. Multi-step forecasts are
// recursive: each predicted step is fed back as the lag input of the next.
type Boosted struct {
	model.BaseEstimator

	// Lags are the target lags used as features, all at least 1. Required.
	Lags []int

	// Features are extra regressor columns. Future slabs must carry their
	// values for the forecast horizon.
	Features []string

	// NEstimators is the number of boosting rounds (default 100).
	NEstimators int

	// LearningRate shrinks each tree's contribution (default 0.1).
	LearningRate float64

	// MaxDepth limits tree depth (default 3).
	MaxDepth int

	// MinSamplesLeaf is the smallest leaf size (default 5).
	MinSamplesLeaf int

	// Subsample is the row fraction per round, in (0, 1] (default 1).
	Subsample float64

	// Seed feeds the subsampling source.
	Seed int64

	mu       sync.Mutex
	fitIndex dataset.TimeIndex
	boosters map[string]*gbdt
	history  map[string][]float64
	sigma    map[string]float64
}

// NewBoosted creates the model with default boosting parameters.
func NewBoosted(lags ...int) *Boosted {
	return &Boosted{
		Lags:           lags,
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 5,
		Subsample:      1,
	}
}

func (b *Boosted) maxLag() int {
	m := 0
	for _, lag := range b.Lags {
		if lag > m {
			m = lag
		}
	}
	return m
}

func (b *Boosted) params() gbdtParams {
	return gbdtParams{
		nEstimators:    b.NEstimators,
		learningRate:   b.LearningRate,
		maxDepth:       b.MaxDepth,
		minSamplesLeaf: b.MinSamplesLeaf,
		subsample:      b.Subsample,
	}
}

func (b *Boosted) validate() error {
	if len(b.Lags) == 0 {
		return errors.NewValidationError("Lags", "need at least one lag", b.Lags)
	}
	for _, lag := range b.Lags {
		if lag < 1 {
			return errors.NewValidationError("Lags", "lags must be at least 1", lag)
		}
	}
	if b.NEstimators < 1 {
		return errors.NewValidationError("NEstimators", "must be at least 1", b.NEstimators)
	}
	if b.LearningRate <= 0 {
		return errors.NewValidationError("LearningRate", "must be positive", b.LearningRate)
	}
	if b.MaxDepth < 1 {
		return errors.NewValidationError("MaxDepth", "must be at least 1", b.MaxDepth)
	}
	if b.Subsample <= 0 || b.Subsample > 1 {
		return errors.NewValidationError("Subsample", "must be in (0, 1]", b.Subsample)
	}
	return nil
}

// featureRow fills one feature row for a prediction at buffer position t:
// lagged values from buf, extra features from extra at row i.
func (b *Boosted) featureRow(row, buf []float64, t int, extra [][]float64, i int) {
	j := 0
	for _, lag := range b.Lags {
		row[j] = buf[t-lag]
		j++
	}
	for _, col := range extra {
		row[j] = col[i]
		j++
	}
}

// Fit trains one booster per segment, in parallel across segments. Each
// segment fit converts its own panics on the worker goroutine.
func (b *Boosted) Fit(ds *dataset.TSDataset) error {
	if err := b.validate(); err != nil {
		return err
	}
	maxLag := b.maxLag()
	if ds.Len() <= maxLag+2*b.MinSamplesLeaf {
		return errors.Wrapf(errors.ErrInsufficientData,
			"Boosted.Fit: need more than %d points", maxLag+2*b.MinSamplesLeaf)
	}

	logger := log.With("models")
	b.fitIndex = ds.Index()
	b.boosters = make(map[string]*gbdt)
	b.history = make(map[string][]float64)
	b.sigma = make(map[string]float64)

	nFeatures := len(b.Lags) + len(b.Features)
	segments := ds.Segments()
	fitErr := parallel.ForEachErr(len(segments), func(idx int) error {
		segment := segments[idx]
		return errors.SafeExecute("Boosted.Fit", func() error {
			target, err := ds.Target(segment)
			if err != nil {
				return err
			}
			if err := cleanSeries("Boosted.Fit", segment, target); err != nil {
				return err
			}
			extra, err := b.extraColumns(ds, segment)
			if err != nil {
				return err
			}

			// Rows with complete lag windows and features only.
			var X [][]float64
			var y []float64
			for t := maxLag; t < len(target); t++ {
				row := make([]float64, nFeatures)
				b.featureRow(row, target, t, extra, t)
				if hasNaN(row) {
					continue
				}
				X = append(X, row)
				y = append(y, target[t])
			}
			if len(y) <= 2*b.MinSamplesLeaf {
				return errors.Wrapf(errors.ErrInsufficientData,
					"Boosted.Fit: segment %q has %d usable rows", segment, len(y))
			}

			rng := rand.New(rand.NewSource(b.Seed))
			booster, err := fitGBDT(X, y, b.params(), rng)
			if err != nil {
				return errors.Wrapf(err, "Boosted.Fit: segment %q", segment)
			}

			// Tree traversal is read-only, so the residual rows are
			// independent.
			residuals := make([]float64, len(y))
			parallel.Parallelize(len(y), func(start, end int) {
				for i := start; i < end; i++ {
					residuals[i] = y[i] - booster.predict(X[i])
				}
			})

			b.mu.Lock()
			b.boosters[segment] = booster
			b.history[segment] = tail(target, maxLag)
			b.sigma[segment] = residualStd(residuals)
			b.mu.Unlock()

			logger.Debug().
				Str(log.KeyOperation, "fit").
				Str(log.KeyModel, "Boosted").
				Str(log.KeySegment, segment).
				Int(log.KeySamples, len(y)).
				Msg("segment fitted")
			return nil
		})
	})
	if fitErr != nil {
		return fitErr
	}

	b.SetFitted()
	return nil
}

func (b *Boosted) extraColumns(ds *dataset.TSDataset, segment string) ([][]float64, error) {
	extra := make([][]float64, len(b.Features))
	for i, name := range b.Features {
		col, err := ds.Column(segment, name)
		if err != nil {
			return nil, err
		}
		extra[i] = col
	}
	return extra, nil
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Forecast predicts the future slab recursively.
func (b *Boosted) Forecast(future *dataset.TSDataset) (*dataset.TSDataset, error) {
	return b.forecast(future, 0)
}

// ForecastWithInterval adds normal-approximation bounds widening with the
// horizon.
func (b *Boosted) ForecastWithInterval(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	return b.forecast(future, width)
}

func (b *Boosted) forecast(future *dataset.TSDataset, width float64) (*dataset.TSDataset, error) {
	if !b.IsFitted() {
		return nil, errors.NewNotFittedError("Boosted", "Forecast")
	}
	if err := checkContinues("Boosted.Forecast", b.fitIndex, future); err != nil {
		return nil, err
	}

	out := future.Clone()
	horizon := out.Len()
	z := zScore(width)
	maxLag := b.maxLag()
	nFeatures := len(b.Lags) + len(b.Features)

	for _, segment := range out.Segments() {
		booster, ok := b.boosters[segment]
		if !ok {
			return nil, errors.NewSegmentError("Boosted.Forecast", segment, "")
		}
		extra, err := b.extraColumns(out, segment)
		if err != nil {
			return nil, err
		}
		for _, col := range extra {
			if hasNaN(col) {
				return nil, errors.NewValueError("Boosted.Forecast",
					"feature columns of the future slab contain NaN for segment "+segment)
			}
		}

		buf := append(append([]float64(nil), b.history[segment]...), make([]float64, horizon)...)
		row := make([]float64, nFeatures)
		point := make([]float64, horizon)
		for h := 0; h < horizon; h++ {
			b.featureRow(row, buf, maxLag+h, extra, h)
			point[h] = booster.predict(row)
			buf[maxLag+h] = point[h]
		}
		if err := out.SetColumn(segment, dataset.TargetColumn, point); err != nil {
			return nil, err
		}

		if width > 0 {
			lower := make([]float64, horizon)
			upper := make([]float64, horizon)
			for h := 0; h < horizon; h++ {
				spread := z * b.sigma[segment] * math.Sqrt(float64(h+1))
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
