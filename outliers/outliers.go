// Package outliers detects anomalous points in a TSDataset's target. Every
// detector returns the anomalous timestamps per segment. NaN points are
// never flagged.
package outliers

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/models"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Anomalies maps segment -> anomalous timestamps, in chronological order.
type Anomalies map[string][]time.Time

// Median flags points deviating from their centered sliding-window median by
// more than alpha window standard deviations. Window must be at least 3;
// alpha is typically 3.
func Median(ds *dataset.TSDataset, window int, alpha float64) (Anomalies, error) {
	if window < 3 {
		return nil, errors.NewValidationError("window", "must be at least 3", window)
	}
	if alpha <= 0 {
		return nil, errors.NewValidationError("alpha", "must be positive", alpha)
	}

	ix := ds.Index()
	out := make(Anomalies)
	for _, segment := range ds.Segments() {
		target, err := ds.Target(segment)
		if err != nil {
			return nil, err
		}

		var hits []time.Time
		half := window / 2
		for t, v := range target {
			if math.IsNaN(v) {
				continue
			}
			lo := t - half
			if lo < 0 {
				lo = 0
			}
			hi := t + half + 1
			if hi > len(target) {
				hi = len(target)
			}

			values := cleanWindow(target[lo:hi])
			if len(values) < 2 {
				continue
			}
			med := median(values)
			sd := stat.StdDev(values, nil)
			if sd == 0 {
				continue
			}
			if math.Abs(v-med) > alpha*sd {
				hits = append(hits, ix.At(t))
			}
		}
		out[segment] = hits
	}
	return out, nil
}

// MAD flags points whose distance from the segment median exceeds alpha
// scaled median absolute deviations. The MAD is scaled by 1.4826 to be
// consistent with the standard deviation under normality.
func MAD(ds *dataset.TSDataset, alpha float64) (Anomalies, error) {
	if alpha <= 0 {
		return nil, errors.NewValidationError("alpha", "must be positive", alpha)
	}

	const madScale = 1.4826

	ix := ds.Index()
	out := make(Anomalies)
	for _, segment := range ds.Segments() {
		target, err := ds.Target(segment)
		if err != nil {
			return nil, err
		}

		values := cleanWindow(target)
		if len(values) < 2 {
			out[segment] = nil
			continue
		}
		med := median(values)

		deviations := make([]float64, len(values))
		for i, v := range values {
			deviations[i] = math.Abs(v - med)
		}
		mad := madScale * median(deviations)
		if mad == 0 {
			out[segment] = nil
			continue
		}

		var hits []time.Time
		for t, v := range target {
			if math.IsNaN(v) {
				continue
			}
			if math.Abs(v-med) > alpha*mad {
				hits = append(hits, ix.At(t))
			}
		}
		out[segment] = hits
	}
	return out, nil
}

// IntervalModel is a model that can reconstruct its training data with
// prediction intervals. SARIMA, AutoSARIMA, and Prophet qualify.
type IntervalModel interface {
	Fit(ds *dataset.TSDataset) error
	models.InSamplePredictor
}

// PredictionInterval fits the model on ds and flags points falling outside
// the model's in-sample prediction interval of the given width.
func PredictionInterval(ds *dataset.TSDataset, m IntervalModel, width float64) (Anomalies, error) {
	if width <= 0 || width >= 1 {
		return nil, errors.NewValidationError("width", "must be in (0, 1)", width)
	}

	if err := m.Fit(ds); err != nil {
		return nil, errors.Wrap(err, "outliers.PredictionInterval")
	}
	inSample, err := m.PredictInSample(width)
	if err != nil {
		return nil, errors.Wrap(err, "outliers.PredictionInterval")
	}

	ix := ds.Index()
	out := make(Anomalies)
	for _, segment := range ds.Segments() {
		target, err := ds.Target(segment)
		if err != nil {
			return nil, err
		}
		lower, err := inSample.Column(segment, dataset.LowerColumn)
		if err != nil {
			return nil, err
		}
		upper, err := inSample.Column(segment, dataset.UpperColumn)
		if err != nil {
			return nil, err
		}

		var hits []time.Time
		for t, v := range target {
			if math.IsNaN(v) || math.IsNaN(lower[t]) || math.IsNaN(upper[t]) {
				continue
			}
			if v < lower[t] || v > upper[t] {
				hits = append(hits, ix.At(t))
			}
		}
		out[segment] = hits
	}
	return out, nil
}

func cleanWindow(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
