package transform

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Rolling statistics supported by the Rolling transform.
const (
	RollingMean = "mean"
	RollingStd  = "std"
	RollingMin  = "min"
	RollingMax  = "max"
)

// Rolling writes trailing-window statistic columns:
// "<in>_rolling_<stat>_<window>". Rows before the window fills are NaN, as
// is any window containing NaN.
type Rolling struct {
	model.BaseEstimator

	// InColumn is the column to aggregate. Defaults to the target.
	InColumn string

	// Window is the trailing window length, at least 2.
	Window int

	// Stats selects the statistics to compute. Defaults to mean.
	Stats []string
}

// NewRolling creates a rolling-mean transform over the target column.
func NewRolling(window int) *Rolling {
	return &Rolling{InColumn: dataset.TargetColumn, Window: window, Stats: []string{RollingMean}}
}

// ColumnName returns the output column name for one statistic.
func (r *Rolling) ColumnName(stat string) string {
	return fmt.Sprintf("%s_rolling_%s_%d", r.InColumn, stat, r.Window)
}

// Fit validates the window, statistics, and input column.
func (r *Rolling) Fit(ds *dataset.TSDataset) error {
	if r.InColumn == "" {
		r.InColumn = dataset.TargetColumn
	}
	if len(r.Stats) == 0 {
		r.Stats = []string{RollingMean}
	}
	if r.Window < 2 {
		return errors.NewValidationError("Window", "must be at least 2", r.Window)
	}
	for _, stat := range r.Stats {
		switch stat {
		case RollingMean, RollingStd, RollingMin, RollingMax:
		default:
			return errors.NewValidationError("Stats", "unknown statistic", stat)
		}
	}
	if err := requireColumn("Rolling.Fit", ds, r.InColumn); err != nil {
		return err
	}
	r.SetFitted()
	return nil
}

// Transform adds the rolling statistic columns.
func (r *Rolling) Transform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Rolling", "Transform")
	}

	out := ds.Clone()
	for _, segment := range out.Segments() {
		values, err := out.Column(segment, r.InColumn)
		if err != nil {
			return nil, err
		}
		for _, stat := range r.Stats {
			col := rollingStat(values, r.Window, stat)
			if err := out.SetColumn(segment, r.ColumnName(stat), col); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// InverseTransform drops the generated columns and returns the rest
// unchanged.
func (r *Rolling) InverseTransform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Rolling", "InverseTransform")
	}
	out := ds.Clone()
	for _, stat := range r.Stats {
		if err := out.DropColumn(r.ColumnName(stat)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func rollingStat(values []float64, window int, stat string) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = windowStat(values[i-window+1:i+1], stat)
	}
	return out
}

func windowStat(window []float64, stat string) float64 {
	var sum float64
	minV := math.Inf(1)
	maxV := math.Inf(-1)
	for _, v := range window {
		if math.IsNaN(v) {
			return math.NaN()
		}
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	n := float64(len(window))
	switch stat {
	case RollingMean:
		return sum / n
	case RollingStd:
		mean := sum / n
		var ss float64
		for _, v := range window {
			diff := v - mean
			ss += diff * diff
		}
		return math.Sqrt(ss / n)
	case RollingMin:
		return minV
	case RollingMax:
		return maxV
	}
	return math.NaN()
}
