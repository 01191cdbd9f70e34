package transform

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Lag writes one feature column per configured lag:
// "<in>_lag_<k>" holds the value of the input column k steps earlier, with
// NaN for the first k rows.
type Lag struct {
	model.BaseEstimator

	// InColumn is the column to lag. Defaults to the target.
	InColumn string

	// Lags are the lag offsets, each at least 1.
	Lags []int
}

// NewLag creates a Lag transform over the target column.
func NewLag(lags ...int) *Lag {
	return &Lag{InColumn: dataset.TargetColumn, Lags: lags}
}

// ColumnName returns the output column name for one lag.
func (l *Lag) ColumnName(k int) string {
	return fmt.Sprintf("%s_lag_%d", l.InColumn, k)
}

// Fit validates the lags and the input column.
func (l *Lag) Fit(ds *dataset.TSDataset) error {
	if l.InColumn == "" {
		l.InColumn = dataset.TargetColumn
	}
	if len(l.Lags) == 0 {
		return errors.NewValidationError("Lags", "must not be empty", l.Lags)
	}
	for _, k := range l.Lags {
		if k < 1 {
			return errors.NewValidationError("Lags", "each lag must be at least 1", k)
		}
	}
	if err := requireColumn("Lag.Fit", ds, l.InColumn); err != nil {
		return err
	}
	l.SetFitted()
	return nil
}

// Transform adds the lag columns.
func (l *Lag) Transform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("Lag", "Transform")
	}

	out := ds.Clone()
	for _, segment := range out.Segments() {
		values, err := out.Column(segment, l.InColumn)
		if err != nil {
			return nil, err
		}
		for _, k := range l.Lags {
			lagged := make([]float64, len(values))
			for i := range lagged {
				if i < k {
					lagged[i] = math.NaN()
				} else {
					lagged[i] = values[i-k]
				}
			}
			if err := out.SetColumn(segment, l.ColumnName(k), lagged); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// InverseTransform drops the generated columns and returns the rest
// unchanged.
func (l *Lag) InverseTransform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("Lag", "InverseTransform")
	}
	out := ds.Clone()
	for _, k := range l.Lags {
		if err := out.DropColumn(l.ColumnName(k)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
