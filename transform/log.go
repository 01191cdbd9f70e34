package transform

import (
	"math"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Log applies log1p to a column, with expm1 as the inverse. Values must be
// greater than -1.
type Log struct {
	model.BaseEstimator

	// InColumn is the column to transform. Defaults to the target.
	InColumn string
}

// NewLog creates a Log transform over the target column.
func NewLog() *Log {
	return &Log{InColumn: dataset.TargetColumn}
}

// Fit validates that the column exists and all values are in range.
func (l *Log) Fit(ds *dataset.TSDataset) error {
	if l.InColumn == "" {
		l.InColumn = dataset.TargetColumn
	}
	if err := requireColumn("Log.Fit", ds, l.InColumn); err != nil {
		return err
	}
	for _, segment := range ds.Segments() {
		values, err := ds.Column(segment, l.InColumn)
		if err != nil {
			return err
		}
		for _, v := range values {
			if !math.IsNaN(v) && v <= -1 {
				return errors.NewValueError("Log.Fit",
					"segment "+segment+" contains values <= -1")
			}
		}
	}
	l.SetFitted()
	return nil
}

// Transform applies log1p.
func (l *Log) Transform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("Log", "Transform")
	}
	return mapColumn(ds, l.InColumn, func(segment string, values []float64) ([]float64, error) {
		for i, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if v <= -1 {
				return nil, errors.NewValueError("Log.Transform",
					"segment "+segment+" contains values <= -1")
			}
			values[i] = math.Log1p(v)
		}
		return values, nil
	})
}

// InverseTransform applies expm1, including interval bound columns when the
// target was transformed.
func (l *Log) InverseTransform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("Log", "InverseTransform")
	}

	columns := []string{l.InColumn}
	if l.InColumn == dataset.TargetColumn {
		for _, bound := range []string{dataset.LowerColumn, dataset.UpperColumn} {
			if ds.HasColumn(bound) {
				columns = append(columns, bound)
			}
		}
	}

	out := ds.Clone()
	for _, column := range columns {
		var err error
		out, err = mapColumn(out, column, func(segment string, values []float64) ([]float64, error) {
			for i, v := range values {
				if !math.IsNaN(v) {
					values[i] = math.Expm1(v)
				}
			}
			return values, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
