package transform

import (
	"math"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// StandardScaler scales a column to zero mean and unit variance, per
// segment. NaN values pass through untouched.
type StandardScaler struct {
	model.BaseEstimator

	// InColumn is the column to scale. Defaults to the target.
	InColumn string

	// WithMean controls subtracting the mean (default true via
	// NewStandardScaler).
	WithMean bool

	// WithStd controls dividing by the standard deviation.
	WithStd bool

	mean  map[string]float64
	scale map[string]float64
}

// NewStandardScaler creates a StandardScaler over the target column.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{InColumn: dataset.TargetColumn, WithMean: true, WithStd: true}
}

// Fit computes per-segment mean and standard deviation over non-NaN values.
func (s *StandardScaler) Fit(ds *dataset.TSDataset) error {
	if s.InColumn == "" {
		s.InColumn = dataset.TargetColumn
	}
	if err := requireColumn("StandardScaler.Fit", ds, s.InColumn); err != nil {
		return err
	}

	s.mean = make(map[string]float64)
	s.scale = make(map[string]float64)

	for _, segment := range ds.Segments() {
		values, err := ds.Column(segment, s.InColumn)
		if err != nil {
			return err
		}

		var sum float64
		count := 0
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			sum += v
			count++
		}
		if count == 0 {
			return errors.NewModelError("StandardScaler.Fit",
				"segment "+segment+" has no observations", errors.ErrEmptyData)
		}

		mean := 0.0
		if s.WithMean {
			mean = sum / float64(count)
		}

		scale := 1.0
		if s.WithStd {
			var sumSquares float64
			for _, v := range values {
				if math.IsNaN(v) {
					continue
				}
				diff := v - sum/float64(count)
				sumSquares += diff * diff
			}
			scale = math.Sqrt(sumSquares / float64(count))
			// Constant segments would divide by zero.
			if math.Abs(scale) < 1e-8 {
				scale = 1.0
			}
		}

		s.mean[segment] = mean
		s.scale[segment] = scale
	}

	s.SetFitted()
	return nil
}

// Transform scales the configured column.
func (s *StandardScaler) Transform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	return s.apply(ds, func(segment string, v float64) float64 {
		return (v - s.mean[segment]) / s.scale[segment]
	}, []string{s.InColumn})
}

// InverseTransform restores the original scale. When the scaled column is
// the target, interval bound columns present in the dataset are restored
// too.
func (s *StandardScaler) InverseTransform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}
	return s.apply(ds, func(segment string, v float64) float64 {
		return v*s.scale[segment] + s.mean[segment]
	}, s.columnsWithBounds(ds))
}

func (s *StandardScaler) columnsWithBounds(ds *dataset.TSDataset) []string {
	columns := []string{s.InColumn}
	if s.InColumn == dataset.TargetColumn {
		for _, bound := range []string{dataset.LowerColumn, dataset.UpperColumn} {
			if ds.HasColumn(bound) {
				columns = append(columns, bound)
			}
		}
	}
	return columns
}

func (s *StandardScaler) apply(ds *dataset.TSDataset, fn func(segment string, v float64) float64, columns []string) (*dataset.TSDataset, error) {
	out := ds.Clone()
	for _, column := range columns {
		var err error
		out, err = mapColumn(out, column, func(segment string, values []float64) ([]float64, error) {
			if _, ok := s.mean[segment]; !ok {
				return nil, errors.NewSegmentError("StandardScaler", segment, "")
			}
			for i, v := range values {
				if !math.IsNaN(v) {
					values[i] = fn(segment, v)
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

// MinMaxScaler scales a column to a fixed range, per segment.
type MinMaxScaler struct {
	model.BaseEstimator

	// InColumn is the column to scale. Defaults to the target.
	InColumn string

	// FeatureRange is the output range, default [0, 1].
	FeatureRange [2]float64

	dataMin map[string]float64
	scale   map[string]float64
}

// NewMinMaxScaler creates a MinMaxScaler over the target with range [0, 1].
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{InColumn: dataset.TargetColumn, FeatureRange: [2]float64{0, 1}}
}

// Fit computes per-segment minimum and range over non-NaN values.
func (m *MinMaxScaler) Fit(ds *dataset.TSDataset) error {
	if m.InColumn == "" {
		m.InColumn = dataset.TargetColumn
	}
	if m.FeatureRange[1] <= m.FeatureRange[0] {
		return errors.NewValidationError("FeatureRange", "max must exceed min", m.FeatureRange)
	}
	if err := requireColumn("MinMaxScaler.Fit", ds, m.InColumn); err != nil {
		return err
	}

	m.dataMin = make(map[string]float64)
	m.scale = make(map[string]float64)

	for _, segment := range ds.Segments() {
		values, err := ds.Column(segment, m.InColumn)
		if err != nil {
			return err
		}

		minV := math.Inf(1)
		maxV := math.Inf(-1)
		count := 0
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
			count++
		}
		if count == 0 {
			return errors.NewModelError("MinMaxScaler.Fit",
				"segment "+segment+" has no observations", errors.ErrEmptyData)
		}

		scale := maxV - minV
		if math.Abs(scale) < 1e-8 {
			scale = 1.0
		}
		m.dataMin[segment] = minV
		m.scale[segment] = scale
	}

	m.SetFitted()
	return nil
}

// Transform scales the configured column into FeatureRange.
func (m *MinMaxScaler) Transform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "Transform")
	}
	span := m.FeatureRange[1] - m.FeatureRange[0]
	return m.apply(ds, func(segment string, v float64) float64 {
		return (v-m.dataMin[segment])/m.scale[segment]*span + m.FeatureRange[0]
	}, []string{m.InColumn})
}

// InverseTransform restores the original range, including interval bound
// columns when the target was scaled.
func (m *MinMaxScaler) InverseTransform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "InverseTransform")
	}
	span := m.FeatureRange[1] - m.FeatureRange[0]
	columns := []string{m.InColumn}
	if m.InColumn == dataset.TargetColumn {
		for _, bound := range []string{dataset.LowerColumn, dataset.UpperColumn} {
			if ds.HasColumn(bound) {
				columns = append(columns, bound)
			}
		}
	}
	return m.apply(ds, func(segment string, v float64) float64 {
		return (v-m.FeatureRange[0])/span*m.scale[segment] + m.dataMin[segment]
	}, columns)
}

func (m *MinMaxScaler) apply(ds *dataset.TSDataset, fn func(segment string, v float64) float64, columns []string) (*dataset.TSDataset, error) {
	out := ds.Clone()
	for _, column := range columns {
		var err error
		out, err = mapColumn(out, column, func(segment string, values []float64) ([]float64, error) {
			if _, ok := m.dataMin[segment]; !ok {
				return nil, errors.NewSegmentError("MinMaxScaler", segment, "")
			}
			for i, v := range values {
				if !math.IsNaN(v) {
					values[i] = fn(segment, v)
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
