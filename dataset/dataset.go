// Package dataset provides TSDataset, the wide-format time-series container
// the rest of the library operates on: one shared, evenly spaced timestamp
// index and a set of named segments, each with a target column and arbitrary
// numeric feature columns. Missing values are NaN.
package dataset

import (
	"math"
	"sort"
	"time"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Reserved column names.
const (
	// TargetColumn is the series every model forecasts.
	TargetColumn = "target"

	// LowerColumn and UpperColumn hold prediction interval bounds written
	// by interval-capable models.
	LowerColumn = "target_lower"
	UpperColumn = "target_upper"
)

// Series is a single named target series, used by the FromSeries
// constructor.
type Series struct {
	Name   string
	Values []float64
}

// TSDataset is a panel of segments over a shared time index.
//
// The zero value is not usable; construct through New, FromSeries, or
// LoadCSV. Accessors return copies, so callers cannot corrupt the panel
// through returned slices.
type TSDataset struct {
	index    TimeIndex
	segments map[string]map[string][]float64
	names    []string
}

// New creates a TSDataset from a segment -> column -> values mapping.
// Every segment must carry a target column and every column must match the
// index length.
func New(index TimeIndex, segments map[string]map[string][]float64) (*TSDataset, error) {
	// The index may be caller-constructed, bypassing NewTimeIndex.
	if index.Freq <= 0 {
		return nil, errors.NewValidationError("index", "frequency must be positive", index.Freq)
	}
	if index.N < 0 {
		return nil, errors.NewValidationError("index", "length must be non-negative", index.N)
	}
	if len(segments) == 0 {
		return nil, errors.NewModelError("dataset.New", "no segments", errors.ErrEmptyData)
	}

	ds := &TSDataset{
		index:    index,
		segments: make(map[string]map[string][]float64, len(segments)),
		names:    make([]string, 0, len(segments)),
	}

	for name, columns := range segments {
		if _, ok := columns[TargetColumn]; !ok {
			return nil, errors.NewSegmentError("dataset.New", name, TargetColumn)
		}
		dst := make(map[string][]float64, len(columns))
		for col, values := range columns {
			if len(values) != index.N {
				return nil, errors.NewDimensionError("dataset.New", index.N, len(values), 0)
			}
			dst[col] = append([]float64(nil), values...)
		}
		ds.segments[name] = dst
		ds.names = append(ds.names, name)
	}
	sort.Strings(ds.names)

	return ds, nil
}

// FromSeries builds a single-column dataset from one or more target series
// starting at start with the given frequency. All series must have equal
// length.
func FromSeries(start time.Time, freq time.Duration, series ...Series) (*TSDataset, error) {
	if len(series) == 0 {
		return nil, errors.NewModelError("dataset.FromSeries", "no series", errors.ErrEmptyData)
	}
	n := len(series[0].Values)
	for _, s := range series {
		if len(s.Values) != n {
			return nil, errors.NewDimensionError("dataset.FromSeries", n, len(s.Values), 0)
		}
	}

	index, err := NewTimeIndex(start, freq, n)
	if err != nil {
		return nil, err
	}

	segments := make(map[string]map[string][]float64, len(series))
	for _, s := range series {
		if _, dup := segments[s.Name]; dup {
			return nil, errors.NewValidationError("series", "duplicate segment name", s.Name)
		}
		segments[s.Name] = map[string][]float64{TargetColumn: s.Values}
	}
	return New(index, segments)
}

// Index returns the shared time index.
func (ds *TSDataset) Index() TimeIndex {
	return ds.index
}

// Len returns the number of timestamps.
func (ds *TSDataset) Len() int {
	return ds.index.N
}

// Freq returns the index step.
func (ds *TSDataset) Freq() time.Duration {
	return ds.index.Freq
}

// Segments returns the segment names in sorted order.
func (ds *TSDataset) Segments() []string {
	return append([]string(nil), ds.names...)
}

// HasSegment reports whether the segment exists.
func (ds *TSDataset) HasSegment(segment string) bool {
	_, ok := ds.segments[segment]
	return ok
}

// Columns returns the column names of a segment in sorted order.
func (ds *TSDataset) Columns(segment string) ([]string, error) {
	columns, ok := ds.segments[segment]
	if !ok {
		return nil, errors.NewSegmentError("TSDataset.Columns", segment, "")
	}
	names := make([]string, 0, len(columns))
	for col := range columns {
		names = append(names, col)
	}
	sort.Strings(names)
	return names, nil
}

// HasColumn reports whether every segment carries the column.
func (ds *TSDataset) HasColumn(column string) bool {
	for _, columns := range ds.segments {
		if _, ok := columns[column]; !ok {
			return false
		}
	}
	return len(ds.segments) > 0
}

// Column returns a copy of one column of one segment.
func (ds *TSDataset) Column(segment, column string) ([]float64, error) {
	columns, ok := ds.segments[segment]
	if !ok {
		return nil, errors.NewSegmentError("TSDataset.Column", segment, "")
	}
	values, ok := columns[column]
	if !ok {
		return nil, errors.NewSegmentError("TSDataset.Column", segment, column)
	}
	return append([]float64(nil), values...), nil
}

// Target returns a copy of the target column of a segment.
func (ds *TSDataset) Target(segment string) ([]float64, error) {
	return ds.Column(segment, TargetColumn)
}

// SetColumn writes (or overwrites) a column of a segment. The values are
// copied and must match the index length.
func (ds *TSDataset) SetColumn(segment, column string, values []float64) error {
	columns, ok := ds.segments[segment]
	if !ok {
		return errors.NewSegmentError("TSDataset.SetColumn", segment, "")
	}
	if len(values) != ds.index.N {
		return errors.NewDimensionError("TSDataset.SetColumn", ds.index.N, len(values), 0)
	}
	columns[column] = append([]float64(nil), values...)
	return nil
}

// DropColumn removes a column from every segment. Dropping the target is
// rejected.
func (ds *TSDataset) DropColumn(column string) error {
	if column == TargetColumn {
		return errors.NewValidationError("column", "cannot drop the target column", column)
	}
	for _, columns := range ds.segments {
		delete(columns, column)
	}
	return nil
}

// Clone deep-copies the dataset.
func (ds *TSDataset) Clone() *TSDataset {
	out := &TSDataset{
		index:    ds.index,
		segments: make(map[string]map[string][]float64, len(ds.segments)),
		names:    append([]string(nil), ds.names...),
	}
	for name, columns := range ds.segments {
		dst := make(map[string][]float64, len(columns))
		for col, values := range columns {
			dst[col] = append([]float64(nil), values...)
		}
		out.segments[name] = dst
	}
	return out
}

// Slice returns the sub-dataset over rows [i, j).
func (ds *TSDataset) Slice(i, j int) (*TSDataset, error) {
	if i < 0 || j > ds.index.N || i > j {
		return nil, errors.NewValueError("TSDataset.Slice", "slice bounds out of range")
	}
	out := &TSDataset{
		index:    ds.index.Slice(i, j),
		segments: make(map[string]map[string][]float64, len(ds.segments)),
		names:    append([]string(nil), ds.names...),
	}
	for name, columns := range ds.segments {
		dst := make(map[string][]float64, len(columns))
		for col, values := range columns {
			dst[col] = append([]float64(nil), values[i:j]...)
		}
		out.segments[name] = dst
	}
	return out, nil
}

// TrainTestSplit splits chronologically: the last testSize rows become the
// test set. There is no shuffling.
func (ds *TSDataset) TrainTestSplit(testSize int) (train, test *TSDataset, err error) {
	if testSize <= 0 || testSize >= ds.index.N {
		return nil, nil, errors.NewValidationError("testSize",
			"must be in (0, len)", testSize)
	}
	cut := ds.index.N - testSize
	train, err = ds.Slice(0, cut)
	if err != nil {
		return nil, nil, err
	}
	test, err = ds.Slice(cut, ds.index.N)
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// ExtendBy returns a copy of ds with horizon NaN rows appended to every
// column. Pipelines use it to run feature transforms over history and future
// in one frame.
func (ds *TSDataset) ExtendBy(horizon int) (*TSDataset, error) {
	if horizon < 1 {
		return nil, errors.NewValidationError("horizon", "must be at least 1", horizon)
	}
	out := &TSDataset{
		index:    TimeIndex{Start: ds.index.Start, Freq: ds.index.Freq, N: ds.index.N + horizon},
		segments: make(map[string]map[string][]float64, len(ds.segments)),
		names:    append([]string(nil), ds.names...),
	}
	for name, columns := range ds.segments {
		dst := make(map[string][]float64, len(columns))
		for col, values := range columns {
			extended := make([]float64, ds.index.N+horizon)
			copy(extended, values)
			for i := ds.index.N; i < len(extended); i++ {
				extended[i] = math.NaN()
			}
			dst[col] = extended
		}
		out.segments[name] = dst
	}
	return out, nil
}

// MakeFuture returns a dataset covering the next horizon steps after the end
// of ds. It has the same segments and columns, filled with NaN; exogenous
// feature columns for the future can be written with SetColumn before
// forecasting.
func (ds *TSDataset) MakeFuture(horizon int) (*TSDataset, error) {
	if horizon < 1 {
		return nil, errors.NewValidationError("horizon", "must be at least 1", horizon)
	}
	out := &TSDataset{
		index:    ds.index.Extend(horizon),
		segments: make(map[string]map[string][]float64, len(ds.segments)),
		names:    append([]string(nil), ds.names...),
	}
	for name, columns := range ds.segments {
		dst := make(map[string][]float64, len(columns))
		for col := range columns {
			values := make([]float64, horizon)
			for i := range values {
				values[i] = math.NaN()
			}
			dst[col] = values
		}
		out.segments[name] = dst
	}
	return out, nil
}
