package dataset

import (
	"time"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Common frequencies.
const (
	Hourly = time.Hour
	Daily  = 24 * time.Hour
	Weekly = 7 * 24 * time.Hour
)

// TimeIndex is an evenly spaced timestamp axis: a start time, a fixed step,
// and a length. All segments of a TSDataset share one index.
type TimeIndex struct {
	Start time.Time
	Freq  time.Duration
	N     int
}

// NewTimeIndex creates a TimeIndex after validating the step and length.
func NewTimeIndex(start time.Time, freq time.Duration, n int) (TimeIndex, error) {
	if freq <= 0 {
		return TimeIndex{}, errors.NewValidationError("freq", "must be positive", freq)
	}
	if n < 0 {
		return TimeIndex{}, errors.NewValidationError("n", "must be non-negative", n)
	}
	return TimeIndex{Start: start, Freq: freq, N: n}, nil
}

// At returns the i-th timestamp.
func (ix TimeIndex) At(i int) time.Time {
	return ix.Start.Add(time.Duration(i) * ix.Freq)
}

// End returns the last timestamp. Zero time for an empty index.
func (ix TimeIndex) End() time.Time {
	if ix.N == 0 {
		return time.Time{}
	}
	return ix.At(ix.N - 1)
}

// Timestamps materializes the full axis.
func (ix TimeIndex) Timestamps() []time.Time {
	ts := make([]time.Time, ix.N)
	for i := range ts {
		ts[i] = ix.At(i)
	}
	return ts
}

// Position returns the offset of t on the axis, false when t is off-grid or
// out of range.
func (ix TimeIndex) Position(t time.Time) (int, bool) {
	if ix.N == 0 || ix.Freq <= 0 {
		return 0, false
	}
	d := t.Sub(ix.Start)
	if d < 0 || d%ix.Freq != 0 {
		return 0, false
	}
	i := int(d / ix.Freq)
	if i >= ix.N {
		return 0, false
	}
	return i, true
}

// Slice returns the sub-index [i, j).
func (ix TimeIndex) Slice(i, j int) TimeIndex {
	return TimeIndex{Start: ix.At(i), Freq: ix.Freq, N: j - i}
}

// Extend returns an index continuing past the end of ix by horizon steps.
func (ix TimeIndex) Extend(horizon int) TimeIndex {
	return TimeIndex{Start: ix.At(ix.N), Freq: ix.Freq, N: horizon}
}
