package dataset

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// SegmentSummary is the per-segment output of Describe.
type SegmentSummary struct {
	Segment string
	Count   int // non-NaN target observations
	Missing int // NaN target observations
	Mean    float64
	Std     float64
	Min     float64
	Max     float64
	Start   time.Time
	End     time.Time
}

// Describe summarizes the target column of every segment. Mean and Std are
// over non-NaN values; Min and Max are NaN for an all-missing segment.
func (ds *TSDataset) Describe() map[string]SegmentSummary {
	out := make(map[string]SegmentSummary, len(ds.names))
	for _, name := range ds.names {
		target := ds.segments[name][TargetColumn]

		clean := make([]float64, 0, len(target))
		for _, v := range target {
			if !math.IsNaN(v) {
				clean = append(clean, v)
			}
		}

		summary := SegmentSummary{
			Segment: name,
			Count:   len(clean),
			Missing: len(target) - len(clean),
			Mean:    math.NaN(),
			Std:     math.NaN(),
			Min:     math.NaN(),
			Max:     math.NaN(),
			Start:   ds.index.Start,
			End:     ds.index.End(),
		}

		if len(clean) > 0 {
			summary.Mean = stat.Mean(clean, nil)
			summary.Min = clean[0]
			summary.Max = clean[0]
			for _, v := range clean[1:] {
				if v < summary.Min {
					summary.Min = v
				}
				if v > summary.Max {
					summary.Max = v
				}
			}
		}
		if len(clean) > 1 {
			summary.Std = stat.StdDev(clean, nil)
		}

		out[name] = summary
	}
	return out
}
