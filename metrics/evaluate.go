package metrics

import (
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// SegmentScores maps segment -> metric name -> value.
type SegmentScores map[string]map[string]float64

// Evaluate scores a forecast against the truth dataset, segment by segment,
// aligning on the forecast's time index. The forecast index must lie inside
// the truth index.
func Evaluate(truth, forecast *dataset.TSDataset, metricSet []Metric) (SegmentScores, error) {
	if len(metricSet) == 0 {
		metricSet = Defaults()
	}

	fi := forecast.Index()
	start, ok := truth.Index().Position(fi.Start)
	if !ok {
		return nil, errors.NewValueError("metrics.Evaluate",
			"forecast index does not align with the truth index")
	}
	if start+fi.N > truth.Len() {
		return nil, errors.NewDimensionError("metrics.Evaluate", truth.Len(), start+fi.N, 0)
	}

	aligned, err := truth.Slice(start, start+fi.N)
	if err != nil {
		return nil, err
	}

	scores := make(SegmentScores)
	for _, segment := range forecast.Segments() {
		yTrue, err := aligned.Target(segment)
		if err != nil {
			return nil, err
		}
		yPred, err := forecast.Target(segment)
		if err != nil {
			return nil, err
		}

		row := make(map[string]float64, len(metricSet))
		for _, m := range metricSet {
			v, err := m.Fn(yTrue, yPred)
			if err != nil {
				return nil, errors.Wrapf(err, "metrics.Evaluate: %s on segment %q", m.Name, segment)
			}
			row[m.Name] = v
		}
		scores[segment] = row
	}
	return scores, nil
}
