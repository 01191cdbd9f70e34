package transform

import (
	"math"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Difference applies order-d differencing at a fixed period:
// y'_t = y_t - y_{t-period}, repeated Order times. Period 1 is regular
// differencing; Period m is seasonal differencing. The transform stores the
// fitted series per segment so the inverse is exact, both in-sample and for
// forecasts that continue past the end of the fitted index.
type Difference struct {
	model.BaseEstimator

	// InColumn is the column to difference. Defaults to the target.
	InColumn string

	// Order is how many times the difference is applied, at least 1.
	Order int

	// Period is the lag of each difference, at least 1.
	Period int

	fitIndex dataset.TimeIndex
	// levels[segment][r] is the series after r rounds of differencing over
	// the fitted data, r in [0, Order].
	levels map[string][][]float64
}

// NewDifference creates a first-order, period-1 differencing transform over
// the target column.
func NewDifference() *Difference {
	return &Difference{InColumn: dataset.TargetColumn, Order: 1, Period: 1}
}

// Fit stores the differencing levels of every segment.
func (d *Difference) Fit(ds *dataset.TSDataset) error {
	if d.InColumn == "" {
		d.InColumn = dataset.TargetColumn
	}
	if d.Order < 1 {
		return errors.NewValidationError("Order", "must be at least 1", d.Order)
	}
	if d.Period < 1 {
		return errors.NewValidationError("Period", "must be at least 1", d.Period)
	}
	if ds.Len() <= d.Order*d.Period {
		return errors.Wrapf(errors.ErrInsufficientData,
			"Difference.Fit: need more than %d points", d.Order*d.Period)
	}
	if err := requireColumn("Difference.Fit", ds, d.InColumn); err != nil {
		return err
	}

	d.fitIndex = ds.Index()
	d.levels = make(map[string][][]float64)
	for _, segment := range ds.Segments() {
		values, err := ds.Column(segment, d.InColumn)
		if err != nil {
			return err
		}
		levels := make([][]float64, d.Order+1)
		levels[0] = values
		for r := 1; r <= d.Order; r++ {
			levels[r] = diffOnce(levels[r-1], d.Period)
		}
		d.levels[segment] = levels
	}

	d.SetFitted()
	return nil
}

// Transform differences the configured column.
func (d *Difference) Transform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !d.IsFitted() {
		return nil, errors.NewNotFittedError("Difference", "Transform")
	}
	return mapColumn(ds, d.InColumn, func(segment string, values []float64) ([]float64, error) {
		for r := 0; r < d.Order; r++ {
			values = diffOnce(values, d.Period)
		}
		return values, nil
	})
}

// InverseTransform integrates the column back. The dataset index must start
// on the fitted axis or directly continue it (the forecast case).
func (d *Difference) InverseTransform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !d.IsFitted() {
		return nil, errors.NewNotFittedError("Difference", "InverseTransform")
	}

	// Offset of the dataset's first row on the (extended) fitted axis.
	extended := d.fitIndex
	extended.N = d.fitIndex.N + ds.Len()
	offset, ok := extended.Position(ds.Index().Start)
	if !ok {
		return nil, errors.NewValueError("Difference.InverseTransform",
			"dataset index does not align with the fitted index")
	}

	return mapColumn(ds, d.InColumn, func(segment string, values []float64) ([]float64, error) {
		levels, ok := d.levels[segment]
		if !ok {
			return nil, errors.NewSegmentError("Difference.InverseTransform", segment, "")
		}
		for r := d.Order - 1; r >= 0; r-- {
			values = d.integrateOnce(values, levels[r], offset)
		}
		return values, nil
	})
}

// diffOnce computes y_t - y_{t-period}; the first period values are NaN.
func diffOnce(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < period {
			out[i] = math.NaN()
		} else {
			out[i] = values[i] - values[i-period]
		}
	}
	return out
}

// integrateOnce undoes one round of differencing. base is the stored series
// at the lower differencing level over the fitted range; offset is where the
// values start on the fitted axis.
func (d *Difference) integrateOnce(values, base []float64, offset int) []float64 {
	out := make([]float64, len(values))
	for j := range values {
		t := offset + j

		// Rows overlapping the fitted range where differencing produced a
		// NaN head restore the exact original value.
		if math.IsNaN(values[j]) && t < len(base) {
			out[j] = base[t]
			continue
		}

		prev := t - d.Period
		switch {
		case prev < 0:
			out[j] = math.NaN()
		case prev < offset:
			// Previous value comes from the fitted history.
			out[j] = values[j] + base[prev]
		default:
			// Previous value was reconstructed earlier in this pass.
			out[j] = values[j] + out[prev-offset]
		}
	}
	return out
}
