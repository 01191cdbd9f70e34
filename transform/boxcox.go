package transform

import (
	"math"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// BoxCox applies the Box-Cox power transform to a strictly positive column.
// The lambda of each segment is chosen by maximizing the profile
// log-likelihood with a golden-section search over [-2, 2].
type BoxCox struct {
	model.BaseEstimator

	// InColumn is the column to transform. Defaults to the target.
	InColumn string

	lambda map[string]float64
}

// NewBoxCox creates a BoxCox transform over the target column.
func NewBoxCox() *BoxCox {
	return &BoxCox{InColumn: dataset.TargetColumn}
}

// Lambda returns the fitted lambda of a segment.
func (b *BoxCox) Lambda(segment string) (float64, error) {
	if !b.IsFitted() {
		return 0, errors.NewNotFittedError("BoxCox", "Lambda")
	}
	lambda, ok := b.lambda[segment]
	if !ok {
		return 0, errors.NewSegmentError("BoxCox.Lambda", segment, "")
	}
	return lambda, nil
}

// Fit estimates a lambda per segment. Non-positive observations are
// rejected.
func (b *BoxCox) Fit(ds *dataset.TSDataset) error {
	if b.InColumn == "" {
		b.InColumn = dataset.TargetColumn
	}
	if err := requireColumn("BoxCox.Fit", ds, b.InColumn); err != nil {
		return err
	}

	b.lambda = make(map[string]float64)
	for _, segment := range ds.Segments() {
		values, err := ds.Column(segment, b.InColumn)
		if err != nil {
			return err
		}

		clean := make([]float64, 0, len(values))
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if v <= 0 {
				return errors.NewValueError("BoxCox.Fit",
					"segment "+segment+" contains non-positive values")
			}
			clean = append(clean, v)
		}
		if len(clean) < 2 {
			return errors.Wrapf(errors.ErrInsufficientData,
				"BoxCox.Fit: segment %q", segment)
		}

		b.lambda[segment] = optimalLambda(clean)
	}

	b.SetFitted()
	return nil
}

// Transform applies the power transform with the fitted lambdas.
func (b *BoxCox) Transform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !b.IsFitted() {
		return nil, errors.NewNotFittedError("BoxCox", "Transform")
	}
	return mapColumn(ds, b.InColumn, func(segment string, values []float64) ([]float64, error) {
		lambda, ok := b.lambda[segment]
		if !ok {
			return nil, errors.NewSegmentError("BoxCox.Transform", segment, "")
		}
		for i, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if v <= 0 {
				return nil, errors.NewValueError("BoxCox.Transform",
					"segment "+segment+" contains non-positive values")
			}
			values[i] = boxcox(v, lambda)
		}
		return values, nil
	})
}

// InverseTransform applies the exact inverse. When the transformed column is
// the target, interval bound columns are inverted too.
func (b *BoxCox) InverseTransform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if !b.IsFitted() {
		return nil, errors.NewNotFittedError("BoxCox", "InverseTransform")
	}

	columns := []string{b.InColumn}
	if b.InColumn == dataset.TargetColumn {
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
			lambda, ok := b.lambda[segment]
			if !ok {
				return nil, errors.NewSegmentError("BoxCox.InverseTransform", segment, "")
			}
			for i, v := range values {
				if !math.IsNaN(v) {
					values[i] = boxcoxInverse(v, lambda)
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

func boxcox(y, lambda float64) float64 {
	if lambda == 0 {
		return math.Log(y)
	}
	return (math.Pow(y, lambda) - 1) / lambda
}

func boxcoxInverse(x, lambda float64) float64 {
	if lambda == 0 {
		return math.Exp(x)
	}
	return math.Pow(lambda*x+1, 1/lambda)
}

// boxcoxLogLik is the profile log-likelihood of the Box-Cox model for a
// given lambda, up to constants.
func boxcoxLogLik(values []float64, lambda float64) float64 {
	n := float64(len(values))

	transformed := make([]float64, len(values))
	var logSum float64
	for i, v := range values {
		transformed[i] = boxcox(v, lambda)
		logSum += math.Log(v)
	}

	var mean float64
	for _, v := range transformed {
		mean += v
	}
	mean /= n

	var variance float64
	for _, v := range transformed {
		diff := v - mean
		variance += diff * diff
	}
	variance /= n
	if variance <= 0 {
		return math.Inf(-1)
	}

	return -n/2*math.Log(variance) + (lambda-1)*logSum
}

// optimalLambda maximizes the profile log-likelihood with a golden-section
// search. A 1D bounded search is all this needs, so the multivariate
// machinery of gonum/optimize is not pulled in here.
func optimalLambda(values []float64) float64 {
	const (
		lo        = -2.0
		hi        = 2.0
		tolerance = 1e-5
	)
	invPhi := (math.Sqrt(5) - 1) / 2

	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc := boxcoxLogLik(values, c)
	fd := boxcoxLogLik(values, d)

	for b-a > tolerance {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = boxcoxLogLik(values, c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = boxcoxLogLik(values, d)
		}
	}
	return (a + b) / 2
}
