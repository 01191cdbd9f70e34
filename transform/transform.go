// Package transform provides the feature transforms applied to a TSDataset
// before modeling: scaling, Box-Cox, log, lag features, rolling statistics,
// and differencing. Transforms are estimators: they learn per-segment
// statistics in Fit and are guarded by the fitted state. They never mutate
// their input; Transform and InverseTransform return new datasets.
package transform

import (
	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Transform is the contract every feature transform implements.
type Transform interface {
	// Fit learns the transform parameters from the dataset.
	Fit(ds *dataset.TSDataset) error

	// Transform returns a transformed copy of the dataset.
	Transform(ds *dataset.TSDataset) (*dataset.TSDataset, error)

	// InverseTransform undoes Transform on a copy of the dataset.
	// Feature-generating transforms (Lag, Rolling) return the input
	// unchanged apart from cloning.
	InverseTransform(ds *dataset.TSDataset) (*dataset.TSDataset, error)

	// Clone returns an unfitted copy carrying the configuration only.
	Clone() Transform
}

// FitTransform fits t on ds and transforms ds in one call.
func FitTransform(t Transform, ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	if err := t.Fit(ds); err != nil {
		return nil, err
	}
	return t.Transform(ds)
}

// Chain applies transforms in order; the inverse runs in reverse order.
type Chain struct {
	transforms []Transform
}

// NewChain creates a transform chain.
func NewChain(transforms ...Transform) *Chain {
	return &Chain{transforms: transforms}
}

// Fit fits each transform on the output of the previous one.
func (c *Chain) Fit(ds *dataset.TSDataset) error {
	current := ds
	for i, t := range c.transforms {
		out, err := FitTransform(t, current)
		if err != nil {
			return errors.Wrapf(err, "transform.Chain: step %d", i)
		}
		current = out
	}
	return nil
}

// Transform applies every transform in order.
func (c *Chain) Transform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	current := ds
	for i, t := range c.transforms {
		out, err := t.Transform(current)
		if err != nil {
			return nil, errors.Wrapf(err, "transform.Chain: step %d", i)
		}
		current = out
	}
	return current, nil
}

// InverseTransform applies the inverse of every transform in reverse order.
func (c *Chain) InverseTransform(ds *dataset.TSDataset) (*dataset.TSDataset, error) {
	current := ds
	for i := len(c.transforms) - 1; i >= 0; i-- {
		out, err := c.transforms[i].InverseTransform(current)
		if err != nil {
			return nil, errors.Wrapf(err, "transform.Chain: step %d", i)
		}
		current = out
	}
	return current, nil
}

// Len returns the number of transforms in the chain.
func (c *Chain) Len() int {
	return len(c.transforms)
}

// requireColumn validates that every segment of ds carries the column.
func requireColumn(op string, ds *dataset.TSDataset, column string) error {
	for _, segment := range ds.Segments() {
		if _, err := ds.Column(segment, column); err != nil {
			return errors.Wrap(err, op)
		}
	}
	return nil
}

// mapColumn rewrites one column on a clone of ds, segment by segment.
func mapColumn(ds *dataset.TSDataset, column string, fn func(segment string, values []float64) ([]float64, error)) (*dataset.TSDataset, error) {
	out := ds.Clone()
	for _, segment := range out.Segments() {
		values, err := out.Column(segment, column)
		if err != nil {
			return nil, err
		}
		mapped, err := fn(segment, values)
		if err != nil {
			return nil, err
		}
		if err := out.SetColumn(segment, column, mapped); err != nil {
			return nil, err
		}
	}
	return out, nil
}
