package models

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tsgo/core/model"
	"github.com/YuminosukeSato/tsgo/core/parallel"
	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// designFillThreshold is the row count below which the design matrix is
// filled sequentially.
const designFillThreshold = 512

var _ model.Regressor = (*ridgeRegressor)(nil)

// ridgeRegressor solves (X'X + alpha*I) w = X'y by normal equations. With
// alpha 0 it is plain OLS. An intercept column is prepended internally and
// never penalized. It implements core/model.Regressor.
type ridgeRegressor struct {
	alpha     float64
	weights   *mat.VecDense // intercept first
	nFeatures int
	fitted    bool
}

func newRidgeRegressor(alpha float64) *ridgeRegressor {
	return &ridgeRegressor{alpha: alpha}
}

// Fit solves the penalized normal equations.
func (r *ridgeRegressor) Fit(X, y mat.Matrix) error {
	n, c := X.Dims()
	ny, cy := y.Dims()
	if n == 0 || c == 0 {
		return errors.NewModelError("ridgeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if ny != n {
		return errors.NewDimensionError("ridgeRegressor.Fit", n, ny, 0)
	}
	if cy != 1 {
		return errors.NewValueError("ridgeRegressor.Fit", "y must be a column vector")
	}

	r.nFeatures = c

	// Design matrix with intercept: [1, X]. Rows are disjoint, so chunks
	// can fill concurrently.
	design := mat.NewDense(n, c+1, nil)
	parallel.ParallelizeWithThreshold(n, designFillThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			design.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				design.Set(i, j+1, X.At(i, j))
			}
		}
	})

	var xt mat.Dense
	xt.CloneFrom(design.T())

	var xtx mat.Dense
	xtx.Mul(&xt, design)

	if r.alpha > 0 {
		// Penalize everything except the intercept.
		for j := 1; j <= c; j++ {
			xtx.Set(j, j, xtx.At(j, j)+r.alpha)
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return errors.NewModelError("ridgeRegressor.Fit", "singular design matrix", errors.ErrSingularMatrix)
	}

	yVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}

	var xty mat.VecDense
	xty.MulVec(&xt, yVec)

	r.weights = mat.NewVecDense(c+1, nil)
	r.weights.MulVec(&inv, &xty)
	if err := errors.CheckNumericalStability("ridgeRegressor.Fit", r.weights.RawVector().Data, 0); err != nil {
		return err
	}
	r.fitted = true
	return nil
}

// Predict returns one prediction per row of X.
func (r *ridgeRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if !r.fitted {
		return nil, errors.NewNotFittedError("ridgeRegressor", "Predict")
	}
	n, c := X.Dims()
	if c != r.nFeatures {
		return nil, errors.NewDimensionError("ridgeRegressor.Predict", r.nFeatures, c, 1)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		pred := r.weights.AtVec(0)
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * r.weights.AtVec(j + 1)
		}
		out[i] = pred
	}
	return out, nil
}

// Coef returns the fitted weights without the intercept.
func (r *ridgeRegressor) Coef() []float64 {
	if r.weights == nil {
		return nil
	}
	coef := make([]float64, r.nFeatures)
	for i := range coef {
		coef[i] = r.weights.AtVec(i + 1)
	}
	return coef
}

// Intercept returns the fitted intercept.
func (r *ridgeRegressor) Intercept() float64 {
	if r.weights == nil {
		return 0
	}
	return r.weights.AtVec(0)
}
