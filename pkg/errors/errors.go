// Package errors provides error handling and the warning system used across
// the whole library. It is inspired by the warning/exception machinery of
// scikit-learn style libraries and exposes structured error types on top of
// cockroachdb/errors.
package errors

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// Default handler logs to standard error.
		log.Printf("tsgo-warning: %v\n", w)
	}
	// zerolog bridge, set lazily to avoid an import cycle with pkg/log.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler installs a library-wide warning handler.
// It controls how warnings such as ConvergenceWarning are processed.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // drop all warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs the zerolog warning bridge (set by pkg/log to
// avoid a circular import).
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. When the zerolog bridge is installed the warning is
// emitted as a structured log event, otherwise the plain handler is used.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// ConvergenceWarning is raised when an optimizer did not converge.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a new ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// DataConversionWarning is raised when data was implicitly converted.
type DataConversionWarning struct {
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("data converted from %s to %s. Reason: %s", w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning creates a new DataConversionWarning.
func NewDataConversionWarning(from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{FromType: from, ToType: to, Reason: reason}
}

// UndefinedMetricWarning is raised when a metric cannot be computed, for
// example MAPE over a series that is zero everywhere.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // value returned under this condition
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotFittedError is returned when Forecast or Transform is called on an
// estimator that has not been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("tsgo: %s: this estimator is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError is returned when the shape of the input data differs from
// what the operation expects.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows/timestamps, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("tsgo: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError is returned when a parameter fails validation. It is more
// specific than ValueError: it names the offending parameter.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tsgo: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError is returned when an argument value is invalid, for example a
// negative value passed to a log transform.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("tsgo: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// SegmentError is returned when a dataset operation references a segment or
// column that does not exist.
type SegmentError struct {
	Op      string
	Segment string
	Column  string
}

func (e *SegmentError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("tsgo: %s: segment %q has no column %q", e.Op, e.Segment, e.Column)
	}
	return fmt.Sprintf("tsgo: %s: unknown segment %q", e.Op, e.Segment)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *SegmentError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("segment", e.Segment).
		Str("column", e.Column).
		Str("type", "SegmentError")
}

// NewSegmentError creates a SegmentError with a stack trace attached.
func NewSegmentError(op, segment, column string) error {
	err := &SegmentError{Op: op, Segment: segment, Column: column}
	return errors.WithStack(err)
}

// ModelError is a generic model-level error.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tsgo: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("tsgo: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace attached.
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Numerical instability
//
// ===========================================================================

// NumericalInstabilityError is returned when a computation produced NaN, Inf,
// or otherwise diverged.
type NumericalInstabilityError struct {
	Operation string    // where it happened, e.g. "sarima_css", "boxcox_lambda"
	Values    []float64 // offending values
	Iteration int       // iteration at which it was detected
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("tsgo: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a
// stack trace attached.
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Forecast-quality warnings
//
// ===========================================================================

// ForecastDriftWarning is raised when one backtest fold scores far worse
// than the cross-fold mean, a sign the series changed regime inside the
// evaluation window.
type ForecastDriftWarning struct {
	Metric     string
	Segment    string
	Fold       int
	FoldScore  float64
	MeanScore  float64
	Ratio      float64
	DetectedAt time.Time
}

func (w *ForecastDriftWarning) Error() string {
	return fmt.Sprintf("forecast drift on segment %q: fold %d scored %s %.4f against a cross-fold mean of %.4f (x%.2f)",
		w.Segment, w.Fold, w.Metric, w.FoldScore, w.MeanScore, w.Ratio)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *ForecastDriftWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("segment", w.Segment).
		Int("fold", w.Fold).
		Float64("fold_score", w.FoldScore).
		Float64("mean_score", w.MeanScore).
		Float64("ratio", w.Ratio).
		Str("type", "ForecastDriftWarning")
}

// NewForecastDriftWarning creates a new ForecastDriftWarning.
func NewForecastDriftWarning(segment, metric string, fold int, foldScore, meanScore float64) *ForecastDriftWarning {
	return &ForecastDriftWarning{
		Metric:     metric,
		Segment:    segment,
		Fold:       fold,
		FoldScore:  foldScore,
		MeanScore:  meanScore,
		Ratio:      SafeDivide(foldScore, meanScore),
		DetectedAt: time.Now(),
	}
}

// ===========================================================================
//
//	Common error variables
//
// ===========================================================================

var (
	// ErrNotImplemented is returned for unimplemented functionality.
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData is returned when empty data is passed in.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when a design matrix is singular.
	ErrSingularMatrix = New("singular matrix")

	// ErrInsufficientData is returned when a series is too short for the
	// requested model order, window, or number of folds.
	ErrInsufficientData = New("insufficient data")
)
