package log

// Standard attribute keys. Using a fixed vocabulary keeps log records
// filterable across packages.
const (
	// KeyComponent identifies the package emitting the record, e.g.
	// "models", "backtest", "transform".
	KeyComponent = "component"

	// KeyOperation is the estimator operation: "fit", "forecast",
	// "transform", "inverse_transform", "backtest".
	KeyOperation = "operation"

	// KeyModel is the estimator name, e.g. "SARIMA", "Prophet".
	KeyModel = "model"

	// KeySegment is the dataset segment being processed.
	KeySegment = "segment"

	// KeyFold is the backtest fold number.
	KeyFold = "fold"

	// KeyHorizon is the forecast horizon in steps.
	KeyHorizon = "horizon"

	// KeySamples is the number of observations involved.
	KeySamples = "samples"

	// KeySegments is the number of segments involved.
	KeySegments = "segments"

	// KeyDurationMs is the wall time of an operation in milliseconds.
	KeyDurationMs = "duration_ms"

	// KeyStacktrace carries the stacktrace extracted from a wrapped error.
	KeyStacktrace = "stacktrace"
)
