package errors

import (
	"math"
	"strings"
	"testing"
)

func TestStructuredErrorsUnwrap(t *testing.T) {
	err := Wrap(NewNotFittedError("SARIMA", "Forecast"), "pipeline")

	var nf *NotFittedError
	if !As(err, &nf) {
		t.Fatal("NotFittedError not found in chain")
	}
	if nf.ModelName != "SARIMA" || nf.Method != "Forecast" {
		t.Errorf("unexpected fields: %+v", nf)
	}

	var de *DimensionError
	if As(err, &de) {
		t.Error("unrelated error type matched")
	}
}

func TestSentinelErrors(t *testing.T) {
	err := Wrapf(ErrInsufficientData, "backtest.Run: %d points", 7)
	if !Is(err, ErrInsufficientData) {
		t.Error("wrapped sentinel not recognized")
	}
	if !strings.Contains(err.Error(), "7 points") {
		t.Errorf("context lost: %v", err)
	}
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{NewNotFittedError("Prophet", "Forecast"), "not fitted"},
		{NewDimensionError("Evaluate", 10, 7, 0), "rows"},
		{NewValidationError("window", "must be at least 3", 1), "window"},
		{NewValueError("Log.Fit", "values must be greater than -1"), "Log.Fit"},
		{NewSegmentError("Target", "sales", ""), `"sales"`},
		{NewSegmentError("Column", "sales", "feature"), `"feature"`},
	}
	for _, c := range cases {
		if !strings.Contains(c.err.Error(), c.want) {
			t.Errorf("%T message %q does not mention %q", c.err, c.err.Error(), c.want)
		}
	}
}

func TestWarningHandler(t *testing.T) {
	// The zerolog bridge takes precedence when installed, so clear it for
	// the duration of the test.
	SetZerologWarnFunc(nil)
	defer SetZerologWarnFunc(nil)

	var captured []error
	SetWarningHandler(func(w error) { captured = append(captured, w) })
	defer SetWarningHandler(nil)

	Warn(NewConvergenceWarning("SARIMA.CSS", 200, "reached the iteration cap"))

	if len(captured) != 1 {
		t.Fatalf("captured %d warnings, want 1", len(captured))
	}
	var cw *ConvergenceWarning
	if !As(captured[0], &cw) {
		t.Fatal("warning is not a ConvergenceWarning")
	}
	if cw.Iterations != 200 {
		t.Errorf("iterations = %d, want 200", cw.Iterations)
	}
}

func TestRecoverConvertsPanic(t *testing.T) {
	err := SafeExecute("test.op", func() error {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected an error from the recovered panic")
	}
	var pe *PanicError
	if !As(err, &pe) {
		t.Fatalf("expected PanicError, got %T", err)
	}
	if pe.Operation != "test.op" {
		t.Errorf("operation = %q", pe.Operation)
	}
	if pe.StackTrace == "" {
		t.Error("missing stack trace")
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("op", []float64{1, 2, 3}, 0); err != nil {
		t.Errorf("finite values flagged: %v", err)
	}
	if err := CheckNumericalStability("op", []float64{1, math.NaN()}, 4); err == nil {
		t.Error("NaN not flagged")
	}
	if err := CheckScalar("op", math.Inf(1), 0); err == nil {
		t.Error("Inf not flagged")
	}
}

func TestSafeDivide(t *testing.T) {
	if got := SafeDivide(6, 3); got != 2 {
		t.Errorf("SafeDivide(6, 3) = %v", got)
	}
	if got := SafeDivide(1, 0); got != 0 {
		t.Errorf("SafeDivide(1, 0) = %v, want 0", got)
	}
}
