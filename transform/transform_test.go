package transform

import (
	"math"
	"testing"
	"time"

	"github.com/YuminosukeSato/tsgo/dataset"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newDataset(t *testing.T, values ...float64) *dataset.TSDataset {
	t.Helper()
	ds, err := dataset.FromSeries(testStart, dataset.Daily,
		dataset.Series{Name: "a", Values: values},
	)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func target(t *testing.T, ds *dataset.TSDataset, segment string) []float64 {
	t.Helper()
	values, err := ds.Target(segment)
	if err != nil {
		t.Fatal(err)
	}
	return values
}

func assertClose(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Fatalf("index %d: got %v, want NaN", i, got[i])
			}
			continue
		}
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStandardScalerRoundTrip(t *testing.T) {
	ds := newDataset(t, 2, 4, 6, 8)
	s := NewStandardScaler()

	out, err := FitTransform(s, ds)
	if err != nil {
		t.Fatal(err)
	}

	scaled := target(t, out, "a")
	var mean float64
	for _, v := range scaled {
		mean += v
	}
	if math.Abs(mean/4) > 1e-12 {
		t.Errorf("scaled mean = %v, want 0", mean/4)
	}

	back, err := s.InverseTransform(out)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, back, "a"), []float64{2, 4, 6, 8}, 1e-9)
}

func TestStandardScalerNaNPassthrough(t *testing.T) {
	ds := newDataset(t, 1, math.NaN(), 3)
	s := NewStandardScaler()

	out, err := FitTransform(s, ds)
	if err != nil {
		t.Fatal(err)
	}
	scaled := target(t, out, "a")
	if !math.IsNaN(scaled[1]) {
		t.Errorf("expected NaN passthrough, got %v", scaled[1])
	}
}

func TestStandardScalerConstantSegment(t *testing.T) {
	ds := newDataset(t, 5, 5, 5)
	s := NewStandardScaler()

	out, err := FitTransform(s, ds)
	if err != nil {
		t.Fatal(err)
	}
	// Zero-variance guard keeps the values finite.
	assertClose(t, target(t, out, "a"), []float64{0, 0, 0}, 1e-12)
}

func TestStandardScalerInvertsBounds(t *testing.T) {
	ds := newDataset(t, 0, 10, 20, 30)
	s := NewStandardScaler()
	if err := s.Fit(ds); err != nil {
		t.Fatal(err)
	}

	forecast := newDataset(t, 0, 0, 0, 0)
	if err := forecast.SetColumn("a", dataset.LowerColumn, []float64{-1, -1, -1, -1}); err != nil {
		t.Fatal(err)
	}
	if err := forecast.SetColumn("a", dataset.UpperColumn, []float64{1, 1, 1, 1}); err != nil {
		t.Fatal(err)
	}

	back, err := s.InverseTransform(forecast)
	if err != nil {
		t.Fatal(err)
	}
	lower, err := back.Column("a", dataset.LowerColumn)
	if err != nil {
		t.Fatal(err)
	}
	upper, err := back.Column("a", dataset.UpperColumn)
	if err != nil {
		t.Fatal(err)
	}
	mid, err := back.Target("a")
	if err != nil {
		t.Fatal(err)
	}
	for i := range mid {
		if !(lower[i] < mid[i] && mid[i] < upper[i]) {
			t.Fatalf("bounds not restored around the point forecast at %d", i)
		}
	}
}

func TestMinMaxScaler(t *testing.T) {
	ds := newDataset(t, 0, 5, 10)
	m := NewMinMaxScaler()

	out, err := FitTransform(m, ds)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, out, "a"), []float64{0, 0.5, 1}, 1e-12)

	back, err := m.InverseTransform(out)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, back, "a"), []float64{0, 5, 10}, 1e-9)
}

func TestBoxCoxRoundTrip(t *testing.T) {
	ds := newDataset(t, 1, 2, 4, 8, 16, 32)
	b := NewBoxCox()

	out, err := FitTransform(b, ds)
	if err != nil {
		t.Fatal(err)
	}

	lambda, err := b.Lambda("a")
	if err != nil {
		t.Fatal(err)
	}
	if lambda < -2 || lambda > 2 {
		t.Errorf("lambda = %v outside the search range", lambda)
	}

	back, err := b.InverseTransform(out)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, back, "a"), []float64{1, 2, 4, 8, 16, 32}, 1e-6)
}

func TestBoxCoxRejectsNonPositive(t *testing.T) {
	ds := newDataset(t, 1, 0, 2)
	if err := NewBoxCox().Fit(ds); err == nil {
		t.Error("expected error on non-positive values")
	}
}

func TestLogRoundTrip(t *testing.T) {
	ds := newDataset(t, 0, 1, 9, 99)
	l := NewLog()

	out, err := FitTransform(l, ds)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, out, "a"),
		[]float64{0, math.Log(2), math.Log(10), math.Log(100)}, 1e-12)

	back, err := l.InverseTransform(out)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, back, "a"), []float64{0, 1, 9, 99}, 1e-9)
}

func TestLogRejectsOutOfRange(t *testing.T) {
	ds := newDataset(t, -1, 1)
	if err := NewLog().Fit(ds); err == nil {
		t.Error("expected error on values <= -1")
	}
}

func TestLagColumns(t *testing.T) {
	ds := newDataset(t, 1, 2, 3, 4, 5)
	l := NewLag(1, 3)

	out, err := FitTransform(l, ds)
	if err != nil {
		t.Fatal(err)
	}

	lag1, err := out.Column("a", l.ColumnName(1))
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, lag1, []float64{math.NaN(), 1, 2, 3, 4}, 1e-12)

	lag3, err := out.Column("a", l.ColumnName(3))
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, lag3, []float64{math.NaN(), math.NaN(), math.NaN(), 1, 2}, 1e-12)

	// Inverse drops the generated columns.
	back, err := l.InverseTransform(out)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := back.Column("a", l.ColumnName(1)); err == nil {
		t.Error("expected lag column to be dropped by the inverse")
	}
}

func TestRollingMean(t *testing.T) {
	ds := newDataset(t, 1, 2, 3, 4, 5)
	r := NewRolling(3)

	out, err := FitTransform(r, ds)
	if err != nil {
		t.Fatal(err)
	}
	col, err := out.Column("a", r.ColumnName(RollingMean))
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, col, []float64{math.NaN(), math.NaN(), 2, 3, 4}, 1e-12)
}

func TestRollingWindowWithNaN(t *testing.T) {
	ds := newDataset(t, 1, math.NaN(), 3, 4, 5)
	r := NewRolling(3)

	out, err := FitTransform(r, ds)
	if err != nil {
		t.Fatal(err)
	}
	col, err := out.Column("a", r.ColumnName(RollingMean))
	if err != nil {
		t.Fatal(err)
	}
	// Windows touching the NaN stay NaN; the first clean window is t=4.
	assertClose(t, col, []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), 4}, 1e-12)
}

func TestDifferenceInSampleRoundTrip(t *testing.T) {
	ds := newDataset(t, 1, 4, 9, 16, 25, 36)
	d := NewDifference()

	out, err := FitTransform(d, ds)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, out, "a"),
		[]float64{math.NaN(), 3, 5, 7, 9, 11}, 1e-12)

	back, err := d.InverseTransform(out)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, back, "a"), []float64{1, 4, 9, 16, 25, 36}, 1e-9)
}

func TestDifferenceForecastContinuation(t *testing.T) {
	// Fit on y = 2t; a forecast of constant diffs continues the line.
	ds := newDataset(t, 0, 2, 4, 6, 8)
	d := NewDifference()
	if _, err := FitTransform(d, ds); err != nil {
		t.Fatal(err)
	}

	future, err := ds.MakeFuture(3)
	if err != nil {
		t.Fatal(err)
	}
	if err := future.SetColumn("a", dataset.TargetColumn, []float64{2, 2, 2}); err != nil {
		t.Fatal(err)
	}

	back, err := d.InverseTransform(future)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, back, "a"), []float64{10, 12, 14}, 1e-9)
}

func TestDifferenceSeasonal(t *testing.T) {
	// Period-2 differencing of y = t removes nothing but shifts by 2.
	ds := newDataset(t, 0, 1, 2, 3, 4, 5)
	d := &Difference{InColumn: dataset.TargetColumn, Order: 1, Period: 2}

	out, err := FitTransform(d, ds)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, out, "a"),
		[]float64{math.NaN(), math.NaN(), 2, 2, 2, 2}, 1e-12)

	back, err := d.InverseTransform(out)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, back, "a"), []float64{0, 1, 2, 3, 4, 5}, 1e-9)
}

func TestChainOrderAndInverse(t *testing.T) {
	ds := newDataset(t, 1, 2, 4, 8)
	chain := NewChain(NewLog(), NewStandardScaler())

	if err := chain.Fit(ds); err != nil {
		t.Fatal(err)
	}
	out, err := chain.Transform(ds)
	if err != nil {
		t.Fatal(err)
	}
	back, err := chain.InverseTransform(out)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, target(t, back, "a"), []float64{1, 2, 4, 8}, 1e-9)
}

func TestCloneIsUnfitted(t *testing.T) {
	ds := newDataset(t, 1, 2, 3)
	s := NewStandardScaler()
	if err := s.Fit(ds); err != nil {
		t.Fatal(err)
	}

	clone := s.Clone()
	if _, err := clone.Transform(ds); err == nil {
		t.Error("expected a clone to be unfitted")
	}

	chain := NewChain(NewLag(1), NewStandardScaler())
	cloned, ok := chain.Clone().(*Chain)
	if !ok {
		t.Fatal("chain clone has the wrong type")
	}
	if cloned.Len() != 2 {
		t.Errorf("cloned chain has %d steps, want 2", cloned.Len())
	}
}
