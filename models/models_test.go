package models

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

func future(t *testing.T, ds *dataset.TSDataset, horizon int) *dataset.TSDataset {
	t.Helper()
	f, err := ds.MakeFuture(horizon)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func forecastTarget(t *testing.T, fc *dataset.TSDataset, segment string) []float64 {
	t.Helper()
	values, err := fc.Target(segment)
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
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func seq(n int, fn func(t int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

func TestNaiveForecast(t *testing.T) {
	ds := newDataset(t, seq(10, func(t int) float64 { return float64(t + 1) })...)

	m := NewNaive()
	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}
	fc, err := m.Forecast(future(t, ds, 3))
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, forecastTarget(t, fc, "a"), []float64{10, 10, 10}, 1e-12)
}

func TestSeasonalNaive(t *testing.T) {
	pattern := []float64{1, 2, 3, 4}
	ds := newDataset(t, seq(12, func(t int) float64 { return pattern[t%4] })...)

	m := &Naive{Lag: 4}
	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}
	fc, err := m.Forecast(future(t, ds, 6))
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, forecastTarget(t, fc, "a"), []float64{1, 2, 3, 4, 1, 2}, 1e-12)
}

func TestNaiveIntervalWidens(t *testing.T) {
	ds := newDataset(t, seq(10, func(t int) float64 { return float64(t + 1) })...)

	m := NewNaive()
	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}
	fc, err := m.ForecastWithInterval(future(t, ds, 4), 0.95)
	if err != nil {
		t.Fatal(err)
	}

	lower, err := fc.Column("a", dataset.LowerColumn)
	if err != nil {
		t.Fatal(err)
	}
	upper, err := fc.Column("a", dataset.UpperColumn)
	if err != nil {
		t.Fatal(err)
	}
	point := forecastTarget(t, fc, "a")
	for h := range point {
		if !(lower[h] < point[h] && point[h] < upper[h]) {
			t.Fatalf("bounds do not bracket the point forecast at %d", h)
		}
	}
	if upper[3]-lower[3] <= upper[0]-lower[0] {
		t.Error("interval should widen with the horizon")
	}
}

func TestNaiveValidation(t *testing.T) {
	ds := newDataset(t, 1, 2, 3)

	if err := (&Naive{Lag: 0}).Fit(ds); err == nil {
		t.Error("expected error on lag 0")
	}
	if err := (&Naive{Lag: 3}).Fit(ds); err == nil {
		t.Error("expected error on insufficient data")
	}

	m := NewNaive()
	if _, err := m.Forecast(future(t, ds, 1)); err == nil {
		t.Error("expected not-fitted error")
	}

	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}
	// A future slab that does not continue the fitted index is rejected.
	wrong, err := dataset.FromSeries(testStart, dataset.Daily,
		dataset.Series{Name: "a", Values: []float64{0}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Forecast(wrong); err == nil {
		t.Error("expected continuation error")
	}
}

func TestNaiveRejectsNaN(t *testing.T) {
	ds := newDataset(t, 1, math.NaN(), 3)
	if err := NewNaive().Fit(ds); err == nil {
		t.Error("expected error on NaN target")
	}
}

func TestMovingAverage(t *testing.T) {
	ds := newDataset(t, seq(10, func(t int) float64 { return float64(t + 1) })...)

	m := NewMovingAverage(2)
	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}
	fc, err := m.Forecast(future(t, ds, 3))
	if err != nil {
		t.Fatal(err)
	}
	// Recursive: mean(9,10)=9.5, mean(10,9.5)=9.75, mean(9.5,9.75)=9.625.
	assertClose(t, forecastTarget(t, fc, "a"), []float64{9.5, 9.75, 9.625}, 1e-12)
}

func TestSeasonalMovingAverage(t *testing.T) {
	pattern := []float64{10, 20, 30}
	ds := newDataset(t, seq(12, func(t int) float64 { return pattern[t%3] })...)

	m := NewSeasonalMovingAverage(2, 3)
	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}
	fc, err := m.Forecast(future(t, ds, 4))
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, forecastTarget(t, fc, "a"), []float64{10, 20, 30, 10}, 1e-9)
}

func TestLinearTrend(t *testing.T) {
	ds := newDataset(t, seq(10, func(t int) float64 { return 3*float64(t) + 1 })...)

	m := NewLinear()
	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}
	fc, err := m.Forecast(future(t, ds, 3))
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, forecastTarget(t, fc, "a"), []float64{31, 34, 37}, 1e-6)
}

func TestLinearRequiresPopulatedFeatures(t *testing.T) {
	ds := newDataset(t, seq(10, func(t int) float64 { return float64(t) })...)
	if err := ds.SetColumn("a", "x", seq(10, func(t int) float64 { return float64(t % 2) })); err != nil {
		t.Fatal(err)
	}

	m := NewLinear("x")
	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}
	// The NaN-filled slab has no feature values.
	if _, err := m.Forecast(future(t, ds, 2)); err == nil {
		t.Error("expected error on NaN future features")
	}
}

func TestLinearNoRegressors(t *testing.T) {
	ds := newDataset(t, 1, 2, 3)
	m := &Linear{Trend: false}
	if err := m.Fit(ds); err == nil {
		t.Error("expected error with no regressors")
	}
}

func TestProphetTrendAndSeasonality(t *testing.T) {
	gen := func(t int) float64 {
		return 0.5*float64(t) + 3*math.Sin(2*math.Pi*float64(t)/12)
	}
	ds := newDataset(t, seq(72, gen)...)

	m := &Prophet{NChangepoints: 0, Seasonalities: []Seasonality{{Period: 12, Order: 3}}, Alpha: 1e-8}
	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}

	fc, err := m.Forecast(future(t, ds, 12))
	if err != nil {
		t.Fatal(err)
	}
	want := make([]float64, 12)
	for h := range want {
		want[h] = gen(72 + h)
	}
	assertClose(t, forecastTarget(t, fc, "a"), want, 1e-3)

	components, err := m.Components("a")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 72; i += 7 {
		if math.Abs(components.Trend[i]-0.5*float64(i)) > 1e-2 {
			t.Fatalf("trend[%d] = %v", i, components.Trend[i])
		}
		if math.Abs(components.Seasonal[i]-3*math.Sin(2*math.Pi*float64(i)/12)) > 1e-2 {
			t.Fatalf("seasonal[%d] = %v", i, components.Seasonal[i])
		}
	}
}

func TestProphetInSample(t *testing.T) {
	ds := newDataset(t, seq(30, func(t int) float64 { return float64(t) })...)

	m := NewProphet()
	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}
	inSample, err := m.PredictInSample(0.95)
	if err != nil {
		t.Fatal(err)
	}
	if inSample.Len() != 30 {
		t.Fatalf("in-sample length %d, want 30", inSample.Len())
	}
	if !inSample.HasColumn(dataset.LowerColumn) || !inSample.HasColumn(dataset.UpperColumn) {
		t.Error("expected interval bound columns")
	}
}

func TestBoostedLearnsSeasonalPattern(t *testing.T) {
	pattern := []float64{1, 2, 3, 4}
	ds := newDataset(t, seq(40, func(t int) float64 { return pattern[t%4] })...)

	m := NewBoosted(4)
	if err := m.Fit(ds); err != nil {
		t.Fatal(err)
	}
	fc, err := m.Forecast(future(t, ds, 4))
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, forecastTarget(t, fc, "a"), []float64{1, 2, 3, 4}, 1e-2)
}

func TestBoostedValidation(t *testing.T) {
	ds := newDataset(t, seq(40, func(t int) float64 { return float64(t) })...)

	if err := NewBoosted().Fit(ds); err == nil {
		t.Error("expected error with no lags")
	}
	m := NewBoosted(1)
	m.Subsample = 2
	if err := m.Fit(ds); err == nil {
		t.Error("expected error on subsample > 1")
	}
}

func TestCloneUnfitted(t *testing.T) {
	ds := newDataset(t, seq(10, func(t int) float64 { return float64(t + 1) })...)

	models := []Cloneable{
		NewNaive(),
		NewMovingAverage(2),
		NewLinear(),
		NewSARIMA(SARIMAOrder{D: 1}),
		NewAutoSARIMA(0),
		NewProphet(),
		NewBoosted(1),
	}
	for _, m := range models {
		clone := m.CloneUnfitted()
		if _, err := clone.Forecast(future(t, ds, 1)); err == nil {
			t.Errorf("%T clone should be unfitted", m)
		}
	}
}
