package plot

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/outliers"
)

func demoDataset(t *testing.T) *dataset.TSDataset {
	t.Helper()
	values := make([]float64, 30)
	for i := range values {
		values[i] = 10 + 3*math.Sin(float64(i)/3)
	}
	ds, err := dataset.FromSeries(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), dataset.Daily,
		dataset.Series{Name: "sales", Values: values},
	)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func assertImage(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("output %s is empty", path)
	}
}

func TestSeries(t *testing.T) {
	ds := demoDataset(t)
	path := filepath.Join(t.TempDir(), "series.png")
	if err := Series(ds, "sales", path); err != nil {
		t.Fatal(err)
	}
	assertImage(t, path)
}

func TestSeriesUnknownSegment(t *testing.T) {
	ds := demoDataset(t)
	if err := Series(ds, "nope", filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Error("expected error for unknown segment")
	}
}

func TestForecastWithBand(t *testing.T) {
	history := demoDataset(t)

	forecast, err := history.MakeFuture(5)
	if err != nil {
		t.Fatal(err)
	}
	point := []float64{10, 11, 12, 11, 10}
	lower := []float64{8, 9, 10, 9, 8}
	upper := []float64{12, 13, 14, 13, 12}
	for _, c := range []struct {
		name   string
		values []float64
	}{
		{dataset.TargetColumn, point},
		{dataset.LowerColumn, lower},
		{dataset.UpperColumn, upper},
	} {
		if err := forecast.SetColumn("sales", c.name, c.values); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "forecast.png")
	if err := Forecast(history, forecast, "sales", path); err != nil {
		t.Fatal(err)
	}
	assertImage(t, path)
}

func TestAnomalies(t *testing.T) {
	ds := demoDataset(t)
	ix := ds.Index()
	anomalies := outliers.Anomalies{"sales": {ix.At(4), ix.At(17)}}

	path := filepath.Join(t.TempDir(), "anomalies.png")
	if err := Anomalies(ds, anomalies, "sales", path); err != nil {
		t.Fatal(err)
	}
	assertImage(t, path)
}

func TestCorrelogram(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = math.Sin(float64(i) / 2)
	}

	path := filepath.Join(t.TempDir(), "acf.png")
	if err := Correlogram(values, 10, path); err != nil {
		t.Fatal(err)
	}
	assertImage(t, path)
}
