package outliers

import (
	"testing"
	"time"

	"github.com/YuminosukeSato/tsgo/dataset"
	"github.com/YuminosukeSato/tsgo/models"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// jittered is a flat series with small alternating noise and a single large
// spike at position 10.
func jittered(t *testing.T, spike float64) *dataset.TSDataset {
	t.Helper()
	values := make([]float64, 20)
	for i := range values {
		if i%2 == 0 {
			values[i] = 10.1
		} else {
			values[i] = 9.9
		}
	}
	if spike != 0 {
		values[10] = spike
	}
	ds, err := dataset.FromSeries(testStart, dataset.Daily,
		dataset.Series{Name: "a", Values: values},
	)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestMedianDetectsSpike(t *testing.T) {
	ds := jittered(t, 100)

	anomalies, err := Median(ds, 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	hits := anomalies["a"]
	if len(hits) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(hits))
	}
	if want := ds.Index().At(10); !hits[0].Equal(want) {
		t.Errorf("anomaly at %v, want %v", hits[0], want)
	}
}

func TestMedianCleanSeries(t *testing.T) {
	ds := jittered(t, 0)

	anomalies, err := Median(ds, 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(anomalies["a"]) != 0 {
		t.Errorf("expected no anomalies, got %v", anomalies["a"])
	}
}

func TestMADDetectsSpike(t *testing.T) {
	ds := jittered(t, 100)

	anomalies, err := MAD(ds, 5)
	if err != nil {
		t.Fatal(err)
	}
	hits := anomalies["a"]
	if len(hits) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(hits))
	}
	if want := ds.Index().At(10); !hits[0].Equal(want) {
		t.Errorf("anomaly at %v, want %v", hits[0], want)
	}
}

func TestMADCleanSeries(t *testing.T) {
	ds := jittered(t, 0)

	anomalies, err := MAD(ds, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(anomalies["a"]) != 0 {
		t.Errorf("expected no anomalies, got %v", anomalies["a"])
	}
}

func TestDetectorValidation(t *testing.T) {
	ds := jittered(t, 0)

	if _, err := Median(ds, 2, 3); err == nil {
		t.Error("expected error on window < 3")
	}
	if _, err := Median(ds, 5, 0); err == nil {
		t.Error("expected error on alpha <= 0")
	}
	if _, err := MAD(ds, 0); err == nil {
		t.Error("expected error on alpha <= 0")
	}
	if _, err := PredictionInterval(ds, models.NewProphet(), 0); err == nil {
		t.Error("expected error on width outside (0, 1)")
	}
}

func TestPredictionInterval(t *testing.T) {
	// Linear series with one spike. The random-walk-with-drift model
	// reconstructs every other point exactly, so the spike and its
	// aftermath fall outside the interval.
	values := make([]float64, 40)
	for i := range values {
		values[i] = float64(i)
	}
	values[20] = 100
	ds, err := dataset.FromSeries(testStart, dataset.Daily,
		dataset.Series{Name: "a", Values: values},
	)
	if err != nil {
		t.Fatal(err)
	}

	m := models.NewSARIMA(models.SARIMAOrder{D: 1})
	anomalies, err := PredictionInterval(ds, m, 0.95)
	if err != nil {
		t.Fatal(err)
	}
	hits := anomalies["a"]
	if len(hits) != 2 {
		t.Fatalf("expected 2 anomalies, got %d", len(hits))
	}
	if want := ds.Index().At(20); !hits[0].Equal(want) {
		t.Errorf("first anomaly at %v, want %v", hits[0], want)
	}
}
