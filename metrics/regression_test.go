package metrics

import (
	"math"
	"testing"
)

func TestMetricValues(t *testing.T) {
	yTrue := []float64{1, 2, 3, 4}
	yPred := []float64{1, 2, 4, 6}

	tests := []struct {
		name string
		fn   Func
		want float64
		tol  float64
	}{
		{"MAE", MAE, 0.75, 1e-12},
		{"MSE", MSE, 1.25, 1e-12},
		{"RMSE", RMSE, math.Sqrt(1.25), 1e-12},
		{"MedAE", MedAE, 0.5, 1e-12},
		{"MaxError", MaxError, 2, 1e-12},
		{"MAPE", MAPE, (0 + 0 + 1.0/3 + 0.5) / 4 * 100, 1e-9},
		{"R2", R2, 1 - 5.0/5.0, 1e-12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(yTrue, yPred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetricsSkipNaNPairs(t *testing.T) {
	yTrue := []float64{1, math.NaN(), 3}
	yPred := []float64{1, 2, math.NaN()}

	got, err := MAE(yTrue, yPred)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0 after dropping NaN pairs, got %v", got)
	}
}

func TestMetricErrors(t *testing.T) {
	tests := []struct {
		name  string
		fn    Func
		yTrue []float64
		yPred []float64
	}{
		{"empty", MAE, nil, nil},
		{"length mismatch", MSE, []float64{1, 2}, []float64{1}},
		{"all NaN", MAE, []float64{math.NaN()}, []float64{1}},
		{"MAPE all zero", MAPE, []float64{0, 0}, []float64{1, 1}},
		{"R2 constant truth", R2, []float64{2, 2, 2}, []float64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(tt.yTrue, tt.yPred); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSMAPEZeroPairs(t *testing.T) {
	// Both sides zero contribute no error.
	got, err := SMAPE([]float64{0, 1}, []float64{0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("got %v, want 0", got)
	}

	got, err = SMAPE([]float64{100}, []float64{50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 50.0 / 75.0 * 100
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMAPESkipsZeroTruth(t *testing.T) {
	got, err := MAPE([]float64{0, 2}, []float64{1, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-50) > 1e-9 {
		t.Errorf("got %v, want 50", got)
	}
}

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	if len(defaults) != 3 {
		t.Fatalf("expected 3 default metrics, got %d", len(defaults))
	}
	for _, m := range defaults {
		if m.Name == "" || m.Fn == nil {
			t.Errorf("incomplete metric %+v", m)
		}
	}
}
