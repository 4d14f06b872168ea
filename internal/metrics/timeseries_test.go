package metrics

import (
	"math"
	"testing"
)

func TestTimeSeries_LagProjection(t *testing.T) {
	samples := []Sample{testSample(1000, 10), testSample(2000, 20)}

	points := TimeSeries(samples, "lag")
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Timestamp != 1000 || points[1].Timestamp != 2000 {
		t.Error("expected input order preserved")
	}
	if points[0].Values["mean"] != 10 {
		t.Errorf("lag mean = %f, want 10", points[0].Values["mean"])
	}
	if _, ok := points[0].Values["p99"]; !ok {
		t.Error("expected p99 field in lag projection")
	}
}

func TestTimeSeries_UnknownMetric(t *testing.T) {
	if got := TimeSeries([]Sample{testSample(1000, 1)}, "nope"); got != nil {
		t.Errorf("expected nil for unknown metric, got %v", got)
	}
}

func TestTimeSeries_OmitsAbsentOptionalFields(t *testing.T) {
	points := TimeSeries([]Sample{testSample(1000, 1)}, "memory")
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if len(points[0].Values) != 0 {
		t.Errorf("sample without memory should project no values, got %v", points[0].Values)
	}
}

func TestComputeTrend(t *testing.T) {
	cases := []struct {
		name          string
		recent        []float64
		earlier       []float64
		wantDirection string
		wantChange    float64
	}{
		{"rising", []float64{20, 20}, []float64{10, 10}, TrendUp, 100},
		{"falling", []float64{5, 5}, []float64{10, 10}, TrendDown, -50},
		{"within band", []float64{10.4}, []float64{10}, TrendStable, 4},
		{"exactly at band edge", []float64{10.5}, []float64{10}, TrendStable, 5},
		{"zero earlier mean", []float64{10}, []float64{0, 0}, TrendStable, 0},
		{"empty windows", nil, nil, TrendStable, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTrend(tc.recent, tc.earlier)
			if got.Direction != tc.wantDirection {
				t.Errorf("direction = %s, want %s", got.Direction, tc.wantDirection)
			}
			if math.Abs(got.ChangePercent-tc.wantChange) > 1e-9 {
				t.Errorf("change = %f, want %f", got.ChangePercent, tc.wantChange)
			}
		})
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("got[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestMovingAverage_ShortInputUnchanged(t *testing.T) {
	in := []float64{1, 2}
	got := MovingAverage(in, 5)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("short input should be returned unchanged, got %v", got)
	}
}

func TestSmoothEWMA(t *testing.T) {
	in := make([]float64, 20)
	for i := range in {
		in[i] = 10
	}
	got := SmoothEWMA(in, 5)
	if len(got) != len(in) {
		t.Fatalf("length = %d, want %d", len(got), len(in))
	}
	// Constant input converges on the constant once past warmup.
	if math.Abs(got[len(got)-1]-10) > 1 {
		t.Errorf("expected smoothed value near 10, got %f", got[len(got)-1])
	}
	if SmoothEWMA(nil, 5) != nil {
		t.Error("expected nil passthrough for empty input")
	}
}
