package health

import (
	"strings"
	"testing"

	"github.com/loopmeter/loopmeter/internal/metrics"
)

func sampleWithLag(mean float64) *metrics.Sample {
	return &metrics.Sample{
		Timestamp: 1000,
		Lag: metrics.LagStats{
			Min:  mean / 2,
			Max:  mean * 2,
			Mean: mean,
			P99:  mean * 1.5,
		},
		Util: metrics.UtilStats{Utilization: 0.3},
	}
}

func TestScore_NilSample(t *testing.T) {
	res := Score(nil, Thresholds{})
	if res.Status != StatusUnknown {
		t.Errorf("status = %s, want unknown", res.Status)
	}
	if res.Score != 0 {
		t.Errorf("score = %f, want 0", res.Score)
	}
	if res.Message != "no samples available" {
		t.Errorf("message = %q", res.Message)
	}
	if res.Metrics != nil {
		t.Error("expected no metrics snapshot for nil sample")
	}
}

func TestScore_LagEscalation(t *testing.T) {
	quiet := Score(sampleWithLag(5), Thresholds{})
	elevated := Score(sampleWithLag(60), Thresholds{})
	severe := Score(sampleWithLag(120), Thresholds{})

	if quiet.Status != StatusHealthy {
		t.Errorf("lag 5ms: status = %s, want healthy", quiet.Status)
	}
	if elevated.Status != StatusDegraded {
		t.Errorf("lag 60ms: status = %s, want degraded", elevated.Status)
	}
	if severe.Status != StatusCritical {
		t.Errorf("lag 120ms: status = %s, want critical", severe.Status)
	}

	if !(quiet.Score > elevated.Score && elevated.Score > severe.Score) {
		t.Errorf("scores not strictly decreasing: %f, %f, %f",
			quiet.Score, elevated.Score, severe.Score)
	}
}

func TestScore_LagPenaltyValues(t *testing.T) {
	// 60ms with defaults: warning band ratio (60-50)/(100-50)=0.2,
	// penalty 10+0.2*20=14. No other penalties fire.
	res := Score(sampleWithLag(60), Thresholds{})
	if res.Score != 86 {
		t.Errorf("score = %f, want 86", res.Score)
	}

	// 150ms: critical band (150-100)/100=0.5, penalty 40+0.5*20=50.
	// p99 is 225ms >= 200, spike penalty min(225/200,1.5)*10=11.25.
	res = Score(sampleWithLag(150), Thresholds{})
	if res.Score != 38.8 {
		t.Errorf("score = %f, want 38.8", res.Score)
	}
}

func TestScore_HealthyMessage(t *testing.T) {
	res := Score(sampleWithLag(5), Thresholds{})
	if res.Message != "all metrics within configured thresholds" {
		t.Errorf("message = %q", res.Message)
	}
	if len(res.Issues) != 0 {
		t.Errorf("expected no issues, got %v", res.Issues)
	}
}

func TestScore_UtilizationPenalty(t *testing.T) {
	s := sampleWithLag(5)
	s.Util.Utilization = 0.95
	res := Score(s, Thresholds{})
	if res.Status != StatusCritical {
		t.Errorf("status = %s, want critical", res.Status)
	}
	// (0.95-0.9)/(1-0.9)=0.5, penalty 40+0.5*20=50.
	if res.Score != 50 {
		t.Errorf("score = %f, want 50", res.Score)
	}
}

func TestScore_MemoryPenalty(t *testing.T) {
	s := sampleWithLag(5)
	s.Memory = metrics.NewMemoryStats(85, 100, 200, 0)
	res := Score(s, Thresholds{})
	if res.Status != StatusDegraded {
		t.Errorf("status = %s, want degraded", res.Status)
	}
	// Warning band (0.85-0.8)/(0.9-0.8)=0.5, penalty 5+0.5*15=12.5.
	if res.Score != 87.5 {
		t.Errorf("score = %f, want 87.5", res.Score)
	}

	s.Memory = metrics.NewMemoryStats(95, 100, 200, 0)
	res = Score(s, Thresholds{})
	if res.Status != StatusCritical {
		t.Errorf("status = %s, want critical", res.Status)
	}
}

func TestScore_SpikeOnlyEscalatesToDegraded(t *testing.T) {
	s := sampleWithLag(5)
	s.Lag.P99 = 250
	s.Lag.Max = 300
	res := Score(s, Thresholds{})
	if res.Status != StatusDegraded {
		t.Errorf("status = %s, want degraded (spike never reaches critical)", res.Status)
	}
	found := false
	for _, issue := range res.Issues {
		if strings.Contains(issue, "p99 lag spike") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected spike issue, got %v", res.Issues)
	}
}

func TestScore_ClampedAndRounded(t *testing.T) {
	s := sampleWithLag(500) // lag penalty capped at 80
	s.Util.Utilization = 1
	s.Memory = metrics.NewMemoryStats(99, 100, 200, 0)
	res := Score(s, Thresholds{})
	if res.Score != 0 {
		t.Errorf("score = %f, want 0 (clamped)", res.Score)
	}
	if res.Status != StatusCritical {
		t.Errorf("status = %s, want critical", res.Status)
	}
}

func TestScore_IssueOrdering(t *testing.T) {
	s := sampleWithLag(120)
	s.Util.Utilization = 0.95
	s.Memory = metrics.NewMemoryStats(95, 100, 200, 0)
	res := Score(s, Thresholds{})

	if len(res.Issues) < 3 {
		t.Fatalf("expected at least 3 issues, got %v", res.Issues)
	}
	if !strings.Contains(res.Issues[0], "scheduling lag") {
		t.Errorf("issue[0] = %q, want lag first", res.Issues[0])
	}
	if !strings.Contains(res.Issues[1], "utilization") {
		t.Errorf("issue[1] = %q, want utilization second", res.Issues[1])
	}
	if !strings.Contains(res.Issues[2], "heap") {
		t.Errorf("issue[2] = %q, want memory third", res.Issues[2])
	}
	if res.Message != strings.Join(res.Issues, ", ") {
		t.Error("message should join the issue list")
	}
}

func TestScore_MonotonicInLag(t *testing.T) {
	prev := 101.0
	for lag := 0.0; lag <= 300; lag += 5 {
		res := Score(sampleWithLag(lag), Thresholds{})
		if res.Score > prev {
			t.Fatalf("score increased from %f to %f at lag %f", prev, res.Score, lag)
		}
		prev = res.Score
	}
}

func TestScore_CustomThresholds(t *testing.T) {
	custom := Thresholds{LagWarningMs: 10, LagCriticalMs: 20}
	res := Score(sampleWithLag(15), custom)
	if res.Status != StatusDegraded {
		t.Errorf("status = %s, want degraded with lowered thresholds", res.Status)
	}

	// Unset fields fall back to defaults.
	s := sampleWithLag(5)
	s.Util.Utilization = 0.95
	res = Score(s, custom)
	if res.Status != StatusCritical {
		t.Errorf("status = %s, want critical from default util threshold", res.Status)
	}
}

func TestWorse(t *testing.T) {
	if got := worse(StatusHealthy, StatusDegraded); got != StatusDegraded {
		t.Errorf("worse = %s", got)
	}
	if got := worse(StatusCritical, StatusDegraded); got != StatusCritical {
		t.Errorf("worse = %s", got)
	}
}
