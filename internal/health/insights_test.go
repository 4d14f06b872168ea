package health

import (
	"testing"

	"github.com/loopmeter/loopmeter/internal/metrics"
)

func memorySample(ts int64, heapUsed uint64) metrics.Sample {
	s := *sampleWithLag(5)
	s.Timestamp = ts
	s.Memory = metrics.NewMemoryStats(heapUsed, 1000, 2000, 0)
	return s
}

func TestInsights_HealthyEmitsSingleAdvisory(t *testing.T) {
	current := *sampleWithLag(5)
	result := Score(&current, Thresholds{})

	insights := Insights(current, nil, result)
	if len(insights) != 1 {
		t.Fatalf("expected exactly one advisory, got %d", len(insights))
	}
	if insights[0].Type != InsightOptimization || insights[0].Severity != SeverityInfo {
		t.Errorf("unexpected advisory: %+v", insights[0])
	}
}

func TestInsights_NoAdvisoryWhenUnhealthy(t *testing.T) {
	// Degraded status but no insight rule fires: lag 45ms is under the
	// fixed 50ms boundary, p99 spike only affects the scorer.
	current := *sampleWithLag(45)
	current.Lag.P99 = 250
	current.Lag.Max = 300
	result := Score(&current, Thresholds{})
	if result.Status != StatusDegraded {
		t.Fatalf("setup: status = %s, want degraded", result.Status)
	}

	if got := Insights(current, nil, result); len(got) != 0 {
		t.Errorf("expected no insights, got %v", got)
	}
}

func TestInsights_LagSeverities(t *testing.T) {
	warn := *sampleWithLag(60)
	got := Insights(warn, nil, Score(&warn, Thresholds{}))
	if len(got) != 1 || got[0].Type != InsightLag || got[0].Severity != SeverityWarning {
		t.Errorf("lag 60ms: got %+v", got)
	}

	crit := *sampleWithLag(200)
	got = Insights(crit, nil, Score(&crit, Thresholds{}))
	found := false
	for _, in := range got {
		if in.Type == InsightLag && in.Severity == SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Errorf("lag 200ms: expected critical lag insight, got %+v", got)
	}
}

func TestInsights_MultipleRulesFireIndependently(t *testing.T) {
	current := *sampleWithLag(60)
	current.Util.Utilization = 0.8
	current.Memory = metrics.NewMemoryStats(850, 1000, 2000, 0)
	result := Score(&current, Thresholds{})

	insights := Insights(current, nil, result)
	types := map[string]bool{}
	for _, in := range insights {
		types[in.Type] = true
	}
	for _, want := range []string{InsightLag, InsightUtilization, InsightMemory} {
		if !types[want] {
			t.Errorf("expected %s insight, got %v", want, types)
		}
	}
	if types[InsightOptimization] {
		t.Error("optimization advisory must not fire alongside other insights")
	}
}

func TestInsights_MemoryGrowth(t *testing.T) {
	// First half averages 100, second half 200: 100% growth, critical.
	recent := []metrics.Sample{
		memorySample(1000, 100),
		memorySample(2000, 100),
		memorySample(3000, 200),
		memorySample(4000, 200),
	}
	current := *sampleWithLag(5)
	result := Score(&current, Thresholds{})

	insights := Insights(current, recent, result)
	found := false
	for _, in := range insights {
		if in.Type == InsightMemoryGrowth && in.Severity == SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Errorf("expected critical memory-growth insight, got %+v", insights)
	}
}

func TestInsights_GrowthNeedsHistory(t *testing.T) {
	// Three memory-bearing samples is below the comparison minimum.
	recent := []metrics.Sample{
		memorySample(1000, 100),
		memorySample(2000, 200),
		memorySample(3000, 400),
	}
	current := *sampleWithLag(5)
	result := Score(&current, Thresholds{})

	insights := Insights(current, recent, result)
	for _, in := range insights {
		if in.Type == InsightMemoryGrowth {
			t.Errorf("growth insight fired with insufficient history: %+v", in)
		}
	}
}

func TestInsights_GrowthWarning(t *testing.T) {
	// 30% growth lands in the warning band.
	recent := []metrics.Sample{
		memorySample(1000, 100),
		memorySample(2000, 100),
		memorySample(3000, 130),
		memorySample(4000, 130),
	}
	current := *sampleWithLag(5)
	insights := Insights(current, recent, Score(&current, Thresholds{}))

	found := false
	for _, in := range insights {
		if in.Type == InsightMemoryGrowth && in.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("expected warning growth insight, got %+v", insights)
	}
}
