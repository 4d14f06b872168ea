package health

import (
	"fmt"

	"github.com/loopmeter/loopmeter/internal/metrics"
)

// Insight severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Insight types.
const (
	InsightLag          = "lag"
	InsightUtilization  = "utilization"
	InsightMemory       = "memory"
	InsightMemoryGrowth = "memory-growth"
	InsightOptimization = "optimization"
)

// Insight is an advisory derived from the current sample and recent
// history. Insights use fixed design constants and are distinct from the
// scorer's configurable thresholds.
type Insight struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

// Fixed rule constants. These are deliberately not configurable; dashboards
// depend on the advisory text staying aligned with these boundaries.
const (
	insightLagWarnMs  = 50
	insightLagCritMs  = 100
	insightUtilWarn   = 0.7
	insightUtilCrit   = 0.9
	insightHeapWarn   = 0.8
	insightHeapCrit   = 0.9
	insightGrowthWarn = 20 // percent over the trailing window
	insightGrowthCrit = 50
)

// Insights evaluates the fixed advisory rules against the current sample
// and recent history. Rules fire independently; when none fire and the
// health result is healthy, exactly one optimization advisory is emitted.
func Insights(current metrics.Sample, recent []metrics.Sample, result Result) []Insight {
	var insights []Insight

	if lag := current.Lag.Mean; lag > insightLagCritMs {
		insights = append(insights, Insight{
			Type:           InsightLag,
			Severity:       SeverityCritical,
			Title:          "Severe scheduling delay",
			Message:        fmt.Sprintf("Mean scheduling lag is %.1fms, above the %dms critical boundary.", lag, insightLagCritMs),
			Recommendation: "Profile for long-running synchronous work and break it into smaller units.",
		})
	} else if lag > insightLagWarnMs {
		insights = append(insights, Insight{
			Type:           InsightLag,
			Severity:       SeverityWarning,
			Title:          "Elevated scheduling delay",
			Message:        fmt.Sprintf("Mean scheduling lag is %.1fms, above the %dms warning boundary.", lag, insightLagWarnMs),
			Recommendation: "Look for blocking calls or oversized batches on the hot path.",
		})
	}

	if u := current.Util.Utilization; u > insightUtilCrit {
		insights = append(insights, Insight{
			Type:           InsightUtilization,
			Severity:       SeverityCritical,
			Title:          "Loop saturated",
			Message:        fmt.Sprintf("Utilization is %.0f%%; the loop has almost no idle time left.", u*100),
			Recommendation: "Shed load or scale out; there is no headroom for traffic spikes.",
		})
	} else if u > insightUtilWarn {
		insights = append(insights, Insight{
			Type:           InsightUtilization,
			Severity:       SeverityWarning,
			Title:          "High loop utilization",
			Message:        fmt.Sprintf("Utilization is %.0f%%, above the %.0f%% warning boundary.", u*100, insightUtilWarn*100),
			Recommendation: "Offload CPU-heavy work to background workers before saturation.",
		})
	}

	if r := current.Memory.HeapRatio(); r > insightHeapCrit {
		insights = append(insights, Insight{
			Type:           InsightMemory,
			Severity:       SeverityCritical,
			Title:          "Heap nearly exhausted",
			Message:        fmt.Sprintf("Heap usage is %.0f%% of total.", r*100),
			Recommendation: "Capture a heap profile; an allocation failure may be imminent.",
		})
	} else if r > insightHeapWarn {
		insights = append(insights, Insight{
			Type:           InsightMemory,
			Severity:       SeverityWarning,
			Title:          "High heap usage",
			Message:        fmt.Sprintf("Heap usage is %.0f%% of total.", r*100),
			Recommendation: "Review caches and retained buffers for unbounded growth.",
		})
	}

	if growth, ok := heapGrowthPercent(recent); ok {
		if growth > insightGrowthCrit {
			insights = append(insights, Insight{
				Type:           InsightMemoryGrowth,
				Severity:       SeverityCritical,
				Title:          "Rapid memory growth",
				Message:        fmt.Sprintf("Heap grew %.0f%% across the recent window.", growth),
				Recommendation: "Likely leak: compare heap profiles from the start and end of the window.",
			})
		} else if growth > insightGrowthWarn {
			insights = append(insights, Insight{
				Type:           InsightMemoryGrowth,
				Severity:       SeverityWarning,
				Title:          "Memory trending upward",
				Message:        fmt.Sprintf("Heap grew %.0f%% across the recent window.", growth),
				Recommendation: "Watch for a leak; growth past 50% will be flagged as critical.",
			})
		}
	}

	if len(insights) == 0 && result.Status == StatusHealthy {
		insights = append(insights, Insight{
			Type:           InsightOptimization,
			Severity:       SeverityInfo,
			Title:          "System healthy",
			Message:        "All monitored signals are inside their advisory boundaries.",
			Recommendation: "Consider lowering the sample interval for finer-grained history.",
		})
	}

	return insights
}

// heapGrowthPercent splits the trailing window in half and compares mean
// heap usage between the halves. The second return is false when there is
// not enough memory-bearing history to compare.
func heapGrowthPercent(recent []metrics.Sample) (float64, bool) {
	values := make([]float64, 0, len(recent))
	for _, s := range recent {
		if s.Memory != nil {
			values = append(values, float64(s.Memory.HeapUsed))
		}
	}
	if len(values) < 4 {
		return 0, false
	}

	half := len(values) / 2
	trend := metrics.ComputeTrend(values[half:], values[:half])
	return trend.ChangePercent, true
}
