// Package health scores a single sample against configurable thresholds,
// producing a bounded [0,100] summary and an ordered issue list.
package health

import (
	"fmt"
	"math"
	"strings"

	"github.com/loopmeter/loopmeter/internal/metrics"
)

// Status is the overall health classification.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

func (s Status) severity() int {
	switch s {
	case StatusCritical:
		return 3
	case StatusDegraded:
		return 2
	case StatusHealthy:
		return 1
	default:
		return 0
	}
}

// worse returns the more severe of the two statuses.
func worse(a, b Status) Status {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// Thresholds configures the scoring boundaries. Zero-valued fields fall
// back to the documented defaults, so callers may override any subset.
type Thresholds struct {
	LagWarningMs  float64 `json:"lagWarningMs"`
	LagCriticalMs float64 `json:"lagCriticalMs"`

	UtilWarning  float64 `json:"utilWarning"`
	UtilCritical float64 `json:"utilCritical"`

	MemoryWarning  float64 `json:"memoryWarning"`
	MemoryCritical float64 `json:"memoryCritical"`
}

// DefaultThresholds returns the documented scoring defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LagWarningMs:   50,
		LagCriticalMs:  100,
		UtilWarning:    0.7,
		UtilCritical:   0.9,
		MemoryWarning:  0.8,
		MemoryCritical: 0.9,
	}
}

// withDefaults fills unset fields from DefaultThresholds.
func (t Thresholds) withDefaults() Thresholds {
	def := DefaultThresholds()
	if t.LagWarningMs <= 0 {
		t.LagWarningMs = def.LagWarningMs
	}
	if t.LagCriticalMs <= 0 {
		t.LagCriticalMs = def.LagCriticalMs
	}
	if t.UtilWarning <= 0 {
		t.UtilWarning = def.UtilWarning
	}
	if t.UtilCritical <= 0 {
		t.UtilCritical = def.UtilCritical
	}
	if t.MemoryWarning <= 0 {
		t.MemoryWarning = def.MemoryWarning
	}
	if t.MemoryCritical <= 0 {
		t.MemoryCritical = def.MemoryCritical
	}
	return t
}

// Snapshot carries the metric values the score was derived from.
type Snapshot struct {
	LagMeanMs   float64 `json:"lagMeanMs"`
	LagP99Ms    float64 `json:"lagP99Ms"`
	Utilization float64 `json:"utilization"`
	MemoryRatio float64 `json:"memoryRatio"`
}

// Result is the scored health of a single sample. It has no persisted
// identity; callers recompute it on demand.
type Result struct {
	Status  Status   `json:"status"`
	Score   float64  `json:"score"`
	Issues  []string `json:"issues,omitempty"`
	Message string   `json:"message"`

	Metrics *Snapshot `json:"metrics,omitempty"`
}

const healthyMessage = "all metrics within configured thresholds"

// Score evaluates a sample against the thresholds. A nil sample yields
// StatusUnknown with score 0: absence of data is an expected state, not an
// error. Penalties accumulate in the fixed order lag, utilization, memory,
// p99 spike, and the issue list preserves that order.
func Score(sample *metrics.Sample, t Thresholds) Result {
	if sample == nil {
		return Result{
			Status:  StatusUnknown,
			Score:   0,
			Message: "no samples available",
		}
	}
	t = t.withDefaults()

	status := StatusHealthy
	penalties := 0.0
	var issues []string

	// Scheduling lag.
	lag := sample.Lag.Mean
	switch {
	case lag >= t.LagCriticalMs:
		over := math.Min((lag-t.LagCriticalMs)/t.LagCriticalMs, 2)
		penalties += 40 + over*20
		status = worse(status, StatusCritical)
		issues = append(issues, fmt.Sprintf("critical scheduling lag: mean %.1fms (threshold %.0fms)", lag, t.LagCriticalMs))
	case lag >= t.LagWarningMs:
		ratio := clamp((lag-t.LagWarningMs)/(t.LagCriticalMs-t.LagWarningMs), 0, 1)
		penalties += 10 + ratio*20
		status = worse(status, StatusDegraded)
		issues = append(issues, fmt.Sprintf("elevated scheduling lag: mean %.1fms (threshold %.0fms)", lag, t.LagWarningMs))
	case lag > 10:
		penalties += math.Min(lag/t.LagWarningMs, 1) * 10
	}

	// Loop utilization.
	u := sample.Util.Utilization
	switch {
	case u >= t.UtilCritical:
		over := math.Min((u-t.UtilCritical)/(1-t.UtilCritical), 1)
		penalties += 40 + over*20
		status = worse(status, StatusCritical)
		issues = append(issues, fmt.Sprintf("critical loop utilization: %.0f%% (threshold %.0f%%)", u*100, t.UtilCritical*100))
	case u >= t.UtilWarning:
		ratio := clamp((u-t.UtilWarning)/(t.UtilCritical-t.UtilWarning), 0, 1)
		penalties += 10 + ratio*20
		status = worse(status, StatusDegraded)
		issues = append(issues, fmt.Sprintf("high loop utilization: %.0f%% (threshold %.0f%%)", u*100, t.UtilWarning*100))
	}

	// Heap pressure, only when the probe supplied memory.
	ratio := sample.Memory.HeapRatio()
	if sample.Memory != nil && sample.Memory.HeapTotal > 0 {
		switch {
		case ratio >= t.MemoryCritical:
			over := math.Min((ratio-t.MemoryCritical)/(1-t.MemoryCritical), 1)
			penalties += 30 + over*15
			status = worse(status, StatusCritical)
			issues = append(issues, fmt.Sprintf("critical heap usage: %.0f%% of total (threshold %.0f%%)", ratio*100, t.MemoryCritical*100))
		case ratio >= t.MemoryWarning:
			band := clamp((ratio-t.MemoryWarning)/(t.MemoryCritical-t.MemoryWarning), 0, 1)
			penalties += 5 + band*15
			status = worse(status, StatusDegraded)
			issues = append(issues, fmt.Sprintf("high heap usage: %.0f%% of total (threshold %.0f%%)", ratio*100, t.MemoryWarning*100))
		case ratio > 0.6:
			penalties += clamp((ratio-0.6)/(t.MemoryWarning-0.6), 0, 1) * 5
		}
	}

	// p99 spike: penalized independently of the mean, but it only ever
	// escalates status to degraded.
	spikeFloor := t.LagCriticalMs * 2
	if sample.Lag.P99 >= spikeFloor {
		penalties += math.Min(sample.Lag.P99/spikeFloor, 1.5) * 10
		status = worse(status, StatusDegraded)
		issues = append(issues, fmt.Sprintf("p99 lag spike: %.1fms", sample.Lag.P99))
	}

	score := math.Round(clamp(100-penalties, 0, 100)*10) / 10

	message := healthyMessage
	if len(issues) > 0 {
		message = strings.Join(issues, ", ")
	}

	return Result{
		Status:  status,
		Score:   score,
		Issues:  issues,
		Message: message,
		Metrics: &Snapshot{
			LagMeanMs:   sample.Lag.Mean,
			LagP99Ms:    sample.Lag.P99,
			Utilization: sample.Util.Utilization,
			MemoryRatio: ratio,
		},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
