// Package alerts turns health readings into per-metric alert levels and
// dispatches notifications with cooldown and hysteresis.
package alerts

import (
	"github.com/loopmeter/loopmeter/internal/health"
	"github.com/loopmeter/loopmeter/internal/metrics"
)

// Level is the severity of one monitored metric.
type Level string

const (
	// LevelNone means the metric is inside its thresholds.
	LevelNone Level = "none"
	// LevelWarning means the warning threshold is crossed.
	LevelWarning Level = "warning"
	// LevelCritical means the critical threshold is crossed.
	LevelCritical Level = "critical"
)

func (l Level) rank() int {
	switch l {
	case LevelCritical:
		return 2
	case LevelWarning:
		return 1
	default:
		return 0
	}
}

// IsActive reports whether the level is warning or critical.
func (l Level) IsActive() bool {
	return l == LevelWarning || l == LevelCritical
}

// Metric identifies one monitored signal.
type Metric string

const (
	MetricLag         Metric = "lag"
	MetricUtilization Metric = "utilization"
	MetricMemory      Metric = "memory"
	MetricLagSpike    Metric = "lag_spike"
)

// AllMetrics lists the monitored signals in evaluation order.
func AllMetrics() []Metric {
	return []Metric{MetricLag, MetricUtilization, MetricMemory, MetricLagSpike}
}

// Reading is one metric's evaluated level plus the values behind it.
type Reading struct {
	Metric    Metric
	Level     Level
	Value     float64
	Threshold float64
}

// EvaluateLevels derives per-metric levels from a sample. A nil sample
// (monitor stopped or no data) yields LevelNone for every metric.
func EvaluateLevels(sample *metrics.Sample, t health.Thresholds) []Reading {
	readings := []Reading{
		{Metric: MetricLag, Level: LevelNone},
		{Metric: MetricUtilization, Level: LevelNone},
		{Metric: MetricMemory, Level: LevelNone},
		{Metric: MetricLagSpike, Level: LevelNone},
	}
	if sample == nil {
		return readings
	}

	if lag := sample.Lag.Mean; lag >= t.LagCriticalMs {
		readings[0] = Reading{MetricLag, LevelCritical, lag, t.LagCriticalMs}
	} else if lag >= t.LagWarningMs {
		readings[0] = Reading{MetricLag, LevelWarning, lag, t.LagWarningMs}
	} else {
		readings[0].Value = lag
	}

	if u := sample.Util.Utilization; u >= t.UtilCritical {
		readings[1] = Reading{MetricUtilization, LevelCritical, u, t.UtilCritical}
	} else if u >= t.UtilWarning {
		readings[1] = Reading{MetricUtilization, LevelWarning, u, t.UtilWarning}
	} else {
		readings[1].Value = u
	}

	if r := sample.Memory.HeapRatio(); r >= t.MemoryCritical {
		readings[2] = Reading{MetricMemory, LevelCritical, r, t.MemoryCritical}
	} else if r >= t.MemoryWarning {
		readings[2] = Reading{MetricMemory, LevelWarning, r, t.MemoryWarning}
	} else {
		readings[2].Value = r
	}

	if spike := sample.Lag.P99; spike >= t.LagCriticalMs*2 {
		readings[3] = Reading{MetricLagSpike, LevelWarning, spike, t.LagCriticalMs * 2}
	} else {
		readings[3].Value = spike
	}

	return readings
}
