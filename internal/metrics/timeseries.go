package metrics

import (
	"math"

	"github.com/VividCortex/ewma"
)

// TimeSeriesPoint is one projected sample: a timestamp plus the fields
// selected for the requested metric family.
type TimeSeriesPoint struct {
	Timestamp int64              `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// Trend directions.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// stableBandPercent is the |change%| at or below which a trend is reported
// as stable.
const stableBandPercent = 5

// Trend compares a recent window against an earlier one.
type Trend struct {
	ChangePercent float64 `json:"changePercent"`
	Direction     string  `json:"direction"`
}

// timeSeriesFields maps metric family names to their projected fields.
var timeSeriesFields = map[string]map[string]FieldSelector{
	"lag": {
		"mean": SelectLagMean,
		"max":  SelectLagMax,
		"p50":  func(s Sample) (float64, bool) { return s.Lag.P50, true },
		"p99":  SelectLagP99,
	},
	"util": {
		"utilization": SelectUtilization,
		"activeMs":    func(s Sample) (float64, bool) { return s.Util.ActiveMs, true },
		"idleMs":      func(s Sample) (float64, bool) { return s.Util.IdleMs, true },
	},
	"memory": {
		"heapUsed": SelectHeapUsed,
		"heapTotal": func(s Sample) (float64, bool) {
			if s.Memory == nil {
				return 0, false
			}
			return float64(s.Memory.HeapTotal), true
		},
		"rss": SelectRSS,
	},
	"cpu": {
		"userMs": func(s Sample) (float64, bool) {
			if s.CPU == nil {
				return 0, false
			}
			return s.CPU.UserMs, true
		},
		"systemMs": func(s Sample) (float64, bool) {
			if s.CPU == nil {
				return 0, false
			}
			return s.CPU.SystemMs, true
		},
		"totalMs": SelectCPUTotal,
	},
	"requests": {
		"count":       SelectRequestCount,
		"totalTimeMs": func(s Sample) (float64, bool) { return s.Requests.TotalTimeMs, true },
		"avgTimeMs":   SelectRequestAvg,
	},
	"handles": {
		"active": SelectHandlesActive,
		"requests": func(s Sample) (float64, bool) {
			if s.Handles == nil {
				return 0, false
			}
			return float64(s.Handles.Requests), true
		},
		"total": func(s Sample) (float64, bool) {
			if s.Handles == nil {
				return 0, false
			}
			return float64(s.Handles.Total), true
		},
	},
}

// TimeSeriesMetrics lists the metric family names TimeSeries understands.
func TimeSeriesMetrics() []string {
	return []string{"lag", "util", "memory", "cpu", "requests", "handles"}
}

// TimeSeries projects samples into per-timestamp points for one metric
// family, preserving input order. An unknown metric name yields an empty
// series, not an error.
func TimeSeries(samples []Sample, metric string) []TimeSeriesPoint {
	fields, ok := timeSeriesFields[metric]
	if !ok {
		return nil
	}

	points := make([]TimeSeriesPoint, 0, len(samples))
	for _, s := range samples {
		values := make(map[string]float64, len(fields))
		for name, sel := range fields {
			if v, selected := sel(s); selected {
				values[name] = v
			}
		}
		points = append(points, TimeSeriesPoint{Timestamp: s.Timestamp, Values: values})
	}
	return points
}

// ComputeTrend compares the means of two value windows. A zero-mean
// earlier window yields {0, stable} rather than an infinite change.
func ComputeTrend(recent, earlier []float64) Trend {
	earlierMean := mean(earlier)
	recentMean := mean(recent)

	if earlierMean == 0 {
		return Trend{ChangePercent: 0, Direction: TrendStable}
	}

	change := (recentMean - earlierMean) / earlierMean * 100
	direction := TrendStable
	if math.Abs(change) > stableBandPercent {
		if change > 0 {
			direction = TrendUp
		} else {
			direction = TrendDown
		}
	}
	return Trend{ChangePercent: change, Direction: direction}
}

// MovingAverage smooths series with a trailing arithmetic window. The
// result has length len(series)-windowSize+1; inputs shorter than the
// window are returned unchanged.
func MovingAverage(series []float64, windowSize int) []float64 {
	if windowSize <= 0 || len(series) < windowSize {
		return series
	}

	out := make([]float64, 0, len(series)-windowSize+1)
	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= windowSize {
			sum -= series[i-windowSize]
		}
		if i >= windowSize-1 {
			out = append(out, sum/float64(windowSize))
		}
	}
	return out
}

// SmoothEWMA smooths series with an exponentially weighted moving average
// of the given age (larger ages react more slowly). The result has the
// same length as the input.
func SmoothEWMA(series []float64, age float64) []float64 {
	if len(series) == 0 {
		return series
	}
	if age < 1 {
		age = ewma.AVG_METRIC_AGE
	}

	avg := ewma.NewMovingAverage(age)
	out := make([]float64, len(series))
	for i, v := range series {
		avg.Add(v)
		out[i] = avg.Value()
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
