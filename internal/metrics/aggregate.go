package metrics

import (
	"math"
	"sort"
	"strconv"
)

// DefaultPercentiles are computed for every field unless a caller asks for
// a different set.
var DefaultPercentiles = []float64{50, 90, 95, 99}

// FieldStats summarizes one numeric field across a sample window.
type FieldStats struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"stddev"`
	Variance float64 `json:"variance"`
	Count    int     `json:"count"`

	// Percentiles is keyed "p50", "p90", ... matching the requested set.
	Percentiles map[string]float64 `json:"percentiles,omitempty"`
}

// WindowInfo describes the time span an aggregation covers.
type WindowInfo struct {
	Start       int64 `json:"start"`
	End         int64 `json:"end"`
	DurationMs  int64 `json:"durationMs"`
	SampleCount int   `json:"sampleCount"`
}

// LagAggregate carries stats for the lag fields worth aggregating across
// samples.
type LagAggregate struct {
	Mean FieldStats `json:"mean"`
	Max  FieldStats `json:"max"`
	P99  FieldStats `json:"p99"`
}

// MemoryAggregate carries stats for the optional memory family.
type MemoryAggregate struct {
	HeapUsed FieldStats `json:"heapUsed"`
	RSS      FieldStats `json:"rss"`
}

// RequestAggregate carries stats for the request counters.
type RequestAggregate struct {
	Count   FieldStats `json:"count"`
	AvgTime FieldStats `json:"avgTime"`
}

// AggregationResult is the computed-on-demand statistics tree for a sample
// window. Optional families are nil when no sample in the window carried
// them.
type AggregationResult struct {
	Window   WindowInfo       `json:"window"`
	Lag      LagAggregate     `json:"lag"`
	Util     FieldStats       `json:"util"`
	Memory   *MemoryAggregate `json:"memory,omitempty"`
	CPU      *FieldStats      `json:"cpu,omitempty"`
	Requests RequestAggregate `json:"requests"`
	Handles  *FieldStats      `json:"handles,omitempty"`
}

// Percentile computes the p-th percentile of values using linear
// interpolation between bracketing order statistics. An empty input yields
// 0; a single value is returned unchanged for any p.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return values[0]
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	idx := (p / 100) * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Summarize computes FieldStats for values with the given percentile set.
// Empty input returns a zero-filled FieldStats rather than dividing by
// zero.
func Summarize(values []float64, percentiles []float64) FieldStats {
	stats := FieldStats{Count: len(values)}
	if len(values) == 0 {
		return stats
	}

	stats.Min = values[0]
	stats.Max = values[0]
	sum := 0.0
	for _, v := range values {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		sum += v
	}
	stats.Mean = sum / float64(len(values))

	varSum := 0.0
	for _, v := range values {
		d := v - stats.Mean
		varSum += d * d
	}
	stats.Variance = varSum / float64(len(values))
	stats.StdDev = math.Sqrt(stats.Variance)

	stats.Median = Percentile(values, 50)
	if len(percentiles) > 0 {
		stats.Percentiles = make(map[string]float64, len(percentiles))
		for _, p := range percentiles {
			stats.Percentiles[percentileKey(p)] = Percentile(values, p)
		}
	}
	return stats
}

func percentileKey(p float64) string {
	// p999 style keys: 99.9 -> "p999", 50 -> "p50".
	if p == math.Trunc(p) {
		return "p" + strconv.Itoa(int(p))
	}
	return "p" + strconv.Itoa(int(math.Round(p*10)))
}

// Aggregate computes per-family statistics over a chronological sample
// slice. It returns nil for an empty input: "no data yet" is an expected
// steady state, not an error.
func Aggregate(samples []Sample) *AggregationResult {
	return AggregateWith(samples, DefaultPercentiles)
}

// AggregateWith is Aggregate with a caller-chosen percentile set.
func AggregateWith(samples []Sample, percentiles []float64) *AggregationResult {
	if len(samples) == 0 {
		return nil
	}

	res := &AggregationResult{
		Window: WindowInfo{
			Start:       samples[0].Timestamp,
			End:         samples[len(samples)-1].Timestamp,
			DurationMs:  samples[len(samples)-1].Timestamp - samples[0].Timestamp,
			SampleCount: len(samples),
		},
		Lag: LagAggregate{
			Mean: Summarize(collect(samples, SelectLagMean), percentiles),
			Max:  Summarize(collect(samples, SelectLagMax), percentiles),
			P99:  Summarize(collect(samples, SelectLagP99), percentiles),
		},
		Util: Summarize(collect(samples, SelectUtilization), percentiles),
		Requests: RequestAggregate{
			Count:   Summarize(collect(samples, SelectRequestCount), percentiles),
			AvgTime: Summarize(collect(samples, SelectRequestAvg), percentiles),
		},
	}

	if heap := collect(samples, SelectHeapUsed); len(heap) > 0 {
		res.Memory = &MemoryAggregate{
			HeapUsed: Summarize(heap, percentiles),
			RSS:      Summarize(collect(samples, SelectRSS), percentiles),
		}
	}
	if cpu := collect(samples, SelectCPUTotal); len(cpu) > 0 {
		stats := Summarize(cpu, percentiles)
		res.CPU = &stats
	}
	if handles := collect(samples, SelectHandlesActive); len(handles) > 0 {
		stats := Summarize(handles, percentiles)
		res.Handles = &stats
	}
	return res
}
