// Package metrics provides the sample model, circular-buffer storage, and
// aggregation engine for scheduling-loop health monitoring.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// Sample is a single point-in-time measurement of scheduling-loop health.
// Samples are value types: assembled once per tick and never mutated after
// creation. Memory, CPU, and Handles are optional and nil when the probe
// could not provide them.
type Sample struct {
	// Timestamp is wall-clock milliseconds at capture time.
	Timestamp int64 `json:"timestamp"`

	// Lag is the queueing-delay distribution observed since the previous
	// sample, in milliseconds.
	Lag LagStats `json:"lag"`

	// Util is the loop utilization since the previous sample.
	Util UtilStats `json:"util"`

	Memory  *MemoryStats `json:"memory,omitempty"`
	CPU     *CPUStats    `json:"cpu,omitempty"`
	Handles *HandleStats `json:"handles,omitempty"`

	// Requests holds the request counters accumulated since the previous
	// sample. The counters reset to zero on every tick.
	Requests RequestStats `json:"requests"`
}

// LagStats summarizes the per-interval delay distribution in milliseconds.
type LagStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	P999   float64 `json:"p999"`
}

// UtilStats holds the utilization fraction for the interval plus the raw
// active/idle millisecond split it was derived from.
type UtilStats struct {
	Utilization float64 `json:"utilization"`
	ActiveMs    float64 `json:"activeMs"`
	IdleMs      float64 `json:"idleMs"`
}

// MemoryStats is a point-in-time memory snapshot in bytes, with
// pre-formatted human-readable strings for display surfaces.
type MemoryStats struct {
	HeapUsed  uint64 `json:"heapUsed"`
	HeapTotal uint64 `json:"heapTotal"`
	RSS       uint64 `json:"rss"`
	External  uint64 `json:"external"`

	HeapUsedMB  string `json:"heapUsedMB"`
	HeapTotalMB string `json:"heapTotalMB"`
	RSSMB       string `json:"rssMB"`
}

// NewMemoryStats builds a MemoryStats with the display strings filled in.
func NewMemoryStats(heapUsed, heapTotal, rss, external uint64) *MemoryStats {
	return &MemoryStats{
		HeapUsed:    heapUsed,
		HeapTotal:   heapTotal,
		RSS:         rss,
		External:    external,
		HeapUsedMB:  humanize.IBytes(heapUsed),
		HeapTotalMB: humanize.IBytes(heapTotal),
		RSSMB:       humanize.IBytes(rss),
	}
}

// HeapRatio returns heapUsed/heapTotal, or 0 when heapTotal is zero.
func (m *MemoryStats) HeapRatio() float64 {
	if m == nil || m.HeapTotal == 0 {
		return 0
	}
	return float64(m.HeapUsed) / float64(m.HeapTotal)
}

// CPUStats holds CPU time consumed since the previous sample, in
// milliseconds.
type CPUStats struct {
	UserMs   float64 `json:"userMs"`
	SystemMs float64 `json:"systemMs"`
	TotalMs  float64 `json:"totalMs"`
}

// HandleStats counts outstanding asynchronous resources at capture time.
type HandleStats struct {
	Active   int `json:"active"`
	Requests int `json:"requests"`
	Total    int `json:"total"`
}

// RequestStats holds request-tracking counters accumulated over the
// interval.
type RequestStats struct {
	Count       int64   `json:"count"`
	TotalTimeMs float64 `json:"totalTimeMs"`
	AvgTimeMs   float64 `json:"avgTimeMs"`
}

// ErrInvalidSample is the sentinel wrapped by all sample validation
// failures.
var ErrInvalidSample = errors.New("invalid sample")

// Validate checks the sample invariants: a positive timestamp, finite
// non-negative numeric fields, lag ordering (max >= mean >= min), and
// utilization within [0, 1]. It returns nil for a well-formed sample.
func (s Sample) Validate() error {
	if s.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp %d is not positive", ErrInvalidSample, s.Timestamp)
	}

	lagFields := map[string]float64{
		"lag.min": s.Lag.Min, "lag.max": s.Lag.Max, "lag.mean": s.Lag.Mean,
		"lag.stddev": s.Lag.StdDev, "lag.p50": s.Lag.P50, "lag.p90": s.Lag.P90,
		"lag.p95": s.Lag.P95, "lag.p99": s.Lag.P99, "lag.p999": s.Lag.P999,
	}
	for name, v := range lagFields {
		if err := checkFinite(name, v); err != nil {
			return err
		}
	}
	if s.Lag.Max < s.Lag.Mean || s.Lag.Mean < s.Lag.Min {
		return fmt.Errorf("%w: lag ordering violated (min=%.3f mean=%.3f max=%.3f)",
			ErrInvalidSample, s.Lag.Min, s.Lag.Mean, s.Lag.Max)
	}

	if err := checkFinite("util.activeMs", s.Util.ActiveMs); err != nil {
		return err
	}
	if err := checkFinite("util.idleMs", s.Util.IdleMs); err != nil {
		return err
	}
	if math.IsNaN(s.Util.Utilization) || s.Util.Utilization < 0 || s.Util.Utilization > 1 {
		return fmt.Errorf("%w: utilization %.4f outside [0,1]", ErrInvalidSample, s.Util.Utilization)
	}

	if s.CPU != nil {
		for name, v := range map[string]float64{
			"cpu.userMs": s.CPU.UserMs, "cpu.systemMs": s.CPU.SystemMs, "cpu.totalMs": s.CPU.TotalMs,
		} {
			if err := checkFinite(name, v); err != nil {
				return err
			}
		}
	}
	if s.Handles != nil {
		if s.Handles.Active < 0 || s.Handles.Requests < 0 || s.Handles.Total < 0 {
			return fmt.Errorf("%w: negative handle count", ErrInvalidSample)
		}
	}

	if s.Requests.Count < 0 {
		return fmt.Errorf("%w: negative request count %d", ErrInvalidSample, s.Requests.Count)
	}
	if err := checkFinite("requests.totalTimeMs", s.Requests.TotalTimeMs); err != nil {
		return err
	}
	if err := checkFinite("requests.avgTimeMs", s.Requests.AvgTimeMs); err != nil {
		return err
	}

	return nil
}

// IsValid reports whether the sample passes Validate.
func (s Sample) IsValid() bool {
	return s.Validate() == nil
}

// Time returns the capture timestamp as a time.Time.
func (s Sample) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s is not finite", ErrInvalidSample, name)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s is negative (%.3f)", ErrInvalidSample, name, v)
	}
	return nil
}
