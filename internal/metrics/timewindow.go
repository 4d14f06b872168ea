package metrics

import "time"

// TimeWindow is a named time range for aggregation queries.
type TimeWindow int

const (
	TimeWindow1m TimeWindow = iota
	TimeWindow5m
	TimeWindow15m
	TimeWindow1h
)

// Duration returns the time.Duration for the window.
func (tw TimeWindow) Duration() time.Duration {
	switch tw {
	case TimeWindow1m:
		return time.Minute
	case TimeWindow5m:
		return 5 * time.Minute
	case TimeWindow15m:
		return 15 * time.Minute
	case TimeWindow1h:
		return time.Hour
	default:
		return time.Minute
	}
}

// String returns a display label.
func (tw TimeWindow) String() string {
	switch tw {
	case TimeWindow1m:
		return "1m"
	case TimeWindow5m:
		return "5m"
	case TimeWindow15m:
		return "15m"
	case TimeWindow1h:
		return "1h"
	default:
		return "1m"
	}
}

// ParseTimeWindow maps a label like "5m" to its TimeWindow. The second
// return is false for unknown labels.
func ParseTimeWindow(label string) (TimeWindow, bool) {
	switch label {
	case "1m":
		return TimeWindow1m, true
	case "5m":
		return TimeWindow5m, true
	case "15m":
		return TimeWindow15m, true
	case "1h":
		return TimeWindow1h, true
	default:
		return TimeWindow1m, false
	}
}

// AllTimeWindows returns all named windows in ascending order.
func AllTimeWindows() []TimeWindow {
	return []TimeWindow{TimeWindow1m, TimeWindow5m, TimeWindow15m, TimeWindow1h}
}
