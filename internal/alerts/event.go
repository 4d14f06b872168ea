package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType distinguishes firings from resolutions.
type EventType string

const (
	EventTriggered EventType = "triggered"
	EventResolved  EventType = "resolved"
)

// Event is one alert notification delivered to sinks.
type Event struct {
	// ID uniquely identifies the event across restarts.
	ID string `json:"id"`

	Type      EventType `json:"type"`
	Metric    Metric    `json:"metric"`
	Level     Level     `json:"level"`
	PrevLevel Level     `json:"prevLevel"`

	// Value is the metric reading that produced the event; Threshold is
	// the boundary it crossed (zero for resolutions).
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`

	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(t EventType, r Reading, prev Level, now time.Time) Event {
	e := Event{
		ID:        uuid.NewString(),
		Type:      t,
		Metric:    r.Metric,
		Level:     r.Level,
		PrevLevel: prev,
		Value:     r.Value,
		Threshold: r.Threshold,
		Timestamp: now,
	}
	if t == EventResolved {
		e.Message = fmt.Sprintf("%s recovered (was %s)", r.Metric, prev)
	} else {
		e.Message = fmt.Sprintf("%s is %s: %.3f (threshold %.3f)", r.Metric, r.Level, r.Value, r.Threshold)
	}
	return e
}
