package alerts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/loopmeter/loopmeter/internal/health"
	"github.com/loopmeter/loopmeter/internal/logger"
	"github.com/loopmeter/loopmeter/internal/metrics"
)

// DefaultCooldown is the minimum gap between repeat firings for an
// unchanged level.
const DefaultCooldown = 30 * time.Second

// DefaultPollInterval is how often the notifier re-evaluates health.
const DefaultPollInterval = 5 * time.Second

// ErrNoMonitor is returned when a notifier is constructed without a
// monitor source.
var ErrNoMonitor = errors.New("alerts: notifier requires a monitor")

// ErrMonitorInactive is returned when Start is called while the monitor is
// not sampling.
var ErrMonitorInactive = errors.New("alerts: monitor is not active")

// Source is the narrow slice of the monitor the notifier consumes.
type Source interface {
	IsActive() bool
	CurrentMetrics() *metrics.Sample
}

// Sink receives alert events.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// metricState tracks the firing history for one metric.
type metricState struct {
	level     Level
	lastFired time.Time
}

// Notifier polls current health and emits alert events to its sinks.
//
// Firing rules, per metric: an upward level transition fires immediately;
// an unchanged active level re-fires once the cooldown has elapsed since
// the last firing; a transition to none emits exactly one resolved event.
// Downward transitions between active levels update state silently.
type Notifier struct {
	source     Source
	thresholds health.Thresholds
	cooldown   time.Duration
	interval   time.Duration
	sinks      []Sink

	now func() time.Time

	mu      sync.Mutex
	states  map[Metric]*metricState
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithThresholds overrides the evaluation thresholds.
func WithThresholds(t health.Thresholds) NotifierOption {
	return func(n *Notifier) { n.thresholds = t }
}

// WithCooldown overrides the repeat-firing cooldown.
func WithCooldown(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.cooldown = d
		}
	}
}

// WithPollInterval overrides the evaluation period.
func WithPollInterval(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.interval = d
		}
	}
}

// WithSink appends a delivery sink.
func WithSink(s Sink) NotifierOption {
	return func(n *Notifier) { n.sinks = append(n.sinks, s) }
}

// NewNotifier creates a notifier for the given monitor source. A nil
// source is a configuration error.
func NewNotifier(source Source, opts ...NotifierOption) (*Notifier, error) {
	if source == nil {
		return nil, ErrNoMonitor
	}
	n := &Notifier{
		source:     source,
		thresholds: health.DefaultThresholds(),
		cooldown:   DefaultCooldown,
		interval:   DefaultPollInterval,
		now:        time.Now,
		states:     make(map[Metric]*metricState),
	}
	for _, m := range AllMetrics() {
		n.states[m] = &metricState{level: LevelNone}
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Start begins the evaluation loop. Starting against an inactive monitor
// is a state error.
func (n *Notifier) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return nil
	}
	if !n.source.IsActive() {
		return ErrMonitorInactive
	}
	if ctx == nil {
		ctx = context.Background()
	}

	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.running = true

	n.wg.Add(1)
	go n.loop(runCtx)

	logger.Info("alert notifier started", "interval", n.interval, "cooldown", n.cooldown)
	return nil
}

// Stop halts the evaluation loop. Idempotent.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	cancel := n.cancel
	n.mu.Unlock()

	cancel()
	n.wg.Wait()
	logger.Info("alert notifier stopped")
}

func (n *Notifier) loop(ctx context.Context) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, e := range n.Evaluate() {
				n.deliver(ctx, e)
			}
		}
	}
}

// Evaluate runs one evaluation pass and returns the events it produced.
// Exposed so embedders can drive the notifier from their own scheduler.
func (n *Notifier) Evaluate() []Event {
	readings := EvaluateLevels(n.source.CurrentMetrics(), n.thresholds)
	now := n.now()

	n.mu.Lock()
	defer n.mu.Unlock()

	var events []Event
	for _, r := range readings {
		state := n.states[r.Metric]
		prev := state.level

		switch {
		case r.Level.rank() > prev.rank():
			events = append(events, newEvent(EventTriggered, r, prev, now))
			state.lastFired = now

		case r.Level == prev && r.Level.IsActive():
			if now.Sub(state.lastFired) >= n.cooldown {
				events = append(events, newEvent(EventTriggered, r, prev, now))
				state.lastFired = now
			}

		case r.Level == LevelNone && prev.IsActive():
			events = append(events, newEvent(EventResolved, r, prev, now))
			state.lastFired = time.Time{}
		}

		state.level = r.Level
	}
	return events
}

// States returns a copy of the current per-metric levels.
func (n *Notifier) States() map[Metric]Level {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[Metric]Level, len(n.states))
	for m, s := range n.states {
		out[m] = s.level
	}
	return out
}

func (n *Notifier) deliver(ctx context.Context, e Event) {
	for _, sink := range n.sinks {
		if err := sink.Deliver(ctx, e); err != nil {
			logger.Warn("alert delivery failed",
				"metric", e.Metric,
				"type", e.Type,
				"error", err.Error())
		}
	}
}

// LogSink writes events to the structured log.
type LogSink struct{}

// Deliver logs the event.
func (LogSink) Deliver(_ context.Context, e Event) error {
	if e.Type == EventResolved {
		logger.Info("alert resolved", "metric", e.Metric, "was", e.PrevLevel)
		return nil
	}
	logger.Warn("alert triggered",
		"metric", e.Metric,
		"level", e.Level,
		"value", e.Value,
		"threshold", e.Threshold)
	return nil
}
