package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/loopmeter/loopmeter/internal/health"
	"github.com/loopmeter/loopmeter/internal/metrics"
	"github.com/loopmeter/loopmeter/internal/probe"
)

// DefaultAggregationTTL bounds how long a cached aggregation may be served
// when no insert has occurred in the meantime.
const DefaultAggregationTTL = time.Second

// Config is the monitor's effective configuration snapshot.
type Config struct {
	SampleInterval time.Duration `json:"sampleInterval"`
	HistorySize    int           `json:"historySize"`
	Resolution     time.Duration `json:"resolution"`
	IsActive       bool          `json:"isActive"`
}

// Monitor composes the sampler, ring buffer, aggregation engine, and
// health scorer into the single object external consumers depend on.
// Monitors are independent: tests and embedders may run several at once.
type Monitor struct {
	interval   time.Duration
	resolution time.Duration
	thresholds health.Thresholds
	cacheTTL   time.Duration

	buffer  *metrics.Buffer
	sampler *Sampler
	probe   probe.Probe

	cacheMu  sync.Mutex
	aggCache map[time.Duration]aggCacheEntry
}

type aggCacheEntry struct {
	result     *metrics.AggregationResult
	expires    time.Time
	generation uint64
}

// Option configures a Monitor.
type Option func(*options)

type options struct {
	interval    time.Duration
	historySize int
	resolution  time.Duration
	thresholds  health.Thresholds
	cacheTTL    time.Duration
	probe       probe.Probe
}

// WithSampleInterval sets the tick period (default 1s).
func WithSampleInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithHistorySize sets the ring capacity. Zero disables storage.
func WithHistorySize(n int) Option {
	return func(o *options) { o.historySize = n }
}

// WithResolution sets the delay recorder granularity (default 10ms).
func WithResolution(d time.Duration) Option {
	return func(o *options) { o.resolution = d }
}

// WithThresholds sets the default health thresholds used when a Health
// call passes no override.
func WithThresholds(t health.Thresholds) Option {
	return func(o *options) { o.thresholds = t }
}

// WithAggregationTTL sets how long cached aggregations stay fresh.
func WithAggregationTTL(d time.Duration) Option {
	return func(o *options) { o.cacheTTL = d }
}

// WithProbe swaps the measurement primitives; tests use this to feed
// deterministic readings.
func WithProbe(p probe.Probe) Option {
	return func(o *options) { o.probe = p }
}

// New creates a Monitor. It does not start sampling; call Start.
func New(opts ...Option) *Monitor {
	o := &options{
		interval:    DefaultSampleInterval,
		historySize: metrics.DefaultHistorySize,
		resolution:  probe.DefaultResolution,
		thresholds:  health.DefaultThresholds(),
		cacheTTL:    DefaultAggregationTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.historySize < 0 {
		o.historySize = 0
	}
	if o.probe == nil {
		o.probe = probe.NewRuntimeProbe(o.resolution)
	}

	buf := metrics.NewBuffer(o.historySize)
	return &Monitor{
		interval:   o.interval,
		resolution: o.resolution,
		thresholds: o.thresholds,
		cacheTTL:   o.cacheTTL,
		buffer:     buf,
		sampler:    NewSampler(o.interval, buf, o.probe),
		probe:      o.probe,
		aggCache:   make(map[time.Duration]aggCacheEntry),
	}
}

// Start begins sampling. Idempotent.
func (m *Monitor) Start(ctx context.Context) error {
	return m.sampler.Start(ctx)
}

// Stop halts sampling. Idempotent. Buffered history survives.
func (m *Monitor) Stop() {
	m.sampler.Stop()
}

// IsActive mirrors the sampler state.
func (m *Monitor) IsActive() bool {
	return m.sampler.IsActive()
}

// Reset clears the buffer, the request counters, and any in-flight delay
// observations without stopping the sampler. Lifetime buffer counters are
// preserved.
func (m *Monitor) Reset() {
	m.buffer.Reset(true)
	m.sampler.ResetCounters()
	m.invalidateAggCache()
}

// CurrentMetrics returns the latest sample, or nil when the monitor is not
// actively sampling. "Current" means actively measured: stale history does
// not count, even when the buffer is non-empty.
func (m *Monitor) CurrentMetrics() *metrics.Sample {
	if !m.sampler.IsActive() {
		return nil
	}
	latest, ok := m.buffer.Latest()
	if !ok {
		return nil
	}
	return &latest
}

// History returns buffered samples matching the query, oldest first by
// default.
func (m *Monitor) History(q metrics.HistoryQuery) []metrics.Sample {
	return m.buffer.History(q)
}

// RecentHistory returns the count most recent samples in chronological
// order.
func (m *Monitor) RecentHistory(count int) []metrics.Sample {
	return m.buffer.History(metrics.HistoryQuery{Count: count})
}

// Health scores the current sample. With no override the monitor's
// configured thresholds apply; passing a Thresholds value overrides them
// for this call only (unset fields still fall back to defaults).
func (m *Monitor) Health(overrides ...health.Thresholds) health.Result {
	t := m.thresholds
	if len(overrides) > 0 {
		t = overrides[0]
	}
	return health.Score(m.CurrentMetrics(), t)
}

// Insights derives advisory findings from the current sample and recent
// history. Nil when not actively sampling.
func (m *Monitor) Insights() []health.Insight {
	current := m.CurrentMetrics()
	if current == nil {
		return nil
	}
	recent := m.buffer.History(metrics.HistoryQuery{Duration: 5 * time.Minute})
	return health.Insights(*current, recent, m.Health())
}

// AggregatedMetrics computes statistics over the samples captured within
// the trailing duration (zero means the whole buffer). Nil when no samples
// match: "no data yet" is expected, not an error. Results are cached per
// duration with a short TTL and invalidated by any insert.
func (m *Monitor) AggregatedMetrics(window time.Duration) *metrics.AggregationResult {
	generation := m.buffer.Generation()

	m.cacheMu.Lock()
	entry, ok := m.aggCache[window]
	if ok && entry.generation == generation && time.Now().Before(entry.expires) {
		m.cacheMu.Unlock()
		return entry.result
	}
	m.cacheMu.Unlock()

	samples := m.buffer.History(metrics.HistoryQuery{Duration: window})
	result := metrics.Aggregate(samples)
	if result == nil {
		return nil
	}

	m.cacheMu.Lock()
	m.aggCache[window] = aggCacheEntry{
		result:     result,
		expires:    time.Now().Add(m.cacheTTL),
		generation: generation,
	}
	m.cacheMu.Unlock()
	return result
}

// AggregatedMetricsWindow is AggregatedMetrics for a named window.
func (m *Monitor) AggregatedMetricsWindow(tw metrics.TimeWindow) *metrics.AggregationResult {
	return m.AggregatedMetrics(tw.Duration())
}

// TimeSeries projects the count most recent samples into per-timestamp
// points for one metric family. Unknown metric names yield an empty
// series.
func (m *Monitor) TimeSeries(metric string, count int) []metrics.TimeSeriesPoint {
	return metrics.TimeSeries(m.RecentHistory(count), metric)
}

// Anomalies runs standard-deviation anomaly detection for a dotted field
// name over the whole buffer. Unknown fields yield nil.
func (m *Monitor) Anomalies(field string, stddevThreshold float64, minSamples int) []metrics.Anomaly {
	sel, ok := metrics.SelectorFor(field)
	if !ok {
		return nil
	}
	return metrics.DetectAnomalies(m.buffer.History(metrics.HistoryQuery{}), sel, stddevThreshold, minSamples)
}

// RecordRequestDuration feeds one completed request into the next sample's
// counters.
func (m *Monitor) RecordRequestDuration(d time.Duration) {
	m.sampler.RecordRequestDuration(d)
}

// BeginRequestTimer starts timing a request; invoke the returned function
// when it completes.
func (m *Monitor) BeginRequestTimer() func() {
	return m.sampler.BeginRequestTimer()
}

// Subscribe registers fn to observe every stored sample. Callbacks run on
// the sampling goroutine and must not block.
func (m *Monitor) Subscribe(fn func(metrics.Sample)) {
	m.buffer.Subscribe(fn)
}

// Stats exposes buffer occupancy and lifetime counters.
func (m *Monitor) Stats() metrics.BufferStats {
	return m.buffer.Stats()
}

// Config returns the monitor's effective configuration.
func (m *Monitor) Config() Config {
	return Config{
		SampleInterval: m.interval,
		HistorySize:    m.buffer.Cap(),
		Resolution:     m.resolution,
		IsActive:       m.sampler.IsActive(),
	}
}

func (m *Monitor) invalidateAggCache() {
	m.cacheMu.Lock()
	m.aggCache = make(map[time.Duration]aggCacheEntry)
	m.cacheMu.Unlock()
}
