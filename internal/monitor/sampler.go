// Package monitor owns the sampling loop and the facade external
// consumers depend on.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/loopmeter/loopmeter/internal/logger"
	"github.com/loopmeter/loopmeter/internal/metrics"
	"github.com/loopmeter/loopmeter/internal/probe"
)

// DefaultSampleInterval is the tick period when none is configured.
const DefaultSampleInterval = time.Second

// Sampler drives the periodic measurement loop. On each tick it reads the
// probe, assembles a Sample, and inserts it into the buffer. Ticks are
// scheduled with a self-rearming one-shot timer: the next tick is armed
// only after the current one completes, so a slow tick can never overlap
// the next.
type Sampler struct {
	interval time.Duration
	buffer   *metrics.Buffer
	probe    probe.Probe

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// tick-goroutine state; only touched under mu at start/stop and by
	// the single tick goroutine while running.
	lastTick  time.Time
	lastUsage probe.Usage
	hasUsage  bool

	// request counters, written by arbitrary callers and drained per tick.
	reqMu    sync.Mutex
	reqCount int64
	reqTotal time.Duration
}

// NewSampler creates a sampler feeding buf from p every interval.
func NewSampler(interval time.Duration, buf *metrics.Buffer, p probe.Probe) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{
		interval: interval,
		buffer:   buf,
		probe:    p,
	}
}

// Start begins sampling. It is idempotent: starting a running sampler is a
// no-op. The baseline usage reading and a recorder reset happen here so
// the first tick diffs against the start of the run, not process start.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.probe.Start(); err != nil {
		return err
	}
	s.probe.ReadLag() // discard anything recorded while stopped
	s.lastUsage, s.hasUsage = s.probe.ReadUsage()
	s.lastTick = time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(runCtx)

	logger.Debug("sampler started", "interval", s.interval)
	return nil
}

// Stop halts sampling and releases the probe. Idempotent.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.probe.Stop()

	logger.Debug("sampler stopped")
}

// IsActive reports whether the sampling loop is running.
func (s *Sampler) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sampler) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.tick()
			// Rearm only after the tick completes.
			timer.Reset(s.interval)
		}
	}
}

// tick measures the runtime, assembles one sample, and stores it.
func (s *Sampler) tick() {
	now := time.Now()
	wall := now.Sub(s.lastTick)

	lag := s.probe.ReadLag()

	var cpu *metrics.CPUStats
	util := metrics.UtilStats{IdleMs: durationMs(wall)}
	if usage, ok := s.probe.ReadUsage(); ok && s.hasUsage {
		userDelta := usage.CPUUser - s.lastUsage.CPUUser
		sysDelta := usage.CPUSystem - s.lastUsage.CPUSystem
		if userDelta < 0 {
			userDelta = 0
		}
		if sysDelta < 0 {
			sysDelta = 0
		}
		cpu = &metrics.CPUStats{
			UserMs:   durationMs(userDelta),
			SystemMs: durationMs(sysDelta),
			TotalMs:  durationMs(userDelta + sysDelta),
		}

		active := userDelta + sysDelta
		if active > wall {
			active = wall
		}
		idle := wall - active
		util = metrics.UtilStats{
			ActiveMs: durationMs(active),
			IdleMs:   durationMs(idle),
		}
		if wall > 0 {
			util.Utilization = float64(active) / float64(wall)
		}
		s.lastUsage = usage
	}

	sample := metrics.Sample{
		Timestamp: now.UnixMilli(),
		Lag:       lag,
		Util:      util,
		Memory:    s.probe.ReadMemory(),
		CPU:       cpu,
		Handles:   s.probe.ReadHandles(),
		Requests:  s.drainRequests(),
	}

	if !s.buffer.Insert(sample) {
		logger.Warn("sample dropped", "timestamp", sample.Timestamp)
	}
	s.lastTick = now
}

// RecordRequestDuration adds one completed request of the given duration
// to the counters drained by the next tick.
func (s *Sampler) RecordRequestDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.reqMu.Lock()
	s.reqCount++
	s.reqTotal += d
	s.reqMu.Unlock()
}

// BeginRequestTimer starts timing a request. The returned stop function
// records the elapsed time when invoked; it is safe to call exactly once.
func (s *Sampler) BeginRequestTimer() func() {
	start := time.Now()
	return func() {
		s.RecordRequestDuration(time.Since(start))
	}
}

// ResetCounters zeroes the request counters and discards any in-flight
// delay observations without stopping the loop.
func (s *Sampler) ResetCounters() {
	s.reqMu.Lock()
	s.reqCount = 0
	s.reqTotal = 0
	s.reqMu.Unlock()
	s.probe.ReadLag()
}

// drainRequests snapshots and resets the request counters.
func (s *Sampler) drainRequests() metrics.RequestStats {
	s.reqMu.Lock()
	count := s.reqCount
	total := s.reqTotal
	s.reqCount = 0
	s.reqTotal = 0
	s.reqMu.Unlock()

	stats := metrics.RequestStats{
		Count:       count,
		TotalTimeMs: durationMs(total),
	}
	if count > 0 {
		stats.AvgTimeMs = stats.TotalTimeMs / float64(count)
	}
	return stats
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
