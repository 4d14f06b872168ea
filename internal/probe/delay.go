package probe

import (
	"sync"
	"time"

	"github.com/loopmeter/loopmeter/internal/metrics"
)

// maxObservations bounds the per-interval recording so a stalled consumer
// cannot grow the slice without limit.
const maxObservations = 8192

// delayRecorder measures scheduling delay by repeatedly arming a one-shot
// timer for `resolution` and recording how late it actually fires. The
// recorded drift is the queueing delay the scheduler imposed on a unit of
// work that was due at a known instant.
type delayRecorder struct {
	mu           sync.Mutex
	resolution   time.Duration
	observations []float64 // drift in ms, reset on Snapshot
	running      bool
	cancel       chan struct{}
	done         chan struct{}
}

func newDelayRecorder(resolution time.Duration) *delayRecorder {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &delayRecorder{resolution: resolution}
}

// Start launches the recording loop. Idempotent.
func (d *delayRecorder) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.cancel = make(chan struct{})
	d.done = make(chan struct{})
	go d.loop(d.cancel, d.done)
}

// Stop terminates the recording loop and waits for it to exit. Idempotent.
func (d *delayRecorder) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	close(cancel)
	<-done
}

func (d *delayRecorder) loop(cancel <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(d.resolution)
	defer timer.Stop()

	for {
		armed := time.Now()
		select {
		case <-cancel:
			return
		case <-timer.C:
			drift := time.Since(armed) - d.resolution
			if drift < 0 {
				drift = 0
			}
			d.record(float64(drift) / float64(time.Millisecond))
			timer.Reset(d.resolution)
		}
	}
}

func (d *delayRecorder) record(driftMs float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.observations) < maxObservations {
		d.observations = append(d.observations, driftMs)
	}
}

// Snapshot summarizes and resets the recorded drift distribution. With no
// observations it returns zero-valued stats.
func (d *delayRecorder) Snapshot() metrics.LagStats {
	d.mu.Lock()
	obs := d.observations
	d.observations = nil
	d.mu.Unlock()

	if len(obs) == 0 {
		return metrics.LagStats{}
	}

	stats := metrics.Summarize(obs, nil)
	return metrics.LagStats{
		Min:    stats.Min,
		Max:    stats.Max,
		Mean:   stats.Mean,
		StdDev: stats.StdDev,
		P50:    metrics.Percentile(obs, 50),
		P90:    metrics.Percentile(obs, 90),
		P95:    metrics.Percentile(obs, 95),
		P99:    metrics.Percentile(obs, 99),
		P999:   metrics.Percentile(obs, 99.9),
	}
}
