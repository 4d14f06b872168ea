// Package probe supplies the runtime measurement primitives the sampler
// consumes: a reset-per-interval delay recorder plus memory, CPU, and
// handle snapshots. The Probe interface keeps the primitives swappable so
// tests can feed deterministic readings.
package probe

import (
	"time"

	"github.com/loopmeter/loopmeter/internal/metrics"
)

// Usage is a cumulative reading of process resource consumption. The
// sampler diffs consecutive readings to produce per-interval values.
type Usage struct {
	// CPUUser and CPUSystem are cumulative process CPU time.
	CPUUser   time.Duration
	CPUSystem time.Duration
}

// Probe abstracts the host runtime's measurement primitives.
type Probe interface {
	// Start enables the delay recorder. Idempotent.
	Start() error

	// Stop disables and releases the delay recorder. Idempotent.
	Stop()

	// ReadLag returns the delay distribution observed since the previous
	// call and resets the recorder.
	ReadLag() metrics.LagStats

	// ReadUsage returns cumulative CPU counters. The bool is false when
	// the host provides no CPU accounting.
	ReadUsage() (Usage, bool)

	// ReadMemory snapshots current memory occupancy, nil when
	// unavailable.
	ReadMemory() *metrics.MemoryStats

	// ReadHandles snapshots outstanding async resource counts, nil when
	// unavailable.
	ReadHandles() *metrics.HandleStats
}

// DefaultResolution is the delay recorder's timer granularity.
const DefaultResolution = 10 * time.Millisecond
