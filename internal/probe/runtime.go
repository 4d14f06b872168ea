package probe

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/loopmeter/loopmeter/internal/metrics"
)

// RuntimeProbe measures the host Go runtime: a timer-drift delay recorder
// for scheduling lag, runtime.ReadMemStats for heap occupancy, and
// gopsutil for process CPU time, RSS, and file descriptors.
type RuntimeProbe struct {
	delay *delayRecorder
	proc  *process.Process
}

var _ Probe = (*RuntimeProbe)(nil)

// NewRuntimeProbe creates a probe with the given delay-recorder
// resolution.
func NewRuntimeProbe(resolution time.Duration) *RuntimeProbe {
	p := &RuntimeProbe{delay: newDelayRecorder(resolution)}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		p.proc = proc
	}
	return p
}

// Start enables the delay recorder.
func (p *RuntimeProbe) Start() error {
	p.delay.Start()
	return nil
}

// Stop disables the delay recorder.
func (p *RuntimeProbe) Stop() {
	p.delay.Stop()
}

// ReadLag returns and resets the interval delay distribution.
func (p *RuntimeProbe) ReadLag() metrics.LagStats {
	return p.delay.Snapshot()
}

// ReadUsage returns cumulative process CPU time.
func (p *RuntimeProbe) ReadUsage() (Usage, bool) {
	if p.proc == nil {
		return Usage{}, false
	}
	times, err := p.proc.Times()
	if err != nil {
		return Usage{}, false
	}
	return Usage{
		CPUUser:   time.Duration(times.User * float64(time.Second)),
		CPUSystem: time.Duration(times.System * float64(time.Second)),
	}, true
}

// ReadMemory snapshots heap occupancy from the Go runtime plus RSS from
// the OS. External covers the runtime's non-heap overhead (stacks, spans,
// GC metadata).
func (p *RuntimeProbe) ReadMemory() *metrics.MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var rss uint64
	if p.proc != nil {
		if info, err := p.proc.MemoryInfo(); err == nil && info != nil {
			rss = info.RSS
		}
	}

	external := uint64(0)
	if m.Sys > m.HeapSys {
		external = m.Sys - m.HeapSys
	}
	return metrics.NewMemoryStats(m.HeapAlloc, m.HeapSys, rss, external)
}

// ReadHandles reports goroutines as active handles and open file
// descriptors as outstanding requests, the closest Go analogue to async
// resource counts.
func (p *RuntimeProbe) ReadHandles() *metrics.HandleStats {
	active := runtime.NumGoroutine()
	fds := 0
	if p.proc != nil {
		if n, err := p.proc.NumFDs(); err == nil {
			fds = int(n)
		}
	}
	return &metrics.HandleStats{
		Active:   active,
		Requests: fds,
		Total:    active + fds,
	}
}
