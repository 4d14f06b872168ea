package probe

import (
	"testing"
	"time"
)

func TestDelayRecorder_RecordsDrift(t *testing.T) {
	d := newDelayRecorder(5 * time.Millisecond)
	d.Start()
	defer d.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		n := len(d.observations)
		d.mu.Unlock()
		if n >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	stats := d.Snapshot()
	if stats.Min < 0 || stats.Mean < 0 {
		t.Errorf("drift must be non-negative, got min=%f mean=%f", stats.Min, stats.Mean)
	}
	if stats.Max < stats.Mean || stats.Mean < stats.Min {
		t.Errorf("stat ordering violated: min=%f mean=%f max=%f", stats.Min, stats.Mean, stats.Max)
	}
}

func TestDelayRecorder_SnapshotResets(t *testing.T) {
	d := newDelayRecorder(time.Millisecond)
	d.record(1)
	d.record(3)

	stats := d.Snapshot()
	if stats.Mean != 2 {
		t.Errorf("mean = %f, want 2", stats.Mean)
	}

	empty := d.Snapshot()
	if empty.Mean != 0 || empty.Max != 0 {
		t.Errorf("expected zeroed stats after reset, got %+v", empty)
	}
}

func TestDelayRecorder_StartStopIdempotent(t *testing.T) {
	d := newDelayRecorder(time.Millisecond)
	d.Start()
	d.Start()
	d.Stop()
	d.Stop()
}

func TestDelayRecorder_ObservationCap(t *testing.T) {
	d := newDelayRecorder(time.Millisecond)
	for i := 0; i < maxObservations+100; i++ {
		d.record(1)
	}
	d.mu.Lock()
	n := len(d.observations)
	d.mu.Unlock()
	if n != maxObservations {
		t.Errorf("observations = %d, want capped at %d", n, maxObservations)
	}
}

func TestDelayRecorder_DefaultResolution(t *testing.T) {
	d := newDelayRecorder(0)
	if d.resolution != DefaultResolution {
		t.Errorf("resolution = %v, want %v", d.resolution, DefaultResolution)
	}
}

func TestRuntimeProbe_Readings(t *testing.T) {
	p := NewRuntimeProbe(5 * time.Millisecond)
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	mem := p.ReadMemory()
	if mem == nil {
		t.Fatal("expected memory stats")
	}
	if mem.HeapTotal == 0 {
		t.Error("expected nonzero heap total")
	}
	if mem.HeapUsedMB == "" {
		t.Error("expected formatted heap string")
	}

	handles := p.ReadHandles()
	if handles == nil || handles.Active < 1 {
		t.Errorf("expected at least one active goroutine, got %+v", handles)
	}

	if usage, ok := p.ReadUsage(); ok {
		if usage.CPUUser < 0 || usage.CPUSystem < 0 {
			t.Errorf("cpu times must be non-negative: %+v", usage)
		}
	}

	lag := p.ReadLag()
	if lag.Min < 0 || lag.Mean < 0 || lag.Max < lag.Mean {
		t.Errorf("invalid lag snapshot: %+v", lag)
	}
}
