package metrics

import (
	"sync"
	"time"
)

// DefaultHistorySize is the default ring capacity when none is configured.
const DefaultHistorySize = 300

// sampleFootprintBytes is the flat per-sample cost used for the approximate
// memory estimate reported by Stats. It is an accounting figure, not an
// exact measurement.
const sampleFootprintBytes = 512

// nowMillis is swapped out in tests that need a fixed clock.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// Buffer is a fixed-capacity ring of Samples. Inserts overwrite the oldest
// slot once full. It is safe for one writer and many concurrent readers.
//
// A capacity of zero disables storage entirely: inserts are accepted but
// dropped, and history is always empty.
type Buffer struct {
	mu       sync.RWMutex
	data     []Sample
	capacity int
	head     int // next write position
	size     int

	totalInserted uint64
	dropped       uint64
	invalid       uint64
	generation    uint64

	latest    Sample
	hasLatest bool

	subs []func(Sample)
}

// BufferStats describes the buffer's occupancy and lifetime counters.
type BufferStats struct {
	Capacity      int    `json:"capacity"`
	Count         int    `json:"count"`
	TotalInserted uint64 `json:"totalInserted"`
	Dropped       uint64 `json:"dropped"`
	Invalid       uint64 `json:"invalid"`

	// EstimatedBytes is a flat per-sample approximation of the buffer's
	// memory footprint.
	EstimatedBytes int64 `json:"estimatedBytes"`
}

// HistoryQuery narrows a history read. All fields combine; zero values are
// ignored. Results are chronological (oldest first) unless Descending is
// set.
type HistoryQuery struct {
	// Count limits the result to the N most recent matching samples.
	Count int

	// Duration keeps only samples captured within the last D of now.
	Duration time.Duration

	// StartTime / EndTime bound timestamps in unix milliseconds, inclusive.
	StartTime int64
	EndTime   int64

	// Filter keeps only samples for which it returns true.
	Filter func(Sample) bool

	// Descending reverses the result to newest-first.
	Descending bool
}

// NewBuffer creates a buffer with the given capacity. Negative capacities
// are treated as zero (storage disabled).
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{
		data:     make([]Sample, capacity),
		capacity: capacity,
	}
}

// Insert validates and stores a sample, overwriting the oldest slot once
// full. It returns false when the sample is malformed or storage is
// disabled; failed inserts only increment counters and never panic.
func (b *Buffer) Insert(s Sample) bool {
	if err := s.Validate(); err != nil {
		b.mu.Lock()
		b.invalid++
		b.dropped++
		b.mu.Unlock()
		return false
	}

	b.mu.Lock()
	if b.capacity == 0 {
		b.dropped++
		b.mu.Unlock()
		return false
	}

	b.data[b.head] = s
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
	b.totalInserted++
	b.generation++
	b.latest = s
	b.hasLatest = true
	subs := b.subs
	b.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
	return true
}

// Latest returns the most recently inserted sample. The second return is
// false when the buffer is empty.
func (b *Buffer) Latest() (Sample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest, b.hasLatest
}

// History returns samples matching the query in chronological order.
// Requesting more samples than exist returns all existing samples; an
// empty buffer yields an empty slice, never nil-panics.
func (b *Buffer) History(q HistoryQuery) []Sample {
	b.mu.RLock()
	snapshot := make([]Sample, 0, b.size)
	if b.capacity > 0 {
		oldest := (b.head - b.size + b.capacity) % b.capacity
		for i := 0; i < b.size; i++ {
			snapshot = append(snapshot, b.data[(oldest+i)%b.capacity])
		}
	}
	b.mu.RUnlock()

	minTime := q.StartTime
	if q.Duration > 0 {
		cutoff := nowMillis() - q.Duration.Milliseconds()
		if cutoff > minTime {
			minTime = cutoff
		}
	}

	out := snapshot[:0]
	for _, s := range snapshot {
		if minTime > 0 && s.Timestamp < minTime {
			continue
		}
		if q.EndTime > 0 && s.Timestamp > q.EndTime {
			continue
		}
		if q.Filter != nil && !q.Filter(s) {
			continue
		}
		out = append(out, s)
	}

	if q.Count > 0 && len(out) > q.Count {
		out = out[len(out)-q.Count:]
	}

	if q.Descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Reset clears all samples and positional state but keeps the capacity.
// When preserveLifetime is true the totalInserted/dropped/invalid counters
// survive the reset.
func (b *Buffer) Reset(preserveLifetime bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.data {
		b.data[i] = Sample{}
	}
	b.head = 0
	b.size = 0
	b.hasLatest = false
	b.latest = Sample{}
	b.generation++
	if !preserveLifetime {
		b.totalInserted = 0
		b.dropped = 0
		b.invalid = 0
	}
}

// Stats returns occupancy and lifetime counters.
func (b *Buffer) Stats() BufferStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BufferStats{
		Capacity:       b.capacity,
		Count:          b.size,
		TotalInserted:  b.totalInserted,
		Dropped:        b.dropped,
		Invalid:        b.invalid,
		EstimatedBytes: int64(b.size) * sampleFootprintBytes,
	}
}

// Len returns the number of live samples.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Generation returns a counter that changes on every mutation. Readers use
// it to invalidate derived caches without subscribing to inserts.
func (b *Buffer) Generation() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generation
}

// Subscribe registers fn to be called with each successfully inserted
// sample. Callbacks run on the inserting goroutine and must not block.
func (b *Buffer) Subscribe(fn func(Sample)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}
