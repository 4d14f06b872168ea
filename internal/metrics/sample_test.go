package metrics

import (
	"math"
	"testing"
	"time"
)

// testSample returns a valid sample at the given timestamp with the given
// mean lag.
func testSample(ts int64, lagMean float64) Sample {
	return Sample{
		Timestamp: ts,
		Lag: LagStats{
			Min:  lagMean / 2,
			Max:  lagMean * 2,
			Mean: lagMean,
			P50:  lagMean,
			P90:  lagMean * 1.5,
			P95:  lagMean * 1.6,
			P99:  lagMean * 1.8,
			P999: lagMean * 1.9,
		},
		Util: UtilStats{Utilization: 0.5, ActiveMs: 500, IdleMs: 500},
		Requests: RequestStats{
			Count:       10,
			TotalTimeMs: 100,
			AvgTimeMs:   10,
		},
	}
}

func TestSampleValidate(t *testing.T) {
	s := testSample(time.Now().UnixMilli(), 5)
	if err := s.Validate(); err != nil {
		t.Fatalf("expected valid sample, got %v", err)
	}
}

func TestSampleValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Sample)
	}{
		{"zero timestamp", func(s *Sample) { s.Timestamp = 0 }},
		{"negative timestamp", func(s *Sample) { s.Timestamp = -1 }},
		{"NaN lag", func(s *Sample) { s.Lag.Mean = math.NaN() }},
		{"Inf lag", func(s *Sample) { s.Lag.Max = math.Inf(1) }},
		{"negative lag", func(s *Sample) { s.Lag.Min = -1 }},
		{"lag ordering", func(s *Sample) { s.Lag.Mean = s.Lag.Max + 1 }},
		{"utilization above 1", func(s *Sample) { s.Util.Utilization = 1.5 }},
		{"utilization below 0", func(s *Sample) { s.Util.Utilization = -0.1 }},
		{"negative request count", func(s *Sample) { s.Requests.Count = -1 }},
		{"negative handles", func(s *Sample) { s.Handles = &HandleStats{Active: -1} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testSample(time.Now().UnixMilli(), 5)
			tc.mutate(&s)
			if s.IsValid() {
				t.Errorf("expected %s to be rejected", tc.name)
			}
		})
	}
}

func TestNewMemoryStats_FormatsDisplayStrings(t *testing.T) {
	m := NewMemoryStats(64<<20, 128<<20, 256<<20, 8<<20)
	if m.HeapUsedMB == "" || m.HeapTotalMB == "" || m.RSSMB == "" {
		t.Error("expected display strings to be filled")
	}
	if got := m.HeapRatio(); got != 0.5 {
		t.Errorf("expected heap ratio 0.5, got %f", got)
	}
}

func TestHeapRatio_NilAndZeroTotal(t *testing.T) {
	var m *MemoryStats
	if m.HeapRatio() != 0 {
		t.Error("expected 0 ratio for nil memory")
	}
	m = &MemoryStats{HeapUsed: 10}
	if m.HeapRatio() != 0 {
		t.Error("expected 0 ratio for zero heap total")
	}
}
