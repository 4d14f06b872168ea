package metrics

// FieldSelector extracts one numeric field from a sample. The second
// return is false when the sample does not carry the field (optional
// families like memory or cpu).
type FieldSelector func(Sample) (float64, bool)

// Named selectors for the fields the aggregation and anomaly engines
// operate on.
var (
	SelectLagMean FieldSelector = func(s Sample) (float64, bool) { return s.Lag.Mean, true }
	SelectLagMax  FieldSelector = func(s Sample) (float64, bool) { return s.Lag.Max, true }
	SelectLagP99  FieldSelector = func(s Sample) (float64, bool) { return s.Lag.P99, true }

	SelectUtilization FieldSelector = func(s Sample) (float64, bool) { return s.Util.Utilization, true }

	SelectHeapUsed FieldSelector = func(s Sample) (float64, bool) {
		if s.Memory == nil {
			return 0, false
		}
		return float64(s.Memory.HeapUsed), true
	}
	SelectRSS FieldSelector = func(s Sample) (float64, bool) {
		if s.Memory == nil {
			return 0, false
		}
		return float64(s.Memory.RSS), true
	}

	SelectCPUTotal FieldSelector = func(s Sample) (float64, bool) {
		if s.CPU == nil {
			return 0, false
		}
		return s.CPU.TotalMs, true
	}

	SelectRequestCount FieldSelector = func(s Sample) (float64, bool) { return float64(s.Requests.Count), true }
	SelectRequestAvg   FieldSelector = func(s Sample) (float64, bool) { return s.Requests.AvgTimeMs, true }

	SelectHandlesActive FieldSelector = func(s Sample) (float64, bool) {
		if s.Handles == nil {
			return 0, false
		}
		return float64(s.Handles.Active), true
	}
)

// selectorsByName backs SelectorFor lookups from CLI flags and queries.
var selectorsByName = map[string]FieldSelector{
	"lag.mean":       SelectLagMean,
	"lag.max":        SelectLagMax,
	"lag.p99":        SelectLagP99,
	"util":           SelectUtilization,
	"memory.heap":    SelectHeapUsed,
	"memory.rss":     SelectRSS,
	"cpu.total":      SelectCPUTotal,
	"requests.count": SelectRequestCount,
	"requests.avg":   SelectRequestAvg,
	"handles.active": SelectHandlesActive,
}

// SelectorFor resolves a dotted field name like "lag.mean" to its
// selector. The second return is false for unknown names.
func SelectorFor(name string) (FieldSelector, bool) {
	sel, ok := selectorsByName[name]
	return sel, ok
}

// collect applies sel to each sample, skipping samples without the field,
// and returns the extracted values in input order.
func collect(samples []Sample, sel FieldSelector) []float64 {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		if v, ok := sel(s); ok {
			values = append(values, v)
		}
	}
	return values
}
