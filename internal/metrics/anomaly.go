package metrics

import "math"

// DefaultAnomalyMinSamples is the smallest window anomaly detection will
// evaluate; below this the variance estimate is too noisy to be useful.
const DefaultAnomalyMinSamples = 10

// Anomaly flags a sample whose field value sits unusually far from the
// window mean.
type Anomaly struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stddev"`

	// Deviation is |value-mean| expressed in standard deviations.
	Deviation float64 `json:"deviation"`

	// Direction is "above" or "below" the mean.
	Direction string `json:"direction"`
}

// DetectAnomalies flags samples whose selected field lies more than
// stddevThreshold standard deviations from the window mean. Detection is
// skipped entirely when fewer than minSamples carry the field.
func DetectAnomalies(samples []Sample, sel FieldSelector, stddevThreshold float64, minSamples int) []Anomaly {
	if stddevThreshold <= 0 {
		stddevThreshold = 2
	}
	if minSamples <= 0 {
		minSamples = DefaultAnomalyMinSamples
	}

	values := collect(samples, sel)
	if len(values) < minSamples {
		return nil
	}

	stats := Summarize(values, nil)
	if stats.StdDev == 0 {
		return nil
	}

	var anomalies []Anomaly
	for _, s := range samples {
		v, ok := sel(s)
		if !ok {
			continue
		}
		deviation := math.Abs(v-stats.Mean) / stats.StdDev
		if deviation <= stddevThreshold {
			continue
		}
		direction := "above"
		if v < stats.Mean {
			direction = "below"
		}
		anomalies = append(anomalies, Anomaly{
			Timestamp: s.Timestamp,
			Value:     v,
			Mean:      stats.Mean,
			StdDev:    stats.StdDev,
			Deviation: deviation,
			Direction: direction,
		})
	}
	return anomalies
}
