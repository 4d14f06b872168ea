package monitor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestMonitor(newFakeProbe())
	src.buffer.Insert(storedSample(1000, 10))
	src.buffer.Insert(storedSample(2000, 20))
	src.buffer.Insert(storedSample(3000, 30))

	data, err := src.ExportJSON(0)
	require.NoError(t, err)

	dst := newTestMonitor(newFakeProbe())
	report, err := dst.ImportJSON(data)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, 0, report.Failed)

	history := dst.RecentHistory(0)
	require.Len(t, history, 3)
	assert.Equal(t, int64(1000), history[0].Timestamp)
	assert.Equal(t, 30.0, history[2].Lag.Mean)
}

func TestExportJSON_Envelope(t *testing.T) {
	m := newTestMonitor(newFakeProbe())
	m.buffer.Insert(storedSample(1000, 10))

	data, err := m.ExportJSON(0)
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Contains(t, env, "version")
	assert.Contains(t, env, "exportedAt")
	assert.Contains(t, env, "config")
	assert.Contains(t, env, "samples")
}

func TestExportJSON_CountLimit(t *testing.T) {
	src := newTestMonitor(newFakeProbe())
	for i := int64(1); i <= 5; i++ {
		src.buffer.Insert(storedSample(i*1000, 10))
	}

	data, err := src.ExportJSON(2)
	require.NoError(t, err)

	dst := newTestMonitor(newFakeProbe())
	report, err := dst.ImportJSON(data)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)

	history := dst.RecentHistory(0)
	require.Len(t, history, 2)
	assert.Equal(t, int64(4000), history[0].Timestamp)
}

func TestImportJSON_MalformedPayload(t *testing.T) {
	m := newTestMonitor(newFakeProbe())
	_, err := m.ImportJSON([]byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse export payload")
}

func TestImportJSON_PerSampleFailures(t *testing.T) {
	m := newTestMonitor(newFakeProbe())

	payload := []byte(`{
		"version": 1,
		"samples": [
			{"timestamp": 1000, "lag": {"min":1,"max":10,"mean":5}, "util": {"utilization":0.5}},
			"not an object",
			{"timestamp": -5, "lag": {}, "util": {}}
		]
	}`)

	report, err := m.ImportJSON(payload)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 1, m.Stats().Count)
}

func TestExportCompressedRoundTrip(t *testing.T) {
	src := newTestMonitor(newFakeProbe())
	src.buffer.Insert(storedSample(1000, 10))
	src.buffer.Insert(storedSample(2000, 20))

	data, err := src.ExportCompressed(0)
	require.NoError(t, err)
	require.True(t, len(data) >= 4)
	assert.Equal(t, zstdMagic, data[:4])

	dst := newTestMonitor(newFakeProbe())
	report, err := dst.ImportJSON(data)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 0, report.Failed)
}
