package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/loopmeter/loopmeter/internal/metrics"
)

// exportVersion is bumped when the envelope layout changes.
const exportVersion = 1

// zstdMagic is the zstandard frame header; Import sniffs it to accept
// both plain and compressed payloads.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// exportEnvelope is the serialized form of a sample export.
type exportEnvelope struct {
	Version    int              `json:"version"`
	ExportedAt int64            `json:"exportedAt"`
	Config     Config           `json:"config"`
	Samples    []metrics.Sample `json:"samples"`
}

// importEnvelope defers sample decoding so one malformed entry fails alone
// instead of aborting the batch.
type importEnvelope struct {
	Version int               `json:"version"`
	Samples []json.RawMessage `json:"samples"`
}

// ImportReport counts per-sample outcomes of an import.
type ImportReport struct {
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}

// ExportJSON serializes the count most recent samples (zero means all)
// plus configuration metadata. The payload round-trips through ImportJSON
// losslessly.
func (m *Monitor) ExportJSON(count int) ([]byte, error) {
	env := exportEnvelope{
		Version:    exportVersion,
		ExportedAt: time.Now().UnixMilli(),
		Config:     m.Config(),
		Samples:    m.RecentHistory(count),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode export payload: %w", err)
	}
	return data, nil
}

// ExportCompressed is ExportJSON wrapped in a zstd frame.
func (m *Monitor) ExportCompressed(count int) ([]byte, error) {
	data, err := m.ExportJSON(count)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// ImportJSON loads an exported payload, validating and inserting each
// sample independently: malformed or rejected samples count as failures
// without aborting the batch. A payload that is not decodable at all
// returns a single wrapped error. Compressed exports are detected by their
// frame header.
func (m *Monitor) ImportJSON(data []byte) (ImportReport, error) {
	var report ImportReport

	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return report, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		plain, err := dec.DecodeAll(data, nil)
		if err != nil {
			return report, fmt.Errorf("decompress export payload: %w", err)
		}
		data = plain
	}

	var env importEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return report, fmt.Errorf("parse export payload: %w", err)
	}

	for _, raw := range env.Samples {
		var s metrics.Sample
		if err := json.Unmarshal(raw, &s); err != nil {
			report.Failed++
			continue
		}
		if m.buffer.Insert(s) {
			report.Imported++
		} else {
			report.Failed++
		}
	}
	m.invalidateAggCache()
	return report, nil
}
