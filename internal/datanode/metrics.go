package datanode

import (
	"sync"
	"time"
)

// maxSamplesPerOp caps the retained history per operation kind. The
// buffer keeps the newest samples; older ones fall off. Without a cap
// this history grows for the lifetime of the process.
const maxSamplesPerOp = 512

// Sample is one observed chunk read or write: how many bytes moved, how
// long it took, and the resulting throughput in MB/s.
type Sample struct {
	ChunkID    string    `json:"chunk_id"`
	Size       int64     `json:"size"`
	DurationMS float64   `json:"duration_ms"`
	Throughput float64   `json:"throughput"`
	Timestamp  time.Time `json:"timestamp"`
}

// MetricsResponse is the body of GET /metrics.
type MetricsResponse struct {
	Reads  []Sample `json:"reads"`
	Writes []Sample `json:"writes"`
}

// MetricsLog collects read/write samples with bounded memory.
// Safe for concurrent use.
type MetricsLog struct {
	mu     sync.Mutex
	reads  []Sample
	writes []Sample
}

// NewMetricsLog creates an empty metrics log.
func NewMetricsLog() *MetricsLog {
	return &MetricsLog{}
}

// RecordRead appends a read sample.
func (m *MetricsLog) RecordRead(s Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = appendCapped(m.reads, s)
}

// RecordWrite appends a write sample.
func (m *MetricsLog) RecordWrite(s Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = appendCapped(m.writes, s)
}

// Snapshot returns copies of the retained samples.
func (m *MetricsLog) Snapshot() MetricsResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsResponse{
		Reads:  append([]Sample(nil), m.reads...),
		Writes: append([]Sample(nil), m.writes...),
	}
}

func appendCapped(buf []Sample, s Sample) []Sample {
	buf = append(buf, s)
	if len(buf) > maxSamplesPerOp {
		buf = append(buf[:0], buf[len(buf)-maxSamplesPerOp:]...)
	}
	return buf
}

// newSample computes the derived throughput figure. Durations are
// clamped to a minimum so a sub-resolution timer can never divide by
// zero (throughput of +Inf is not even JSON-encodable).
func newSample(chunkID string, size int64, elapsed time.Duration, at time.Time) Sample {
	durationMS := float64(elapsed.Microseconds()) / 1000.0
	if durationMS <= 0 {
		durationMS = 0.001
	}
	throughput := (float64(size) / 1024 / 1024) / (durationMS / 1000)
	return Sample{
		ChunkID:    chunkID,
		Size:       size,
		DurationMS: durationMS,
		Throughput: throughput,
		Timestamp:  at,
	}
}
