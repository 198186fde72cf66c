package datanode

import (
	"fmt"
	"math"
	"testing"
	"time"
)

func TestMetricsLogCap(t *testing.T) {
	log := NewMetricsLog()

	total := maxSamplesPerOp + 100
	for i := 0; i < total; i++ {
		log.RecordWrite(Sample{ChunkID: fmt.Sprintf("c_%d", i)})
	}

	snap := log.Snapshot()
	if len(snap.Writes) != maxSamplesPerOp {
		t.Fatalf("retained %d samples, want %d", len(snap.Writes), maxSamplesPerOp)
	}

	// The newest samples survive; the oldest fall off.
	if got := snap.Writes[0].ChunkID; got != "c_100" {
		t.Errorf("oldest retained sample = %s, want c_100", got)
	}
	if got := snap.Writes[len(snap.Writes)-1].ChunkID; got != fmt.Sprintf("c_%d", total-1) {
		t.Errorf("newest retained sample = %s, want c_%d", got, total-1)
	}
}

func TestMetricsSnapshotIsCopy(t *testing.T) {
	log := NewMetricsLog()
	log.RecordRead(Sample{ChunkID: "c_0"})

	snap := log.Snapshot()
	snap.Reads[0].ChunkID = "tampered"

	if log.Snapshot().Reads[0].ChunkID != "c_0" {
		t.Error("snapshot mutation leaked into the log")
	}
}

func TestNewSample(t *testing.T) {
	t.Run("derived fields", func(t *testing.T) {
		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		s := newSample("c_0", 1024*1024, 500*time.Millisecond, at)

		if s.DurationMS != 500 {
			t.Errorf("DurationMS = %v, want 500", s.DurationMS)
		}
		// 1 MB in half a second is 2 MB/s.
		if math.Abs(s.Throughput-2.0) > 0.001 {
			t.Errorf("Throughput = %v, want 2.0", s.Throughput)
		}
		if !s.Timestamp.Equal(at) {
			t.Errorf("Timestamp = %v, want %v", s.Timestamp, at)
		}
	})

	t.Run("zero elapsed is clamped", func(t *testing.T) {
		s := newSample("c_0", 4096, 0, time.Now())
		if s.DurationMS <= 0 {
			t.Errorf("DurationMS = %v, want positive", s.DurationMS)
		}
		if math.IsInf(s.Throughput, 1) || math.IsNaN(s.Throughput) {
			t.Errorf("Throughput = %v, want finite", s.Throughput)
		}
	})
}
