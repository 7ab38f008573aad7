package telemetry

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestRecorderSnapshot(t *testing.T) {
	recorder := NewRecorder(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if snapshot := recorder.Snapshot(); snapshot.Transcriptions != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}

	recorder.RecordContextOpened()
	recorder.RecordContextOpened()
	recorder.RecordContextFreed()
	recorder.RecordTranscription(3, 16000, 40*time.Millisecond, nil)
	recorder.RecordTranscription(1, 8000, 10*time.Millisecond, nil)
	recorder.RecordTranscription(0, 4000, 0, errors.New("engine failure"))
	recorder.RecordBench("memcpy")
	recorder.RecordStreamConnection()

	snapshot := recorder.Snapshot()
	if snapshot.ContextsOpened != 2 {
		t.Fatalf("unexpected ContextsOpened: %d", snapshot.ContextsOpened)
	}
	if snapshot.ContextsFreed != 1 {
		t.Fatalf("unexpected ContextsFreed: %d", snapshot.ContextsFreed)
	}
	if snapshot.Transcriptions != 3 {
		t.Fatalf("unexpected Transcriptions: %d", snapshot.Transcriptions)
	}
	if snapshot.Failures != 1 {
		t.Fatalf("unexpected Failures: %d", snapshot.Failures)
	}
	if snapshot.Segments != 4 {
		t.Fatalf("unexpected Segments: %d", snapshot.Segments)
	}
	if snapshot.Samples != 24000 {
		t.Fatalf("unexpected Samples: %d", snapshot.Samples)
	}
	if snapshot.InferenceMillis != 50 {
		t.Fatalf("unexpected InferenceMillis: %d", snapshot.InferenceMillis)
	}
	if snapshot.BenchInvocations != 1 {
		t.Fatalf("unexpected BenchInvocations: %d", snapshot.BenchInvocations)
	}
	if snapshot.StreamConnections != 1 {
		t.Fatalf("unexpected StreamConnections: %d", snapshot.StreamConnections)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var recorder *Recorder
	recorder.RecordContextOpened()
	recorder.RecordTranscription(1, 1, time.Millisecond, nil)
	recorder.RecordBench("mulmat")
	recorder.LogTotals()
	if snapshot := recorder.Snapshot(); snapshot != (Snapshot{}) {
		t.Fatalf("nil recorder snapshot not zero: %+v", snapshot)
	}
}
