package telemetry

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Recorder tracks daemon-level counters for contexts and transcription calls.
type Recorder struct {
	log *slog.Logger

	contextsOpened    atomic.Uint64
	contextsFreed     atomic.Uint64
	transcriptions    atomic.Uint64
	failures          atomic.Uint64
	segments          atomic.Uint64
	samples           atomic.Uint64
	inferenceMillis   atomic.Uint64
	benchInvocations  atomic.Uint64
	streamConnections atomic.Uint64
}

// Snapshot captures cumulative metrics recorded so far.
type Snapshot struct {
	ContextsOpened    uint64
	ContextsFreed     uint64
	Transcriptions    uint64
	Failures          uint64
	Segments          uint64
	Samples           uint64
	InferenceMillis   uint64
	BenchInvocations  uint64
	StreamConnections uint64
}

// NewRecorder constructs a Recorder using the provided logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		log: logger.With("component", "telemetry.Recorder"),
	}
}

// RecordContextOpened counts a successful initialiser call.
func (r *Recorder) RecordContextOpened() {
	if r == nil {
		return
	}
	r.contextsOpened.Add(1)
}

// RecordContextFreed counts a successful free call.
func (r *Recorder) RecordContextFreed() {
	if r == nil {
		return
	}
	r.contextsFreed.Add(1)
}

// RecordTranscription updates counters for one inference call.
func (r *Recorder) RecordTranscription(segments, samples int, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.transcriptions.Add(1)
	if err != nil {
		r.failures.Add(1)
		r.log.Debug("transcription failed", "error", err, "samples", samples)
		return
	}
	if segments > 0 {
		r.segments.Add(uint64(segments))
	}
	if samples > 0 {
		r.samples.Add(uint64(samples))
	}
	r.inferenceMillis.Add(uint64(duration.Milliseconds()))

	r.log.Debug("transcription recorded",
		"segments", segments,
		"samples", samples,
		"duration_ms", duration.Milliseconds(),
	)
}

// RecordBench counts a diagnostic benchmark invocation.
func (r *Recorder) RecordBench(kind string) {
	if r == nil {
		return
	}
	r.benchInvocations.Add(1)
	r.log.Debug("bench invoked", "kind", kind)
}

// RecordStreamConnection counts one websocket streaming session.
func (r *Recorder) RecordStreamConnection() {
	if r == nil {
		return
	}
	r.streamConnections.Add(1)
}

// Snapshot returns an immutable view of the recorder totals.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		ContextsOpened:    r.contextsOpened.Load(),
		ContextsFreed:     r.contextsFreed.Load(),
		Transcriptions:    r.transcriptions.Load(),
		Failures:          r.failures.Load(),
		Segments:          r.segments.Load(),
		Samples:           r.samples.Load(),
		InferenceMillis:   r.inferenceMillis.Load(),
		BenchInvocations:  r.benchInvocations.Load(),
		StreamConnections: r.streamConnections.Load(),
	}
}

// LogTotals emits a summary line, used on shutdown.
func (r *Recorder) LogTotals() {
	if r == nil {
		return
	}
	s := r.Snapshot()
	if s.ContextsOpened == 0 && s.Transcriptions == 0 {
		return
	}
	r.log.Info("telemetry totals",
		"contexts_opened", s.ContextsOpened,
		"contexts_freed", s.ContextsFreed,
		"transcriptions", s.Transcriptions,
		"failures", s.Failures,
		"segments", s.Segments,
		"samples", s.Samples,
		"inference_ms", s.InferenceMillis,
		"bench_invocations", s.BenchInvocations,
		"stream_connections", s.StreamConnections,
	)
}
