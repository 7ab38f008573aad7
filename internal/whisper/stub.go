package whisper

import (
	"fmt"
	"log/slog"
	"sync"
)

// stubSegmentTicks is the maximum span of one generated segment (5 s).
const stubSegmentTicks = int64(500)

// StubContext produces deterministic segments without invoking the engine.
// It stands in for a loaded model when the native backend is not compiled in
// and carries the same result-state semantics: segments live until the next
// Transcribe or Close.
type StubContext struct {
	mu       sync.Mutex
	log      *slog.Logger
	closed   bool
	calls    int
	segments []Segment
}

// NewStubContext returns a Context that generates placeholder transcripts.
func NewStubContext(logger *slog.Logger) *StubContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubContext{
		log: logger.With("component", "whisper.stub"),
	}
}

// Transcribe replaces the previous result state with segments derived from
// the input length alone, one per 5 s span of audio at the engine rate.
func (c *StubContext) Transcribe(p Params, samples []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	c.calls++

	totalTicks := int64(len(samples)) * TicksPerSecond / int64(SampleRate)
	c.segments = c.segments[:0]
	for start := int64(0); start < totalTicks; start += stubSegmentTicks {
		end := start + stubSegmentTicks
		if end > totalTicks {
			end = totalTicks
		}
		c.segments = append(c.segments, Segment{
			Text:  fmt.Sprintf("[stub] call %d segment %d (%d samples, lang=%s)", c.calls, len(c.segments), len(samples), p.Language),
			Start: start,
			End:   end,
		})
	}

	c.log.Debug("stub transcription",
		"samples", len(samples),
		"segments", len(c.segments),
		"language", p.Language,
		"translate", p.Translate,
	)
	return nil
}

func (c *StubContext) SegmentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.segments)
}

// SegmentText mirrors the engine contract: the behaviour for an out-of-range
// index is the backend's to define, and the stub defines it as empty.
func (c *StubContext) SegmentText(index int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.segments) {
		return ""
	}
	return c.segments[index].Text
}

func (c *StubContext) SegmentStart(index int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.segments) {
		return 0
	}
	return c.segments[index].Start
}

func (c *StubContext) SegmentEnd(index int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.segments) {
		return 0
	}
	return c.segments[index].End
}

func (c *StubContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.segments = nil
	return nil
}
