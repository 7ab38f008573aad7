// Package whisper binds the whisper.cpp inference engine to Go callers.
//
// The native backend (build tag `whispercpp`) wraps the C API directly; when
// the tag is absent a deterministic stub takes its place so the rest of the
// module builds and tests without the shared library.
package whisper

import (
	"errors"
	"time"
)

const (
	// SampleRate is the PCM rate the engine expects. Callers resample before
	// invoking Transcribe; nothing in this layer validates it.
	SampleRate = 16000

	// TickDuration is the unit of segment timestamps.
	TickDuration = 10 * time.Millisecond

	// TicksPerSecond converts sample counts to timestamp ticks.
	TicksPerSecond = int64(time.Second / TickDuration)
)

var (
	// ErrNativeUnavailable indicates the native backend was not compiled in.
	ErrNativeUnavailable = errors.New("whisper: native backend unavailable")

	// ErrContextClosed is returned when a context is used after Close.
	ErrContextClosed = errors.New("whisper: context closed")
)

// Params configures a single Transcribe call. A fresh engine parameter set is
// built from engine defaults on every call; nothing here persists.
type Params struct {
	// Language is a whisper language code such as "en" or "auto".
	Language string
	// Threads is the worker count handed to the engine. Zero or negative
	// selects the number of CPUs.
	Threads int
	// Translate asks the engine to translate into English.
	Translate bool
}

// Segment is one contiguous span of recognised text. Start and End are in
// TickDuration units, zero-based from the beginning of the sample buffer.
type Segment struct {
	Text  string `json:"text"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// Context is one loaded-model inference session. Segment accessors read
// engine-held result state and are valid only between a completed Transcribe
// and the next Transcribe or Close on the same context. An out-of-range index
// is handed straight to the engine, whose behaviour the engine defines.
//
// A Context is not safe for concurrent invocation; callers serialise access.
type Context interface {
	Transcribe(p Params, samples []float32) error
	SegmentCount() int
	SegmentText(index int) string
	SegmentStart(index int) int64
	SegmentEnd(index int) int64
	Close() error
}

// CollectSegments drains the accessor surface into a slice. It is a
// convenience for hosts that want the whole result at once.
func CollectSegments(c Context) []Segment {
	count := c.SegmentCount()
	if count <= 0 {
		return nil
	}
	out := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, Segment{
			Text:  c.SegmentText(i),
			Start: c.SegmentStart(i),
			End:   c.SegmentEnd(i),
		})
	}
	return out
}
