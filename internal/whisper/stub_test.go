package whisper

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStubContextSilenceProducesWellFormedSegments(t *testing.T) {
	ctx := NewStubContext(discardLogger())
	defer ctx.Close()

	// One second of 16kHz silence, the documented smoke input.
	silence := make([]float32, SampleRate)
	if err := ctx.Transcribe(Params{Language: "en"}, silence); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	count := ctx.SegmentCount()
	if count < 1 {
		t.Fatalf("SegmentCount() = %d, want >= 1", count)
	}
	for i := 0; i < count; i++ {
		start, end := ctx.SegmentStart(i), ctx.SegmentEnd(i)
		if start > end {
			t.Fatalf("segment %d: start %d > end %d", i, start, end)
		}
		if ctx.SegmentText(i) == "" {
			t.Fatalf("segment %d: empty text", i)
		}
	}
	// 1s of audio is 100 ticks.
	if end := ctx.SegmentEnd(count - 1); end != 100 {
		t.Fatalf("last segment end = %d ticks, want 100", end)
	}
}

func TestStubContextCallsAreIndependent(t *testing.T) {
	ctx := NewStubContext(discardLogger())
	defer ctx.Close()

	if err := ctx.Transcribe(Params{Language: "en"}, make([]float32, 20*SampleRate)); err != nil {
		t.Fatalf("first Transcribe: %v", err)
	}
	first := ctx.SegmentCount()
	firstText := ctx.SegmentText(0)

	if err := ctx.Transcribe(Params{Language: "en"}, make([]float32, 2*SampleRate)); err != nil {
		t.Fatalf("second Transcribe: %v", err)
	}
	second := ctx.SegmentCount()

	if second >= first {
		t.Fatalf("segment set not replaced: first=%d second=%d", first, second)
	}
	if ctx.SegmentText(0) == firstText {
		t.Fatal("second call reused first call's segment text")
	}
}

func TestStubContextEmptyInput(t *testing.T) {
	ctx := NewStubContext(discardLogger())
	defer ctx.Close()

	if err := ctx.Transcribe(Params{}, nil); err != nil {
		t.Fatalf("Transcribe(nil): %v", err)
	}
	if count := ctx.SegmentCount(); count != 0 {
		t.Fatalf("SegmentCount() = %d, want 0", count)
	}
	// Out-of-range reads are backend-defined; the stub defines them as zero values.
	if text := ctx.SegmentText(3); text != "" {
		t.Fatalf("SegmentText(3) = %q, want empty", text)
	}
	if ts := ctx.SegmentStart(3); ts != 0 {
		t.Fatalf("SegmentStart(3) = %d, want 0", ts)
	}
}

func TestStubContextUseAfterClose(t *testing.T) {
	ctx := NewStubContext(discardLogger())
	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ctx.Transcribe(Params{}, make([]float32, 10)); err != ErrContextClosed {
		t.Fatalf("Transcribe after Close = %v, want ErrContextClosed", err)
	}
}

func TestStubContextTextMentionsLanguage(t *testing.T) {
	ctx := NewStubContext(discardLogger())
	defer ctx.Close()

	if err := ctx.Transcribe(Params{Language: "pl"}, make([]float32, SampleRate)); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text := ctx.SegmentText(0); !strings.Contains(text, "lang=pl") {
		t.Fatalf("segment text %q missing language marker", text)
	}
}
