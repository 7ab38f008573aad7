//go:build whispercpp

package whisper

import (
	"os"
	"path/filepath"
	"testing"
)

const testModelRel = "testdata/models/ggml-tiny.en.bin"

func openTestModel(tb testing.TB) Context {
	tb.Helper()
	if _, err := os.Stat(testModelRel); err != nil {
		tb.Skipf("model fixture missing (%v); run `go run ./cmd/tools/download_model --variant tiny --dir internal/whisper/testdata`", err)
	}
	ctx, err := NewNativeContextFromFile(testModelRel, discardLogger())
	if err != nil {
		tb.Fatalf("NewNativeContextFromFile: %v", err)
	}
	tb.Cleanup(func() {
		if cerr := ctx.Close(); cerr != nil {
			tb.Errorf("Close: %v", cerr)
		}
	})
	return ctx
}

func TestNativeContextRejectsEmptyPath(t *testing.T) {
	if _, err := NewNativeContextFromFile("", discardLogger()); err == nil {
		t.Fatal("expected error for empty model path")
	}
}

func TestNativeContextTranscribesSilence(t *testing.T) {
	ctx := openTestModel(t)

	silence := make([]float32, SampleRate)
	if err := ctx.Transcribe(Params{Language: "en", Threads: 2}, silence); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	count := ctx.SegmentCount()
	if count < 0 {
		t.Fatalf("SegmentCount() = %d, want >= 0", count)
	}
	for i := 0; i < count; i++ {
		if start, end := ctx.SegmentStart(i), ctx.SegmentEnd(i); start > end {
			t.Fatalf("segment %d: start %d > end %d", i, start, end)
		}
	}
}

func TestNativeContextSequentialCallsIndependent(t *testing.T) {
	ctx := openTestModel(t)

	if err := ctx.Transcribe(Params{Language: "en"}, make([]float32, 2*SampleRate)); err != nil {
		t.Fatalf("first Transcribe: %v", err)
	}
	if err := ctx.Transcribe(Params{Language: "en"}, make([]float32, SampleRate)); err != nil {
		t.Fatalf("second Transcribe: %v", err)
	}
	// no_context is forced on, so the second result set stands alone and its
	// timestamps restart from zero.
	if count := ctx.SegmentCount(); count > 0 {
		if start := ctx.SegmentStart(0); start < 0 || start > 100 {
			t.Fatalf("first segment start = %d ticks, want within 1s window", start)
		}
	}
}

func TestNativeContextLoadsFromStream(t *testing.T) {
	if _, err := os.Stat(testModelRel); err != nil {
		t.Skipf("model fixture missing: %v", err)
	}
	src, err := openAssetStream(os.DirFS(filepath.Dir(testModelRel)), filepath.Base(testModelRel))
	if err != nil {
		t.Fatalf("openAssetStream: %v", err)
	}
	defer src.Close()

	ctx, err := NewNativeContextFromStream(src, discardLogger())
	if err != nil {
		t.Fatalf("NewNativeContextFromStream: %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNativeSystemInfoNotEmpty(t *testing.T) {
	if info := SystemInfo(); info == "" {
		t.Fatal("SystemInfo() returned empty string")
	}
}
