//go:build whispercpp

package whisper

/*
#cgo CFLAGS: -I${SRCDIR}/../../third_party/whisper.cpp -I${SRCDIR}/../../third_party/whisper.cpp/include -I${SRCDIR}/../../third_party/whisper.cpp/ggml/include
#cgo CXXFLAGS: -std=c++17 -I${SRCDIR}/../../third_party/whisper.cpp -I${SRCDIR}/../../third_party/whisper.cpp/include -I${SRCDIR}/../../third_party/whisper.cpp/ggml/include
#cgo LDFLAGS: -L${SRCDIR}/../../third_party/whisper.cpp/build -L${SRCDIR}/../../third_party/whisper.cpp/build/src -Wl,-rpath,${SRCDIR}/../../third_party/whisper.cpp/build/src -lwhisper -lstdc++ -lm

#include <stdlib.h>
#include "include/whisper.h"
#include "ggml.h"

size_t whisperbindLoaderRead(void *ctx, void *output, size_t read_size);
bool whisperbindLoaderEOF(void *ctx);
void whisperbindLoaderClose(void *ctx);

static struct whisper_model_loader whisperbind_make_loader(void *ctx) {
	struct whisper_model_loader loader;
	loader.context = ctx;
	loader.read = whisperbindLoaderRead;
	loader.eof = whisperbindLoaderEOF;
	loader.close = whisperbindLoaderClose;
	return loader;
}
*/
import "C"

import (
	"fmt"
	"io/fs"
	"log/slog"
	"runtime"
	"runtime/cgo"
	"strings"
	"sync"
	"unsafe"
)

// NativeAvailable reports whether the whisper.cpp backend is compiled in.
func NativeAvailable() bool { return true }

// NativeContext wraps one whisper_context. The engine owns all result state;
// this type only marshals calls and buffers across the cgo boundary.
type NativeContext struct {
	mu  sync.Mutex
	ctx *C.struct_whisper_context
	log *slog.Logger
}

// NewNativeContextFromFile loads a model from a filesystem path using the
// engine's file loader with default context parameters.
func NewNativeContextFromFile(path string, logger *slog.Logger) (Context, error) {
	if path == "" {
		return nil, fmt.Errorf("whisper: model path required")
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	ctx := C.whisper_init_from_file_with_params(cPath, C.whisper_context_default_params())
	if ctx == nil {
		return nil, fmt.Errorf("whisper: failed to initialise context from %s", path)
	}
	return newNativeContext(ctx, logger), nil
}

// NewNativeContextFromStream loads a model through the generic loader
// callbacks backed by the given ByteStream. Ownership of the stream stays
// with the caller; the loader's close callback is a no-op for this path.
func NewNativeContextFromStream(src ByteStream, logger *slog.Logger) (Context, error) {
	adapter := newStreamAdapter(src, logger, false)
	ctx := initWithLoader(adapter, false)
	if ctx == nil {
		return nil, fmt.Errorf("whisper: failed to initialise context from stream")
	}
	return newNativeContext(ctx, logger), nil
}

// NewNativeContextFromAsset resolves a packaged asset and loads it through
// the parameterised loader entry point with engine default parameters. The
// asset handle is released by the loader's close callback.
func NewNativeContextFromAsset(fsys fs.FS, path string, logger *slog.Logger) (Context, error) {
	if logger == nil {
		logger = slog.Default()
	}
	src, err := openAssetStream(fsys, path)
	if err != nil {
		logger.Warn("failed to open model asset", "path", path, "error", err)
		return nil, fmt.Errorf("whisper: open asset %s: %w", path, err)
	}
	adapter := newStreamAdapter(src, logger, true)
	ctx := initWithLoader(adapter, true)
	if ctx == nil {
		return nil, fmt.Errorf("whisper: failed to initialise context from asset %s", path)
	}
	return newNativeContext(ctx, logger), nil
}

// initWithLoader wires the adapter into a whisper_model_loader and invokes
// the engine's loading entry point. The loader lives only for the duration
// of this call, so the cgo handle is released before returning.
func initWithLoader(adapter *streamAdapter, withParams bool) *C.struct_whisper_context {
	handle := cgo.NewHandle(adapter)
	defer handle.Delete()

	loader := C.whisperbind_make_loader(unsafe.Pointer(&handle))
	if withParams {
		return C.whisper_init_with_params(&loader, C.whisper_context_default_params())
	}
	return C.whisper_init(&loader)
}

func newNativeContext(ctx *C.struct_whisper_context, logger *slog.Logger) *NativeContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &NativeContext{
		ctx: ctx,
		log: logger.With("component", "whisper.native"),
	}
}

// Transcribe runs one synchronous inference pass over the sample buffer. The
// parameter set is rebuilt from engine defaults on every call: greedy
// sampling, progress printing off, no_context forced on so calls stay
// independent, multi-segment output allowed. Accumulated timing statistics
// are reset before the run.
func (c *NativeContext) Transcribe(p Params, samples []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return ErrContextClosed
	}

	threads := p.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	lang := strings.TrimSpace(p.Language)
	if lang == "" {
		lang = "auto"
	}
	cLang := C.CString(lang)
	defer C.free(unsafe.Pointer(cLang))

	params := C.whisper_full_default_params(C.WHISPER_SAMPLING_GREEDY)
	params.translate = C.bool(p.Translate)
	params.print_realtime = C.bool(false)
	params.print_progress = C.bool(false)
	params.print_timestamps = C.bool(false)
	params.print_special = C.bool(false)
	params.language = cLang
	params.n_threads = C.int(threads)
	params.offset_ms = C.int(0)
	params.no_context = C.bool(true)
	params.single_segment = C.bool(false)

	C.whisper_reset_timings(c.ctx)

	var sptr *C.float
	if len(samples) > 0 {
		sptr = (*C.float)(unsafe.Pointer(&samples[0]))
	}
	if ret := C.whisper_full(c.ctx, params, sptr, C.int(len(samples))); ret != 0 {
		c.log.Error("inference failed",
			"code", int(ret),
			"language", lang,
			"threads", threads,
			"samples", len(samples),
		)
		return fmt.Errorf("whisper: inference failed with code %d", int(ret))
	}
	C.whisper_print_timings(c.ctx)
	return nil
}

// SegmentCount returns the number of segments held in the engine's result
// state after the last completed Transcribe.
func (c *NativeContext) SegmentCount() int {
	return int(C.whisper_full_n_segments(c.ctx))
}

// SegmentText returns the text of one segment. The index is passed straight
// through; the engine defines the behaviour for an invalid index.
func (c *NativeContext) SegmentText(index int) string {
	return C.GoString(C.whisper_full_get_segment_text(c.ctx, C.int(index)))
}

// SegmentStart returns the segment start timestamp in 10 ms ticks.
func (c *NativeContext) SegmentStart(index int) int64 {
	return int64(C.whisper_full_get_segment_t0(c.ctx, C.int(index)))
}

// SegmentEnd returns the segment end timestamp in 10 ms ticks.
func (c *NativeContext) SegmentEnd(index int) int64 {
	return int64(C.whisper_full_get_segment_t1(c.ctx, C.int(index)))
}

// Close frees the engine context. Further calls through this type return
// ErrContextClosed instead of touching freed memory.
func (c *NativeContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx != nil {
		C.whisper_free(c.ctx)
		c.ctx = nil
	}
	return nil
}

// SystemInfo returns the engine's build and capability string.
func SystemInfo() string {
	return C.GoString(C.whisper_print_system_info())
}

// BenchMemcpy runs the engine's raw memory-throughput micro-benchmark and
// returns its report.
func BenchMemcpy(threads int) string {
	return C.GoString(C.whisper_bench_memcpy_str(C.int(threads)))
}

// BenchMulMat runs the engine's matrix-multiply micro-benchmark and returns
// its report.
func BenchMulMat(threads int) string {
	return C.GoString(C.whisper_bench_ggml_mul_mat_str(C.int(threads)))
}
