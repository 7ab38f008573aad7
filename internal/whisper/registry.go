package whisper

import (
	"errors"
	"io/fs"
	"log/slog"
	"sync"
)

// ErrUnknownHandle is returned for a handle that was never issued or has
// already been freed.
var ErrUnknownHandle = errors.New("whisper: unknown context handle")

// Handle identifies one open context at the registry surface. Zero is never
// a valid handle; initialiser failures report it alongside the error.
type Handle uint64

// Registry owns open contexts and maps them to opaque integer handles.
// Instead of round-tripping a raw engine pointer to the host, the handle
// indexes this table, so use-after-free and double-free surface as
// ErrUnknownHandle rather than silent corruption.
type Registry struct {
	log       *slog.Logger
	forceStub bool

	mu       sync.Mutex
	next     Handle
	contexts map[Handle]Context
}

// NewRegistry returns an empty registry. When forceStub is set every
// initialiser produces a stub context regardless of the build.
func NewRegistry(logger *slog.Logger, forceStub bool) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		log:       logger.With("component", "whisper.registry"),
		forceStub: forceStub,
		contexts:  make(map[Handle]Context),
	}
}

// OpenFile loads a model from a filesystem path and returns its handle.
func (r *Registry) OpenFile(path string) (Handle, error) {
	ctx, err := openFile(path, r.log, r.forceStub)
	if err != nil {
		return 0, err
	}
	return r.register(ctx), nil
}

// OpenStream loads a model from a host pull-stream and returns its handle.
func (r *Registry) OpenStream(src ByteStream) (Handle, error) {
	ctx, err := openStream(src, r.log, r.forceStub)
	if err != nil {
		return 0, err
	}
	return r.register(ctx), nil
}

// OpenAsset resolves a packaged asset and returns the handle for the loaded
// model. A missing asset yields a zero handle and the open error.
func (r *Registry) OpenAsset(fsys fs.FS, path string) (Handle, error) {
	ctx, err := openAsset(fsys, path, r.log, r.forceStub)
	if err != nil {
		return 0, err
	}
	return r.register(ctx), nil
}

func (r *Registry) register(ctx Context) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.contexts[h] = ctx
	r.log.Info("context opened", "handle", uint64(h))
	return h
}

func (r *Registry) lookup(h Handle) (Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.contexts[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return ctx, nil
}

// Free destroys the context behind the handle. Freeing an unknown or already
// freed handle returns ErrUnknownHandle.
func (r *Registry) Free(h Handle) error {
	r.mu.Lock()
	ctx, ok := r.contexts[h]
	if ok {
		delete(r.contexts, h)
	}
	r.mu.Unlock()
	if !ok {
		return ErrUnknownHandle
	}
	r.log.Info("context freed", "handle", uint64(h))
	return ctx.Close()
}

// Transcribe runs one inference call against the handle's context. Callers
// still serialise concurrent calls against a single handle; the registry
// only guards its own table.
func (r *Registry) Transcribe(h Handle, p Params, samples []float32) error {
	ctx, err := r.lookup(h)
	if err != nil {
		return err
	}
	return ctx.Transcribe(p, samples)
}

// SegmentCount returns the segment count for the handle's last transcription.
func (r *Registry) SegmentCount(h Handle) (int, error) {
	ctx, err := r.lookup(h)
	if err != nil {
		return 0, err
	}
	return ctx.SegmentCount(), nil
}

// SegmentText returns one segment's text. The index is passed through to the
// backend unchecked.
func (r *Registry) SegmentText(h Handle, index int) (string, error) {
	ctx, err := r.lookup(h)
	if err != nil {
		return "", err
	}
	return ctx.SegmentText(index), nil
}

// SegmentStart returns one segment's start timestamp in 10 ms ticks.
func (r *Registry) SegmentStart(h Handle, index int) (int64, error) {
	ctx, err := r.lookup(h)
	if err != nil {
		return 0, err
	}
	return ctx.SegmentStart(index), nil
}

// SegmentEnd returns one segment's end timestamp in 10 ms ticks.
func (r *Registry) SegmentEnd(h Handle, index int) (int64, error) {
	ctx, err := r.lookup(h)
	if err != nil {
		return 0, err
	}
	return ctx.SegmentEnd(index), nil
}

// Segments collects the whole result set for the handle.
func (r *Registry) Segments(h Handle) ([]Segment, error) {
	ctx, err := r.lookup(h)
	if err != nil {
		return nil, err
	}
	return CollectSegments(ctx), nil
}

// Len reports the number of open contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

// CloseAll frees every open context. Used on shutdown.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	contexts := r.contexts
	r.contexts = make(map[Handle]Context)
	r.mu.Unlock()

	var firstErr error
	for h, ctx := range contexts {
		if err := ctx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.log.Info("context freed", "handle", uint64(h))
	}
	return firstErr
}
