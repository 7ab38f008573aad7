package whisper

import (
	"io"
	"io/fs"
	"log/slog"
)

// ByteStream is the pull-stream capability a host hands to the loader: a
// count of bytes currently readable plus a bounded read. Available is a
// liveness approximation for sources that may block on more data; the loader
// treats zero available as end of stream.
type ByteStream interface {
	Available() int
	Read(p []byte) (n int, err error)
}

// streamAdapter turns a ByteStream into the three primitives the engine's
// model loader expects: bounded read, end-of-data check, close. One adapter
// serves a single initialisation call and is discarded afterwards.
type streamAdapter struct {
	src      ByteStream
	log      *slog.Logger
	closeSrc bool

	offset int64
	buf    []byte
}

func newStreamAdapter(src ByteStream, logger *slog.Logger, closeSrc bool) *streamAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &streamAdapter{
		src:      src,
		log:      logger.With("component", "whisper.loader"),
		closeSrc: closeSrc,
	}
}

// fill copies up to len(dst) bytes from the source into dst and returns the
// count actually obtained. The request is clamped to the source's available
// count, read through an intermediate buffer, and copied out; an under-read
// is logged and propagated as a short read, never as a failure.
func (a *streamAdapter) fill(dst []byte) int {
	want := len(dst)
	if want == 0 {
		return 0
	}

	avail := a.src.Available()
	if avail < 0 {
		avail = 0
	}
	n := want
	if avail < n {
		n = avail
	}
	if n == 0 {
		a.log.Info("model stream under-read", "requested", want, "clamped", 0, "read", 0)
		return 0
	}

	if cap(a.buf) < n {
		a.buf = make([]byte, n)
	}
	buf := a.buf[:n]

	read, err := a.src.Read(buf)
	if err != nil && err != io.EOF {
		a.log.Warn("model stream read failed", "error", err, "requested", want)
	}
	if read < 0 {
		read = 0
	}
	copy(dst, buf[:read])
	a.offset += int64(read)

	if n != want || read != n {
		a.log.Info("model stream under-read", "requested", want, "clamped", n, "read", read)
	}
	return read
}

// eof reports end of data: true exactly when the source has nothing readable
// right now.
func (a *streamAdapter) eof() bool {
	return a.src.Available() <= 0
}

// release runs when the engine finishes loading. Ownership of a generic
// stream stays with the host, so only asset-backed sources are closed.
func (a *streamAdapter) release() {
	if !a.closeSrc {
		return
	}
	if c, ok := a.src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn("failed to close model source", "error", err)
		}
	}
}

// assetStream adapts a packaged asset opened from an fs.FS (often an
// embed.FS) into a ByteStream. Available reports the remaining length.
type assetStream struct {
	f      fs.File
	size   int64
	offset int64
}

func openAssetStream(fsys fs.FS, path string) (*assetStream, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &assetStream{f: f, size: info.Size()}, nil
}

func (s *assetStream) Available() int {
	rem := s.size - s.offset
	if rem <= 0 {
		return 0
	}
	return int(rem)
}

func (s *assetStream) Read(p []byte) (int, error) {
	n, err := s.f.Read(p)
	s.offset += int64(n)
	return n, err
}

func (s *assetStream) Close() error {
	return s.f.Close()
}
