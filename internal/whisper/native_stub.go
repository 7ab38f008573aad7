//go:build !whispercpp

package whisper

import (
	"io/fs"
	"log/slog"
)

// NativeAvailable reports whether the whisper.cpp backend is compiled in.
func NativeAvailable() bool { return false }

// NewNativeContextFromFile returns an error when the native backend is not
// built.
func NewNativeContextFromFile(path string, logger *slog.Logger) (Context, error) {
	return nil, ErrNativeUnavailable
}

// NewNativeContextFromStream returns an error when the native backend is not
// built.
func NewNativeContextFromStream(src ByteStream, logger *slog.Logger) (Context, error) {
	return nil, ErrNativeUnavailable
}

// NewNativeContextFromAsset returns an error when the native backend is not
// built.
func NewNativeContextFromAsset(fsys fs.FS, path string, logger *slog.Logger) (Context, error) {
	return nil, ErrNativeUnavailable
}

// SystemInfo reports the backend build state when whisper.cpp is absent.
func SystemInfo() string {
	return "whisperbind: native backend not built (compile with -tags whispercpp)"
}

// BenchMemcpy is unavailable without the native backend.
func BenchMemcpy(threads int) string {
	return "whisperbind: bench unavailable, native backend not built"
}

// BenchMulMat is unavailable without the native backend.
func BenchMulMat(threads int) string {
	return "whisperbind: bench unavailable, native backend not built"
}
