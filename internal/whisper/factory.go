package whisper

import (
	"io/fs"
	"log/slog"
)

// openFile builds a context for a model on the filesystem, preferring the
// native backend and falling back to the stub when it is not compiled in or
// forced off by configuration.
func openFile(path string, logger *slog.Logger, forceStub bool) (Context, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if forceStub {
		logger.Warn("stub backend forced by configuration", "model_path", path)
		return NewStubContext(logger), nil
	}
	if !NativeAvailable() {
		logger.Warn("native backend not built; using stub", "model_path", path)
		return NewStubContext(logger), nil
	}
	return NewNativeContextFromFile(path, logger)
}

// openStream builds a context from a host pull-stream. The stub backend does
// not consume the stream; ownership stays with the caller either way.
func openStream(src ByteStream, logger *slog.Logger, forceStub bool) (Context, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if forceStub || !NativeAvailable() {
		logger.Warn("native backend unavailable for stream load; using stub")
		return NewStubContext(logger), nil
	}
	return NewNativeContextFromStream(src, logger)
}

// openAsset builds a context from a packaged asset. The asset is opened here
// so a missing path fails the same way on every backend; the native loader
// closes the handle through its close callback, the stub path closes it
// directly.
func openAsset(fsys fs.FS, path string, logger *slog.Logger, forceStub bool) (Context, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if forceStub || !NativeAvailable() {
		src, err := openAssetStream(fsys, path)
		if err != nil {
			logger.Warn("failed to open model asset", "path", path, "error", err)
			return nil, err
		}
		src.Close()
		logger.Warn("native backend unavailable for asset load; using stub", "path", path)
		return NewStubContext(logger), nil
	}
	return NewNativeContextFromAsset(fsys, path, logger)
}
