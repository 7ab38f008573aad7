package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/voxkit/whisperbind/internal/config"
	"github.com/voxkit/whisperbind/internal/models"
	"github.com/voxkit/whisperbind/internal/moduleinfo"
	"github.com/voxkit/whisperbind/internal/server"
	"github.com/voxkit/whisperbind/internal/telemetry"
	"github.com/voxkit/whisperbind/internal/whisper"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Loader{Path: *configPath}.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting "+moduleinfo.Info.BinaryName,
		"listen_addr", cfg.ListenAddr,
		"model_variant", cfg.ModelVariant,
		"language", cfg.Language,
		"data_dir", cfg.DataDir,
		"native", whisper.NativeAvailable(),
	)

	recorder := telemetry.NewRecorder(logger)

	modelPath, err := resolveModel(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to resolve model", "error", err)
		os.Exit(1)
	}

	registry := whisper.NewRegistry(logger, cfg.UseStubEngine)
	defer func() {
		if err := registry.CloseAll(); err != nil {
			logger.Warn("failed to close contexts", "error", err)
		}
	}()

	if modelPath != "" {
		handle, err := registry.OpenFile(modelPath)
		if err != nil {
			logger.Error("failed to open default context", "path", modelPath, "error", err)
			os.Exit(1)
		}
		logger.Info("default context ready", "handle", uint64(handle), "path", modelPath)
	}

	srv := server.New(cfg, logger, registry, recorder, nil)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown requested, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown timed out, forcing close", "error", err)
			_ = httpServer.Close()
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server terminated with error", "error", err)
		os.Exit(1)
	}

	recorder.LogTotals()
	logger.Info(moduleinfo.Info.BinaryName + " stopped")
}

// resolveModel returns the model file the default context should load.
// Explicit overrides and the stub engine skip the download path.
func resolveModel(ctx context.Context, cfg config.Config, logger *slog.Logger) (string, error) {
	if cfg.ModelPath != "" {
		return cfg.ModelPath, nil
	}
	if cfg.UseStubEngine || !whisper.NativeAvailable() {
		logger.Warn("skipping model download, stub engine in use")
		return "", nil
	}

	manager, err := models.NewManager(cfg.DataDir, logger)
	if err != nil {
		return "", err
	}
	manifest, err := models.DefaultManifest()
	if err != nil {
		return "", err
	}
	return manager.EnsureVariant(ctx, cfg.ModelVariant, models.EnsureOptions{Manifest: manifest})
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
