// Package server exposes the context registry over HTTP and WebSocket.
package server

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voxkit/whisperbind/internal/audio"
	"github.com/voxkit/whisperbind/internal/config"
	"github.com/voxkit/whisperbind/internal/moduleinfo"
	"github.com/voxkit/whisperbind/internal/telemetry"
	"github.com/voxkit/whisperbind/internal/whisper"
)

// maxAudioBody bounds a single transcription payload (10 minutes of 16kHz
// PCM16).
const maxAudioBody = 10 * 60 * audio.EngineRate * 2

// Server wires HTTP handlers to the whisper context registry.
type Server struct {
	cfg      config.Config
	log      *slog.Logger
	registry *whisper.Registry
	metrics  *telemetry.Recorder
	// assets backs the packaged-asset initialiser path; nil disables it.
	assets fs.FS
}

// New returns a Server. The registry must not be nil.
func New(cfg config.Config, logger *slog.Logger, registry *whisper.Registry, metrics *telemetry.Recorder, assets fs.FS) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		panic("server: registry must not be nil")
	}
	if metrics == nil {
		metrics = telemetry.NewRecorder(logger)
	}
	return &Server{
		cfg:      cfg,
		log:      logger.With("component", "server"),
		registry: registry,
		metrics:  metrics,
		assets:   assets,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/v1")
	v1.POST("/contexts", s.handleCreateContext)
	v1.DELETE("/contexts/:handle", s.handleFreeContext)
	v1.POST("/contexts/:handle/transcribe", s.handleTranscribe)
	v1.GET("/contexts/:handle/stream", s.handleStream)
	v1.GET("/system-info", s.handleSystemInfo)
	v1.GET("/bench/memcpy", s.handleBenchMemcpy)
	v1.GET("/bench/mulmat", s.handleBenchMulMat)
	v1.GET("/stats", s.handleStats)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		s.log.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"module": moduleinfo.Info.Slug,
		"native": whisper.NativeAvailable(),
	})
}

type createContextRequest struct {
	// Source is "file" or "asset"; file is the default.
	Source string `json:"source"`
	Path   string `json:"path" binding:"required"`
}

func (s *Server) handleCreateContext(c *gin.Context) {
	var req createContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		handle whisper.Handle
		err    error
	)
	switch req.Source {
	case "", "file":
		handle, err = s.registry.OpenFile(req.Path)
	case "asset":
		if s.assets == nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no asset bundle configured"})
			return
		}
		handle, err = s.registry.OpenAsset(s.assets, req.Path)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be file or asset"})
		return
	}
	if err != nil {
		s.log.Warn("context open failed", "source", req.Source, "path", req.Path, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	s.metrics.RecordContextOpened()
	c.JSON(http.StatusCreated, gin.H{"handle": handle})
}

func (s *Server) handleFreeContext(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	if err := s.registry.Free(handle); err != nil {
		if errors.Is(err, whisper.ErrUnknownHandle) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.metrics.RecordContextFreed()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleTranscribe(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBody))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio payload too large"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty audio payload"})
		return
	}

	samples, err := s.decodePayload(c, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := s.transcribeParams(c)
	start := time.Now()
	err = s.registry.Transcribe(handle, params, samples)
	if err != nil {
		s.metrics.RecordTranscription(0, len(samples), time.Since(start), err)
		if errors.Is(err, whisper.ErrUnknownHandle) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	segments, err := s.registry.Segments(handle)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.metrics.RecordTranscription(len(segments), len(samples), time.Since(start), nil)

	c.JSON(http.StatusOK, gin.H{
		"handle":   handle,
		"segments": renderSegments(segments),
		"metadata": moduleinfo.ResultMetadata(s.cfg.ModelVariant, params.Language),
	})
}

// decodePayload accepts either a WAV container or raw little-endian PCM16.
// Everything is normalised to mono float32 at the engine rate.
func (s *Server) decodePayload(c *gin.Context, body []byte) ([]float32, error) {
	contentType := c.ContentType()
	isWAV := strings.Contains(contentType, "wav") || bytes.HasPrefix(body, []byte("RIFF"))

	if isWAV {
		samples, rate, err := audio.DecodeWAV(body)
		if err != nil {
			return nil, err
		}
		return audio.ToEngineRate(samples, rate), nil
	}

	samples, err := audio.DecodePCM16(body)
	if err != nil {
		return nil, err
	}
	rate := audio.EngineRate
	if v := c.Query("sample_rate"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errors.New("server: invalid sample_rate")
		}
		rate = n
	}
	return audio.ToEngineRate(samples, rate), nil
}

func (s *Server) transcribeParams(c *gin.Context) whisper.Params {
	params := whisper.Params{
		Language:  s.cfg.Language,
		Threads:   s.cfg.Threads,
		Translate: s.cfg.Translate,
	}
	if v := c.Query("language"); v != "" {
		params.Language = v
	}
	if v := c.Query("threads"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			params.Threads = n
		}
	}
	if v := c.Query("translate"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			params.Translate = b
		}
	}
	return params
}

func (s *Server) handleSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"module": moduleinfo.Info.Name,
		"native": whisper.NativeAvailable(),
		"info":   whisper.SystemInfo(),
	})
}

func (s *Server) handleBenchMemcpy(c *gin.Context) {
	s.metrics.RecordBench("memcpy")
	c.JSON(http.StatusOK, gin.H{"report": whisper.BenchMemcpy(benchThreads(c))})
}

func (s *Server) handleBenchMulMat(c *gin.Context) {
	s.metrics.RecordBench("mulmat")
	c.JSON(http.StatusOK, gin.H{"report": whisper.BenchMulMat(benchThreads(c))})
}

func (s *Server) handleStats(c *gin.Context) {
	snapshot := s.metrics.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"contexts_opened":    snapshot.ContextsOpened,
		"contexts_freed":     snapshot.ContextsFreed,
		"open_contexts":      s.registry.Len(),
		"transcriptions":     snapshot.Transcriptions,
		"failures":           snapshot.Failures,
		"segments":           snapshot.Segments,
		"samples":            snapshot.Samples,
		"inference_ms":       snapshot.InferenceMillis,
		"bench_invocations":  snapshot.BenchInvocations,
		"stream_connections": snapshot.StreamConnections,
	})
}

func benchThreads(c *gin.Context) int {
	if v := c.Query("threads"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}

func parseHandle(c *gin.Context) (whisper.Handle, bool) {
	raw := c.Param("handle")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid handle"})
		return 0, false
	}
	return whisper.Handle(value), true
}

type segmentPayload struct {
	Text    string `json:"text"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

// renderSegments converts engine ticks (10 ms) to milliseconds for the wire.
func renderSegments(segments []whisper.Segment) []segmentPayload {
	out := make([]segmentPayload, 0, len(segments))
	for _, seg := range segments {
		out = append(out, segmentPayload{
			Text:    seg.Text,
			StartMS: seg.Start * 10,
			EndMS:   seg.End * 10,
		})
	}
	return out
}
