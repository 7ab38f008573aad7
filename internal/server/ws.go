package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/voxkit/whisperbind/internal/audio"
	"github.com/voxkit/whisperbind/internal/whisper"
)

const (
	// maxStreamBuffer bounds accumulated PCM16 between flushes.
	maxStreamBuffer = maxAudioBody
	streamDeadline  = 120 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type streamResult struct {
	Segments []segmentPayload `json:"segments"`
	Samples  int              `json:"samples"`
	Error    string           `json:"error,omitempty"`
}

// handleStream accepts binary frames of little-endian PCM16 at the engine
// rate and runs one transcription per "flush" text frame. The buffer is
// cleared after every flush, so flushes stay independent, matching the
// engine's no-context invocation mode.
func (s *Server) handleStream(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	// Reject unknown handles before upgrading.
	if _, err := s.registry.SegmentCount(handle); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.metrics.RecordStreamConnection()
	params := s.transcribeParams(c)

	var pcm []byte
	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamDeadline))
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("stream closed", "handle", uint64(handle), "error", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if len(pcm)+len(data) > maxStreamBuffer {
				_ = conn.WriteJSON(streamResult{Error: "stream buffer limit exceeded"})
				pcm = pcm[:0]
				continue
			}
			pcm = append(pcm, data...)

		case websocket.TextMessage:
			if strings.TrimSpace(string(data)) != "flush" {
				continue
			}
			result := s.flushStream(handle, params, pcm)
			pcm = pcm[:0]
			if err := conn.WriteJSON(result); err != nil {
				s.log.Debug("stream write failed", "handle", uint64(handle), "error", err)
				return
			}
		}
	}
}

func (s *Server) flushStream(handle whisper.Handle, params whisper.Params, pcm []byte) streamResult {
	samples, err := audio.DecodePCM16(pcm)
	if err != nil {
		return streamResult{Error: err.Error()}
	}

	start := time.Now()
	if err := s.registry.Transcribe(handle, params, samples); err != nil {
		s.metrics.RecordTranscription(0, len(samples), time.Since(start), err)
		if errors.Is(err, whisper.ErrUnknownHandle) {
			return streamResult{Error: "context freed"}
		}
		return streamResult{Error: err.Error()}
	}

	segments, err := s.registry.Segments(handle)
	if err != nil {
		return streamResult{Error: err.Error()}
	}
	s.metrics.RecordTranscription(len(segments), len(samples), time.Since(start), nil)

	return streamResult{
		Segments: renderSegments(segments),
		Samples:  len(samples),
	}
}
