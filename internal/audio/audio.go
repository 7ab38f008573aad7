// Package audio converts host-supplied audio payloads into the normalised
// mono float32 PCM the engine expects.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// EngineRate is the sample rate the inference engine consumes.
const EngineRate = 16000

// DecodeWAV decodes a WAV payload into float32 samples normalised to
// [-1, 1] and reports the source sample rate. Multi-channel audio is mixed
// down to mono.
func DecodeWAV(b []byte) ([]float32, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(b))
	if !dec.IsValidFile() {
		return nil, 0, errors.New("audio: invalid wav payload")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, 0, fmt.Errorf("audio: decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, errors.New("audio: empty wav payload")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var acc float32
		for ch := 0; ch < channels; ch++ {
			acc += float32(buf.Data[i*channels+ch]) / scale
		}
		out[i] = acc / float32(channels)
	}

	rate := int(dec.SampleRate)
	if rate == 0 && buf.Format != nil {
		rate = buf.Format.SampleRate
	}
	if rate == 0 {
		rate = EngineRate
	}
	return out, rate, nil
}

// DecodePCM16 converts little-endian 16-bit PCM into float32 samples.
func DecodePCM16(b []byte) ([]float32, error) {
	if len(b)%2 != 0 {
		return nil, errors.New("audio: pcm16 payload length must be even")
	}
	out := make([]float32, len(b)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(b[2*i:]))) / 32768.0
	}
	return out, nil
}

// Resample converts samples from inRate to outRate with linear
// interpolation. Equal rates return a copy.
func Resample(samples []float32, inRate, outRate int) []float32 {
	if len(samples) == 0 || inRate <= 0 || outRate <= 0 || inRate == outRate {
		return append([]float32(nil), samples...)
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(float64(len(samples)) * ratio)
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := range out {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(srcPos - float64(i0))
		out[i] = samples[i0] + (samples[i0+1]-samples[i0])*frac
	}
	return out
}

// ToEngineRate resamples to EngineRate when needed.
func ToEngineRate(samples []float32, rate int) []float32 {
	if rate == EngineRate {
		return samples
	}
	return Resample(samples, rate, EngineRate)
}
