package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Output format of every decoded payload.
const (
	SampleRate     = 24000
	Channels       = 1
	BytesPerSample = 2
)

var (
	ErrEmptyPayload      = errors.New("audio payload is empty")
	ErrInvalidPCM        = errors.New("raw PCM payload is not 16-bit aligned")
	ErrInvalidContainer  = errors.New("invalid WAV container")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Decode turns a base64 payload into 16-bit little-endian mono PCM at SampleRate.
// WAV containers are unwrapped; anything else is taken as raw PCM.
func Decode(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}
	if isWAV(raw) {
		return decodeWAV(raw)
	}
	if len(raw)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidPCM, len(raw))
	}
	return raw, nil
}

// Duration is the playing time of mono 16-bit PCM at SampleRate.
func Duration(pcm []byte) time.Duration {
	samples := len(pcm) / (BytesPerSample * Channels)
	return time.Duration(samples) * time.Second / SampleRate
}

func isWAV(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}

// decodeWAV accepts 16-bit WAV at SampleRate and downmixes to mono.
func decodeWAV(raw []byte) ([]byte, error) {
	d := wav.NewDecoder(bytes.NewReader(raw))
	if !d.IsValidFile() {
		return nil, ErrInvalidContainer
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}
	if d.SampleRate != SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, want %d", ErrUnsupportedFormat, d.SampleRate, SampleRate)
	}
	if d.BitDepth != 16 {
		return nil, fmt.Errorf("%w: bit depth %d, want 16", ErrUnsupportedFormat, d.BitDepth)
	}

	channels := int(d.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}

	return encodePCM(downmix(buf, channels)), nil
}

// downmix averages interleaved frames into one channel.
func downmix(buf *goaudio.IntBuffer, channels int) *goaudio.IntBuffer {
	frames := len(buf.Data) / channels
	mono := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, frames),
	}
	for f := 0; f < frames; f++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += buf.Data[f*channels+c]
		}
		mono.Data[f] = sum / channels
	}
	return mono
}

// encodePCM writes buf as 16-bit little-endian samples.
func encodePCM(buf *goaudio.IntBuffer) []byte {
	out := make([]byte, len(buf.Data)*BytesPerSample)
	for i, v := range buf.Data {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(int16(v)))
	}
	return out
}
