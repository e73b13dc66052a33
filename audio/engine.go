// Package audio decodes synthesized narration and plays it on the speaker.
//
// The engine does not queue or interrupt: callers must not start a second
// playback before the first one's completion channel closes.
package audio

import (
	"log/slog"
	"sync"
)

// Engine decodes base64 narration payloads and plays them to completion.
type Engine struct {
	out    Output
	logger *slog.Logger
}

// NewEngine creates an engine playing on out.
func NewEngine(out Output, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		out:    out,
		logger: logger.With(slog.String("component", "audio")),
	}
}

var shared = sync.OnceValue(func() *Engine {
	return NewEngine(DeviceOutput(), slog.Default())
})

// Shared returns the process-wide engine bound to the speaker.
func Shared() *Engine {
	return shared()
}

// Play decodes payload and plays it from the start. The returned channel is
// closed when playback ends, or right away if decoding or playback fails;
// failures are logged and never returned.
func (e *Engine) Play(payload string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		pcm, err := Decode(payload)
		if err != nil {
			e.logger.Warn("failed to decode narration", slog.String("error", err.Error()))
			return
		}

		e.logger.Debug("playing narration",
			slog.Int("bytes", len(pcm)),
			slog.Duration("duration", Duration(pcm)),
		)
		if err := e.out.Play(pcm); err != nil {
			e.logger.Warn("narration playback failed", slog.String("error", err.Error()))
		}
	}()
	return done
}
