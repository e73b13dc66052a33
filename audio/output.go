package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Output plays PCM and blocks until playback ends.
type Output interface {
	Play(pcm []byte) error
}

// otoOutput owns the process-wide oto context. oto allows only one context
// per process, so it is created on first use and never closed.
type otoOutput struct {
	once sync.Once
	ctx  *oto.Context
	err  error
}

var sharedOutput = &otoOutput{}

// DeviceOutput returns the process-wide speaker output.
func DeviceOutput() Output {
	return sharedOutput
}

func (o *otoOutput) context() (*oto.Context, error) {
	o.once.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			o.err = fmt.Errorf("open audio device: %w", err)
			return
		}
		<-ready
		o.ctx = ctx
	})
	return o.ctx, o.err
}

func (o *otoOutput) Play(pcm []byte) error {
	ctx, err := o.context()
	if err != nil {
		return err
	}

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()

	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return player.Err()
}
