package workflow

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mhpenta/museai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	louvre = museai.Museum{ID: "louvre", Name: "The Louvre", Location: "Paris, France"}

	renaissance = museai.Theme{
		ID:             "renaissance",
		Name:           "Renaissance Classicism",
		Vibe:           "balanced, serene, luminous",
		ExamplePrompts: []string{"a portrait of a fox in sfumato", "a marble staircase at dusk"},
	}
)

// fakeGateway answers every call from its Func fields; unset fields get
// well-behaved defaults.
type fakeGateway struct {
	RefineFunc   func(ctx context.Context, idea string, theme museai.Theme, museum string) string
	ImageFunc    func(ctx context.Context, prompt string) (*museai.Image, error)
	DescribeFunc func(ctx context.Context, img museai.Image, museum, theme string) string
	HashtagsFunc func(ctx context.Context, img museai.Image, museum, theme string) []string
	SpeechFunc   func(ctx context.Context, text string) *museai.Speech

	mu      sync.Mutex
	prompts []string
	spoken  []string
}

func (f *fakeGateway) RefinePrompt(ctx context.Context, idea string, theme museai.Theme, museum string) string {
	if f.RefineFunc != nil {
		return f.RefineFunc(ctx, idea, theme, museum)
	}
	return museai.RefineFallback(idea, theme)
}

func (f *fakeGateway) GenerateImage(ctx context.Context, prompt string) (*museai.Image, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.ImageFunc != nil {
		return f.ImageFunc(ctx, prompt)
	}
	return &museai.Image{Data: []byte(prompt), MIMEType: "image/png"}, nil
}

func (f *fakeGateway) DescribeArtwork(ctx context.Context, img museai.Image, museum, theme string) string {
	if f.DescribeFunc != nil {
		return f.DescribeFunc(ctx, img, museum, theme)
	}
	return museai.DescribeFallback
}

func (f *fakeGateway) GenerateHashtags(ctx context.Context, img museai.Image, museum, theme string) []string {
	if f.HashtagsFunc != nil {
		return f.HashtagsFunc(ctx, img, museum, theme)
	}
	return museai.FallbackHashtags(museum, theme)
}

func (f *fakeGateway) SynthesizeSpeech(ctx context.Context, text string) *museai.Speech {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	if f.SpeechFunc != nil {
		return f.SpeechFunc(ctx, text)
	}
	return &museai.Speech{Data: make([]byte, 480), MIMEType: "audio/L16", SampleRate: museai.SpeechSampleRate}
}

func (f *fakeGateway) imagePrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fakeGateway) spokenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

type fakePlayer struct {
	mu       sync.Mutex
	payloads []string
	never    bool
}

func (p *fakePlayer) Play(payload string) <-chan struct{} {
	p.mu.Lock()
	p.payloads = append(p.payloads, payload)
	p.mu.Unlock()

	done := make(chan struct{})
	if !p.never {
		close(done)
	}
	return done
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func newController(gw museai.Gateway, player Player, opts ...Option) *Controller {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(gw, player, louvre, renaissance, opts...)
}

func TestController_LouvreScenario(t *testing.T) {
	gw := &fakeGateway{
		RefineFunc: func(_ context.Context, idea string, theme museai.Theme, museum string) string {
			return "A regal cat wearing a golden crown, painted in " + theme.Name + " at " + museum
		},
		HashtagsFunc: func(_ context.Context, _ museai.Image, _, _ string) []string {
			return museai.ExtractHashtags("#TheLouvre #Renaissance #RoyalCat #MuseAI")
		},
	}
	c := newController(gw, &fakePlayer{})

	c.EditIdea("a cat wearing a crown")
	require.NoError(t, c.RefinePrompt(context.Background()))

	s := c.Snapshot()
	require.NotEmpty(t, s.RefinedPrompt)
	assert.Equal(t, PhaseIdle, s.Phase)

	require.NoError(t, c.GenerateArt(context.Background()))
	c.Wait()

	s = c.Snapshot()
	require.NotNil(t, s.Image)
	assert.Equal(t, ErrorNone, s.LastError)
	assert.LessOrEqual(t, len(s.Hashtags), museai.MaxHashtags)
	assert.Contains(t, s.Hashtags, "#TheLouvre")
	assert.Contains(t, s.Hashtags, museai.BrandHashtag)
	assert.Equal(t, []string{s.RefinedPrompt}, gw.imagePrompts())
}

func TestController_GenerateFailureReturnsToIdle(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
	}{
		{name: "transport", err: errors.New("connection reset"), wantKind: ErrorTransport},
		{name: "no image", err: museai.ErrNoImage, wantKind: ErrorEmptyResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{
				ImageFunc: func(context.Context, string) (*museai.Image, error) { return nil, tt.err },
			}
			c := newController(gw, nil)
			c.EditIdea("a cat wearing a crown")

			err := c.GenerateArt(context.Background())
			assert.ErrorIs(t, err, tt.err)

			s := c.Snapshot()
			assert.Nil(t, s.Image)
			assert.Empty(t, s.Hashtags)
			assert.Equal(t, tt.wantKind, s.LastError)
			assert.Equal(t, PhaseIdle, s.Phase)
		})
	}
}

func TestController_NilImageIsEmptyResult(t *testing.T) {
	gw := &fakeGateway{
		ImageFunc: func(context.Context, string) (*museai.Image, error) { return nil, nil },
	}
	c := newController(gw, nil)
	c.EditIdea("a cat")

	assert.ErrorIs(t, c.GenerateArt(context.Background()), museai.ErrNoImage)
	assert.Equal(t, ErrorEmptyResult, c.Snapshot().LastError)
}

func TestController_GenerateClearsPreviousArtwork(t *testing.T) {
	gw := &fakeGateway{}
	c := newController(gw, nil)
	c.EditIdea("first")
	require.NoError(t, c.GenerateArt(context.Background()))
	c.Wait()
	require.NotEmpty(t, c.Snapshot().Hashtags)

	release := make(chan struct{})
	started := make(chan struct{})
	gw.ImageFunc = func(context.Context, string) (*museai.Image, error) {
		close(started)
		<-release
		return nil, errors.New("boom")
	}

	errc := make(chan error, 1)
	go func() { errc <- c.GenerateArt(context.Background()) }()
	<-started

	s := c.Snapshot()
	assert.Equal(t, PhaseGenerating, s.Phase)
	assert.Nil(t, s.Image)
	assert.Empty(t, s.Hashtags)

	close(release)
	assert.Error(t, <-errc)
}

func TestController_MutualExclusion(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	gw := &fakeGateway{
		RefineFunc: func(_ context.Context, idea string, _ museai.Theme, _ string) string {
			close(started)
			<-release
			return "refined " + idea
		},
	}
	c := newController(gw, &fakePlayer{})
	c.EditIdea("a cat")

	errc := make(chan error, 1)
	go func() { errc <- c.RefinePrompt(context.Background()) }()
	<-started

	assert.ErrorIs(t, c.RefinePrompt(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.GenerateArt(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.NarratePrompt(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.NarrateImage(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.GenerateArt(context.Background()), ErrPrecondition)
	assert.Empty(t, gw.imagePrompts())
	assert.Empty(t, gw.spokenTexts())

	// editing stays allowed while busy
	c.EditIdea("a dog")
	assert.Equal(t, PhaseRefining, c.Snapshot().Phase)

	close(release)
	require.NoError(t, <-errc)

	s := c.Snapshot()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, "refined a cat", s.RefinedPrompt)
	assert.Equal(t, "a dog", s.UserIdea)
}

func TestController_Preconditions(t *testing.T) {
	gw := &fakeGateway{}
	c := newController(gw, nil)

	assert.ErrorIs(t, c.RefinePrompt(context.Background()), ErrEmptyInput)
	assert.ErrorIs(t, c.GenerateArt(context.Background()), ErrEmptyInput)
	assert.ErrorIs(t, c.NarratePrompt(context.Background()), ErrEmptyInput)
	assert.ErrorIs(t, c.NarrateImage(context.Background()), ErrNoArtwork)

	c.EditIdea("   ")
	assert.ErrorIs(t, c.RefinePrompt(context.Background()), ErrEmptyInput)

	assert.Empty(t, gw.imagePrompts())
	assert.Empty(t, gw.spokenTexts())
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}

func TestController_RefineNeverEmpty(t *testing.T) {
	c := newController(&fakeGateway{}, nil)
	c.EditIdea("a cat wearing a crown")
	require.NoError(t, c.RefinePrompt(context.Background()))

	refined := c.Snapshot().RefinedPrompt
	assert.Contains(t, refined, "a cat wearing a crown")
	assert.Contains(t, refined, renaissance.Name)
}

func TestController_EditIdeaKeepsRefinedPrompt(t *testing.T) {
	c := newController(&fakeGateway{}, nil)
	c.EditIdea("a cat")
	require.NoError(t, c.RefinePrompt(context.Background()))
	refined := c.Snapshot().RefinedPrompt

	c.EditIdea("a dog")
	s := c.Snapshot()
	assert.Equal(t, refined, s.RefinedPrompt)
	assert.Equal(t, refined, s.EffectivePrompt())
}

func TestController_UseExample(t *testing.T) {
	c := newController(&fakeGateway{}, nil)
	require.NoError(t, c.UseExample(1))
	assert.Equal(t, renaissance.ExamplePrompts[1], c.Snapshot().UserIdea)

	assert.ErrorIs(t, c.UseExample(5), ErrPrecondition)
	assert.ErrorIs(t, c.UseExample(-1), ErrPrecondition)
}

func TestController_GenerateUsesPromptAtInvocation(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	gw := &fakeGateway{}
	gw.ImageFunc = func(_ context.Context, prompt string) (*museai.Image, error) {
		close(started)
		<-release
		return &museai.Image{Data: []byte(prompt), MIMEType: "image/png"}, nil
	}
	c := newController(gw, nil)
	c.EditIdea("a cat")

	errc := make(chan error, 1)
	go func() { errc <- c.GenerateArt(context.Background()) }()
	<-started
	c.EditIdea("a dog")
	close(release)
	require.NoError(t, <-errc)
	c.Wait()

	assert.Equal(t, []string{"a cat"}, gw.imagePrompts())
	assert.Equal(t, []byte("a cat"), c.Snapshot().Image.Data)
}

func TestController_StaleHashtagsDiscarded(t *testing.T) {
	var mu sync.Mutex
	releases := map[string]chan struct{}{}
	gw := &fakeGateway{
		HashtagsFunc: func(_ context.Context, img museai.Image, _, _ string) []string {
			mu.Lock()
			ch := releases[string(img.Data)]
			mu.Unlock()
			if ch != nil {
				<-ch
			}
			return []string{"#" + strings.ReplaceAll(string(img.Data), " ", "")}
		},
	}
	first := make(chan struct{})
	releases["first"] = first

	var logs syncBuffer
	c := newController(gw, nil, WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	c.EditIdea("first")
	require.NoError(t, c.GenerateArt(context.Background()))

	c.EditIdea("second")
	require.NoError(t, c.GenerateArt(context.Background()))

	// let the first image's hashtags arrive after the second image is current
	close(first)
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, []byte("second"), s.Image.Data)
	assert.Equal(t, []string{"#second"}, s.Hashtags)
	assert.Equal(t, 1, strings.Count(logs.String(), "discarding stale hashtags"))
	assert.Contains(t, logs.String(), "image_seq=1")
}

func TestController_SnapshotOwnsImageBytes(t *testing.T) {
	c := newController(&fakeGateway{}, nil)
	c.EditIdea("a cat")
	require.NoError(t, c.GenerateArt(context.Background()))
	c.Wait()

	s := c.Snapshot()
	s.Image.Data[0] = 'X'
	s.Hashtags[0] = "#Changed"

	again := c.Snapshot()
	assert.Equal(t, []byte("a cat"), again.Image.Data)
	assert.NotEqual(t, "#Changed", again.Hashtags[0])
}

// syncBuffer is a bytes.Buffer safe for the controller's background logging.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestController_HashtagsSurviveCallerCancellation(t *testing.T) {
	gw := &fakeGateway{
		HashtagsFunc: func(ctx context.Context, _ museai.Image, museum, theme string) []string {
			if ctx.Err() != nil {
				return nil
			}
			return []string{"#Kept"}
		},
	}
	c := newController(gw, nil)
	c.EditIdea("a cat")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.GenerateArt(ctx))
	cancel()
	c.Wait()

	assert.Equal(t, []string{"#Kept"}, c.Snapshot().Hashtags)
}

func TestController_ClosedSessionDropsResults(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{
		HashtagsFunc: func(context.Context, museai.Image, string, string) []string {
			<-release
			return []string{"#Late"}
		},
	}
	var changes int
	var mu sync.Mutex
	c := newController(gw, nil, WithChangeFunc(func(Session) {
		mu.Lock()
		changes++
		mu.Unlock()
	}))
	c.EditIdea("a cat")
	require.NoError(t, c.GenerateArt(context.Background()))

	c.Close()
	mu.Lock()
	before := changes
	mu.Unlock()

	close(release)
	c.Wait()

	assert.Empty(t, c.Snapshot().Hashtags)
	mu.Lock()
	assert.Equal(t, before, changes)
	mu.Unlock()

	assert.ErrorIs(t, c.RefinePrompt(context.Background()), ErrClosed)
}

func TestController_NarratePrompt(t *testing.T) {
	gw := &fakeGateway{}
	player := &fakePlayer{}
	c := newController(gw, player)
	c.EditIdea("a cat")

	require.NoError(t, c.NarratePrompt(context.Background()))
	assert.Equal(t, []string{"a cat"}, gw.spokenTexts())
	assert.Equal(t, 1, player.count())
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}

func TestController_NarrateWithoutSpeech(t *testing.T) {
	gw := &fakeGateway{
		SpeechFunc: func(context.Context, string) *museai.Speech { return nil },
	}
	player := &fakePlayer{}
	c := newController(gw, player)
	c.EditIdea("a cat")

	require.NoError(t, c.NarratePrompt(context.Background()))
	assert.Zero(t, player.count())
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}

func TestController_NarrateImage(t *testing.T) {
	gw := &fakeGateway{
		DescribeFunc: func(_ context.Context, _ museai.Image, museum, _ string) string {
			return "Welcome to " + museum + "."
		},
	}
	player := &fakePlayer{}
	c := newController(gw, player)
	c.EditIdea("a cat")
	require.NoError(t, c.GenerateArt(context.Background()))
	c.Wait()

	require.NoError(t, c.NarrateImage(context.Background()))

	s := c.Snapshot()
	assert.Equal(t, "Welcome to The Louvre.", s.Description)
	assert.Equal(t, []string{"Welcome to The Louvre."}, gw.spokenTexts())
	assert.Equal(t, 1, player.count())
	assert.Equal(t, PhaseIdle, s.Phase)
}

func TestController_PlaybackThatNeverEnds(t *testing.T) {
	gw := &fakeGateway{}
	c := newController(gw, &fakePlayer{never: true})
	c.EditIdea("a cat")

	// 480 bytes at 24 kHz is 10ms, so the wait is bounded by the grace period
	done := make(chan error, 1)
	go func() { done <- c.NarratePrompt(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(playbackGrace + 2*time.Second):
		t.Fatal("narration stuck waiting for playback")
	}
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}

func TestController_StatusHook(t *testing.T) {
	var mu sync.Mutex
	var statuses []string
	c := newController(&fakeGateway{}, nil, WithStatusFunc(func(s string) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	}))

	_ = c.GenerateArt(context.Background())
	c.EditIdea("a cat")
	require.NoError(t, c.GenerateArt(context.Background()))
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, statuses, "Please describe your idea first.")
	assert.Contains(t, statuses, "Your artwork is ready.")
}

type memStorage struct {
	files map[string][]byte
}

func (m *memStorage) SaveFile(_ context.Context, data []byte, path, _ string) (string, error) {
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[path] = data
	return "mem://" + path, nil
}

func TestController_SaveArtwork(t *testing.T) {
	c := newController(&fakeGateway{}, nil)
	store := &memStorage{}

	_, err := c.SaveArtwork(context.Background(), store)
	assert.ErrorIs(t, err, ErrNoArtwork)

	c.EditIdea("a cat")
	require.NoError(t, c.GenerateArt(context.Background()))
	c.Wait()

	res, err := c.SaveArtwork(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Path, "louvre/renaissance-"))
	assert.True(t, strings.HasSuffix(res.Path, ".png"))
	assert.Equal(t, []byte("a cat"), store.files[res.Path])
}
