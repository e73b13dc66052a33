// Package workflow sequences the remote calls of one creative session.
//
// A Controller owns a Session and exposes the user actions. Refine, generate
// and the two narrations are mutually exclusive: while one runs, the others
// are rejected without touching the gateway. The hashtag fetch that follows a
// successful generation runs in the background and only lands if the image it
// was made for is still current.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mhpenta/museai"
)

var (
	// ErrPrecondition is wrapped by every rejected action.
	ErrPrecondition = errors.New("action rejected")

	ErrBusy       = fmt.Errorf("%w: another action is in progress", ErrPrecondition)
	ErrEmptyInput = fmt.Errorf("%w: required input is empty", ErrPrecondition)
	ErrNoArtwork  = fmt.Errorf("%w: no artwork yet", ErrPrecondition)
	ErrClosed     = fmt.Errorf("%w: session closed", ErrPrecondition)
)

// playbackGrace is added to the payload duration before giving up on a
// completion signal that never arrives.
const playbackGrace = 5 * time.Second

// Player plays a base64 narration payload; the channel closes when it ends.
type Player interface {
	Play(payload string) <-chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithStatusFunc registers a hook for the advisory status line, e.g. an
// assistive-technology announcer.
func WithStatusFunc(fn func(status string)) Option {
	return func(c *Controller) {
		c.onStatus = fn
	}
}

// WithChangeFunc registers a hook called with a snapshot after every state change.
// It may be called from background goroutines.
func WithChangeFunc(fn func(Session)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// Controller drives one Session.
type Controller struct {
	gateway museai.Gateway
	player  Player
	logger  *slog.Logger

	onStatus func(string)
	onChange func(Session)

	mu      sync.Mutex
	session Session

	// bumped by every generation attempt; background results carry the value they started with
	imageSeq uint64
	closed   bool

	tasks sync.WaitGroup
}

// New starts a session for museum and theme. player may be nil, in which case
// narration is synthesized but not played.
func New(gateway museai.Gateway, player Player, museum museai.Museum, theme museai.Theme, opts ...Option) *Controller {
	c := &Controller{
		gateway: gateway,
		player:  player,
		logger:  slog.Default(),
		session: Session{
			ID:     uuid.New(),
			Museum: museum,
			Theme:  theme,
			Phase:  PhaseIdle,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(
		slog.String("component", "workflow"),
		slog.String("session_id", c.session.ID.String()),
	)
	return c
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// EditIdea replaces the raw idea. It is allowed at any time and leaves the
// refined prompt alone.
func (c *Controller) EditIdea(idea string) {
	c.update(func(s *Session) string {
		s.UserIdea = idea
		return ""
	})
}

// UseExample copies the theme's i-th example prompt into the idea.
func (c *Controller) UseExample(i int) error {
	c.mu.Lock()
	examples := c.session.Theme.ExamplePrompts
	c.mu.Unlock()

	if i < 0 || i >= len(examples) {
		return fmt.Errorf("%w: no example prompt %d", ErrPrecondition, i)
	}
	c.EditIdea(examples[i])
	return nil
}

// RefinePrompt rewrites the idea in the theme's style. The refinement never
// fails: the gateway substitutes a fallback.
func (c *Controller) RefinePrompt(ctx context.Context) error {
	var idea string
	var s Session
	err := c.begin(PhaseRefining, "Refining your idea.", func(cur *Session) error {
		if strings.TrimSpace(cur.UserIdea) == "" {
			return ErrEmptyInput
		}
		idea = cur.UserIdea
		s = *cur
		return nil
	})
	if err != nil {
		return err
	}

	refined := c.gateway.RefinePrompt(ctx, idea, s.Theme, s.Museum.Name)

	c.finish(func(cur *Session) string {
		cur.RefinedPrompt = refined
		cur.LastError = ErrorNone
		return "Your prompt has been refined."
	})
	return nil
}

// GenerateArt paints the effective prompt. The previous image and hashtags are
// cleared before the remote call. A failure is recorded in LastError and also
// returned.
func (c *Controller) GenerateArt(ctx context.Context) error {
	var prompt string
	var seq uint64
	var s Session
	err := c.begin(PhaseGenerating, "Creating your artwork.", func(cur *Session) error {
		prompt = cur.EffectivePrompt()
		if strings.TrimSpace(prompt) == "" {
			return ErrEmptyInput
		}
		cur.Image = nil
		cur.Hashtags = nil
		cur.Description = ""
		c.imageSeq++
		seq = c.imageSeq
		s = *cur
		return nil
	})
	if err != nil {
		return err
	}

	img, err := c.gateway.GenerateImage(ctx, prompt)
	if err == nil && img == nil {
		err = museai.ErrNoImage
	}
	if err != nil {
		kind := classify(err)
		c.logger.Warn("artwork generation failed",
			slog.String("error_kind", kind.String()),
			slog.String("error", err.Error()),
		)
		c.finish(func(cur *Session) string {
			cur.LastError = kind
			return "Sorry, the artwork could not be created. Please try again."
		})
		return err
	}

	generated := *img
	if !c.finish(func(cur *Session) string {
		cur.Image = &generated
		cur.LastError = ErrorNone
		return "Your artwork is ready."
	}) {
		return nil
	}

	c.fetchHashtags(ctx, seq, generated, s.Museum.Name, s.Theme.Name)
	return nil
}

// fetchHashtags runs detached from the phase; the result is dropped if the
// session closed or another generation started meanwhile.
func (c *Controller) fetchHashtags(ctx context.Context, seq uint64, img museai.Image, museumName, themeName string) {
	ctx = context.WithoutCancel(ctx)

	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()

		tags := c.gateway.GenerateHashtags(ctx, img, museumName, themeName)

		var stale bool
		committed := c.update(func(s *Session) string {
			if c.imageSeq != seq {
				stale = true
				return ""
			}
			s.Hashtags = append([]string(nil), tags...)
			return "Hashtags are ready."
		})
		if !committed || stale {
			c.logger.Debug("discarding stale hashtags",
				slog.Uint64("image_seq", seq),
				slog.Bool("session_closed", !committed),
			)
		}
	}()
}

// NarratePrompt reads the effective prompt aloud and returns when playback ends.
func (c *Controller) NarratePrompt(ctx context.Context) error {
	var text string
	err := c.begin(PhaseNarratingPrompt, "Narrating your prompt.", func(cur *Session) error {
		text = cur.EffectivePrompt()
		if strings.TrimSpace(text) == "" {
			return ErrEmptyInput
		}
		return nil
	})
	if err != nil {
		return err
	}

	played := c.speak(ctx, text)

	c.finish(func(cur *Session) string {
		if !played {
			return "Narration is not available right now."
		}
		return "Narration finished."
	})
	return nil
}

// NarrateImage describes the current artwork as a museum guide and reads the
// description aloud.
func (c *Controller) NarrateImage(ctx context.Context) error {
	var img museai.Image
	var seq uint64
	var s Session
	err := c.begin(PhaseNarratingImage, "Your guide is looking at the artwork.", func(cur *Session) error {
		if cur.Image == nil {
			return ErrNoArtwork
		}
		img = *cur.Image
		seq = c.imageSeq
		s = *cur
		return nil
	})
	if err != nil {
		return err
	}

	description := c.gateway.DescribeArtwork(ctx, img, s.Museum.Name, s.Theme.Name)
	c.update(func(cur *Session) string {
		if cur.Image != nil && c.imageSeq == seq {
			cur.Description = description
		}
		return ""
	})

	played := c.speak(ctx, description)

	c.finish(func(cur *Session) string {
		if !played {
			return "Narration is not available right now."
		}
		return "Narration finished."
	})
	return nil
}

// SaveArtwork stores the current artwork and returns where it went.
func (c *Controller) SaveArtwork(ctx context.Context, storage museai.Storage) (museai.StorageResult, error) {
	c.mu.Lock()
	var img *museai.Image
	if c.session.Image != nil {
		copied := *c.session.Image
		img = &copied
	}
	base := fmt.Sprintf("%s/%s-%s-%d", c.session.Museum.ID, c.session.Theme.ID, c.session.ID, c.imageSeq)
	c.mu.Unlock()

	if img == nil {
		return museai.StorageResult{}, ErrNoArtwork
	}

	res, err := museai.SaveImage(ctx, storage, *img, base)
	if err != nil {
		return res, err
	}
	c.update(func(s *Session) string {
		return "Artwork saved."
	})
	return res, nil
}

// Close discards the session. Work still in flight completes but its results
// are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.logger.Debug("session closed")
}

// Wait blocks until background work (hashtag fetches) has finished.
func (c *Controller) Wait() {
	c.tasks.Wait()
}

// speak synthesizes text and plays it. It reports whether audio was played.
func (c *Controller) speak(ctx context.Context, text string) bool {
	speech := c.gateway.SynthesizeSpeech(ctx, text)
	if speech == nil {
		return false
	}
	if c.player == nil {
		return true
	}

	rate := speech.SampleRate
	if rate <= 0 {
		rate = museai.SpeechSampleRate
	}
	length := time.Duration(len(speech.Data)/2) * time.Second / time.Duration(rate)

	timer := time.NewTimer(length + playbackGrace)
	defer timer.Stop()

	select {
	case <-c.player.Play(speech.Base64()):
	case <-timer.C:
		c.logger.Warn("narration did not signal completion", slog.Duration("waited", length+playbackGrace))
	}
	return true
}

// begin claims phase if the session is idle and prepare accepts the current
// state. prepare runs under the lock and may mutate the session.
func (c *Controller) begin(phase Phase, status string, prepare func(*Session) error) error {
	c.mu.Lock()
	err := func() error {
		if c.closed {
			return ErrClosed
		}
		if c.session.Phase != PhaseIdle {
			return ErrBusy
		}
		return prepare(&c.session)
	}()

	switch {
	case errors.Is(err, ErrClosed):
		c.mu.Unlock()
		return err
	case err != nil:
		c.session.Status = rejectionStatus(err)
	default:
		c.session.Phase = phase
		c.session.Status = status
	}
	snap := c.session.clone()
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug("action rejected",
			slog.String("phase", phase.String()),
			slog.String("reason", err.Error()),
		)
	}
	c.notify(snap, true)
	return err
}

// finish applies fn and returns the session to idle. It reports false when
// the session was closed meanwhile, in which case nothing is applied.
func (c *Controller) finish(fn func(*Session) string) bool {
	return c.update(func(s *Session) string {
		status := fn(s)
		s.Phase = PhaseIdle
		return status
	})
}

// update applies fn unless the session is closed. A non-empty status from fn
// replaces the status line. It reports whether fn was applied.
func (c *Controller) update(fn func(*Session) string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	before := c.session.Status
	if status := fn(&c.session); status != "" {
		c.session.Status = status
	}
	changedStatus := c.session.Status != before
	snap := c.session.clone()
	c.mu.Unlock()

	if changedStatus {
		c.logger.Debug("status", slog.String("status", snap.Status), slog.String("phase", snap.Phase.String()))
	}
	c.notify(snap, changedStatus)
	return true
}

func (c *Controller) notify(snap Session, announce bool) {
	if c.onChange != nil {
		c.onChange(snap)
	}
	if announce && c.onStatus != nil && snap.Status != "" {
		c.onStatus(snap.Status)
	}
}

func rejectionStatus(err error) string {
	switch {
	case errors.Is(err, ErrBusy):
		return "Please wait for the current action to finish."
	case errors.Is(err, ErrNoArtwork):
		return "Create an artwork first."
	default:
		return "Please describe your idea first."
	}
}

func classify(err error) ErrorKind {
	if museai.IsEmptyResult(err) {
		return ErrorEmptyResult
	}
	return ErrorTransport
}
