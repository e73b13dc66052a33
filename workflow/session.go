package workflow

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mhpenta/museai"
)

// Phase is the session's current exclusive activity.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRefining
	PhaseGenerating
	PhaseNarratingPrompt
	PhaseNarratingImage
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRefining:
		return "refining"
	case PhaseGenerating:
		return "generating"
	case PhaseNarratingPrompt:
		return "narrating_prompt"
	case PhaseNarratingImage:
		return "narrating_image"
	}
	return "unknown"
}

// ErrorKind classifies the last user-visible failure.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota

	// ErrorTransport means the image service could not be reached or refused the request.
	ErrorTransport

	// ErrorEmptyResult means the image service answered without an image.
	ErrorEmptyResult
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorTransport:
		return "transport"
	case ErrorEmptyResult:
		return "empty_result"
	}
	return "unknown"
}

// Session is the state of one museum+theme creative interaction.
// Values returned by Controller.Snapshot are copies and safe to keep.
type Session struct {
	ID     uuid.UUID
	Museum museai.Museum
	Theme  museai.Theme

	UserIdea      string
	RefinedPrompt string

	// Image is nil until a generation succeeds.
	Image *museai.Image

	// Hashtags belong to Image and are filled in after it arrives.
	Hashtags []string

	// Description is the last narration text for Image.
	Description string

	Phase     Phase
	LastError ErrorKind

	// Status is an advisory line for screen readers; its wording is not stable.
	Status string
}

// EffectivePrompt is the refined prompt if there is one, else the raw idea.
func (s Session) EffectivePrompt() string {
	if strings.TrimSpace(s.RefinedPrompt) != "" {
		return s.RefinedPrompt
	}
	return s.UserIdea
}

func (s Session) clone() Session {
	c := s
	if s.Image != nil {
		img := *s.Image
		img.Data = append([]byte(nil), s.Image.Data...)
		c.Image = &img
	}
	if s.Hashtags != nil {
		c.Hashtags = append([]string(nil), s.Hashtags...)
	}
	return c
}
