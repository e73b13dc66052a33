package museai

import "encoding/base64"

// DefaultImageMIMEType is used when the provider does not report one.
const DefaultImageMIMEType = "image/png"

// SpeechSampleRate is the sample rate of synthesized narration in Hz.
const SpeechSampleRate = 24000

// Theme is an artistic theme offered by a museum. It is read-only to this package.
type Theme struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Vibe           string   `yaml:"vibe"`
	ExamplePrompts []string `yaml:"example_prompts"`
}

// Museum is a museum descriptor with its ordered themes.
type Museum struct {
	ID               string  `yaml:"id"`
	Name             string  `yaml:"name"`
	Location         string  `yaml:"location"`
	ShortDescription string  `yaml:"short_description"`
	FullDescription  string  `yaml:"full_description"`
	Image            string  `yaml:"image"`
	Themes           []Theme `yaml:"themes"`
}

// Theme returns the museum's theme with the given id.
func (m Museum) Theme(id string) (Theme, bool) {
	for _, t := range m.Themes {
		if t.ID == id {
			return t, true
		}
	}
	return Theme{}, false
}

// Image is a generated or input image.
type Image struct {
	// Data contains the raw image bytes
	Data []byte

	// MIMEType of the image
	MIMEType string
}

// DataURL returns the image as an inline data URL.
func (img Image) DataURL() string {
	mime := img.MIMEType
	if mime == "" {
		mime = DefaultImageMIMEType
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Speech is synthesized narration audio.
type Speech struct {
	// Data is 16-bit little-endian PCM, or a WAV container
	Data []byte

	// MIMEType as reported by the provider (e.g. "audio/L16;codec=pcm;rate=24000")
	MIMEType string

	// SampleRate in Hz
	SampleRate int
}

// Base64 returns the audio payload base64-encoded.
func (s *Speech) Base64() string {
	return base64.StdEncoding.EncodeToString(s.Data)
}

// TextRequest is a text generation request.
type TextRequest struct {
	// Instruction is the system instruction
	Instruction string

	// Text is the user payload
	Text string

	// Images are sent inline before the text
	Images []Image
}

// TextResult holds the result of a text generation request.
type TextResult struct {
	Text          string
	UsageMetadata *UsageMetadata
}

// ImageResult holds the complete result of an image generation request.
type ImageResult struct {
	// Images contains all generated images
	Images []Image

	// Text contains any text response from the model
	Text string

	UsageMetadata *UsageMetadata
}

// UsageMetadata contains usage information for billing and monitoring.
type UsageMetadata struct {
	PromptTokens     int
	CandidatesTokens int
	TotalTokens      int
}
