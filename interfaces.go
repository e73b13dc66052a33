package museai

import "context"

// Gateway is the domain-level contract the creation workflow depends on.
//
// Four of the five operations never fail: they degrade to a deterministic
// fallback value instead (see Operation.Policy). Only GenerateImage reports
// errors to the caller.
type Gateway interface {
	// RefinePrompt rewrites a raw idea into a single descriptive paragraph
	// grounded in the theme and museum. The result is never empty.
	RefinePrompt(ctx context.Context, userIdea string, theme Theme, museumName string) string

	// GenerateImage creates one square image from the prompt.
	GenerateImage(ctx context.Context, prompt string) (*Image, error)

	// DescribeArtwork returns a short museum-guide narration of the image.
	DescribeArtwork(ctx context.Context, image Image, museumName, themeName string) string

	// GenerateHashtags returns at most MaxHashtags social tags for the image.
	GenerateHashtags(ctx context.Context, image Image, museumName, themeName string) []string

	// SynthesizeSpeech returns narrated audio for text, or nil when none is available.
	SynthesizeSpeech(ctx context.Context, text string) *Speech
}

// Generator is the wire-level interface for a generative model backend.
// Implement this interface to add support for new providers.
//
// Generators report every failure as an error; deciding between a fallback
// and a propagated error is the Manager's job.
//
// The first model returned by Models() for a capability is its default.
type Generator interface {
	// GenerateText produces text from an instruction, a text payload and optional images.
	GenerateText(ctx context.Context, req TextRequest, genConfig *GenerateConfig) (*TextResult, error)

	// GenerateImage creates images from a text prompt.
	GenerateImage(ctx context.Context, prompt string, genConfig *GenerateConfig) (*ImageResult, error)

	// SynthesizeSpeech converts text to audio.
	SynthesizeSpeech(ctx context.Context, text string, genConfig *GenerateConfig) (*Speech, error)

	// Models returns the model definitions supported by this provider.
	Models() []ModelInfo

	// Close releases any resources held by the provider.
	Close() error
}
