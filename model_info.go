package museai

// ModelCapabilities describes what features a model supports.
type ModelCapabilities struct {
	SupportsText        bool // Text output (refine, describe, hashtags)
	SupportsImageInput  bool // Inline images in the request
	SupportsImageOutput bool
	SupportsSpeech      bool // Audio output

	// MaxInputImages caps inline images per request; 0 means no cap.
	MaxInputImages int
}

// Supports reports whether the model can serve op.
func (c ModelCapabilities) Supports(op Operation) bool {
	switch op {
	case OpRefinePrompt:
		return c.SupportsText
	case OpDescribeArtwork, OpGenerateHashtags:
		return c.SupportsText && c.SupportsImageInput
	case OpGenerateImage:
		return c.SupportsImageOutput
	case OpSynthesizeSpeech:
		return c.SupportsSpeech
	}
	return false
}

// RateLimits defines rate limiting parameters for a model.
type RateLimits struct {
	TokensPerMinute   int
	RequestsPerMinute int
}

// ModelInfo contains complete metadata for a model.
type ModelInfo struct {
	// Identity
	Name         string   // Public model name (e.g., "gemini-2.5-flash-image")
	Provider     Provider // Which provider serves this model
	APIModelName string   // Actual API name

	Capabilities ModelCapabilities

	// ContextLength is the input token limit; 0 means no limit.
	ContextLength int

	RateLimits RateLimits
}
