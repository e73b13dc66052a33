package gemini

import "github.com/mhpenta/museai"

// Model name constants - the actual API model names.
const (
	// APIModelFlash is the text and vision model used for refinement, descriptions and hashtags
	APIModelFlash = "gemini-2.5-flash"

	// APIModelFlashImage is Gemini 2.5 Flash Image
	APIModelFlashImage = "gemini-2.5-flash-image"

	// APIModelFlashTTS is the single-speaker speech model (24 kHz mono PCM output)
	APIModelFlashTTS = "gemini-2.5-flash-preview-tts"
)

// FlashInfo is the model info for Gemini 2.5 Flash.
var FlashInfo = museai.ModelInfo{
	Name:         APIModelFlash,
	Provider:     museai.ProviderGeminiAPI,
	APIModelName: APIModelFlash,

	Capabilities: museai.ModelCapabilities{
		SupportsText:       true,
		SupportsImageInput: true,
		MaxInputImages:     3000,
	},

	ContextLength: 1048576, // 1M tokens

	RateLimits: museai.RateLimits{
		TokensPerMinute:   1000000,
		RequestsPerMinute: 1000,
	},
}

// FlashImageInfo is the model info for Gemini 2.5 Flash Image.
// It only produces ~1024px output.
var FlashImageInfo = museai.ModelInfo{
	Name:         APIModelFlashImage,
	Provider:     museai.ProviderGeminiAPI,
	APIModelName: APIModelFlashImage,

	Capabilities: museai.ModelCapabilities{
		SupportsText:        true,
		SupportsImageInput:  true,
		SupportsImageOutput: true,
		MaxInputImages:      3,
	},

	ContextLength: 32768,

	RateLimits: museai.RateLimits{
		TokensPerMinute:   4000000,
		RequestsPerMinute: 500, // ~500 RPM for Tier 1
	},
}

// FlashTTSInfo is the model info for the Gemini 2.5 Flash speech model.
var FlashTTSInfo = museai.ModelInfo{
	Name:         APIModelFlashTTS,
	Provider:     museai.ProviderGeminiAPI,
	APIModelName: APIModelFlashTTS,

	Capabilities: museai.ModelCapabilities{
		SupportsSpeech: true,
	},

	ContextLength: 8192,

	RateLimits: museai.RateLimits{
		TokensPerMinute:   10000,
		RequestsPerMinute: 10,
	},
}
