package museai

import (
	"time"
)

// Model represents a specific generative model.
type Model string

// AspectRatio represents the aspect ratio for generated images.
type AspectRatio string

const (
	AspectRatio1x1  AspectRatio = "1:1"
	AspectRatio16x9 AspectRatio = "16:9"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatio4x3  AspectRatio = "4:3"
	AspectRatio3x4  AspectRatio = "3:4"
	AspectRatioAuto AspectRatio = ""
)

// DefaultVoice is the prebuilt voice used for narration.
const DefaultVoice = "Kore"

// GenerateConfig holds per-request options passed to a Generator.
type GenerateConfig struct {
	// Model to use (the Manager fills this in with the API model name)
	Model Model

	// AspectRatio of generated images
	AspectRatio AspectRatio

	// Voice is the prebuilt voice for speech synthesis
	Voice string

	// Temperature controls randomness (0.0-2.0)
	Temperature *float32

	// SafetySettings for content filtering
	SafetySettings []SafetySetting

	// WaitOnRateLimit, if true, causes the Manager to wait when rate limited.
	// If false, a RateLimitError is returned immediately.
	WaitOnRateLimit bool

	// MaxWaitDuration is the maximum time to wait when WaitOnRateLimit is true.
	// Zero means no limit.
	MaxWaitDuration time.Duration
}

// Routes selects the model used for each kind of remote call.
type Routes struct {
	Text   Model
	Image  Model
	Speech Model
}

// For returns the model routed for op.
func (r Routes) For(op Operation) Model {
	switch op {
	case OpGenerateImage:
		return r.Image
	case OpSynthesizeSpeech:
		return r.Speech
	default:
		return r.Text
	}
}

// WithModel returns a copy of the config with the specified model.
func (c *GenerateConfig) WithModel(model Model) *GenerateConfig {
	if c == nil {
		return &GenerateConfig{Model: model}
	}
	cX := *c
	cX.Model = model
	return &cX
}

// DefaultConfig returns a GenerateConfig with sensible defaults.
func DefaultConfig() *GenerateConfig {
	temp := float32(1.0)
	return &GenerateConfig{
		AspectRatio: AspectRatio1x1,
		Voice:       DefaultVoice,
		Temperature: &temp,
	}
}

// String returns the string representation for API calls.
func (a AspectRatio) String() string {
	return string(a)
}

// String returns the model identifier.
func (m Model) String() string {
	return string(m)
}

// SafetyCategory represents a content safety category.
type SafetyCategory string

const (
	SafetyCategoryHarassment       SafetyCategory = "HARM_CATEGORY_HARASSMENT"
	SafetyCategoryHateSpeech       SafetyCategory = "HARM_CATEGORY_HATE_SPEECH"
	SafetyCategorySexuallyExplicit SafetyCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	SafetyCategoryDangerousContent SafetyCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// SafetyThreshold represents the blocking threshold for safety filters.
type SafetyThreshold string

const (
	SafetyThresholdBlockNone      SafetyThreshold = "BLOCK_NONE"
	SafetyThresholdBlockLowAndUp  SafetyThreshold = "BLOCK_LOW_AND_ABOVE"
	SafetyThresholdBlockMedAndUp  SafetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	SafetyThresholdBlockHighAndUp SafetyThreshold = "BLOCK_ONLY_HIGH"
	SafetyThresholdOff            SafetyThreshold = "OFF"
)

// SafetySetting configures content filtering for a specific category.
type SafetySetting struct {
	Category  SafetyCategory
	Threshold SafetyThreshold
}
