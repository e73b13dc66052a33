// Package gemini provides a museai.Generator implementation using Google's Gemini API.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
//
// For Vertex AI or other Google Cloud backends, a separate provider implementation
// could be created using the same SDK with a different backend configuration.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mhpenta/museai"
	"google.golang.org/genai"
)

// GeminiGenerator implements museai.Generator using Google's Gemini API.
type GeminiGenerator struct {
	client         *genai.Client
	safetySettings []*genai.SafetySetting
	mu             sync.RWMutex
}

var _ museai.Generator = (*GeminiGenerator)(nil)

// New creates a new GeminiGenerator from a ProviderConfig.
func New(ctx context.Context, config *museai.ProviderConfig) (*GeminiGenerator, error) {
	if config == nil {
		config = &museai.ProviderConfig{}
	}

	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}

	if config.APIKey != "" {
		clientCfg.APIKey = config.APIKey
	}
	// If APIKey is empty, the SDK will try GOOGLE_API_KEY or GEMINI_API_KEY env vars

	if config.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
	}, nil
}

// NewWithAPIKey creates a generator with an API key for Gemini API.
func NewWithAPIKey(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	return New(ctx, &museai.ProviderConfig{
		Provider: museai.ProviderGeminiAPI,
		APIKey:   apiKey,
	})
}

// SetSafetySettings configures default safety settings for all requests.
// These can be overridden per-request via GenerateConfig.SafetySettings.
func (g *GeminiGenerator) SetSafetySettings(settings []museai.SafetySetting) *GeminiGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.safetySettings = convertSafetySettings(settings)
	return g
}

// GenerateText produces text from an instruction and a payload with optional inline images.
func (g *GeminiGenerator) GenerateText(ctx context.Context, req museai.TextRequest, config *museai.GenerateConfig) (*museai.TextResult, error) {
	if config == nil {
		config = museai.DefaultConfig()
	}

	modelName := resolveModel(config, APIModelFlash)

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				Data:     img.Data,
				MIMEType: img.MIMEType,
			},
		})
	}
	parts = append(parts, &genai.Part{Text: req.Text})

	contents := []*genai.Content{
		{Role: "user", Parts: parts},
	}

	genConfig := g.buildGenerateContentConfig(config)
	genConfig.ResponseModalities = []string{"TEXT"}
	if req.Instruction != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.Instruction}},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, modelName, contents, genConfig)
	if err != nil {
		return nil, wrapError(err, modelName, "text generation failed")
	}

	return parseText(result)
}

// GenerateImage creates images from a text prompt.
func (g *GeminiGenerator) GenerateImage(ctx context.Context, prompt string, config *museai.GenerateConfig) (*museai.ImageResult, error) {
	if err := museai.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	if config == nil {
		config = museai.DefaultConfig()
	}

	modelName := resolveModel(config, APIModelFlashImage)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	genConfig := g.buildGenerateContentConfig(config)
	genConfig.ResponseModalities = []string{"TEXT", "IMAGE"}
	if config.AspectRatio != "" {
		genConfig.ImageConfig = &genai.ImageConfig{
			AspectRatio: config.AspectRatio.String(),
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, modelName, contents, genConfig)
	if err != nil {
		return nil, wrapError(err, modelName, "image generation failed")
	}

	return parseImages(result)
}

// SynthesizeSpeech converts text to 24 kHz mono PCM using a prebuilt voice.
func (g *GeminiGenerator) SynthesizeSpeech(ctx context.Context, text string, config *museai.GenerateConfig) (*museai.Speech, error) {
	if err := museai.ValidatePrompt(text); err != nil {
		return nil, err
	}

	if config == nil {
		config = museai.DefaultConfig()
	}

	modelName := resolveModel(config, APIModelFlashTTS)

	voice := config.Voice
	if voice == "" {
		voice = museai.DefaultVoice
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: text}},
		},
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voice,
				},
			},
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, modelName, contents, genConfig)
	if err != nil {
		return nil, wrapError(err, modelName, "speech synthesis failed")
	}

	return parseSpeech(result)
}

// Models returns the model definitions supported by this provider.
func (g *GeminiGenerator) Models() []museai.ModelInfo {
	return []museai.ModelInfo{
		FlashInfo,
		FlashImageInfo,
		FlashTTSInfo,
	}
}

// Close releases any resources held by the generator.
func (g *GeminiGenerator) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

func resolveModel(config *museai.GenerateConfig, fallback string) string {
	if config != nil && config.Model != "" {
		return string(config.Model)
	}
	return fallback
}

// buildGenerateContentConfig converts our config to Gemini's GenerateContentConfig format.
func (g *GeminiGenerator) buildGenerateContentConfig(config *museai.GenerateConfig) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{}

	if config.Temperature != nil {
		genConfig.Temperature = genai.Ptr(*config.Temperature)
	}

	// Safety settings: per-request overrides provider defaults
	if len(config.SafetySettings) > 0 {
		genConfig.SafetySettings = convertSafetySettings(config.SafetySettings)
	} else {
		g.mu.RLock()
		genConfig.SafetySettings = g.safetySettings
		g.mu.RUnlock()
	}

	return genConfig
}

// convertSafetySettings converts our SafetySettings to Gemini's format.
func convertSafetySettings(settings []museai.SafetySetting) []*genai.SafetySetting {
	result := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		result = append(result, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return result
}

// contentParts returns every non-thought part of every candidate.
func contentParts(result *genai.GenerateContentResponse) ([]*genai.Part, error) {
	if result == nil || len(result.Candidates) == 0 {
		if result != nil && result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: prompt blocked: %s", museai.ErrEmptyResult, result.PromptFeedback.BlockReason)
		}
		return nil, museai.ErrEmptyResult
	}

	var parts []*genai.Part
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			parts = append(parts, part)
		}
	}
	return parts, nil
}

func parseText(result *genai.GenerateContentResponse) (*museai.TextResult, error) {
	parts, err := contentParts(result)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(part.Text)
	}

	return &museai.TextResult{
		Text:          sb.String(),
		UsageMetadata: parseUsage(result),
	}, nil
}

// parseImages collects inline image parts. A response without any is ErrNoImage.
func parseImages(result *genai.GenerateContentResponse) (*museai.ImageResult, error) {
	parts, err := contentParts(result)
	if err != nil {
		return nil, err
	}

	genResult := &museai.ImageResult{
		Images: make([]museai.Image, 0, 1),
	}
	for _, part := range parts {
		if part.Text != "" {
			genResult.Text += part.Text
		}
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := part.InlineData.MIMEType
		if mimeType != "" && !strings.HasPrefix(mimeType, "image/") {
			continue
		}
		if mimeType == "" {
			mimeType = museai.DefaultImageMIMEType
		}
		genResult.Images = append(genResult.Images, museai.Image{
			Data:     part.InlineData.Data,
			MIMEType: mimeType,
		})
	}

	if len(genResult.Images) == 0 {
		return nil, museai.ErrNoImage
	}

	genResult.UsageMetadata = parseUsage(result)
	return genResult, nil
}

// parseSpeech returns the first inline audio part.
func parseSpeech(result *genai.GenerateContentResponse) (*museai.Speech, error) {
	parts, err := contentParts(result)
	if err != nil {
		return nil, err
	}

	for _, part := range parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return &museai.Speech{
			Data:       part.InlineData.Data,
			MIMEType:   part.InlineData.MIMEType,
			SampleRate: sampleRate(part.InlineData.MIMEType),
		}, nil
	}

	return nil, fmt.Errorf("%w: no audio in response", museai.ErrEmptyResult)
}

// sampleRate reads the rate parameter of e.g. "audio/L16;codec=pcm;rate=24000".
func sampleRate(mimeType string) int {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return museai.SpeechSampleRate
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return museai.SpeechSampleRate
	}
	return rate
}

func parseUsage(result *genai.GenerateContentResponse) *museai.UsageMetadata {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	return &museai.UsageMetadata{
		PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
		CandidatesTokens: int(result.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
	}
}

// wrapError turns Gemini rate limit errors into museai.RateLimitError and
// wraps everything else with the failing operation.
func wrapError(err error, model, msg string) error {
	if rlErr := checkRateLimitError(err, model); rlErr != nil {
		return rlErr
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// checkRateLimitError returns a RateLimitError if err is a Gemini 429, else nil.
func checkRateLimitError(err error, model string) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}

	if apiErr.Code != 429 && apiErr.Status != "RESOURCE_EXHAUSTED" {
		return nil
	}

	return &museai.RateLimitError{
		RetryAfter: 60 * time.Second, // API doesn't reliably provide Retry-After
		LimitType:  "requests",
		Model:      model,
		Err:        err,
	}
}
