package museai

import (
	"context"
	"sync"
)

// MockGenerator is a mock implementation of Generator.
type MockGenerator struct {
	GenerateTextFunc     func(ctx context.Context, req TextRequest, config *GenerateConfig) (*TextResult, error)
	GenerateImageFunc    func(ctx context.Context, prompt string, config *GenerateConfig) (*ImageResult, error)
	SynthesizeSpeechFunc func(ctx context.Context, text string, config *GenerateConfig) (*Speech, error)
	ModelsFunc           func() []ModelInfo
	CloseFunc            func() error

	mu    sync.Mutex
	calls []string
}

func (m *MockGenerator) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns the generator methods invoked so far, in order.
func (m *MockGenerator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockGenerator) GenerateText(ctx context.Context, req TextRequest, config *GenerateConfig) (*TextResult, error) {
	m.record("GenerateText")
	if m.GenerateTextFunc != nil {
		return m.GenerateTextFunc(ctx, req, config)
	}
	return &TextResult{}, nil
}

func (m *MockGenerator) GenerateImage(ctx context.Context, prompt string, config *GenerateConfig) (*ImageResult, error) {
	m.record("GenerateImage")
	if m.GenerateImageFunc != nil {
		return m.GenerateImageFunc(ctx, prompt, config)
	}
	return &ImageResult{}, nil
}

func (m *MockGenerator) SynthesizeSpeech(ctx context.Context, text string, config *GenerateConfig) (*Speech, error) {
	m.record("SynthesizeSpeech")
	if m.SynthesizeSpeechFunc != nil {
		return m.SynthesizeSpeechFunc(ctx, text, config)
	}
	return nil, nil
}

func (m *MockGenerator) Models() []ModelInfo {
	if m.ModelsFunc != nil {
		return m.ModelsFunc()
	}
	return testModels()
}

func (m *MockGenerator) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func testModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:         "test-text",
			Provider:     "test-provider",
			APIModelName: "test-text-api",
			Capabilities: ModelCapabilities{SupportsText: true, SupportsImageInput: true},
		},
		{
			Name:         "test-image",
			Provider:     "test-provider",
			APIModelName: "test-image-api",
			Capabilities: ModelCapabilities{SupportsImageOutput: true},
		},
		{
			Name:         "test-speech",
			Provider:     "test-provider",
			APIModelName: "test-speech-api",
			Capabilities: ModelCapabilities{SupportsSpeech: true},
		},
	}
}
