package museai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mhpenta/museai/ratelimiter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrModelNotRegistered is returned when a model has no registered provider.
	ErrModelNotRegistered = errors.New("model not registered")

	// ErrProviderNotConfigured is returned when a provider lacks required config.
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrNoModelForOperation is returned when no registered model can serve an operation.
	ErrNoModelForOperation = errors.New("no model routed for operation")
)

// Provider represents a model provider/backend.
type Provider string

const (
	ProviderGeminiAPI Provider = "gemini"
)

// ProviderConfig configures a specific provider.
type ProviderConfig struct {
	// Provider type
	Provider Provider

	// APIKey for authentication
	APIKey string

	// BaseURL for custom endpoints (optional)
	BaseURL string
}

// ModelMapping maps a model identifier to its provider and actual model name.
type ModelMapping struct {
	Provider        Provider
	ActualModelName string
}

// Manager implements Gateway on top of one or more Generators. It routes each
// operation to a model, enforces per-model rate limits, and applies the
// operation's FailurePolicy to whatever the generator returns.
type Manager struct {
	modelMappings map[Model]ModelMapping
	modelInfo     map[Model]*ModelInfo

	// registration order, used to pick default routes
	modelOrder []Model

	providers map[Provider]Generator

	routes Routes

	// base request config; Model is overwritten per call
	config *GenerateConfig

	// applied to each remote call when positive
	requestTimeout time.Duration

	rateLimiters ratelimiter.Registry

	logger *slog.Logger

	storage Storage

	tokenEstimator TokenEstimator

	metrics *gatewayMetrics
	tracer  trace.Tracer

	mu sync.RWMutex
}

var _ Gateway = (*Manager)(nil)

// New creates an empty Manager.
func New() *Manager {
	return &Manager{
		logger:         slog.Default(),
		modelMappings:  make(map[Model]ModelMapping),
		modelInfo:      make(map[Model]*ModelInfo),
		providers:      make(map[Provider]Generator),
		rateLimiters:   ratelimiter.NewRegistry(),
		tokenEstimator: NewSimpleTokenEstimator(),
		config:         DefaultConfig(),
		metrics:        newGatewayMetrics(otel.GetMeterProvider()),
		tracer:         otel.GetTracerProvider().Tracer(instrumentationName),
	}
}

// RegisterProvider adds a generator and registers all of its models.
func (m *Manager) RegisterProvider(gen Generator) *Manager {
	models := gen.Models()
	for i := range models {
		info := &models[i]

		m.mu.Lock()
		m.providers[info.Provider] = gen
		m.mu.Unlock()

		m.RegisterModel(Model(info.Name),
			ModelMapping{
				Provider:        info.Provider,
				ActualModelName: info.APIModelName,
			},
			info)
	}
	return m
}

// RegisterModel registers a model with full info (including rate limits).
// Uses the default in-memory rate limiter. Use SetRateLimiter to override with a custom implementation.
// The first registered model capable of an operation becomes its route unless one is set.
func (m *Manager) RegisterModel(model Model, mapping ModelMapping, info *ModelInfo) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.modelMappings[model]; !exists {
		m.modelOrder = append(m.modelOrder, model)
	}
	m.modelMappings[model] = mapping
	m.modelInfo[model] = info

	if info.RateLimits.TokensPerMinute > 0 || info.RateLimits.RequestsPerMinute > 0 {
		m.rateLimiters.Set(string(model), ratelimiter.New(
			info.RateLimits.TokensPerMinute,
			info.RateLimits.RequestsPerMinute,
		))
	}

	return m
}

// SetRateLimiter sets a custom rate limiter for a model.
// Use this to swap in a distributed rate limiter (e.g., Redis-based) for production.
func (m *Manager) SetRateLimiter(model Model, limiter ratelimiter.Limiter) *Manager {
	m.rateLimiters.Set(string(model), limiter)
	return m
}

// SetRoute routes op to model.
func (m *Manager) SetRoute(op Operation, model Model) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch op {
	case OpGenerateImage:
		m.routes.Image = model
	case OpSynthesizeSpeech:
		m.routes.Speech = model
	default:
		m.routes.Text = model
	}
	return m
}

// SetLogger sets a structured logger for the manager.
func (m *Manager) SetLogger(logger *slog.Logger) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger = logger
	return m
}

// SetStorage sets a storage backend for persisting generated images.
func (m *Manager) SetStorage(storage Storage) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.storage = storage
	return m
}

// Storage returns the configured storage backend, or nil if not set.
func (m *Manager) Storage() Storage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.storage
}

// RefinePrompt rewrites userIdea for the theme. It never returns an empty string.
func (m *Manager) RefinePrompt(ctx context.Context, userIdea string, theme Theme, museumName string) string {
	fallback := RefineFallback(userIdea, theme)
	if err := ValidatePrompt(userIdea); err != nil {
		return applyFallback(m, OpRefinePrompt, err, fallback)
	}

	req := TextRequest{
		Instruction: refineInstruction(theme, museumName),
		Text:        userIdea,
	}

	var refined string
	err := m.invoke(ctx, OpRefinePrompt, estimateRequestTokens(m.tokenEstimator, req), 0,
		func(ctx context.Context, gen Generator, cfg *GenerateConfig) (*UsageMetadata, error) {
			res, err := gen.GenerateText(ctx, req, cfg)
			if err != nil {
				return nil, err
			}
			refined = strings.TrimSpace(res.Text)
			if refined == "" {
				return res.UsageMetadata, ErrEmptyResult
			}
			return res.UsageMetadata, nil
		})
	if err != nil {
		return applyFallback(m, OpRefinePrompt, err, fallback)
	}
	return refined
}

// GenerateImage creates one square image. Failures are returned to the caller.
func (m *Manager) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	var img *Image
	err := m.invoke(ctx, OpGenerateImage, m.tokenEstimator.EstimateTokens(prompt), 0,
		func(ctx context.Context, gen Generator, cfg *GenerateConfig) (*UsageMetadata, error) {
			cfg.AspectRatio = AspectRatio1x1
			res, err := gen.GenerateImage(ctx, prompt, cfg)
			if err != nil {
				return nil, err
			}
			if res == nil || len(res.Images) == 0 || len(res.Images[0].Data) == 0 {
				return nil, ErrNoImage
			}
			first := res.Images[0]
			if first.MIMEType == "" {
				first.MIMEType = DefaultImageMIMEType
			}
			img = &first
			return res.UsageMetadata, nil
		})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// DescribeArtwork narrates the image as a museum guide would, or apologises.
func (m *Manager) DescribeArtwork(ctx context.Context, image Image, museumName, themeName string) string {
	text, err := m.imageText(ctx, OpDescribeArtwork, image, describeInstruction(museumName, themeName))
	if err != nil {
		return applyFallback(m, OpDescribeArtwork, err, DescribeFallback)
	}
	return text
}

// GenerateHashtags returns up to MaxHashtags tags for the image.
func (m *Manager) GenerateHashtags(ctx context.Context, image Image, museumName, themeName string) []string {
	fallback := FallbackHashtags(museumName, themeName)

	text, err := m.imageText(ctx, OpGenerateHashtags, image, hashtagInstruction(museumName, themeName))
	if err != nil {
		return applyFallback(m, OpGenerateHashtags, err, fallback)
	}
	tags := ExtractHashtags(text)
	if len(tags) == 0 {
		return applyFallback(m, OpGenerateHashtags, fmt.Errorf("%w: no hashtags in response", ErrEmptyResult), fallback)
	}
	return tags
}

// SynthesizeSpeech narrates text. A nil result means no narration is available.
func (m *Manager) SynthesizeSpeech(ctx context.Context, text string) *Speech {
	if err := ValidatePrompt(text); err != nil {
		return applyFallback[*Speech](m, OpSynthesizeSpeech, err, nil)
	}

	var speech *Speech
	err := m.invoke(ctx, OpSynthesizeSpeech, m.tokenEstimator.EstimateTokens(text), 0,
		func(ctx context.Context, gen Generator, cfg *GenerateConfig) (*UsageMetadata, error) {
			s, err := gen.SynthesizeSpeech(ctx, text, cfg)
			if err != nil {
				return nil, err
			}
			if s == nil || len(s.Data) == 0 {
				return nil, fmt.Errorf("%w: no audio in response", ErrEmptyResult)
			}
			if s.SampleRate == 0 {
				s.SampleRate = SpeechSampleRate
			}
			speech = s
			return nil, nil
		})
	if err != nil {
		return applyFallback[*Speech](m, OpSynthesizeSpeech, err, nil)
	}
	return speech
}

// imageText sends an image with an instruction and returns the trimmed text answer.
func (m *Manager) imageText(ctx context.Context, op Operation, image Image, instruction string) (string, error) {
	if err := ValidateImage(image); err != nil {
		return "", err
	}
	req := TextRequest{
		Instruction: instruction,
		Text:        "Here is the artwork.",
		Images:      []Image{image},
	}

	var text string
	err := m.invoke(ctx, op, estimateRequestTokens(m.tokenEstimator, req), len(req.Images),
		func(ctx context.Context, gen Generator, cfg *GenerateConfig) (*UsageMetadata, error) {
			res, err := gen.GenerateText(ctx, req, cfg)
			if err != nil {
				return nil, err
			}
			text = strings.TrimSpace(res.Text)
			if text == "" {
				return res.UsageMetadata, ErrEmptyResult
			}
			return res.UsageMetadata, nil
		})
	return text, err
}

// callFunc performs one remote call and returns the provider's token usage, if reported.
type callFunc func(ctx context.Context, gen Generator, cfg *GenerateConfig) (*UsageMetadata, error)

// invoke resolves the model for op, checks its input limits and rate limit and
// runs fn with a per-call config and timeout. It logs and records the outcome.
func (m *Manager) invoke(ctx context.Context, op Operation, estimatedTokens, inputImages int, fn callFunc) (err error) {
	start := time.Now()

	ctx, span := m.tracer.Start(ctx, "museai."+op.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("museai.operation", op.String()),
			attribute.String("museai.failure_policy", op.Policy().String()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	model, err := m.resolveModel(op)
	if err != nil {
		m.logger.Error("no model for operation",
			"operation", op.String(),
			"error", err.Error(),
		)
		m.metrics.record(ctx, op, "", outcomeError, time.Since(start))
		return err
	}

	span.SetAttributes(attribute.String("museai.model", string(model)))
	m.logger.Debug("starting remote call",
		"operation", op.String(),
		"model", string(model),
		"estimated_tokens", estimatedTokens,
	)

	if err := m.checkInputLimits(model, estimatedTokens, inputImages); err != nil {
		m.logger.Warn("input rejected",
			"operation", op.String(),
			"model", string(model),
			"error", err.Error(),
		)
		m.metrics.record(ctx, op, model, outcomeError, time.Since(start))
		return err
	}

	if err := m.checkRateLimit(ctx, model, estimatedTokens); err != nil {
		m.logger.Warn("rate limit hit",
			"operation", op.String(),
			"model", string(model),
			"error", err.Error(),
		)
		m.metrics.record(ctx, op, model, outcomeRateLimited, time.Since(start))
		return err
	}

	gen, cfg, err := m.getGeneratorForModel(model)
	if err != nil {
		m.logger.Error("failed to get generator",
			"operation", op.String(),
			"model", string(model),
			"error", err.Error(),
		)
		m.metrics.record(ctx, op, model, outcomeError, time.Since(start))
		return err
	}

	if m.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.requestTimeout)
		defer cancel()
	}

	usage, err := fn(ctx, gen, cfg)
	duration := time.Since(start)

	if err != nil {
		m.logger.Error("remote call failed",
			"operation", op.String(),
			"model", string(model),
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		m.metrics.record(ctx, op, model, outcomeError, duration)
		return err
	}

	attrs := []any{
		"operation", op.String(),
		"model", string(model),
		"duration_ms", duration.Milliseconds(),
	}
	if usage != nil {
		attrs = append(attrs,
			"prompt_tokens", usage.PromptTokens,
			"response_tokens", usage.CandidatesTokens,
			"total_tokens", usage.TotalTokens,
		)
		span.SetAttributes(attribute.Int("museai.total_tokens", usage.TotalTokens))
		m.metrics.recordUsage(ctx, op, model, usage)
	}
	m.logger.Info("remote call completed", attrs...)
	m.metrics.record(ctx, op, model, outcomeOK, duration)
	return nil
}

// applyFallback returns value when op's policy allows absorbing err.
// Callers only reach it for fallback operations.
func applyFallback[T any](m *Manager, op Operation, err error, value T) T {
	if op.Policy() != PolicyFallback {
		// programming error: propagate-only operations never substitute
		panic(fmt.Sprintf("museai: fallback requested for %s", op))
	}
	m.logger.Warn("using fallback",
		"operation", op.String(),
		"reason", err.Error(),
	)
	m.metrics.fallbacks.Add(context.Background(), 1, opAttr(op))
	return value
}

// Models returns all registered model definitions in registration order.
func (m *Manager) Models() []ModelInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	models := make([]ModelInfo, 0, len(m.modelOrder))
	for _, model := range m.modelOrder {
		if info := m.modelInfo[model]; info != nil {
			models = append(models, *info)
		}
	}
	return models
}

// Routes returns the models currently routed per operation kind.
func (m *Manager) Routes() Routes {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.routes
	for _, op := range Operations() {
		if r.For(op) == "" {
			if model, ok := m.firstCapableLocked(op); ok {
				switch op {
				case OpGenerateImage:
					r.Image = model
				case OpSynthesizeSpeech:
					r.Speech = model
				default:
					r.Text = model
				}
			}
		}
	}
	return r
}

// GetModelInfo returns model information for a specific model.
func (m *Manager) GetModelInfo(model Model) (*ModelInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.modelInfo[model]
	return info, ok
}

// Close releases all provider resources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for provider, gen := range m.providers {
		if err := gen.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", provider, err))
		}
	}
	m.providers = make(map[Provider]Generator)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// checkInputLimits rejects requests the model cannot accept.
func (m *Manager) checkInputLimits(model Model, estimatedTokens, inputImages int) error {
	info, ok := m.GetModelInfo(model)
	if !ok || info == nil {
		return nil
	}
	if info.ContextLength > 0 && estimatedTokens > info.ContextLength {
		return fmt.Errorf("%w: ~%d tokens, %s accepts %d", ErrInputTooLarge, estimatedTokens, model, info.ContextLength)
	}
	if limit := info.Capabilities.MaxInputImages; limit > 0 && inputImages > limit {
		return fmt.Errorf("%w: %d images, %s accepts %d", ErrInputTooLarge, inputImages, model, limit)
	}
	return nil
}

// checkRateLimit checks rate limits for a model and optionally waits.
func (m *Manager) checkRateLimit(ctx context.Context, model Model, estimatedTokens int) error {
	const (
		tokenBuffer = 100
	)

	limiter, err := m.rateLimiters.Get(string(model))
	if err != nil {
		if errors.Is(err, ratelimiter.ErrNotFound) {
			return nil
		}
		return err
	}

	estimatedTokens += tokenBuffer

	m.mu.RLock()
	wait, maxWait := m.config.WaitOnRateLimit, m.config.MaxWaitDuration
	m.mu.RUnlock()

	if wait {
		if err := limiter.WaitAndConsume(ctx, estimatedTokens, maxWait); err != nil {
			return &RateLimitError{
				RetryAfter: limiter.TimeUntilAvailable(estimatedTokens),
				LimitType:  "tokens",
				Model:      string(model),
				Err:        err,
			}
		}
		return nil
	}

	if !limiter.TryConsume(estimatedTokens) {
		return &RateLimitError{
			RetryAfter: limiter.TimeUntilAvailable(estimatedTokens),
			LimitType:  "tokens",
			Model:      string(model),
		}
	}

	return nil
}

// resolveModel returns the model routed for op, falling back to the first
// registered model capable of it.
func (m *Manager) resolveModel(op Operation) (Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if model := m.routes.For(op); model != "" {
		return model, nil
	}
	if model, ok := m.firstCapableLocked(op); ok {
		return model, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoModelForOperation, op)
}

func (m *Manager) firstCapableLocked(op Operation) (Model, bool) {
	for _, model := range m.modelOrder {
		if info := m.modelInfo[model]; info != nil && info.Capabilities.Supports(op) {
			return model, true
		}
	}
	return "", false
}

// getGeneratorForModel returns the generator serving model and a request
// config carrying the actual API model name.
func (m *Manager) getGeneratorForModel(model Model) (Generator, *GenerateConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, ok := m.modelMappings[model]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrModelNotRegistered, model)
	}

	gen, ok := m.providers[mapping.Provider]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, mapping.Provider)
	}

	return gen, m.config.WithModel(Model(mapping.ActualModelName)), nil
}
