package museai

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets a structured logger for the manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStorage sets a storage backend for persisting generated images.
func WithStorage(storage Storage) ManagerOption {
	return func(m *Manager) {
		m.storage = storage
	}
}

// WithRoutes sets the models used per operation kind. Empty entries keep the default.
func WithRoutes(routes Routes) ManagerOption {
	return func(m *Manager) {
		if routes.Text != "" {
			m.routes.Text = routes.Text
		}
		if routes.Image != "" {
			m.routes.Image = routes.Image
		}
		if routes.Speech != "" {
			m.routes.Speech = routes.Speech
		}
	}
}

// WithGenerateConfig sets the base request config.
func WithGenerateConfig(cfg *GenerateConfig) ManagerOption {
	return func(m *Manager) {
		if cfg != nil {
			m.config = cfg
		}
	}
}

// WithRequestTimeout bounds every remote call.
func WithRequestTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.requestTimeout = d
	}
}

// WithMeterProvider records gateway metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) ManagerOption {
	return func(m *Manager) {
		m.metrics = newGatewayMetrics(mp)
	}
}

// WithTracerProvider sets where per-call spans are reported.
// Defaults to the global otel tracer provider.
func WithTracerProvider(tp trace.TracerProvider) ManagerOption {
	return func(m *Manager) {
		m.tracer = tp.Tracer(instrumentationName)
	}
}

// NewManager creates a Manager with the given provider and options.
//
// Example:
//
//	gen, err := gemini.NewWithAPIKey(ctx, apiKey)
//	if err != nil {
//	    return err
//	}
//	manager := museai.NewManager(gen,
//	    museai.WithLogger(slog.Default()),
//	    museai.WithRequestTimeout(90*time.Second),
//	)
func NewManager(defaultProvider Generator, opts ...ManagerOption) *Manager {
	m := New()
	m.RegisterProvider(defaultProvider)

	for _, opt := range opts {
		opt(m)
	}

	return m
}
