package telemetry

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/mhpenta/museai/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetup_ExposesMetrics(t *testing.T) {
	ctx := context.Background()
	p, err := Setup(ctx, config.Default().Telemetry, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	require.NotNil(t, p.Handler)

	counter, err := p.MeterProvider.Meter("test").Int64Counter("museai.test.calls")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	rec := httptest.NewRecorder()
	p.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "museai_test_calls")
}

func TestSetup_TracingDisabledByDefault(t *testing.T) {
	ctx := context.Background()
	p, err := Setup(ctx, config.Default().Telemetry, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	assert.IsType(t, noop.TracerProvider{}, p.TracerProvider)
}

func TestSetup_StdoutTracing(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default().Telemetry
	cfg.TraceStdout = true

	p, err := Setup(ctx, cfg, quietLogger())
	require.NoError(t, err)

	_, span := p.TracerProvider.Tracer("test").Start(ctx, "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(ctx))
}

func TestServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, err := Setup(ctx, config.Default().Telemetry, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", p.Handler, quietLogger()) }()

	cancel()
	assert.NoError(t, <-done)
}
