package museai

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/mhpenta/museai"

const (
	outcomeOK          = "ok"
	outcomeError       = "error"
	outcomeRateLimited = "rate_limited"
)

type gatewayMetrics struct {
	requests  metric.Int64Counter
	fallbacks metric.Int64Counter
	tokens    metric.Int64Counter
	duration  metric.Float64Histogram
}

func newGatewayMetrics(mp metric.MeterProvider) *gatewayMetrics {
	meter := mp.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	requests, err := meter.Int64Counter("museai.gateway.requests",
		metric.WithDescription("Remote gateway calls by operation, model and outcome."))
	if err != nil {
		requests, _ = fallback.Int64Counter("museai.gateway.requests")
	}
	fallbacks, err := meter.Int64Counter("museai.gateway.fallbacks",
		metric.WithDescription("Remote failures absorbed by a fallback value."))
	if err != nil {
		fallbacks, _ = fallback.Int64Counter("museai.gateway.fallbacks")
	}
	tokens, err := meter.Int64Counter("museai.gateway.tokens",
		metric.WithDescription("Tokens reported by the provider, by direction."))
	if err != nil {
		tokens, _ = fallback.Int64Counter("museai.gateway.tokens")
	}
	duration, err := meter.Float64Histogram("museai.gateway.duration",
		metric.WithDescription("Remote gateway call latency."),
		metric.WithUnit("ms"))
	if err != nil {
		duration, _ = fallback.Float64Histogram("museai.gateway.duration")
	}

	return &gatewayMetrics{
		requests:  requests,
		fallbacks: fallbacks,
		tokens:    tokens,
		duration:  duration,
	}
}

func (g *gatewayMetrics) record(ctx context.Context, op Operation, model Model, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("operation", op.String()),
		attribute.String("model", string(model)),
		attribute.String("outcome", outcome),
	)
	g.requests.Add(ctx, 1, attrs)
	g.duration.Record(ctx, float64(d.Microseconds())/1000, attrs)
}

func (g *gatewayMetrics) recordUsage(ctx context.Context, op Operation, model Model, usage *UsageMetadata) {
	for direction, n := range map[string]int{
		"prompt":   usage.PromptTokens,
		"response": usage.CandidatesTokens,
	} {
		if n <= 0 {
			continue
		}
		g.tokens.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("operation", op.String()),
			attribute.String("model", string(model)),
			attribute.String("direction", direction),
		))
	}
}

func opAttr(op Operation) metric.AddOption {
	return metric.WithAttributes(attribute.String("operation", op.String()))
}
