package generativeAI

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travelmate/app/observability/metrics"
)

const defaultCallTimeout = 30 * time.Second

// InstrumentedClient bounds every call with a timeout and records a span,
// metrics and a debug log around the wrapped provider.
type InstrumentedClient struct {
	inner   Client
	info    ProviderInfo
	timeout time.Duration
	metrics *metrics.AppMetrics
	logger  *slog.Logger
}

var _ Client = (*InstrumentedClient)(nil)

func NewInstrumentedClient(inner Client, info ProviderInfo, timeout time.Duration, m *metrics.AppMetrics, logger *slog.Logger) *InstrumentedClient {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	if m == nil {
		m = metrics.Get()
	}
	return &InstrumentedClient{
		inner:   inner,
		info:    info,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

func (c *InstrumentedClient) Info() ProviderInfo { return c.info }

func (c *InstrumentedClient) Complete(ctx context.Context, messages []Message, temperature float32) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Complete", trace.WithAttributes(
		attribute.String("llm.provider", c.info.Provider),
		attribute.String("llm.model", c.info.Model),
		attribute.Float64("llm.temperature", float64(temperature)),
		attribute.Int("llm.messages", len(messages)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.inner.Complete(ctx, messages, temperature)
	elapsed := time.Since(start)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		err = fmt.Errorf("%s completion failed: %w", c.info.Provider, err)
	case strings.TrimSpace(text) == "":
		outcome = "empty"
		err = ErrEmptyCompletion
	}

	providerAttr := attribute.String("provider", c.info.Provider)
	c.metrics.LLMCallsTotal.Add(ctx, 1, metric.WithAttributes(providerAttr, attribute.String("outcome", outcome)))
	c.metrics.LLMCallDurationSecond.Record(ctx, elapsed.Seconds(), metric.WithAttributes(providerAttr))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		c.logger.WarnContext(ctx, "Completion call failed",
			slog.String("provider", c.info.Provider),
			slog.Duration("latency", elapsed),
			slog.Any("error", err))
		return "", err
	}

	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "Completion generated")
	c.logger.DebugContext(ctx, "Completion call succeeded",
		slog.String("provider", c.info.Provider),
		slog.Duration("latency", elapsed),
		slog.Int("response_length", len(text)))
	return text, nil
}
