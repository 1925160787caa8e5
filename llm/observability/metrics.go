package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/agentroom/llm"

// Metrics LLM 的 OpenTelemetry 指标与追踪
type Metrics struct {
	tracer trace.Tracer
	meter  metric.Meter
	// 计数器
	requestTotal metric.Int64Counter
	tokenTotal   metric.Int64Counter
	errorTotal   metric.Int64Counter
	// 直方图
	requestDuration metric.Float64Histogram
	// 活跃请求
	activeRequests metric.Int64UpDownCounter
}

// NewMetrics 使用全局 TracerProvider / MeterProvider 创建指标
func NewMetrics() (*Metrics, error) {
	tracer := otel.Tracer(instrumentationName)
	meter := otel.Meter(instrumentationName)

	m := &Metrics{
		tracer: tracer,
		meter:  meter,
	}

	var err error

	m.requestTotal, err = meter.Int64Counter("llm.request.total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	m.tokenTotal, err = meter.Int64Counter("llm.token.total",
		metric.WithDescription("Total tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.errorTotal, err = meter.Int64Counter("llm.error.total",
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}

	m.requestDuration, err = meter.Float64Histogram("llm.request.duration",
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30))
	if err != nil {
		return nil, err
	}

	m.activeRequests, err = meter.Int64UpDownCounter("llm.request.active",
		metric.WithDescription("Number of active requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RequestAttrs 请求属性
type RequestAttrs struct {
	Provider string
	Model    string
	// Agent 发起请求的 Agent alias，可为空
	Agent string
}

// ResponseAttrs 响应属性
type ResponseAttrs struct {
	Status           string
	ErrorCode        string
	TokensPrompt     int
	TokensCompletion int
	Duration         time.Duration
}

func (r RequestAttrs) base() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("provider", r.Provider),
		attribute.String("model", r.Model),
	}
}

// StartRequest 开始请求追踪
func (m *Metrics) StartRequest(ctx context.Context, attrs RequestAttrs) (context.Context, trace.Span) {
	ctx, span := m.tracer.Start(ctx, "llm.completion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", attrs.Provider),
			attribute.String("llm.model", attrs.Model),
			attribute.String("room.agent", attrs.Agent),
		))

	m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs.base()...))
	return ctx, span
}

// EndRequest 结束请求追踪
func (m *Metrics) EndRequest(ctx context.Context, span trace.Span, req RequestAttrs, resp ResponseAttrs) {
	defer span.End()

	common := append(req.base(), attribute.String("status", resp.Status))

	m.activeRequests.Add(ctx, -1, metric.WithAttributes(req.base()...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(common...))
	m.requestDuration.Record(ctx, resp.Duration.Seconds(), metric.WithAttributes(common...))

	if total := int64(resp.TokensPrompt + resp.TokensCompletion); total > 0 {
		m.tokenTotal.Add(ctx, int64(resp.TokensPrompt), metric.WithAttributes(
			append(req.base(), attribute.String("type", "prompt"))...))
		m.tokenTotal.Add(ctx, int64(resp.TokensCompletion), metric.WithAttributes(
			append(req.base(), attribute.String("type", "completion"))...))
	}

	if resp.ErrorCode != "" {
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(
			append(req.base(), attribute.String("error_code", resp.ErrorCode))...))
		span.SetAttributes(attribute.String("error.code", resp.ErrorCode))
	}

	span.SetAttributes(
		attribute.String("llm.status", resp.Status),
		attribute.Int("llm.tokens.prompt", resp.TokensPrompt),
		attribute.Int("llm.tokens.completion", resp.TokensCompletion),
		attribute.Float64("llm.duration_ms", float64(resp.Duration.Milliseconds())))
}

// Tracer 获取 Tracer
func (m *Metrics) Tracer() trace.Tracer {
	return m.tracer
}
