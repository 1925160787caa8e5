package observability

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/agentroom/llm"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Recorder 接收每次 LLM 请求的结果，由 Prometheus Collector 实现
type Recorder interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// InstrumentedProvider 为 Provider 的每次 Completion 记录 span、OTel 指标和 Recorder 指标
type InstrumentedProvider struct {
	inner    llm.Provider
	metrics  *Metrics
	recorder Recorder
	logger   *zap.Logger
}

var _ llm.Provider = (*InstrumentedProvider)(nil)

// Instrument wraps p. A nil metrics or recorder disables that half.
func Instrument(p llm.Provider, m *Metrics, rec Recorder, logger *zap.Logger) *InstrumentedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedProvider{
		inner:    p,
		metrics:  m,
		recorder: rec,
		logger:   logger.With(zap.String("component", "llm_observability"), zap.String("provider", p.Name())),
	}
}

func (p *InstrumentedProvider) Name() string { return p.inner.Name() }

func (p *InstrumentedProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Unwrap returns the wrapped provider.
func (p *InstrumentedProvider) Unwrap() llm.Provider { return p.inner }

func (p *InstrumentedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	attrs := RequestAttrs{Provider: p.inner.Name(), Model: req.Model}
	if agent, ok := AgentFromContext(ctx); ok {
		attrs.Agent = agent
	}

	var span trace.Span
	if p.metrics != nil {
		ctx, span = p.metrics.StartRequest(ctx, attrs)
	}

	start := time.Now()
	resp, err := p.inner.Completion(ctx, req)
	result := ResponseAttrs{Status: "success", Duration: time.Since(start)}

	if err != nil {
		result.Status = "error"
		result.ErrorCode = errorCode(err)
		p.logger.Warn("llm completion failed",
			zap.String("model", req.Model),
			zap.String("agent", attrs.Agent),
			zap.Duration("duration", result.Duration),
			zap.Error(err))
	} else if resp != nil {
		result.TokensPrompt = resp.Usage.PromptTokens
		result.TokensCompletion = resp.Usage.CompletionTokens
		if resp.Model != "" {
			attrs.Model = resp.Model
		}
	}

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result.ErrorCode)
		}
		p.metrics.EndRequest(ctx, span, attrs, result)
	}
	if p.recorder != nil {
		p.recorder.RecordLLMRequest(attrs.Provider, attrs.Model, result.Status,
			result.Duration, result.TokensPrompt, result.TokensCompletion)
	}
	return resp, err
}

func errorCode(err error) string {
	var lerr *llm.Error
	if errors.As(err, &lerr) && lerr.Code != "" {
		return string(lerr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	if errors.Is(err, context.Canceled) {
		return "CANCELLED"
	}
	return "UNKNOWN"
}
