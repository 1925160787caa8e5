package llm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy 指数退避重试策略
type RetryPolicy struct {
	MaxRetries   int           // 最大重试次数（0 表示不重试）
	InitialDelay time.Duration // 首次重试前的等待
	MaxDelay     time.Duration // 单次等待上限
	Multiplier   float64       // 退避倍数
	Jitter       bool          // ±25% 随机抖动
}

// DefaultRetryPolicy 返回默认重试策略
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 500 * time.Millisecond
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay * 20
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}
	return p
}

// delay = initial * multiplier^(attempt-1)，不小于 initial、不大于 max
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		d += (rand.Float64()*2 - 1) * d * 0.25
	}
	if d < float64(p.InitialDelay) {
		d = float64(p.InitialDelay)
	}
	return time.Duration(d)
}

// IsRetryable 只有标记为 Retryable 的 *Error 可以重试
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// RetryProvider 在 Completion 返回可重试错误时按策略重试。
// HealthCheck 不重试。
type RetryProvider struct {
	Provider
	policy RetryPolicy
	logger *zap.Logger
}

// NewRetryProvider 包装 inner；policy.MaxRetries 为 0 时直接返回 inner。
func NewRetryProvider(inner Provider, policy RetryPolicy, logger *zap.Logger) Provider {
	if policy.MaxRetries <= 0 {
		return inner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryProvider{
		Provider: inner,
		policy:   policy.normalized(),
		logger:   logger.With(zap.String("component", "llm_retry"), zap.String("provider", inner.Name())),
	}
}

func (r *RetryProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			d := r.policy.delay(attempt)
			r.logger.Debug("retrying completion",
				zap.Int("attempt", attempt),
				zap.Duration("delay", d),
				zap.Error(lastErr),
			)
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		resp, err := r.Provider.Completion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}

	r.logger.Warn("completion retries exhausted",
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr),
	)
	return nil, lastErr
}
