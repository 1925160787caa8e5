package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/BaSui01/agentroom/internal/cache"
	"go.uber.org/zap"
)

// RedisPublisher PUBLISH 事件到 <prefix>events:<group> 频道
type RedisPublisher struct {
	cache  *cache.Manager
	closed atomic.Bool
	logger *zap.Logger
}

// NewRedisPublisher creates a publisher over an existing cache manager. The
// manager is owned by the caller and is not closed by Close.
func NewRedisPublisher(m *cache.Manager, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{cache: m, logger: logger.With(zap.String("component", "redis_publisher"))}
}

// Channel returns the channel events of group are published on.
func (p *RedisPublisher) Channel(group string) string {
	return p.cache.Key("events", group)
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.cache.Publish(ctx, p.Channel(ev.Group), data); err != nil {
		p.logger.Warn("failed to publish event", zap.String("group", ev.Group), zap.Error(err))
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	p.closed.Store(true)
	return nil
}
