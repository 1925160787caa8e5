package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig Kafka 发布配置
type KafkaConfig struct {
	Brokers      string        `yaml:"brokers" split_words:"true"` // 逗号分隔
	Topic        string        `yaml:"topic" split_words:"true"`
	BatchTimeout time.Duration `yaml:"batch_timeout" split_words:"true"`
	// Async 为 true 时 Publish 不等待 broker 确认
	Async bool `yaml:"async" split_words:"true"`
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 把事件写入一个 Kafka topic，同一群组的事件落在同一分区
type KafkaPublisher struct {
	w      messageWriter
	topic  string
	closed atomic.Bool
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher backed by a kafka-go Writer.
func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if strings.TrimSpace(cfg.Brokers) == "" {
		return nil, fmt.Errorf("kafka publisher: brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka publisher: topic is required")
	}
	batch := cfg.BatchTimeout
	if batch <= 0 {
		batch = 50 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           batch,
		Async:                  cfg.Async,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, cfg.Topic, logger), nil
}

func newKafkaPublisher(w messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		w:      w,
		topic:  topic,
		logger: logger.With(zap.String("component", "kafka_publisher"), zap.String("topic", topic)),
	}
}

// Publish writes ev keyed by its group.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Group),
		Value: value,
		Time:  ev.Timestamp,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("failed to publish event", zap.String("group", ev.Group), zap.Error(err))
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.w.Close()
}
