// =============================================================================
// 📦 agentroom 默认配置
// =============================================================================
// 提供所有配置项的合理默认值，不依赖任何外部服务即可启动
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/agent/persistence"
	"github.com/BaSui01/agentroom/internal/cache"
	"github.com/BaSui01/agentroom/internal/database"
	"github.com/BaSui01/agentroom/internal/events"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Room:      conversation.DefaultManagerConfig(),
		LLM:       DefaultLLMConfig(),
		Store:     persistence.DefaultStoreConfig(),
		Redis:     cache.DefaultConfig(),
		Database:  DefaultDatabaseConfig(),
		Mongo:     DefaultMongoConfig(),
		Events:    DefaultEventsConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置。
// 一次 Send 可能包含多轮 LLM 调用，写超时比普通 API 长。
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
		MaxBodyBytes:    1 << 20,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Providers:    map[string]ProviderConfig{},
		Timeout:      60 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置（仅 store.type=database 时使用）
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:   "sqlite",
		Host:     "localhost",
		Port:     5432,
		Name:     "./data/agentroom.db",
		SSLMode:  "disable",
		LogLevel: "warn",
		Pool:     database.DefaultPoolConfig(),
	}
}

// DefaultMongoConfig 返回默认 MongoDB 配置
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:            "mongodb://localhost:27017",
		ConnectTimeout: 10 * time.Second,
	}
}

// DefaultEventsConfig 返回默认事件配置，Kafka 与 Redis 发布默认关闭
func DefaultEventsConfig() EventsConfig {
	return EventsConfig{
		HubBuffer:      64,
		PublishTimeout: 2 * time.Second,
		Kafka: events.KafkaConfig{
			Topic:        "agentroom.events",
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentroom",
		SampleRate:   0.1,
	}
}
