// =============================================================================
// 📦 agentroom 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + .env 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("agentroom.yaml").
//	    WithEnvPrefix("AGENTROOM").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → .env → 环境变量 → 校验
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/agent/persistence"
	"github.com/BaSui01/agentroom/internal/cache"
	"github.com/BaSui01/agentroom/internal/database"
	"github.com/BaSui01/agentroom/internal/events"
	"github.com/BaSui01/agentroom/internal/server"
	"github.com/BaSui01/agentroom/internal/tlsutil"
	"github.com/BaSui01/agentroom/llm/providers/openaicompat"
)

// DefaultEnvPrefix 环境变量前缀
const DefaultEnvPrefix = "AGENTROOM"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 agentroom 的完整配置结构
type Config struct {
	Server ServerConfig `yaml:"server" envconfig:"SERVER"`

	Auth AuthConfig `yaml:"auth" envconfig:"AUTH"`

	// Room 聊天室默认策略与轮数
	Room conversation.ManagerConfig `yaml:"room" envconfig:"ROOM"`

	LLM LLMConfig `yaml:"llm" envconfig:"LLM"`

	// Agents 启动时注册的 Agent 名单，只能来自 YAML
	Agents []agent.Spec `yaml:"agents" ignored:"true"`

	Store persistence.StoreConfig `yaml:"store" envconfig:"STORE"`

	Redis cache.Config `yaml:"redis" envconfig:"REDIS"`

	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`

	Mongo MongoConfig `yaml:"mongo" envconfig:"MONGO"`

	Events EventsConfig `yaml:"events" envconfig:"EVENTS"`

	Log LogConfig `yaml:"log" envconfig:"LOG"`

	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort    int `yaml:"http_port" split_words:"true" validate:"min=1,max=65535"`
	MetricsPort int `yaml:"metrics_port" split_words:"true" validate:"min=0,max=65535"`

	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`

	// CORS 允许的来源，空表示不输出 CORS 头
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" split_words:"true"`

	// 每个客户端 IP 的限流，RPS 为 0 表示关闭
	RateLimitRPS   float64 `yaml:"rate_limit_rps" split_words:"true" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" split_words:"true" validate:"gte=0"`

	// 请求体上限
	MaxBodyBytes int64 `yaml:"max_body_bytes" split_words:"true" validate:"gte=0"`

	// 两者都设置时 API 端口监听 TLS
	TLSCertFile string `yaml:"tls_cert_file" split_words:"true" validate:"required_with=TLSKeyFile"`
	TLSKeyFile  string `yaml:"tls_key_file" split_words:"true" validate:"required_with=TLSCertFile"`
}

// HTTPServer 转换为 internal/server 的配置，设置了证书时加载 TLS
func (s ServerConfig) HTTPServer() (server.Config, error) {
	cfg := server.DefaultConfig()
	cfg.Addr = fmt.Sprintf(":%d", s.HTTPPort)
	if s.ReadTimeout > 0 {
		cfg.ReadTimeout = s.ReadTimeout
	}
	if s.WriteTimeout > 0 {
		cfg.WriteTimeout = s.WriteTimeout
	}
	if s.IdleTimeout > 0 {
		cfg.IdleTimeout = s.IdleTimeout
	}
	if s.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = s.ShutdownTimeout
	}
	if s.TLSCertFile != "" || s.TLSKeyFile != "" {
		tlsCfg, err := tlsutil.ServerConfig(s.TLSCertFile, s.TLSKeyFile)
		if err != nil {
			return cfg, err
		}
		cfg.TLSConfig = tlsCfg
	}
	return cfg, nil
}

// AuthConfig API 认证。APIKeys 与 JWT 都为空时不启用认证。
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys" split_words:"true"`

	// 允许通过 ?api_key= 传递，WebSocket 客户端无法设置请求头时使用
	AllowQueryAPIKey bool `yaml:"allow_query_api_key" split_words:"true"`

	JWT JWTConfig `yaml:"jwt" envconfig:"JWT"`
}

// JWTConfig JWT 校验配置，支持 HS256 与 RS256
type JWTConfig struct {
	Secret    string `yaml:"secret" split_words:"true"`
	PublicKey string `yaml:"public_key" split_words:"true"`
	Issuer    string `yaml:"issuer" split_words:"true"`
	Audience  string `yaml:"audience" split_words:"true"`
}

// Enabled 是否配置了任一校验密钥
func (j JWTConfig) Enabled() bool {
	return j.Secret != "" || j.PublicKey != ""
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// Providers 按名称引用，agent.Spec.LLM 指向这里的 key
	Providers map[string]ProviderConfig `yaml:"providers" ignored:"true" validate:"dive"`

	// 以下为环境变量快捷方式，设置后注册名为 "openai" 的 provider。
	// envconfig 在 AGENTROOM_LLM_OPENAI_API_KEY 缺失时回落到 OPENAI_API_KEY。
	OpenAIAPIKey  string `yaml:"-" envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `yaml:"-" envconfig:"OPENAI_BASE_URL"`
	OpenAIModel   string `yaml:"-" envconfig:"OPENAI_MODEL"`

	// 请求超时（provider 未单独设置时）
	Timeout time.Duration `yaml:"timeout" split_words:"true"`

	// 可重试错误（429/5xx）的最大重试次数，0 表示不重试
	MaxRetries   int           `yaml:"max_retries" split_words:"true" validate:"gte=0,lte=10"`
	RetryBackoff time.Duration `yaml:"retry_backoff" split_words:"true"`
}

// ProviderConfig 一个 OpenAI 兼容端点
type ProviderConfig struct {
	Flavor     string        `yaml:"flavor" validate:"omitempty,oneof=openai azure"`
	APIKey     string        `yaml:"api_key" validate:"required"`
	BaseURL    string        `yaml:"base_url" validate:"omitempty,url"`
	Model      string        `yaml:"model"`
	Deployment string        `yaml:"deployment" validate:"required_if=Flavor azure"`
	APIVersion string        `yaml:"api_version"`
	Timeout    time.Duration `yaml:"timeout"`
}

// OpenAICompat 转换为 provider 配置
func (p ProviderConfig) OpenAICompat(name string, defaultTimeout time.Duration) openaicompat.Config {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return openaicompat.Config{
		ProviderName: name,
		Flavor:       openaicompat.Flavor(p.Flavor),
		APIKey:       p.APIKey,
		BaseURL:      p.BaseURL,
		DefaultModel: p.Model,
		Deployment:   p.Deployment,
		APIVersion:   p.APIVersion,
		Timeout:      timeout,
	}
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite, sqlite3
	Driver   string `yaml:"driver" split_words:"true" validate:"omitempty,oneof=postgres mysql sqlite sqlite3"`
	Host     string `yaml:"host" split_words:"true"`
	Port     int    `yaml:"port" split_words:"true" validate:"min=0,max=65535"`
	User     string `yaml:"user" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	// 数据库名；sqlite 时为文件路径
	Name    string `yaml:"name" split_words:"true"`
	SSLMode string `yaml:"ssl_mode" split_words:"true"`
	// gorm 日志级别: silent, error, warn, info
	LogLevel string `yaml:"log_level" split_words:"true" validate:"omitempty,oneof=silent error warn info"`
	// 启动时自动执行内嵌迁移
	AutoMigrate bool `yaml:"auto_migrate" split_words:"true"`

	Pool database.PoolConfig `yaml:"pool" envconfig:"POOL"`
}

// MongoConfig MongoDB 连接配置，库与集合名在 store.mongo 中
type MongoConfig struct {
	URI            string        `yaml:"uri" split_words:"true"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" split_words:"true"`
}

// EventsConfig 对话事件的分发
type EventsConfig struct {
	// HubBuffer 每个 WebSocket 订阅者的缓冲，满了丢弃
	HubBuffer int `yaml:"hub_buffer" split_words:"true" validate:"gte=1"`

	// PublishTimeout 单个事件发布的超时
	PublishTimeout time.Duration `yaml:"publish_timeout" split_words:"true"`

	// Kafka Brokers 为空表示不启用
	Kafka events.KafkaConfig `yaml:"kafka" envconfig:"KAFKA"`

	// PublishRedis 通过 redis 频道 <prefix>events:<group> 发布
	PublishRedis bool `yaml:"publish_redis" split_words:"true"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" split_words:"true" validate:"omitempty,oneof=debug info warn error"`
	// 输出格式: json, console
	Format           string   `yaml:"format" split_words:"true" validate:"omitempty,oneof=json console"`
	OutputPaths      []string `yaml:"output_paths" split_words:"true"`
	EnableCaller     bool     `yaml:"enable_caller" split_words:"true"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" split_words:"true"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" split_words:"true"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" split_words:"true" validate:"required_if=Enabled true"`
	ServiceName  string  `yaml:"service_name" split_words:"true"`
	SampleRate   float64 `yaml:"sample_rate" split_words:"true" validate:"gte=0,lte=1"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envFiles   []string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{envPrefix: DefaultEnvPrefix}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvFile 加载 .env 文件，已存在的环境变量不会被覆盖。文件不存在时忽略。
func (l *Loader) WithEnvFile(paths ...string) *Loader {
	l.envFiles = append(l.envFiles, paths...)
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器，在内置校验之后执行
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// ConfigPath 返回配置文件路径
func (l *Loader) ConfigPath() string { return l.configPath }

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	if err := envconfig.Process(l.envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.applyShortcuts()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置，文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadEnvFiles() error {
	existing := lo.Filter(l.envFiles, func(p string, _ int) bool {
		_, err := os.Stat(p)
		return err == nil
	})
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// applyShortcuts 把 LLM_OPENAI_* 环境变量折叠成名为 openai 的 provider
func (c *Config) applyShortcuts() {
	if c.LLM.OpenAIAPIKey == "" {
		return
	}
	if c.LLM.Providers == nil {
		c.LLM.Providers = make(map[string]ProviderConfig)
	}
	p := c.LLM.Providers["openai"]
	p.APIKey = c.LLM.OpenAIAPIKey
	if c.LLM.OpenAIBaseURL != "" {
		p.BaseURL = c.LLM.OpenAIBaseURL
	}
	if c.LLM.OpenAIModel != "" {
		p.Model = c.LLM.OpenAIModel
	}
	c.LLM.Providers["openai"] = p
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验字段约束与跨字段引用
func (c *Config) Validate() error {
	var errs []string
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if _, err := conversation.PolicyFor(c.Room.DefaultPolicy); c.Room.DefaultPolicy != "" && err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Database.Pool.Validate(); err != nil {
		errs = append(errs, "database.pool: "+err.Error())
	}

	seen := make(map[string]bool, len(c.Agents))
	for _, spec := range c.Agents {
		key := strings.ToLower(spec.Alias)
		if seen[key] {
			errs = append(errs, fmt.Sprintf("agents: duplicate alias %q", spec.Alias))
		}
		seen[key] = true
		if err := spec.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("agents[%s]: %v", spec.Alias, err))
		}
		if _, ok := c.LLM.Providers[spec.LLM]; !ok {
			errs = append(errs, fmt.Sprintf("agents[%s]: unknown llm provider %q", spec.Alias, spec.LLM))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DSN 返回 gorm 驱动使用的连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite", "sqlite3", "":
		return d.Name
	default:
		return ""
	}
}
