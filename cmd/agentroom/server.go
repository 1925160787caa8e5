package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/agent/builtin"
	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/agent/persistence"
	"github.com/BaSui01/agentroom/api/handlers"
	"github.com/BaSui01/agentroom/config"
	"github.com/BaSui01/agentroom/internal/cache"
	"github.com/BaSui01/agentroom/internal/database"
	"github.com/BaSui01/agentroom/internal/events"
	"github.com/BaSui01/agentroom/internal/metrics"
	"github.com/BaSui01/agentroom/internal/migration"
	"github.com/BaSui01/agentroom/internal/server"
	"github.com/BaSui01/agentroom/internal/telemetry"
	"github.com/BaSui01/agentroom/llm"
	"github.com/BaSui01/agentroom/llm/observability"
	"github.com/BaSui01/agentroom/llm/providers/openaicompat"
	"github.com/BaSui01/agentroom/llm/tokenizer"
)

// =============================================================================
// 🚀 serve 命令
// =============================================================================

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the agentroom server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}

			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			logger.Info("Starting agentroom",
				zap.String("version", Version),
				zap.String("build_time", BuildTime),
				zap.String("git_commit", GitCommit),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := NewServer(cfg, loader, logger)
			if err := srv.Start(ctx); err != nil {
				srv.Shutdown()
				logger.Error("Failed to start server", zap.Error(err))
				return err
			}

			err = srv.Wait(ctx)
			srv.Shutdown()
			return err
		},
	}
}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 组装聊天室服务的全部依赖
type Server struct {
	cfg    *config.Config
	loader *config.Loader
	logger *zap.Logger

	collector *metrics.Collector
	telemetry *telemetry.Providers

	redis    *cache.Manager
	pool     *database.PoolManager
	mongo    *mongo.Client
	store    persistence.GroupStore
	hub      *events.Hub
	external events.Multi

	directory *agent.Directory
	manager   *conversation.Manager
	reloader  *config.Reloader

	httpManager    *server.Manager
	metricsManager *server.Manager

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, loader *config.Loader, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		loader: loader,
		logger: logger,
	}
}

// Start 按依赖顺序初始化并启动所有组件。失败时调用方负责 Shutdown 已初始化的部分。
func (s *Server) Start(ctx context.Context) error {
	// 1. 指标与遥测
	s.collector = metrics.NewCollector("agentroom", s.logger)

	tp, err := telemetry.Init(ctx, s.cfg.Telemetry, s.logger)
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	s.telemetry = tp

	// 2. 存储及其连接
	if err := s.initConnections(ctx); err != nil {
		return err
	}
	store, err := persistence.NewGroupStore(s.cfg.Store, persistence.Deps{
		Redis:    s.redis,
		DB:       s.dbOrNil(),
		Mongo:    s.mongo,
		Recorder: s.collector,
		Logger:   s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create group store: %w", err)
	}
	s.store = store

	// 3. LLM provider 与 Agent 名册
	llmMetrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to init llm metrics: %w", err)
	}
	if err := s.initDirectory(llmMetrics); err != nil {
		return err
	}

	// 4. 事件分发与对话管理器
	if err := s.initEvents(); err != nil {
		return err
	}
	publishers := events.Multi{s.hub}
	publishers = append(publishers, s.external...)
	observer := events.NewObserver(publishers, s.cfg.Events.PublishTimeout, s.logger)

	s.manager = conversation.NewManager(s.store, s.directory, s.cfg.Room,
		conversation.WithManagerLogger(s.logger),
		conversation.WithManagerObserver(conversation.Observers{s.collector, observer}),
		conversation.WithGroupOptions(conversation.WithTracer(llmMetrics.Tracer())),
	)

	// 5. 配置热更新（仅 Agent 名册）
	if err := s.initReloader(ctx); err != nil {
		return err
	}

	// 6. HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.httpManager.Addr()),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("store", string(s.cfg.Store.Type)),
		zap.Int("agents", len(s.directory.List())),
		zap.Bool("hot_reload_enabled", s.reloader != nil),
	)
	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initConnections 只打开当前配置用得到的外部连接
func (s *Server) initConnections(ctx context.Context) error {
	storeType := s.cfg.Store.Type

	if storeType == persistence.StoreTypeRedis || s.cfg.Events.PublishRedis {
		m, err := cache.NewManager(s.cfg.Redis, s.logger)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		s.redis = m
	}

	if storeType == persistence.StoreTypeDatabase {
		if err := s.initDatabase(ctx); err != nil {
			return err
		}
	}

	if storeType == persistence.StoreTypeMongo {
		timeout := s.cfg.Mongo.ConnectTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		client, err := mongo.Connect(options.Client().ApplyURI(s.cfg.Mongo.URI))
		if err != nil {
			return fmt.Errorf("failed to connect mongo: %w", err)
		}
		s.mongo = client
		if err := client.Ping(connectCtx, nil); err != nil {
			return fmt.Errorf("failed to ping mongo: %w", err)
		}
	}
	return nil
}

func (s *Server) initDatabase(ctx context.Context) error {
	dbCfg := s.cfg.Database

	// 迁移使用独立连接，先于连接池执行
	if dbCfg.AutoMigrate {
		m, err := migration.NewMigratorFromDatabaseConfig(dbCfg, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create migrator: %w", err)
		}
		err = m.Up(ctx)
		if closeErr := m.Close(); closeErr != nil {
			s.logger.Warn("Failed to close migrator", zap.Error(closeErr))
		}
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := database.Open(dbCfg.Driver, dbCfg.DSN(), gormLogLevel(dbCfg.LogLevel))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	pool, err := database.NewPoolManager(db, dbCfg.Pool, s.logger,
		database.WithStatsRecorder(dbCfg.Driver, s.collector))
	if err != nil {
		return fmt.Errorf("failed to init database pool: %w", err)
	}
	s.pool = pool
	return nil
}

func (s *Server) dbOrNil() *gorm.DB {
	if s.pool == nil {
		return nil
	}
	return s.pool.DB()
}

// initDirectory 构建 provider 表与 Agent 名册
func (s *Server) initDirectory(llmMetrics *observability.Metrics) error {
	tokenizer.RegisterOpenAI()

	retry := llm.DefaultRetryPolicy()
	retry.MaxRetries = s.cfg.LLM.MaxRetries
	if s.cfg.LLM.RetryBackoff > 0 {
		retry.InitialDelay = s.cfg.LLM.RetryBackoff
	}

	providers := make(map[string]llm.Provider, len(s.cfg.LLM.Providers))
	for name, pc := range s.cfg.LLM.Providers {
		p := openaicompat.New(pc.OpenAICompat(name, s.cfg.LLM.Timeout), s.logger)
		// 每次尝试都单独计入指标
		providers[name] = llm.NewRetryProvider(observability.Instrument(p, llmMetrics, s.collector, s.logger), retry, s.logger)
	}
	if len(providers) == 0 {
		s.logger.Warn("No LLM providers configured, agents will fail to build")
	}

	registry := builtin.NewRegistry(agent.Deps{
		Providers: providers,
		Logger:    s.logger,
	})
	s.directory = agent.NewDirectory(registry, s.logger)

	for _, spec := range s.cfg.Agents {
		if _, err := s.directory.Put(spec); err != nil {
			return fmt.Errorf("failed to register agent %q: %w", spec.Alias, err)
		}
	}
	return nil
}

// initEvents 创建 WebSocket Hub 以及可选的 Kafka/Redis 发布器
func (s *Server) initEvents() error {
	s.hub = events.NewHub(s.cfg.Events.HubBuffer, s.logger)

	if strings.TrimSpace(s.cfg.Events.Kafka.Brokers) != "" {
		kp, err := events.NewKafkaPublisher(s.cfg.Events.Kafka, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		s.external = append(s.external, kp)
	}
	if s.cfg.Events.PublishRedis {
		s.external = append(s.external, events.NewRedisPublisher(s.redis, s.logger))
	}
	return nil
}

// initReloader 监听配置文件，变更时把 Agent 名册差异应用到 Directory。
// 其它配置段的变更需要重启。
func (s *Server) initReloader(ctx context.Context) error {
	if s.loader == nil || s.loader.ConfigPath() == "" {
		return nil
	}
	r, err := config.NewReloader(s.loader, s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create config reloader: %w", err)
	}
	r.OnReload(s.applyRoster)
	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("failed to start config reloader: %w", err)
	}
	s.reloader = r
	return nil
}

func (s *Server) applyRoster(prev, next *config.Config) {
	diff := config.DiffAgents(prev.Agents, next.Agents)
	if diff.Empty() {
		s.logger.Info("Configuration reloaded, agent roster unchanged")
		return
	}
	for _, spec := range diff.Upserted {
		if _, err := s.directory.Put(spec); err != nil {
			s.logger.Error("Failed to apply agent from reloaded config",
				zap.String("alias", spec.Alias), zap.Error(err))
		}
	}
	for _, alias := range diff.Removed {
		s.directory.Remove(alias)
	}
	s.logger.Info("Agent roster reloaded",
		zap.Int("upserted", len(diff.Upserted)),
		zap.Int("removed", len(diff.Removed)),
	)
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// skipAuthPaths 探针与版本信息不需要认证
var skipAuthPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version"}

func (s *Server) startHTTPServer() error {
	healthHandler := handlers.NewHealthHandler(s.logger)
	healthHandler.RegisterCheck(handlers.NewStoreHealthCheck(s.store))
	if s.redis != nil {
		healthHandler.RegisterOptionalCheck(handlers.NewPingCheck("redis", s.redis.Ping))
	}
	if s.pool != nil {
		healthHandler.RegisterCheck(handlers.NewPingCheck("database", s.pool.Ping))
	}
	if s.mongo != nil {
		healthHandler.RegisterOptionalCheck(handlers.NewPingCheck("mongo", func(ctx context.Context) error {
			return s.mongo.Ping(ctx, nil)
		}))
	}

	groupHandler := handlers.NewGroupHandler(s.manager, s.logger)
	agentHandler := handlers.NewAgentHandler(s.directory, s.logger)
	streamHandler := handlers.NewStreamHandler(s.hub, s.manager, s.logger,
		handlers.WithOriginPatterns(originPatterns(s.cfg.Server.CORSAllowedOrigins)...))

	mux := http.NewServeMux()
	registerRoutes(mux, healthHandler, groupHandler, agentHandler, streamHandler)

	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		MetricsMiddleware(s.collector),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		MaxBodyBytes(s.cfg.Server.MaxBodyBytes),
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		chain = append(chain, RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger))
	}
	switch {
	case s.cfg.Auth.JWT.Enabled():
		chain = append(chain, JWTAuth(s.cfg.Auth.JWT, skipAuthPaths, s.logger))
	case len(s.cfg.Auth.APIKeys) > 0:
		chain = append(chain, APIKeyAuth(s.cfg.Auth.APIKeys, skipAuthPaths, s.cfg.Auth.AllowQueryAPIKey, s.logger))
	default:
		s.logger.Warn("Authentication disabled: no API keys or JWT configured")
	}

	serverConfig, err := s.cfg.Server.HTTPServer()
	if err != nil {
		return err
	}
	s.httpManager = server.NewManager("api", Chain(mux, chain...), serverConfig, s.logger)

	// 被劫持的 WebSocket 连接不受 http.Server.Shutdown 管理
	s.httpManager.OnShutdown(func() { _ = s.hub.Close() })

	return s.httpManager.Start()
}

// registerRoutes 注册全部路由，使用 Go 1.22 的方法与路径模式
func registerRoutes(mux *http.ServeMux, health *handlers.HealthHandler, groups *handlers.GroupHandler,
	agents *handlers.AgentHandler, stream *handlers.StreamHandler) {
	// 健康检查
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /healthz", health.HandleHealth)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /readyz", health.HandleReady)
	mux.HandleFunc("GET /version", health.HandleVersion(handlers.VersionInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}))

	// Agent 名册
	mux.HandleFunc("GET /api/v1/agents", agents.HandleListAgents)
	mux.HandleFunc("POST /api/v1/agents", agents.HandlePutAgent)
	mux.HandleFunc("GET /api/v1/agents/{alias}", agents.HandleGetAgent)
	mux.HandleFunc("DELETE /api/v1/agents/{alias}", agents.HandleDeleteAgent)

	// 群组
	mux.HandleFunc("GET /api/v1/groups", groups.HandleListGroups)
	mux.HandleFunc("POST /api/v1/groups", groups.HandleCreateGroup)
	mux.HandleFunc("GET /api/v1/groups/{name}", groups.HandleGetGroup)
	mux.HandleFunc("PUT /api/v1/groups/{name}", groups.HandleUpdateGroup)
	mux.HandleFunc("DELETE /api/v1/groups/{name}", groups.HandleDeleteGroup)

	// 对话动作
	mux.HandleFunc("POST /api/v1/groups/{name}/messages", groups.HandleSendMessage)
	mux.HandleFunc("DELETE /api/v1/groups/{name}/messages/{id}", groups.HandleDeleteMessage)
	mux.HandleFunc("POST /api/v1/groups/{name}/messages/{id}/resend", groups.HandleResend)
	mux.HandleFunc("POST /api/v1/groups/{name}/step", groups.HandleStep)
	mux.HandleFunc("POST /api/v1/groups/{name}/maxvote", groups.HandleMaxVote)
	mux.HandleFunc("POST /api/v1/groups/{name}/roleplay", groups.HandleRolePlay)
	mux.HandleFunc("GET /api/v1/groups/{name}/stream", stream.HandleStream)
}

// originPatterns 把 CORS 来源（含 scheme）转换为 websocket.Accept 需要的 host 模式
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort == 0 {
		s.logger.Info("Metrics server disabled")
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.DefaultConfig()
	serverConfig.Addr = fmt.Sprintf(":%d", s.cfg.Server.MetricsPort)

	s.metricsManager = server.NewManager("metrics", mux, serverConfig, s.logger)
	return s.metricsManager.Start()
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// Wait 阻塞到 ctx 结束（收到信号）或任一服务器异常退出
func (s *Server) Wait(ctx context.Context) error {
	var metricsErrs <-chan error
	if s.metricsManager != nil {
		metricsErrs = s.metricsManager.Errors()
	}
	select {
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
		return nil
	case err := <-s.httpManager.Errors():
		return fmt.Errorf("api server: %w", err)
	case err := <-metricsErrs:
		return fmt.Errorf("metrics server: %w", err)
	}
}

// Shutdown 按初始化的逆序释放资源，可以在部分初始化后调用
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.reloader != nil {
		if err := s.reloader.Stop(); err != nil {
			s.logger.Error("Config reloader shutdown error", zap.Error(err))
		}
	}

	// 先停 API，正在进行的 Send 在超时内完成
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	if s.hub != nil {
		_ = s.hub.Close()
	}
	if len(s.external) > 0 {
		if err := s.external.Close(); err != nil {
			s.logger.Error("Event publisher shutdown error", zap.Error(err))
		}
	}

	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.pool != nil {
		errs = append(errs, s.pool.Close())
	}
	if s.mongo != nil {
		errs = append(errs, s.mongo.Disconnect(ctx))
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.telemetry != nil {
		errs = append(errs, s.telemetry.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("Resource shutdown error", zap.Error(err))
	}

	s.logger.Info("Graceful shutdown completed")
}

// gormLogLevel 解析 database.log_level
func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
