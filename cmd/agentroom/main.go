// =============================================================================
// agentroom 主入口
// =============================================================================
// 多 Agent 聊天室服务入口，包含 HTTP API、WebSocket 事件流、Prometheus 指标
// 以及连接运行中服务的客户端命令
//
// 使用方法:
//
//	agentroom serve                          # 启动服务
//	agentroom serve --config agentroom.yaml  # 指定配置文件
//	agentroom version                        # 显示版本信息
//	agentroom health                         # 健康检查
//	agentroom migrate up                     # 运行数据库迁移
//	agentroom groups list                    # 列出群组
//	agentroom agents list                    # 列出 Agent
//	agentroom chat --group weekend-trip      # 交互式聊天
// =============================================================================

// @title agentroom API
// @version 1.0.0
// @description Multi-agent chat rooms: groups of LLM-backed agents that take turns, fan out and vote.
// @description
// @description ## Features
// @description - Turn-taking and broadcast orchestration policies
// @description - Concurrent fan-out (step) and majority voting (maxvote)
// @description - Live group events over WebSocket

// @contact.name agentroom Team
// @contact.url https://github.com/BaSui01/agentroom

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication

package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/agentroom/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalOptions 客户端命令共享的参数
type globalOptions struct {
	configPath string
	addr       string
	apiKey     string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "agentroom",
		Short:         "Multi-agent chat room server",
		Long:          "agentroom hosts chat groups where LLM-backed agents and a human user take turns.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (YAML)")
	root.PersistentFlags().StringVar(&opts.addr, "addr", envOr("AGENTROOM_ADDR", "http://localhost:8080"), "Server address for client commands")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("AGENTROOM_API_KEY"), "API key sent as X-API-Key")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Request timeout for client commands")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newVersionCmd(),
		newHealthCmd(opts),
		newGroupsCmd(opts),
		newAgentsCmd(opts),
		newChatCmd(opts),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// =============================================================================
// 📋 version / health
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "agentroom %s\n", Version)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		},
	}
}

func newHealthCmd(opts *globalOptions) *cobra.Command {
	var ready bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/health"
			if ready {
				path = "/ready"
			}
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(opts.addr + path)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health check failed: status %d", resp.StatusCode)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().BoolVar(&ready, "ready", false, "Run the readiness checks instead of the liveness check")
	return cmd
}

// =============================================================================
// 🔧 配置与日志
// =============================================================================

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Loader, *config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return loader, cfg, nil
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
