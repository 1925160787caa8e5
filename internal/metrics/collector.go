package metrics

import (
	"errors"
	"time"

	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/agent/persistence"
	"github.com/BaSui01/agentroom/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
//
// 同时实现 conversation.Observer、persistence.OpRecorder 与
// observability.Recorder，由 serve 命令统一注入。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	// 群聊指标
	messagesAppended  *prometheus.CounterVec
	votesTotal        *prometheus.CounterVec
	responderFailures *prometheus.CounterVec
	chatRounds        *prometheus.HistogramVec
	chatsFinished     *prometheus.CounterVec
	chatDuration      *prometheus.HistogramVec

	// 存储指标
	storeOpDuration *prometheus.HistogramVec
	storeOpErrors   *prometheus.CounterVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

var (
	_ conversation.Observer  = (*Collector)(nil)
	_ persistence.OpRecorder = (*Collector)(nil)
)

// NewCollector 创建指标收集器，注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, namespace, logger)
}

// NewCollectorWith 创建指标收集器并注册到 reg
func NewCollectorWith(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// LLM 指标
	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	// 群聊指标
	c.messagesAppended = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_messages_appended_total",
			Help:      "Messages appended to group conversations",
		},
		[]string{"sender"}, // sender: user, agent
	)

	c.votesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_votes_total",
			Help:      "Votes cast by agents",
		},
		[]string{"kind", "outcome"}, // outcome: counted, abstained
	)

	c.responderFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_responder_failures_total",
			Help:      "Agent failures while voting or replying",
		},
		[]string{"phase"},
	)

	c.chatRounds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "room_chat_rounds",
			Help:      "Agent replies appended per orchestrated send",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"policy"},
	)

	c.chatsFinished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_chats_finished_total",
			Help:      "Orchestrated sends by termination reason",
		},
		[]string{"policy", "reason"},
	)

	c.chatDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "room_chat_duration_seconds",
			Help:      "Wall time of an orchestrated send",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"policy"},
	)

	// 存储指标
	c.storeOpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Group store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	c.storeOpErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operation_errors_total",
			Help:      "Failed group store operations",
		},
		[]string{"backend", "operation"},
	)

	// 数据库指标
	c.dbConnectionsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🤖 LLM 指标记录
// =============================================================================

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// =============================================================================
// 🎭 群聊指标（conversation.Observer）
// =============================================================================

func (c *Collector) MessageAppended(_ string, msg types.Message) {
	sender := "agent"
	if msg.IsFromUser() {
		sender = "user"
	}
	c.messagesAppended.WithLabelValues(sender).Inc()
}

func (c *Collector) VoteCast(_ string, vote conversation.Vote) {
	outcome := "counted"
	if vote.Abstained {
		outcome = "abstained"
	}
	c.votesTotal.WithLabelValues(string(vote.Kind), outcome).Inc()
}

func (c *Collector) ResponderFailed(_ string, _ string, phase conversation.Phase, _ error) {
	c.responderFailures.WithLabelValues(string(phase)).Inc()
}

func (c *Collector) ChatFinished(_ string, res *conversation.ChatResult) {
	if res == nil {
		return
	}
	policy := string(res.Policy)
	c.chatRounds.WithLabelValues(policy).Observe(float64(res.Rounds))
	c.chatsFinished.WithLabelValues(policy, string(res.Reason)).Inc()
	if !res.EndTime.IsZero() {
		c.chatDuration.WithLabelValues(policy).Observe(res.EndTime.Sub(res.StartTime).Seconds())
	}
}

// =============================================================================
// 🗄️ 存储与数据库指标记录
// =============================================================================

// RecordStoreOp 记录一次群组存储操作（persistence.OpRecorder）
func (c *Collector) RecordStoreOp(backend, op string, d time.Duration, err error) {
	c.storeOpDuration.WithLabelValues(backend, op).Observe(d.Seconds())
	// 找不到记录是正常的业务结果
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		c.storeOpErrors.WithLabelValues(backend, op).Inc()
	}
}

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
