package metrics

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/agent/persistence"
	"github.com/BaSui01/agentroom/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollectorWith(prometheus.NewRegistry(), nextTestNamespace(), zap.NewNop())
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.llmRequestsTotal)
	assert.NotNil(t, collector.votesTotal)
	assert.NotNil(t, collector.storeOpDuration)
}

func TestNewCollectorWith_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollectorWith(reg, "dup", nil)
	assert.Panics(t, func() { NewCollectorWith(reg, "dup", nil) })
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordHTTPRequest("GET", "/api/v1/groups", 200, 100*time.Millisecond, 1024, 2048)
	collector.RecordHTTPRequest("GET", "/api/v1/groups", 201, 50*time.Millisecond, 512, 1024)
	collector.RecordHTTPRequest("GET", "/api/v1/groups", 404, 5*time.Millisecond, 0, 64)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/api/v1/groups", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/api/v1/groups", "4xx")))
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordLLMRequest("openai", "gpt-4o-mini", "success", 500*time.Millisecond, 100, 50)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("openai", "gpt-4o-mini", "success")))
	assert.Equal(t, 100.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini", "prompt")))
	assert.Equal(t, 50.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini", "completion")))
}

func TestCollector_ObservesConversation(t *testing.T) {
	collector := newTestCollector(t)

	collector.MessageAppended("room", types.NewMessage(types.UserAlias, "hi"))
	collector.MessageAppended("room", types.NewMessage("Alice", "hello"))
	collector.MessageAppended("room", types.NewMessage("Bob", "hey"))
	collector.VoteCast("room", conversation.Vote{Kind: conversation.VoteRolePlay, Voter: "Alice", Choice: "Bob"})
	collector.VoteCast("room", conversation.Vote{Kind: conversation.VoteRolePlay, Voter: "Bob", Abstained: true})
	collector.ResponderFailed("room", "Bob", conversation.PhaseRespond, errors.New("timeout"))

	start := time.Now()
	collector.ChatFinished("room", &conversation.ChatResult{
		Policy:    conversation.PolicyTurnTaking,
		Rounds:    2,
		Reason:    conversation.ReasonUserSelected,
		StartTime: start,
		EndTime:   start.Add(time.Second),
	})
	collector.ChatFinished("room", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.messagesAppended.WithLabelValues("user")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.messagesAppended.WithLabelValues("agent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.votesTotal.WithLabelValues("roleplay", "counted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.votesTotal.WithLabelValues("roleplay", "abstained")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.responderFailures.WithLabelValues("respond")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.chatsFinished.WithLabelValues("turn_taking", "user_selected")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.chatRounds))
}

func TestCollector_RecordStoreOp(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordStoreOp("redis", "load", time.Millisecond, nil)
	collector.RecordStoreOp("redis", "load", time.Millisecond, fmt.Errorf("wrap: %w", persistence.ErrNotFound))
	collector.RecordStoreOp("redis", "save", time.Millisecond, errors.New("connection refused"))

	assert.Equal(t, 2, testutil.CollectAndCount(collector.storeOpDuration))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.storeOpErrors.WithLabelValues("redis", "load")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.storeOpErrors.WithLabelValues("redis", "save")))
}

func TestCollector_UpdateConnectionPool(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordDBConnections("postgres", 10, 5)

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("postgres")))
	assert.Equal(t, 5.0, testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("postgres")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)
			collector.RecordLLMRequest("openai", "gpt-4", "success", 500*time.Millisecond, 100, 50)
			collector.VoteCast("room", conversation.Vote{Kind: conversation.VoteMaxVote, Voter: "Alice", Choice: "Bob"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/test", "2xx")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("openai", "gpt-4", "success")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.votesTotal.WithLabelValues("maxvote", "counted")))
}

func TestCollector_MetricsRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollectorWith(registry, nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 0, 0)

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestStatusCode(t *testing.T) {
	tests := map[int]string{200: "2xx", 302: "3xx", 429: "4xx", 503: "5xx", 0: "unknown"}
	for code, want := range tests {
		assert.Equal(t, want, statusCode(code))
	}
}
