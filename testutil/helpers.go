// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	dir := testutil.ScriptedDirectory(t, alice, bob)
//	testutil.AssertSenders(t, []string{"Avatar", "Alice"}, result.Messages)
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/testutil/mocks"
	"github.com/BaSui01/agentroom/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🤖 Agent 目录
// =============================================================================

// ScriptedDirectory 构建一个 agent.Directory，每个 alias 解析为对应的脚本化 Agent。
// 所有 Agent 以 agent.chat 类型、LLM "test" 注册。
func ScriptedDirectory(t testing.TB, rs ...*mocks.ScriptedResponder) *agent.Directory {
	t.Helper()
	byAlias := make(map[string]*mocks.ScriptedResponder, len(rs))
	for _, r := range rs {
		byAlias[r.Participant().Alias] = r
	}
	factory := func(spec agent.Spec, _ agent.Deps) (agent.Responder, error) {
		r, ok := byAlias[spec.Alias]
		if !ok {
			return nil, fmt.Errorf("no scripted responder for %s", spec.Alias)
		}
		return r, nil
	}
	registry := agent.NewRegistry(agent.Deps{}, map[agent.Kind]agent.Factory{
		agent.KindChat:     factory,
		agent.KindZeroshot: factory,
	})
	dir := agent.NewDirectory(registry, zaptest.NewLogger(t))
	for _, r := range rs {
		p := r.Participant()
		if _, err := dir.Put(agent.Spec{Alias: p.Alias, Description: p.Description, Kind: agent.KindChat, LLM: "test"}); err != nil {
			t.Fatalf("put %s: %v", p.Alias, err)
		}
	}
	return dir
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertMessagesEqual 按 From/Type/Content 比较两个消息切片，忽略 ID 与时间戳
func AssertMessagesEqual(t *testing.T, expected, actual []types.Message) {
	t.Helper()

	if len(expected) != len(actual) {
		t.Errorf("message count mismatch: expected %d, got %d", len(expected), len(actual))
		return
	}
	for i := range expected {
		if expected[i].From != actual[i].From {
			t.Errorf("message[%d] from mismatch: expected %q, got %q", i, expected[i].From, actual[i].From)
		}
		if expected[i].Content != actual[i].Content {
			t.Errorf("message[%d] content mismatch: expected %q, got %q", i, expected[i].Content, actual[i].Content)
		}
		if expected[i].Type != "" && expected[i].Type != actual[i].Type {
			t.Errorf("message[%d] type mismatch: expected %q, got %q", i, expected[i].Type, actual[i].Type)
		}
	}
}

// AssertSenders 断言消息发送者序列
func AssertSenders(t *testing.T, expected []string, msgs []types.Message) {
	t.Helper()
	got := Senders(msgs)
	if len(got) != len(expected) {
		t.Errorf("sender mismatch: expected %v, got %v", expected, got)
		return
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("sender mismatch: expected %v, got %v", expected, got)
			return
		}
	}
}

// AssertUniqueIDs 断言对话中的消息 ID 互不相同
func AssertUniqueIDs(t *testing.T, msgs []types.Message) {
	t.Helper()
	seen := make(map[string]int, len(msgs))
	for i, m := range msgs {
		if j, ok := seen[m.ID]; ok {
			t.Errorf("message[%d] reuses id %q of message[%d]", i, m.ID, j)
		}
		seen[m.ID] = i
	}
}

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	if !WaitFor(condition, timeout) {
		t.Errorf("condition did not become true within %v", timeout)
	}
}

// =============================================================================
// ⏱️ 等待辅助
// =============================================================================

// WaitFor 轮询直到条件为真或超时
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

// WaitForChannel 等待通道值
func WaitForChannel[T any](ch <-chan T, timeout time.Duration) (T, bool) {
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(timeout):
		var zero T
		return zero, false
	}
}

// =============================================================================
// 📦 数据辅助
// =============================================================================

// Senders 返回消息的发送者序列
func Senders(msgs []types.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.From
	}
	return out
}

// MustJSON 序列化为 JSON 字符串，失败时 panic
func MustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// MustParseJSON 解析 JSON 字符串，失败时 panic
func MustParseJSON[T any](s string) T {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(err)
	}
	return v
}
