// =============================================================================
// 📦 测试数据工厂 - Agent 与对话
// =============================================================================
// 提供预定义的 Agent 配置和对话片段，用于测试
// =============================================================================
package fixtures

import (
	"fmt"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/types"
)

// =============================================================================
// 🤖 Agent 配置工厂
// =============================================================================

// ChatSpec 返回使用 LLM "test" 的 chat Agent 配置
func ChatSpec(alias string) agent.Spec {
	return agent.Spec{
		Alias:          alias,
		Description:    fmt.Sprintf("%s, a helpful assistant", alias),
		Kind:           agent.KindChat,
		LLM:            "test",
		IncludeHistory: true,
		IncludeName:    true,
		UseMarkdown:    true,
	}
}

// ZeroshotSpec 返回带 ReAct 风格模板的 zero-shot Agent 配置
func ZeroshotSpec(alias string) agent.Spec {
	return agent.Spec{
		Alias:        alias,
		Description:  fmt.Sprintf("%s, a tool-less reasoner", alias),
		Kind:         agent.KindZeroshot,
		LLM:          "test",
		PrefixPrompt: "Answer the question.\n{history}",
		SuffixPrompt: "Question from {from}: {content}\n{agent_scratchpad}",
	}
}

// Roster 返回 Alice/Bob/Carol 三个 chat Agent
func Roster() []agent.Spec {
	return []agent.Spec{ChatSpec("Alice"), ChatSpec("Bob"), ChatSpec("Carol")}
}

// =============================================================================
// 💬 对话工厂
// =============================================================================

// UserMessage 返回一条用户消息
func UserMessage(content string) types.Message {
	return types.NewMessage(types.UserAlias, content)
}

// Conversation 返回 n 条交替的用户/Agent 消息，Agent 轮流取自 aliases
func Conversation(n int, aliases ...string) []types.Message {
	if len(aliases) == 0 {
		aliases = []string{"Alice"}
	}
	out := make([]types.Message, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			out = append(out, UserMessage(fmt.Sprintf("question %d", i/2+1)))
			continue
		}
		from := aliases[(i/2)%len(aliases)]
		out = append(out, types.NewMessage(from, fmt.Sprintf("answer %d from %s", i/2+1, from)))
	}
	return out
}

// Group 返回带对话的群组记录
func Group(name string, agents []string, n int) types.Group {
	return types.Group{Name: name, Agents: agents, Conversation: Conversation(n, agents...)}
}
