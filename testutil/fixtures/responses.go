// =============================================================================
// 📦 测试数据工厂 - LLM 响应测试数据
// =============================================================================
// 提供预定义的 LLM 响应数据，用于测试
// =============================================================================
package fixtures

import (
	"fmt"
	"time"

	"github.com/BaSui01/agentroom/llm"
)

// =============================================================================
// 🎯 ChatResponse 工厂
// =============================================================================

// SimpleResponse 返回简单的文本响应
func SimpleResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ID:       "resp-001",
		Provider: "mock",
		Model:    "gpt-4o-mini",
		Choices: []llm.ChatChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message: llm.Message{
					Role:    llm.RoleAssistant,
					Content: content,
				},
			},
		},
		Usage: llm.ChatUsage{
			PromptTokens:     10,
			CompletionTokens: 20,
			TotalTokens:      30,
		},
		CreatedAt: time.Now(),
	}
}

// ResponseWithUsage 返回带自定义 Token 使用量的响应
func ResponseWithUsage(content string, promptTokens, completionTokens int) *llm.ChatResponse {
	resp := SimpleResponse(content)
	resp.Usage = llm.ChatUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
	return resp
}

// EmptyResponse 返回没有 choice 的响应
func EmptyResponse() *llm.ChatResponse {
	resp := SimpleResponse("")
	resp.Choices = nil
	return resp
}

// =============================================================================
// 🗳️ 投票响应
// =============================================================================

// RoleVote 返回点名下一位发言者的 RolePlay 回复，如 "[Bob] knows the answer"
func RoleVote(alias string) *llm.ChatResponse {
	return SimpleResponse(fmt.Sprintf("[%s] is the best fit to continue", alias))
}

// CandidateVote 返回 Ask 投票回复，按发送者名选中候选
func CandidateVote(from string) *llm.ChatResponse {
	return SimpleResponse(fmt.Sprintf("The reply from [%s] is the most reasonable", from))
}

// UnparseableVote 返回无法解析出方括号的回复，Agent 应视为弃权
func UnparseableVote() *llm.ChatResponse {
	return SimpleResponse("I think someone else should answer")
}
