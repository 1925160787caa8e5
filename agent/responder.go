package agent

import (
	"context"

	"github.com/BaSui01/agentroom/types"
)

//go:generate mockgen -destination=../testutil/mocks/responder.go -package=mocks github.com/BaSui01/agentroom/agent Responder

// Responder 群聊中的一个 Agent。
//
// Respond 产生回复；回复的 Error 非空或返回 error 都视为失败。
// RolePlay 与 Ask 是投票：返回 roster/candidates 中的下标，-1 表示弃权。
type Responder interface {
	Participant() types.Participant

	// Respond 基于对话产生一条回复
	Respond(ctx context.Context, conv []types.Message, roster []types.Participant) (types.Message, error)

	// RolePlay 预测下一位发言者
	RolePlay(ctx context.Context, conv []types.Message, roster []types.Participant) (int, error)

	// Ask 从候选回复中选出最合理的一条
	Ask(ctx context.Context, candidates, history []types.Message, roster []types.Participant) (int, error)
}

// Aliases returns the aliases of rs in order.
func Aliases(rs []Responder) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Participant().Alias
	}
	return out
}

// Participants returns the participant view of rs in order.
func Participants(rs []Responder) []types.Participant {
	out := make([]types.Participant, len(rs))
	for i, r := range rs {
		out[i] = r.Participant()
	}
	return out
}
