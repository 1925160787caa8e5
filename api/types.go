package api

import (
	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/types"
)

// =============================================================================
// 群组类型
// =============================================================================

// CreateGroupRequest 创建群组请求。
// @Description 新建一个空群组，agents 为 Agent 别名列表
type CreateGroupRequest struct {
	// 群组名，全局唯一
	Name string `json:"name" validate:"required,max=128" example:"weekend-trip"`
	// Agent 别名，群组内大小写不敏感唯一
	Agents []string `json:"agents" validate:"dive,required" example:"Bob,Carol"`
}

// UpdateGroupRequest 替换群组的 Agent 列表，对话保留。
type UpdateGroupRequest struct {
	Agents []string `json:"agents" validate:"dive,required"`
}

// GroupSummary 群组列表项
type GroupSummary struct {
	Name         string   `json:"name"`
	Agents       []string `json:"agents"`
	MessageCount int      `json:"message_count"`
}

// NewGroupSummary builds the list view of rec.
func NewGroupSummary(rec types.Group) GroupSummary {
	return GroupSummary{Name: rec.Name, Agents: rec.Agents, MessageCount: len(rec.Conversation)}
}

// =============================================================================
// 消息类型
// =============================================================================

// MessageInput 客户端提交的消息。From 为空时视为用户发送。
type MessageInput struct {
	From    string            `json:"from,omitempty" example:"Avatar"`
	Type    types.MessageType `json:"type,omitempty" example:"message.markdown"`
	Content string            `json:"content" validate:"required" example:"Where should we go this weekend?"`
}

// ToMessage stamps the input as a new conversation message.
func (in MessageInput) ToMessage() types.Message {
	from := in.From
	if from == "" {
		from = types.UserAlias
	}
	msg := types.NewMessage(from, in.Content)
	if in.Type != "" {
		msg.Type = in.Type
	}
	return msg
}

// SendMessageRequest 按编排策略推进一轮对话。
// @Description policy 为空时使用服务端默认策略
type SendMessageRequest struct {
	MessageInput
	Policy    conversation.PolicyName `json:"policy,omitempty" validate:"omitempty,oneof=turn_taking broadcast" example:"turn_taking"`
	// 缺省时使用服务端默认轮数；0 表示只追加消息不触发回复
	MaxRounds *int                    `json:"max_rounds,omitempty" validate:"omitempty,gte=0,lte=100" example:"5"`
}

// Options returns the send options carried by the request.
func (r SendMessageRequest) Options() conversation.SendOptions {
	return conversation.SendOptions{Policy: r.Policy, MaxRounds: r.MaxRounds}
}

// ResendRequest 重发一条历史消息
type ResendRequest struct {
	Policy    conversation.PolicyName `json:"policy,omitempty" validate:"omitempty,oneof=turn_taking broadcast"`
	MaxRounds *int                    `json:"max_rounds,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// StepRequest 追加消息并让其余 Agent 并发回复
type StepRequest struct {
	MessageInput
}

// StepResponse Step 的回复，未写入对话
type StepResponse struct {
	Replies []types.Message `json:"replies"`
}

// MaxVoteRequest 让群组 Agent 在候选回复中投票
type MaxVoteRequest struct {
	Candidates []types.Message `json:"candidates"`
}

// MaxVoteResponse 投票选出的回复
type MaxVoteResponse struct {
	Winner types.Message `json:"winner"`
}

// RolePlayRequest 追加消息并仲裁下一位发言者
type RolePlayRequest struct {
	MessageInput
}

// RolePlayResponse 仲裁结果
type RolePlayResponse struct {
	Speaker types.Participant `json:"speaker"`
	IsUser  bool              `json:"is_user"`
}

// =============================================================================
// Agent 类型
// =============================================================================

// PutAgentRequest 新增或替换一个 Agent，字段与配置文件中的 agents 条目一致。
type PutAgentRequest = agent.Spec
