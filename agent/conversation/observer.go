package conversation

import "github.com/BaSui01/agentroom/types"

// VoteKind 投票场景
type VoteKind string

const (
	VoteRolePlay VoteKind = "roleplay"
	VoteMaxVote  VoteKind = "maxvote"
)

// Phase 失败发生的阶段
type Phase string

const (
	PhaseVote    Phase = "vote"
	PhaseRespond Phase = "respond"
)

// Vote 一次投票；Abstained 时 Choice 为空。
type Vote struct {
	Kind      VoteKind `json:"kind"`
	Voter     string   `json:"voter"`
	Choice    string   `json:"choice,omitempty"`
	Abstained bool     `json:"abstained"`
}

// Observer 接收群聊过程中的事件，用于指标与事件推送。
// 实现必须是并发安全的，Step 的扇出会从多个 goroutine 回调 ResponderFailed。
type Observer interface {
	MessageAppended(group string, msg types.Message)
	VoteCast(group string, vote Vote)
	ResponderFailed(group, alias string, phase Phase, err error)
	ChatFinished(group string, result *ChatResult)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) MessageAppended(string, types.Message)        {}
func (NopObserver) VoteCast(string, Vote)                        {}
func (NopObserver) ResponderFailed(string, string, Phase, error) {}
func (NopObserver) ChatFinished(string, *ChatResult)             {}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (o Observers) MessageAppended(group string, msg types.Message) {
	for _, ob := range o {
		ob.MessageAppended(group, msg)
	}
}

func (o Observers) VoteCast(group string, vote Vote) {
	for _, ob := range o {
		ob.VoteCast(group, vote)
	}
}

func (o Observers) ResponderFailed(group, alias string, phase Phase, err error) {
	for _, ob := range o {
		ob.ResponderFailed(group, alias, phase, err)
	}
}

func (o Observers) ChatFinished(group string, result *ChatResult) {
	for _, ob := range o {
		ob.ChatFinished(group, result)
	}
}
