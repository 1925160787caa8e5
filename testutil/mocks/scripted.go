// =============================================================================
// 🎭 ScriptedResponder - 可编排的群聊参与者
// =============================================================================
// 比 gomock 更轻量，适合属性测试中大量随机构造的 Agent。
//
// 使用方法:
//
//	alice := mocks.NewScriptedResponder("Alice").WithVote(2).WithReply("hi")
//	bob := mocks.NewScriptedResponder("Bob").WithRespondError(errors.New("down"))
// =============================================================================
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/agentroom/types"
)

// ScriptedResponder 按脚本回复与投票
type ScriptedResponder struct {
	mu sync.Mutex

	participant types.Participant

	reply      func(conv []types.Message) types.Message
	respondErr error

	vote    func(conv []types.Message, roster []types.Participant) (int, error)
	askVote func(candidates []types.Message) (int, error)

	respondCalls  int
	rolePlayCalls int
	askCalls      int
}

// NewScriptedResponder creates a responder that replies "<alias> reply" and abstains.
func NewScriptedResponder(alias string) *ScriptedResponder {
	s := &ScriptedResponder{
		participant: types.Participant{Alias: alias, Description: alias + " for tests", Kind: "agent.chat"},
	}
	s.reply = func([]types.Message) types.Message {
		return types.NewMessage(alias, alias+" reply")
	}
	s.vote = func([]types.Message, []types.Participant) (int, error) { return -1, nil }
	s.askVote = func([]types.Message) (int, error) { return -1, nil }
	return s
}

// WithDescription 设置描述
func (s *ScriptedResponder) WithDescription(d string) *ScriptedResponder {
	s.participant.Description = d
	return s
}

// WithReply 固定回复内容
func (s *ScriptedResponder) WithReply(content string) *ScriptedResponder {
	alias := s.participant.Alias
	s.reply = func([]types.Message) types.Message { return types.NewMessage(alias, content) }
	return s
}

// WithReplyFunc 自定义回复
func (s *ScriptedResponder) WithReplyFunc(fn func(conv []types.Message) types.Message) *ScriptedResponder {
	s.reply = fn
	return s
}

// WithRespondError 让 Respond 失败
func (s *ScriptedResponder) WithRespondError(err error) *ScriptedResponder {
	s.respondErr = err
	return s
}

// WithVote RolePlay 固定投给 roster 下标
func (s *ScriptedResponder) WithVote(idx int) *ScriptedResponder {
	s.vote = func([]types.Message, []types.Participant) (int, error) { return idx, nil }
	return s
}

// WithVoteFor RolePlay 按 alias 投票（找不到时弃权）
func (s *ScriptedResponder) WithVoteFor(alias string) *ScriptedResponder {
	s.vote = func(_ []types.Message, roster []types.Participant) (int, error) {
		for i, p := range roster {
			if types.SameAlias(p.Alias, alias) {
				return i, nil
			}
		}
		return -1, nil
	}
	return s
}

// WithVoteFunc 自定义 RolePlay 投票
func (s *ScriptedResponder) WithVoteFunc(fn func(conv []types.Message, roster []types.Participant) (int, error)) *ScriptedResponder {
	s.vote = fn
	return s
}

// WithAskVote Ask 固定投给候选下标
func (s *ScriptedResponder) WithAskVote(idx int) *ScriptedResponder {
	s.askVote = func([]types.Message) (int, error) { return idx, nil }
	return s
}

// WithAskVoteFunc 自定义 Ask 投票
func (s *ScriptedResponder) WithAskVoteFunc(fn func(candidates []types.Message) (int, error)) *ScriptedResponder {
	s.askVote = fn
	return s
}

func (s *ScriptedResponder) Participant() types.Participant { return s.participant }

func (s *ScriptedResponder) Respond(ctx context.Context, conv []types.Message, _ []types.Participant) (types.Message, error) {
	s.mu.Lock()
	s.respondCalls++
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return types.Message{}, err
	}
	if s.respondErr != nil {
		return types.Message{}, s.respondErr
	}
	return s.reply(conv), nil
}

func (s *ScriptedResponder) RolePlay(ctx context.Context, conv []types.Message, roster []types.Participant) (int, error) {
	s.mu.Lock()
	s.rolePlayCalls++
	s.mu.Unlock()
	return s.vote(conv, roster)
}

func (s *ScriptedResponder) Ask(ctx context.Context, candidates, _ []types.Message, _ []types.Participant) (int, error) {
	s.mu.Lock()
	s.askCalls++
	s.mu.Unlock()
	return s.askVote(candidates)
}

// RespondCalls 返回 Respond 调用次数
func (s *ScriptedResponder) RespondCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.respondCalls
}

// RolePlayCalls 返回 RolePlay 调用次数
func (s *ScriptedResponder) RolePlayCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolePlayCalls
}

// AskCalls 返回 Ask 调用次数
func (s *ScriptedResponder) AskCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.askCalls
}
