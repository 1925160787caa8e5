package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/testutil/mocks"
	"github.com/BaSui01/agentroom/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func echoAgent() *mocks.ScriptedResponder {
	return mocks.NewScriptedResponder("Echo").
		WithVoteFor("Echo").
		WithReplyFunc(func(conv []types.Message) types.Message {
			return types.Message{Content: conv[len(conv)-1].Content}
		})
}

func TestChat_EchoStopsAtRoundBudget(t *testing.T) {
	g := newTestGroup(t, responders(echoAgent()))

	res, err := g.Chat(context.Background(), userMessage("ping"), 1)
	require.NoError(t, err)

	require.Len(t, res.Messages, 2)
	assert.Equal(t, types.UserAlias, res.Messages[0].From)
	assert.Equal(t, "Echo", res.Messages[1].From)
	assert.Equal(t, "ping", res.Messages[1].Content)
	assert.Equal(t, ReasonRoundBudget, res.Reason)
	assert.Equal(t, StateTerminated, res.State)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, []State{StateIdle, StateArbitrating, StateAgentResponding, StateTerminated}, res.Transitions)
	assert.Equal(t, PolicyTurnTaking, res.Policy)
	assert.False(t, res.EndTime.Before(res.StartTime))
}

func TestChat_ZeroRoundsOnlyAppendsSeed(t *testing.T) {
	echo := echoAgent()
	g := newTestGroup(t, responders(echo))

	res, err := g.Chat(context.Background(), userMessage("ping"), 0)
	require.NoError(t, err)
	assert.Len(t, res.Messages, 1)
	assert.Equal(t, ReasonRoundBudget, res.Reason)
	assert.Zero(t, echo.RolePlayCalls())
	assert.Equal(t, []State{StateIdle, StateTerminated}, res.Transitions)
}

func TestChat_UserSelectedStops(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice") // 默认弃权
	g := newTestGroup(t, responders(alice))

	res, err := g.Chat(context.Background(), userMessage("hi"), 5)
	require.NoError(t, err)
	assert.Equal(t, ReasonUserSelected, res.Reason)
	assert.Len(t, res.Messages, 1)
	assert.Zero(t, alice.RespondCalls())
	assert.Equal(t, []State{StateIdle, StateArbitrating, StateTerminated}, res.Transitions)
}

func TestChat_ArbitratesOnceWithoutReappending(t *testing.T) {
	var seen []int
	alice := mocks.NewScriptedResponder("Alice").WithVoteFunc(func(conv []types.Message, _ []types.Participant) (int, error) {
		seen = append(seen, len(conv))
		if len(conv) >= 3 {
			return 0, nil
		}
		return 1, nil
	})
	g := newTestGroup(t, responders(alice))

	res, err := g.Chat(context.Background(), userMessage("hi"), 10)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, ReasonUserSelected, res.Reason)
	assert.Equal(t, 2, res.Rounds)
	assert.Len(t, res.Appended, 3)
}

func TestChat_ResponderFailureEndsChat(t *testing.T) {
	obs := &recordingObserver{}
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice").WithRespondError(errors.New("rate limited"))
	g := newTestGroup(t, responders(alice), WithObserver(obs))

	res, err := g.Chat(context.Background(), userMessage("hi"), 3)
	require.NoError(t, err)
	assert.Equal(t, ReasonResponderFailed, res.Reason)
	assert.Len(t, res.Messages, 1)
	assert.Equal(t, []string{"Alice/respond"}, obs.Failures())
}

func TestChat_ReplyWithErrorFieldIsFailure(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice").
		WithReplyFunc(func([]types.Message) types.Message {
			return types.Message{Type: types.MessageTypeZeroshot, Error: "model refused"}
		})
	g := newTestGroup(t, responders(alice))

	res, err := g.Chat(context.Background(), userMessage("hi"), 3)
	require.NoError(t, err)
	assert.Equal(t, ReasonResponderFailed, res.Reason)
	assert.Len(t, res.Messages, 1)
}

func TestChat_ReplyIsAttributedToWinner(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice").
		WithReplyFunc(func([]types.Message) types.Message {
			return types.Message{From: "Mallory", Content: "spoofed"}
		})
	g := newTestGroup(t, responders(alice))

	res, err := g.Chat(context.Background(), userMessage("hi"), 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", res.Messages[1].From)
	assert.NotEmpty(t, res.Messages[1].ID)
}

func TestChat_CancelledBetweenRounds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice").
		WithReplyFunc(func([]types.Message) types.Message {
			cancel()
			return types.Message{Content: "last words"}
		})
	obs := &recordingObserver{}
	g := newTestGroup(t, responders(alice), WithObserver(obs))

	res, err := g.Chat(ctx, userMessage("hi"), 10)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, ReasonCancelled, res.Reason)
	assert.Equal(t, 1, res.Rounds)
	assert.Len(t, res.Messages, 2)
	require.Len(t, obs.finished, 1)
	assert.Equal(t, ReasonCancelled, obs.finished[0].Reason)
}

func TestChat_ObserverSeesEveryAppend(t *testing.T) {
	obs := &recordingObserver{}
	g := newTestGroup(t, responders(echoAgent()), WithObserver(obs))

	res, err := g.Chat(context.Background(), userMessage("ping"), 2)
	require.NoError(t, err)
	assert.Equal(t, res.Messages, obs.appended)
	assert.Equal(t, res.Appended, obs.appended)
}

// Arbiter 从不选用户时，Chat(seed, k) 恰好追加 k 条 Agent 回复
func TestProperty_Chat_RespectsRoundBudget(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(rt, "agents")
		k := rapid.IntRange(0, 8).Draw(rt, "maxRounds")

		agents := make([]agent.Responder, n)
		for i := range n {
			target := rapid.IntRange(1, n).Draw(rt, fmt.Sprintf("target_%d", i))
			agents[i] = mocks.NewScriptedResponder(fmt.Sprintf("agent%d", i)).WithVote(target)
		}

		g, err := NewGroup("room", agents, nil)
		require.NoError(rt, err)
		res, err := g.Chat(context.Background(), userMessage("go"), k)
		require.NoError(rt, err)

		assert.Equal(rt, k, res.Rounds)
		assert.Len(rt, res.Messages, 1+k)
		assert.Equal(rt, ReasonRoundBudget, res.Reason)
		for _, m := range res.Messages[1:] {
			assert.NotEqual(rt, types.UserAlias, m.From)
		}
	})
}

func TestChatResult_String(t *testing.T) {
	r := &ChatResult{Group: "g", Policy: PolicyBroadcast, Rounds: 2, Reason: ReasonUserSelected}
	assert.Equal(t, "group=g policy=broadcast rounds=2 reason=user_selected", r.String())
}
