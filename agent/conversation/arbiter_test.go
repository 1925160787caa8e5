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

// Alice 与 Bob 各投自己一票：平票按 roster 顺序取 Alice
func TestRolePlay_TieGoesToEarlierAgent(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice")
	bob := mocks.NewScriptedResponder("Bob").WithVoteFor("Bob")
	g := newTestGroup(t, responders(alice, bob))

	winner := g.RolePlay(context.Background(), userMessage("who is next?"))

	assert.Equal(t, "Alice", winner.Alias)
	assert.Len(t, g.Messages(), 1)
}

func TestRolePlay_AppendsTriggerExactlyOnce(t *testing.T) {
	g := newTestGroup(t, responders(mocks.NewScriptedResponder("Alice"), mocks.NewScriptedResponder("Bob")))

	g.RolePlay(context.Background(), userMessage("one"))
	g.RolePlay(context.Background(), userMessage("two"))

	msgs := g.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
}

func TestRolePlay_VotersSeeTriggerAndFullRoster(t *testing.T) {
	var seenConv []types.Message
	var seenRoster []types.Participant
	alice := mocks.NewScriptedResponder("Alice").WithVoteFunc(func(conv []types.Message, roster []types.Participant) (int, error) {
		seenConv, seenRoster = conv, roster
		return 2, nil
	})
	g := newTestGroup(t, responders(alice, mocks.NewScriptedResponder("Bob")))

	winner := g.RolePlay(context.Background(), userMessage("hello"))

	assert.Equal(t, "Bob", winner.Alias)
	require.Len(t, seenConv, 1)
	assert.Equal(t, "hello", seenConv[0].Content)
	assert.Equal(t, []string{types.UserAlias, "Alice", "Bob"}, []string{seenRoster[0].Alias, seenRoster[1].Alias, seenRoster[2].Alias})
}

func TestRolePlay_FailuresAndOutOfRangeAreAbstentions(t *testing.T) {
	obs := &recordingObserver{}
	alice := mocks.NewScriptedResponder("Alice").WithVoteFunc(func([]types.Message, []types.Participant) (int, error) {
		return 0, errors.New("llm down")
	})
	bob := mocks.NewScriptedResponder("Bob").WithVote(99)
	carol := mocks.NewScriptedResponder("Carol").WithVote(-1)
	g := newTestGroup(t, responders(alice, bob, carol), WithObserver(obs))

	winner := g.RolePlay(context.Background(), userMessage("hi"))

	assert.True(t, winner.IsUser())
	assert.Equal(t, []string{"Alice/vote"}, obs.Failures())
	require.Len(t, obs.votes, 3)
	for _, v := range obs.votes {
		assert.True(t, v.Abstained)
		assert.Equal(t, VoteRolePlay, v.Kind)
	}
}

func TestRolePlay_UserNeverVotes(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice").WithVote(0)
	g := newTestGroup(t, responders(alice))

	winner := g.RolePlay(context.Background(), userMessage("hi"))
	assert.True(t, winner.IsUser())
	assert.Equal(t, 1, alice.RolePlayCalls())
}

// 唯一最高票的参与者必然胜出
func TestProperty_RolePlay_UniqueMaxWins(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "agents")
		agents := make([]agent.Responder, n)
		tally := make([]int, n+1)
		for i := range n {
			vote := rapid.IntRange(-1, n).Draw(rt, fmt.Sprintf("vote_%d", i))
			if vote >= 0 {
				tally[vote]++
			}
			agents[i] = mocks.NewScriptedResponder(fmt.Sprintf("agent%d", i)).WithVote(vote)
		}

		best, top, unique := 0, 0, false
		for i, c := range tally {
			switch {
			case c > top:
				best, top, unique = i, c, true
			case c == top && c > 0:
				unique = false
			}
		}
		if !unique {
			rt.Skip("no unique maximum")
		}

		g, err := NewGroup("room", agents, nil)
		require.NoError(rt, err)
		winner := g.RolePlay(context.Background(), userMessage("next?"))
		assert.Equal(rt, g.Roster()[best].Alias, winner.Alias)
	})
}

// 全部弃权（或没有 Agent）时用户胜出
func TestProperty_RolePlay_NoVotesSelectsUser(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(rt, "agents")
		agents := make([]agent.Responder, n)
		for i := range n {
			r := mocks.NewScriptedResponder(fmt.Sprintf("agent%d", i))
			if rapid.Bool().Draw(rt, fmt.Sprintf("fails_%d", i)) {
				r = r.WithVoteFunc(func([]types.Message, []types.Participant) (int, error) {
					return 1, errors.New("vote failed")
				})
			} else {
				r = r.WithVote(-1)
			}
			agents[i] = r
		}

		g, err := NewGroup("room", agents, nil)
		require.NoError(rt, err)
		winner := g.RolePlay(context.Background(), userMessage("anyone?"))
		assert.True(rt, winner.IsUser())
	})
}
