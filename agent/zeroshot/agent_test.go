package zeroshot

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/llm"
	"github.com/BaSui01/agentroom/testutil/mocks"
	"github.com/BaSui01/agentroom/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spec(chatML bool) agent.Spec {
	return agent.Spec{
		Alias:        "Zed",
		Kind:         agent.KindZeroshot,
		LLM:          "mock",
		PrefixPrompt: "History:\n{history}",
		SuffixPrompt: "{from} says: {content}\n{agent_scratchpad}",
		UseChatML:    chatML,
	}
}

var history = []types.Message{
	{From: "Avatar", Content: "hi"},
	{From: "Bob", Content: "hello"},
	{From: "Avatar", Content: "what now?"},
}

func TestPrompt(t *testing.T) {
	assert.Equal(t, "History:\nAvatar:hi\nBob:hello\n\nAvatar says: what now?\n", Prompt(spec(false), history))

	got := Prompt(spec(true), history)
	assert.Equal(t,
		"<|im_start|>system\nHistory:\n<|im_start|>Avatar\nhi\n<|im_end|>\n<|im_start|>Bob\nhello\n<|im_end|>\n\nAvatar says: what now?\n\n<|im_end|>\n<|im_start|>assistant",
		got)

	assert.Equal(t, "History:\n\n\n says: \n", Prompt(spec(false), nil))
}

func TestAgent_Respond(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("sure")
	a := New(spec(false), provider, nil)

	msg, err := a.Respond(context.Background(), history, nil)
	require.NoError(t, err)
	assert.Equal(t, "Zed", msg.From)
	assert.Equal(t, types.MessageTypeZeroshot, msg.Type)
	assert.Equal(t, "sure", msg.Content)
	assert.False(t, msg.Failed())
	assert.Equal(t, Prompt(spec(false), history), provider.LastPrompt())
}

func TestAgent_Respond_FailureBecomesErrorMessage(t *testing.T) {
	provider := mocks.NewMockProvider().WithError(errors.New("upstream down"))
	a := New(spec(false), provider, nil)

	msg, err := a.Respond(context.Background(), history, nil)
	require.NoError(t, err)
	assert.True(t, msg.Failed())
	assert.Equal(t, "upstream down", msg.Error)
	assert.Empty(t, msg.Content)
	assert.Equal(t, "Zed", msg.From)
}

func TestAgent_AlwaysAbstains(t *testing.T) {
	provider := mocks.NewMockProvider()
	a := New(spec(false), provider, nil)

	idx, err := a.RolePlay(context.Background(), history, []types.Participant{types.User()})
	require.NoError(t, err)
	assert.Equal(t, -1, idx)

	idx, err = a.Ask(context.Background(), history, history, nil)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
	assert.Zero(t, provider.CallCount())
}

func TestFactory(t *testing.T) {
	r, err := Factory(spec(false), agent.Deps{Providers: map[string]llm.Provider{"mock": mocks.NewMockProvider()}})
	require.NoError(t, err)
	assert.Equal(t, "agent.zeroshot", r.Participant().Kind)

	_, err = Factory(spec(false), agent.Deps{})
	require.ErrorIs(t, err, agent.ErrProviderNotSet)
}
