package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/BaSui01/agentroom/agent/persistence"
	"github.com/BaSui01/agentroom/testutil"
	"github.com/BaSui01/agentroom/testutil/mocks"
	"github.com/BaSui01/agentroom/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T, store persistence.GroupStore, rs ...*mocks.ScriptedResponder) *Manager {
	t.Helper()
	return NewManager(store, testutil.ScriptedDirectory(t, rs...), DefaultManagerConfig(),
		WithManagerLogger(zaptest.NewLogger(t)))
}

// =============================================================================
// CRUD
// =============================================================================

func TestManager_CreateGroup(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, persistence.NewMemoryGroupStore())

	rec, err := m.CreateGroup(ctx, "room", []string{"Alice", "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "room", rec.Name)
	assert.Equal(t, []string{"Alice", "Bob"}, rec.Agents)
	assert.Empty(t, rec.Conversation)

	got, err := m.GetGroup(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, rec.Agents, got.Agents)
}

func TestManager_CreateGroup_Errors(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, persistence.NewMemoryGroupStore())
	_, err := m.CreateGroup(ctx, "room", []string{"Alice"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		group  string
		agents []string
		want   error
	}{
		{name: "exists", group: "room", agents: []string{"Bob"}, want: ErrGroupExists},
		{name: "blank name", group: "  ", agents: []string{"Bob"}, want: ErrInvalidGroupName},
		{name: "duplicate alias", group: "other", agents: []string{"Bob", "bob"}, want: ErrDuplicateAlias},
		{name: "reserved alias", group: "other", agents: []string{"avatar"}, want: ErrReservedAlias},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateGroup(ctx, tt.group, tt.agents)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestManager_UpdateListDelete(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, persistence.NewMemoryGroupStore())
	for _, name := range []string{"b", "a"} {
		_, err := m.CreateGroup(ctx, name, []string{"Alice"})
		require.NoError(t, err)
	}

	rec, err := m.UpdateGroupAgents(ctx, "a", []string{"Bob", "Carol"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Carol"}, rec.Agents)

	_, err = m.UpdateGroupAgents(ctx, "missing", []string{"Bob"})
	assert.ErrorIs(t, err, ErrGroupNotFound)

	all, err := m.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)

	require.NoError(t, m.DeleteGroup(ctx, "a"))
	assert.ErrorIs(t, m.DeleteGroup(ctx, "a"), ErrGroupNotFound)
	_, err = m.GetGroup(ctx, "a")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

// =============================================================================
// Send
// =============================================================================

func TestManager_SendPersistsConversation(t *testing.T) {
	ctx := context.Background()
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice")
	m := newTestManager(t, persistence.NewMemoryGroupStore(), alice)
	_, err := m.CreateGroup(ctx, "room", []string{"Alice"})
	require.NoError(t, err)

	res, err := m.Send(ctx, "room", userMessage("hi"), SendOptions{MaxRounds: Rounds(2)})
	require.NoError(t, err)
	assert.Equal(t, ReasonRoundBudget, res.Reason)
	assert.Equal(t, PolicyTurnTaking, res.Policy)

	rec, err := m.GetGroup(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, []string{types.UserAlias, "Alice", "Alice"}, senders(rec.Conversation))

	// 第二次发送在已有历史上继续
	_, err = m.Send(ctx, "room", userMessage("again"), SendOptions{MaxRounds: Rounds(1)})
	require.NoError(t, err)
	rec, err = m.GetGroup(ctx, "room")
	require.NoError(t, err)
	assert.Len(t, rec.Conversation, 5)
}

func TestManager_SendRoundBudget(t *testing.T) {
	ctx := context.Background()
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice")
	m := newTestManager(t, persistence.NewMemoryGroupStore(), alice)
	_, err := m.CreateGroup(ctx, "room", []string{"Alice"})
	require.NoError(t, err)

	// 显式 0 轮：只追加用户消息
	res, err := m.Send(ctx, "room", userMessage("note"), SendOptions{MaxRounds: Rounds(0)})
	require.NoError(t, err)
	assert.Equal(t, ReasonRoundBudget, res.Reason)
	assert.Equal(t, 0, res.Rounds)
	assert.Zero(t, alice.RolePlayCalls())

	// 未指定时使用默认轮数
	res, err = m.Send(ctx, "room", userMessage("go"), SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultManagerConfig().MaxRounds, res.Rounds)

	rec, err := m.GetGroup(ctx, "room")
	require.NoError(t, err)
	assert.Len(t, rec.Conversation, 2+DefaultManagerConfig().MaxRounds)
}

func TestManager_SendBroadcastPolicy(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, persistence.NewMemoryGroupStore(),
		mocks.NewScriptedResponder("Alice").WithAskVote(0))
	_, err := m.CreateGroup(ctx, "room", []string{"Alice"})
	require.NoError(t, err)

	res, err := m.Send(ctx, "room", userMessage("hi"), SendOptions{Policy: PolicyBroadcast, MaxRounds: Rounds(1)})
	require.NoError(t, err)
	assert.Equal(t, PolicyBroadcast, res.Policy)
	assert.Equal(t, ReasonRoundBudget, res.Reason)
	assert.Len(t, res.Messages, 2)
}

func TestManager_SendErrors(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, persistence.NewMemoryGroupStore())
	_, err := m.CreateGroup(ctx, "room", nil)
	require.NoError(t, err)

	_, err = m.Send(ctx, "room", userMessage("hi"), SendOptions{Policy: "debate"})
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	_, err = m.Send(ctx, "missing", userMessage("hi"), SendOptions{})
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestManager_SendKeepsDanglingAliases(t *testing.T) {
	ctx := context.Background()
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice")
	m := newTestManager(t, persistence.NewMemoryGroupStore(), alice)
	_, err := m.CreateGroup(ctx, "room", []string{"Alice", "Ghost"})
	require.NoError(t, err)

	res, err := m.Send(ctx, "room", userMessage("hi"), SendOptions{MaxRounds: Rounds(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)

	rec, err := m.GetGroup(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Ghost"}, rec.Agents)
}

func TestManager_SendSavesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice").
		WithReplyFunc(func([]types.Message) types.Message {
			cancel()
			return types.Message{Content: "last words"}
		})
	store := persistence.NewMemoryGroupStore()
	m := newTestManager(t, store, alice)
	_, err := m.CreateGroup(context.Background(), "room", []string{"Alice"})
	require.NoError(t, err)

	res, err := m.Send(ctx, "room", userMessage("hi"), SendOptions{MaxRounds: Rounds(5)})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, ReasonCancelled, res.Reason)

	rec, err := store.Load(context.Background(), "room")
	require.NoError(t, err)
	assert.Equal(t, []string{types.UserAlias, "Alice"}, senders(rec.Conversation))
}

func TestManager_SendSaveErrorPropagates(t *testing.T) {
	diskFull := errors.New("disk full")
	store := mocks.NewMockGroupStore().
		WithGroup(types.Group{Name: "room", Agents: []string{"Alice"}}).
		WithSaveError(diskFull)
	m := newTestManager(t, store, mocks.NewScriptedResponder("Alice"))

	res, err := m.Send(context.Background(), "room", userMessage("hi"), SendOptions{})
	assert.ErrorIs(t, err, diskFull)
	assert.NotNil(t, res)
	assert.Equal(t, 1, store.SaveCalls())
}

func TestManager_LoadErrorIsWrapped(t *testing.T) {
	broken := errors.New("connection refused")
	m := newTestManager(t, mocks.NewMockGroupStore().WithLoadError(broken))

	_, err := m.GetGroup(context.Background(), "room")
	assert.ErrorIs(t, err, broken)
	assert.NotErrorIs(t, err, ErrGroupNotFound)
}

// 同一群组的并发操作串行执行，不会丢失消息
func TestManager_ConcurrentSendsSerialize(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, persistence.NewMemoryGroupStore(), mocks.NewScriptedResponder("Alice"))
	_, err := m.CreateGroup(ctx, "room", []string{"Alice"})
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Send(ctx, "room", userMessage(fmt.Sprintf("msg %d", i)), SendOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := m.GetGroup(ctx, "room")
	require.NoError(t, err)
	assert.Len(t, rec.Conversation, n)
}

// =============================================================================
// Step / RolePlay / MaxVote
// =============================================================================

func TestManager_StepPersistsOnlyTheSeed(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, persistence.NewMemoryGroupStore(),
		mocks.NewScriptedResponder("Alice"), mocks.NewScriptedResponder("Bob"))
	_, err := m.CreateGroup(ctx, "room", []string{"Alice", "Bob"})
	require.NoError(t, err)

	replies, err := m.Step(ctx, "room", types.NewMessage("Alice", "idea"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, senders(withoutPlaceholders(replies)))

	rec, err := m.GetGroup(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, senders(rec.Conversation))
}

func TestManager_RolePlay(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, persistence.NewMemoryGroupStore(),
		mocks.NewScriptedResponder("Alice").WithVoteFor("Bob"),
		mocks.NewScriptedResponder("Bob").WithVoteFor("Bob"))
	_, err := m.CreateGroup(ctx, "room", []string{"Alice", "Bob"})
	require.NoError(t, err)

	winner, err := m.RolePlay(ctx, "room", userMessage("who next?"))
	require.NoError(t, err)
	assert.Equal(t, "Bob", winner.Alias)

	rec, err := m.GetGroup(ctx, "room")
	require.NoError(t, err)
	assert.Len(t, rec.Conversation, 1)
}

func TestManager_MaxVoteDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockGroupStore().WithGroup(types.Group{Name: "room", Agents: []string{"Alice"}})
	m := newTestManager(t, store, mocks.NewScriptedResponder("Alice").WithAskVote(1))

	winner, err := m.MaxVote(ctx, "room", []types.Message{
		types.NewMessage("Alice", "a"),
		types.NewMessage("Bob", "b"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob", winner.From)
	assert.Zero(t, store.SaveCalls())

	_, err = m.MaxVote(ctx, "room", nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

// =============================================================================
// 消息编辑
// =============================================================================

func TestManager_DeleteMessage(t *testing.T) {
	ctx := context.Background()
	first, second := userMessage("one"), userMessage("two")
	store := persistence.NewMemoryGroupStore()
	require.NoError(t, store.Save(ctx, types.Group{
		Name: "room", Agents: []string{}, Conversation: []types.Message{first, second},
	}))
	m := newTestManager(t, store)

	rec, err := m.DeleteMessage(ctx, "room", first.ID)
	require.NoError(t, err)
	require.Len(t, rec.Conversation, 1)
	assert.Equal(t, second.ID, rec.Conversation[0].ID)

	_, err = m.DeleteMessage(ctx, "room", first.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestManager_Resend(t *testing.T) {
	ctx := context.Background()
	original := userMessage("try again")
	store := persistence.NewMemoryGroupStore()
	require.NoError(t, store.Save(ctx, types.Group{
		Name: "room", Agents: []string{"Alice"}, Conversation: []types.Message{original},
	}))
	m := newTestManager(t, store, mocks.NewScriptedResponder("Alice"))

	res, err := m.Resend(ctx, "room", original.ID, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, ReasonUserSelected, res.Reason)

	rec, err := m.GetGroup(ctx, "room")
	require.NoError(t, err)
	require.Len(t, rec.Conversation, 2)
	assert.Equal(t, original.Content, rec.Conversation[1].Content)
	assert.NotEqual(t, original.ID, rec.Conversation[1].ID)

	_, err = m.Resend(ctx, "room", "nope", SendOptions{})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}
