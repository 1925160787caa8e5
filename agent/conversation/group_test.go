package conversation

import (
	"testing"

	"github.com/BaSui01/agentroom/testutil/mocks"
	"github.com/BaSui01/agentroom/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRoster(t *testing.T) {
	tests := []struct {
		name    string
		aliases []string
		wantErr error
	}{
		{name: "empty", aliases: nil},
		{name: "unique", aliases: []string{"Alice", "Bob"}},
		{name: "exact duplicate", aliases: []string{"Alice", "Bob", "Alice"}, wantErr: ErrDuplicateAlias},
		{name: "case-insensitive duplicate", aliases: []string{"alice", "ALICE"}, wantErr: ErrDuplicateAlias},
		{name: "user alias", aliases: []string{"Avatar"}, wantErr: ErrReservedAlias},
		{name: "user alias other case", aliases: []string{"Bob", "avatar"}, wantErr: ErrReservedAlias},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoster(tt.aliases)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// 重复 alias 必须在任何投票发生之前被拒绝
func TestNewGroup_RejectsDuplicatesBeforeVoting(t *testing.T) {
	a1 := mocks.NewScriptedResponder("Alice").WithVote(1)
	a2 := mocks.NewScriptedResponder("alice").WithVote(1)

	g, err := NewGroup("room", responders(a1, a2), nil)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrDuplicateAlias)
	assert.Zero(t, a1.RolePlayCalls())
	assert.Zero(t, a2.RolePlayCalls())
}

func TestNewGroup_RequiresName(t *testing.T) {
	_, err := NewGroup(" ", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidGroupName)
}

func TestGroup_RosterAndRecord(t *testing.T) {
	history := []types.Message{userMessage("earlier")}
	g, err := NewGroup("room", responders(mocks.NewScriptedResponder("Alice"), mocks.NewScriptedResponder("Bob")), history)
	require.NoError(t, err)

	roster := g.Roster()
	require.Len(t, roster, 3)
	assert.True(t, roster[0].IsUser())
	assert.Equal(t, types.UserDescription, roster[0].Description)
	assert.Equal(t, []string{"Alice", "Bob"}, []string{roster[1].Alias, roster[2].Alias})

	rec := g.Record()
	assert.Equal(t, "room", rec.Name)
	assert.Equal(t, []string{"Alice", "Bob"}, rec.Agents)
	assert.Equal(t, history, rec.Conversation)

	// 历史被复制，外部修改不影响群组
	history[0].Content = "changed"
	assert.Equal(t, "earlier", g.Messages()[0].Content)
}

func TestPluralityWinner(t *testing.T) {
	keys := []string{"Avatar", "Alice", "Bob"}
	tests := []struct {
		name  string
		tally map[string]int
		want  int
	}{
		{name: "no votes", tally: map[string]int{}, want: 0},
		{name: "unique max", tally: map[string]int{"Bob": 2, "Alice": 1}, want: 2},
		{name: "tie goes to earlier", tally: map[string]int{"Alice": 1, "Bob": 1}, want: 1},
		{name: "user wins outright", tally: map[string]int{"Avatar": 3, "Bob": 1}, want: 0},
		{name: "unknown keys ignored", tally: map[string]int{"Zed": 9}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PluralityWinner(keys, tt.tally))
		})
	}
}

func TestConversation_AppendStamps(t *testing.T) {
	c := NewConversation(nil)
	assert.Empty(t, c.Messages())

	stored := c.Append(types.Message{From: "Alice", Content: "hi"})
	assert.NotEmpty(t, stored.ID)
	assert.NotZero(t, stored.Timestamp)
	assert.Equal(t, types.MessageTypeMarkdown, stored.Type)
	assert.Equal(t, []types.Message{stored}, c.Messages())
}

func TestPolicyFor(t *testing.T) {
	p, err := PolicyFor("")
	require.NoError(t, err)
	assert.Equal(t, PolicyTurnTaking, p.Name())

	p, err = PolicyFor(PolicyBroadcast)
	require.NoError(t, err)
	assert.Equal(t, PolicyBroadcast, p.Name())

	_, err = PolicyFor("round_robin")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
