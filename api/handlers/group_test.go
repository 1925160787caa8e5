package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/agent/persistence"
	"github.com/BaSui01/agentroom/api"
	"github.com/BaSui01/agentroom/testutil"
	"github.com/BaSui01/agentroom/testutil/mocks"
	"github.com/BaSui01/agentroom/types"
)

// =============================================================================
// 🧪 测试辅助
// =============================================================================

type groupFixture struct {
	mgr *conversation.Manager
	mux *http.ServeMux
}

func newGroupFixture(t *testing.T, opts []conversation.ManagerOption, rs ...*mocks.ScriptedResponder) *groupFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	opts = append([]conversation.ManagerOption{conversation.WithManagerLogger(logger)}, opts...)
	mgr := conversation.NewManager(persistence.NewMemoryGroupStore(), testutil.ScriptedDirectory(t, rs...),
		conversation.DefaultManagerConfig(), opts...)

	h := NewGroupHandler(mgr, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/groups", h.HandleListGroups)
	mux.HandleFunc("POST /api/v1/groups", h.HandleCreateGroup)
	mux.HandleFunc("GET /api/v1/groups/{name}", h.HandleGetGroup)
	mux.HandleFunc("PUT /api/v1/groups/{name}", h.HandleUpdateGroup)
	mux.HandleFunc("DELETE /api/v1/groups/{name}", h.HandleDeleteGroup)
	mux.HandleFunc("POST /api/v1/groups/{name}/messages", h.HandleSendMessage)
	mux.HandleFunc("DELETE /api/v1/groups/{name}/messages/{id}", h.HandleDeleteMessage)
	mux.HandleFunc("POST /api/v1/groups/{name}/messages/{id}/resend", h.HandleResend)
	mux.HandleFunc("POST /api/v1/groups/{name}/step", h.HandleStep)
	mux.HandleFunc("POST /api/v1/groups/{name}/maxvote", h.HandleMaxVote)
	mux.HandleFunc("POST /api/v1/groups/{name}/roleplay", h.HandleRolePlay)
	return &groupFixture{mgr: mgr, mux: mux}
}

func (f *groupFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewBufferString(testutil.MustJSON(body))
	}
	r := httptest.NewRequest(method, path, rd)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)
	return w
}

func (f *groupFixture) createGroup(t *testing.T, name string, agents ...string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/groups", api.CreateGroupRequest{Name: name, Agents: agents})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

// decodeData 解出 Response.Data 到 T
func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) (Response, T) {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	var data T
	if len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, &data))
	}
	return raw.Response, data
}

// =============================================================================
// 🧪 CRUD
// =============================================================================

func TestGroupHandler_CRUD(t *testing.T) {
	f := newGroupFixture(t, nil, mocks.NewScriptedResponder("Alice"), mocks.NewScriptedResponder("Bob"))

	f.createGroup(t, "trip", "Alice", "Bob")

	w := f.do(t, http.MethodGet, "/api/v1/groups/trip", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp, rec := decodeData[types.Group](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"Alice", "Bob"}, rec.Agents)

	w = f.do(t, http.MethodPut, "/api/v1/groups/trip", api.UpdateGroupRequest{Agents: []string{"Bob"}})
	require.Equal(t, http.StatusOK, w.Code)
	_, rec = decodeData[types.Group](t, w)
	assert.Equal(t, []string{"Bob"}, rec.Agents)

	w = f.do(t, http.MethodGet, "/api/v1/groups", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, list := decodeData[[]api.GroupSummary](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "trip", list[0].Name)
	assert.Zero(t, list[0].MessageCount)

	w = f.do(t, http.MethodDelete, "/api/v1/groups/trip", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/groups/trip", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupHandler_CreateErrors(t *testing.T) {
	f := newGroupFixture(t, nil, mocks.NewScriptedResponder("Alice"))
	f.createGroup(t, "trip", "Alice")

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  types.ErrorCode
	}{
		{name: "exists", body: api.CreateGroupRequest{Name: "trip", Agents: []string{"Alice"}}, wantCode: http.StatusConflict, wantErr: types.ErrAlreadyExists},
		{name: "duplicate alias", body: api.CreateGroupRequest{Name: "x", Agents: []string{"Bob", "BOB"}}, wantCode: http.StatusConflict, wantErr: types.ErrDuplicateAlias},
		{name: "reserved alias", body: api.CreateGroupRequest{Name: "x", Agents: []string{"Avatar"}}, wantCode: http.StatusBadRequest, wantErr: types.ErrReservedAlias},
		{name: "missing name", body: map[string]any{"agents": []string{"Alice"}}, wantCode: http.StatusBadRequest, wantErr: types.ErrInvalidRequest},
		{name: "unknown field", body: map[string]any{"name": "x", "color": "red"}, wantCode: http.StatusBadRequest, wantErr: types.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/groups", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			resp, _ := decodeData[any](t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.wantErr), resp.Error.Code)
		})
	}
}

func TestGroupHandler_RequiresJSONContentType(t *testing.T) {
	f := newGroupFixture(t, nil)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/groups", bytes.NewBufferString(`{"name":"x"}`))
	r.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// 🧪 对话动作
// =============================================================================

func TestGroupHandler_SendMessage(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice").WithReply("let's hike")
	f := newGroupFixture(t, nil, alice)
	f.createGroup(t, "trip", "Alice")

	w := f.do(t, http.MethodPost, "/api/v1/groups/trip/messages", api.SendMessageRequest{
		MessageInput: api.MessageInput{Content: "plans?"},
		MaxRounds:    conversation.Rounds(1),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, res := decodeData[conversation.ChatResult](t, w)
	assert.Equal(t, conversation.PolicyTurnTaking, res.Policy)
	assert.Equal(t, conversation.ReasonRoundBudget, res.Reason)
	testutil.AssertSenders(t, []string{types.UserAlias, "Alice"}, res.Messages)
	assert.Equal(t, "let's hike", res.Messages[1].Content)

	rec, err := f.mgr.GetGroup(testutil.TestContext(t), "trip")
	require.NoError(t, err)
	assert.Len(t, rec.Conversation, 2)
}

func TestGroupHandler_SendMessage_ZeroRounds(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice")
	f := newGroupFixture(t, nil, alice)
	f.createGroup(t, "trip", "Alice")

	w := f.do(t, http.MethodPost, "/api/v1/groups/trip/messages", api.SendMessageRequest{
		MessageInput: api.MessageInput{Content: "just a note"},
		MaxRounds:    conversation.Rounds(0),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, res := decodeData[conversation.ChatResult](t, w)
	assert.Equal(t, 0, res.Rounds)
	testutil.AssertSenders(t, []string{types.UserAlias}, res.Messages)
	assert.Zero(t, alice.RolePlayCalls())
}

func TestGroupHandler_SendMessage_Validation(t *testing.T) {
	f := newGroupFixture(t, nil, mocks.NewScriptedResponder("Alice"))
	f.createGroup(t, "trip", "Alice")

	tests := []struct {
		name string
		body any
		path string
		code int
	}{
		{name: "empty content", body: map[string]any{"content": ""}, path: "/api/v1/groups/trip/messages", code: http.StatusBadRequest},
		{name: "bad policy", body: map[string]any{"content": "hi", "policy": "chaos"}, path: "/api/v1/groups/trip/messages", code: http.StatusBadRequest},
		{name: "negative rounds", body: map[string]any{"content": "hi", "max_rounds": -1}, path: "/api/v1/groups/trip/messages", code: http.StatusBadRequest},
		{name: "rounds too large", body: map[string]any{"content": "hi", "max_rounds": 1000}, path: "/api/v1/groups/trip/messages", code: http.StatusBadRequest},
		{name: "missing group", body: map[string]any{"content": "hi"}, path: "/api/v1/groups/none/messages", code: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestGroupHandler_Step(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice").WithReply("a")
	bob := mocks.NewScriptedResponder("Bob").WithReply("b")
	f := newGroupFixture(t, nil, alice, bob)
	f.createGroup(t, "trip", "Alice", "Bob")

	w := f.do(t, http.MethodPost, "/api/v1/groups/trip/step", api.StepRequest{MessageInput: api.MessageInput{Content: "go"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, res := decodeData[api.StepResponse](t, w)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, testutil.Senders(res.Replies))

	// 回复不写入对话，只有用户消息
	rec, err := f.mgr.GetGroup(testutil.TestContext(t), "trip")
	require.NoError(t, err)
	testutil.AssertSenders(t, []string{types.UserAlias}, rec.Conversation)
}

func TestGroupHandler_MaxVote(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice").WithAskVote(1)
	bob := mocks.NewScriptedResponder("Bob").WithAskVote(1)
	f := newGroupFixture(t, nil, alice, bob)
	f.createGroup(t, "trip", "Alice", "Bob")

	candidates := []types.Message{
		types.NewMessage("Alice", "beach"),
		types.NewMessage("Bob", "mountains"),
	}
	w := f.do(t, http.MethodPost, "/api/v1/groups/trip/maxvote", api.MaxVoteRequest{Candidates: candidates})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, res := decodeData[api.MaxVoteResponse](t, w)
	assert.Equal(t, "Bob", res.Winner.From)
	assert.Equal(t, "mountains", res.Winner.Content)

	w = f.do(t, http.MethodPost, "/api/v1/groups/trip/maxvote", api.MaxVoteRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp, _ := decodeData[any](t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrNoCandidates), resp.Error.Code)
}

func TestGroupHandler_RolePlay(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Bob")
	bob := mocks.NewScriptedResponder("Bob").WithVoteFor("Bob")
	f := newGroupFixture(t, nil, alice, bob)
	f.createGroup(t, "trip", "Alice", "Bob")

	w := f.do(t, http.MethodPost, "/api/v1/groups/trip/roleplay", api.RolePlayRequest{MessageInput: api.MessageInput{Content: "who's next?"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, res := decodeData[api.RolePlayResponse](t, w)
	assert.Equal(t, "Bob", res.Speaker.Alias)
	assert.False(t, res.IsUser)
}

func TestGroupHandler_DeleteAndResendMessage(t *testing.T) {
	alice := mocks.NewScriptedResponder("Alice").WithVoteFor("Alice")
	f := newGroupFixture(t, nil, alice)
	f.createGroup(t, "trip", "Alice")

	w := f.do(t, http.MethodPost, "/api/v1/groups/trip/messages", api.SendMessageRequest{
		MessageInput: api.MessageInput{Content: "first"},
		MaxRounds:    conversation.Rounds(1),
	})
	require.Equal(t, http.StatusOK, w.Code)
	_, res := decodeData[conversation.ChatResult](t, w)
	require.Len(t, res.Messages, 2)
	userID, replyID := res.Messages[0].ID, res.Messages[1].ID

	// 无请求体的 resend 使用默认选项
	r := httptest.NewRequest(http.MethodPost, "/api/v1/groups/trip/messages/"+userID+"/resend", nil)
	rw := httptest.NewRecorder()
	f.mux.ServeHTTP(rw, r)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	_, res = decodeData[conversation.ChatResult](t, rw)
	require.NotEmpty(t, res.Appended)
	assert.Equal(t, "first", res.Appended[0].Content)
	assert.NotEqual(t, userID, res.Appended[0].ID)

	w = f.do(t, http.MethodDelete, "/api/v1/groups/trip/messages/"+replyID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, rec := decodeData[types.Group](t, w)
	for _, m := range rec.Conversation {
		assert.NotEqual(t, replyID, m.ID)
	}
	testutil.AssertUniqueIDs(t, rec.Conversation)

	w = f.do(t, http.MethodDelete, "/api/v1/groups/trip/messages/"+replyID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/groups/trip/messages/nope/resend", conversation.SendOptions{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
