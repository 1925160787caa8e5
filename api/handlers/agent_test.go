package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/testutil"
	"github.com/BaSui01/agentroom/testutil/fixtures"
	"github.com/BaSui01/agentroom/testutil/mocks"
	"github.com/BaSui01/agentroom/types"
)

// =============================================================================
// 🧪 AgentHandler 测试
// =============================================================================

func newAgentMux(t *testing.T, dir AgentDirectory) *http.ServeMux {
	t.Helper()
	h := NewAgentHandler(dir, zaptest.NewLogger(t))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/agents", h.HandleListAgents)
	mux.HandleFunc("POST /api/v1/agents", h.HandlePutAgent)
	mux.HandleFunc("GET /api/v1/agents/{alias}", h.HandleGetAgent)
	mux.HandleFunc("DELETE /api/v1/agents/{alias}", h.HandleDeleteAgent)
	return mux
}

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestAgentHandler_ListAndGet(t *testing.T) {
	dir := testutil.ScriptedDirectory(t, mocks.NewScriptedResponder("Bob"), mocks.NewScriptedResponder("Alice"))
	mux := newAgentMux(t, dir)

	w := serve(mux, http.MethodGet, "/api/v1/agents", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp, specs := decodeData[[]agent.Spec](t, w)
	assert.True(t, resp.Success)
	require.Len(t, specs, 2)
	assert.Equal(t, "Alice", specs[0].Alias)
	assert.Equal(t, "Bob", specs[1].Alias)

	w = serve(mux, http.MethodGet, "/api/v1/agents/bob", "")
	require.Equal(t, http.StatusOK, w.Code)
	_, spec := decodeData[agent.Spec](t, w)
	assert.Equal(t, "Bob", spec.Alias)

	w = serve(mux, http.MethodGet, "/api/v1/agents/nobody", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp, _ = decodeData[any](t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrNotFound), resp.Error.Code)
}

func TestAgentHandler_PutReplacesAgent(t *testing.T) {
	dir := testutil.ScriptedDirectory(t, mocks.NewScriptedResponder("Alice"))
	mux := newAgentMux(t, dir)

	spec := fixtures.ChatSpec("Alice")
	spec.Description = "travel planner"
	w := serve(mux, http.MethodPost, "/api/v1/agents", testutil.MustJSON(spec))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got, ok := dir.Spec("Alice")
	require.True(t, ok)
	assert.Equal(t, "travel planner", got.Description)
}

func TestAgentHandler_PutTrimsAlias(t *testing.T) {
	dir := testutil.ScriptedDirectory(t, mocks.NewScriptedResponder("Alice"))
	mux := newAgentMux(t, dir)

	spec := fixtures.ChatSpec("  Alice ")
	w := serve(mux, http.MethodPost, "/api/v1/agents", testutil.MustJSON(spec))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	_, stored := decodeData[agent.Spec](t, w)
	assert.Equal(t, "Alice", stored.Alias)
}

func TestAgentHandler_PutRejectsInvalidSpec(t *testing.T) {
	dir := testutil.ScriptedDirectory(t)
	mux := newAgentMux(t, dir)

	reserved := fixtures.ChatSpec("avatar")
	badKind := fixtures.ChatSpec("Dave")
	badKind.Kind = "agent.unknown"

	tests := []struct {
		name     string
		body     string
		wantCode types.ErrorCode
		status   int
	}{
		{name: "reserved alias", body: testutil.MustJSON(reserved), wantCode: types.ErrReservedAlias, status: http.StatusBadRequest},
		{name: "unknown kind", body: testutil.MustJSON(badKind), wantCode: types.ErrInvalidRequest, status: http.StatusBadRequest},
		{name: "missing llm", body: `{"alias":"Dave","kind":"agent.chat"}`, wantCode: types.ErrInvalidRequest, status: http.StatusBadRequest},
		{name: "malformed", body: `{"alias":`, wantCode: types.ErrInvalidRequest, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(mux, http.MethodPost, "/api/v1/agents", tt.body)
			assert.Equal(t, tt.status, w.Code)
			resp, _ := decodeData[any](t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
		})
	}
	assert.Empty(t, dir.List())
}

func TestAgentHandler_Delete(t *testing.T) {
	dir := testutil.ScriptedDirectory(t, mocks.NewScriptedResponder("Alice"))
	mux := newAgentMux(t, dir)

	w := serve(mux, http.MethodDelete, "/api/v1/agents/ALICE", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, ok := dir.Get("Alice")
	assert.False(t, ok)

	w = serve(mux, http.MethodDelete, "/api/v1/agents/Alice", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
