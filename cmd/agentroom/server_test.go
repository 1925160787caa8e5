package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/api"
	"github.com/BaSui01/agentroom/config"
)

func testSpec(alias, desc string) agent.Spec {
	return agent.Spec{Alias: alias, Description: desc, Kind: agent.KindChat, LLM: "fake"}
}

// metrics.NewCollector 注册到默认 registry，整个包只启动一次 Server
func TestServer_Lifecycle(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.HTTPPort = 0
	cfg.Server.MetricsPort = 0
	cfg.Server.RateLimitRPS = 0
	cfg.Auth.APIKeys = []string{"k1"}
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"fake": {APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1", Model: "gpt-4o-mini"},
	}
	cfg.Agents = []agent.Spec{testSpec("Bob", "hiker"), testSpec("Carol", "foodie")}

	srv := NewServer(cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Shutdown)

	base := "http://" + srv.httpManager.Addr()
	client := &http.Client{Timeout: 5 * time.Second}

	do := func(method, path, key string, body any) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, err := http.NewRequest(method, base+path, &buf)
		require.NoError(t, err)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("health checks skip auth", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(http.MethodGet, "/health", "", nil).StatusCode)
		assert.Equal(t, http.StatusOK, do(http.MethodGet, "/ready", "", nil).StatusCode)
		resp := do(http.MethodGet, "/version", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("api requires key", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/v1/groups", "", nil).StatusCode)
		assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/v1/groups", "k1", nil).StatusCode)
	})

	t.Run("configured agents are registered", func(t *testing.T) {
		resp := do(http.MethodGet, "/api/v1/agents/carol", "k1", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("group crud", func(t *testing.T) {
		resp := do(http.MethodPost, "/api/v1/groups", "k1", api.CreateGroupRequest{Name: "trip", Agents: []string{"Bob", "Carol"}})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = do(http.MethodGet, "/api/v1/groups/trip", "k1", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = do(http.MethodGet, "/api/v1/groups/missing", "k1", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp = do(http.MethodDelete, "/api/v1/groups/trip", "k1", nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp := do(http.MethodPatch, "/api/v1/groups", "k1", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("roster reload", func(t *testing.T) {
		next := *cfg
		next.Agents = []agent.Spec{testSpec("Bob", "climber"), testSpec("Dave", "driver")}
		srv.applyRoster(cfg, &next)

		spec, ok := srv.directory.Spec("Bob")
		require.True(t, ok)
		assert.Equal(t, "climber", spec.Description)
		_, ok = srv.directory.Get("Carol")
		assert.False(t, ok)
		_, ok = srv.directory.Get("Dave")
		assert.True(t, ok)
	})
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, gormLogLevel("SILENT"))
	assert.Equal(t, gormlogger.Error, gormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, gormLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel(""))
}
