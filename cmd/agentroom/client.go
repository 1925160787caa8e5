package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/api"
	"github.com/BaSui01/agentroom/api/handlers"
	"github.com/BaSui01/agentroom/internal/tlsutil"
	"github.com/BaSui01/agentroom/types"
)

// =============================================================================
// 🌐 API 客户端（groups / agents / chat 命令使用）
// =============================================================================

// apiClient 调用运行中的 agentroom 服务
type apiClient struct {
	base   string
	apiKey string
	http   *http.Client
}

func newAPIClient(opts *globalOptions) *apiClient {
	return &apiClient{
		base:   strings.TrimRight(opts.addr, "/"),
		apiKey: opts.apiKey,
		http:   tlsutil.SecureHTTPClient(opts.timeout),
	}
}

// envelope 与 handlers.Response 相同，data 延迟解码
type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data,omitempty"`
	Error   *handlers.ErrorInfo `json:"error,omitempty"`
}

// apiError 服务端返回的错误
type apiError struct {
	Status  int
	Code    string
	Message string
	// Partial 取消时服务端附带的部分结果
	Partial json.RawMessage
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{Status: resp.StatusCode, Code: "UNKNOWN", Message: http.StatusText(resp.StatusCode), Partial: env.Data}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func groupPath(name string, rest ...string) string {
	p := "/api/v1/groups/" + url.PathEscape(name)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// ListGroups GET /api/v1/groups
func (c *apiClient) ListGroups(ctx context.Context) ([]api.GroupSummary, error) {
	var out []api.GroupSummary
	return out, c.do(ctx, http.MethodGet, "/api/v1/groups", nil, &out)
}

// GetGroup GET /api/v1/groups/{name}
func (c *apiClient) GetGroup(ctx context.Context, name string) (types.Group, error) {
	var out types.Group
	return out, c.do(ctx, http.MethodGet, groupPath(name), nil, &out)
}

// CreateGroup POST /api/v1/groups
func (c *apiClient) CreateGroup(ctx context.Context, name string, agents []string) (types.Group, error) {
	var out types.Group
	return out, c.do(ctx, http.MethodPost, "/api/v1/groups", api.CreateGroupRequest{Name: name, Agents: agents}, &out)
}

// Send POST /api/v1/groups/{name}/messages
func (c *apiClient) Send(ctx context.Context, name string, req api.SendMessageRequest) (*conversation.ChatResult, error) {
	var out conversation.ChatResult
	if err := c.do(ctx, http.MethodPost, groupPath(name, "messages"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAgents GET /api/v1/agents
func (c *apiClient) ListAgents(ctx context.Context) ([]agent.Spec, error) {
	var out []agent.Spec
	return out, c.do(ctx, http.MethodGet, "/api/v1/agents", nil, &out)
}
