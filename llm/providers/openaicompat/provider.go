// =============================================================================
// agentroom OpenAI-Compatible Provider
// =============================================================================
// One implementation for the OpenAI Chat Completions API and Azure OpenAI
// deployments. Azure differs only in URL layout and the api-key header.
// =============================================================================

package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/agentroom/internal/tlsutil"
	"github.com/BaSui01/agentroom/llm"
	"go.uber.org/zap"
)

// Flavor selects the URL layout and auth header.
type Flavor string

const (
	FlavorOpenAI Flavor = "openai"
	FlavorAzure  Flavor = "azure"
)

const defaultAzureAPIVersion = "2023-03-15-preview"

// Config holds the configuration for an OpenAI-compatible provider.
type Config struct {
	// ProviderName is the unique identifier for this provider (e.g., "openai", "azure-east").
	ProviderName string

	Flavor Flavor

	// APIKey is the authentication key for the provider's API.
	APIKey string

	// BaseURL is the base URL (e.g., "https://api.openai.com" or "https://myres.openai.azure.com").
	BaseURL string

	// DefaultModel is the model to use when none is specified in the request.
	DefaultModel string

	// Deployment and APIVersion are only used by the Azure flavor.
	Deployment string
	APIVersion string

	// Timeout is the HTTP client timeout. Defaults to 30s if zero.
	Timeout time.Duration

	// EndpointPath is the chat completions endpoint path. Defaults to "/v1/chat/completions".
	EndpointPath string

	// ModelsEndpoint is the models list endpoint path. Defaults to "/v1/models".
	ModelsEndpoint string

	// BuildHeaders is an optional function to set custom headers on each request.
	BuildHeaders func(req *http.Request, apiKey string)
}

// Provider talks to an OpenAI-compatible chat completions endpoint.
type Provider struct {
	Cfg    Config
	Client *http.Client
	Logger *zap.Logger
}

// New creates a new OpenAI-compatible provider with the given config.
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.Flavor == "" {
		cfg.Flavor = FlavorOpenAI
	}
	if cfg.BaseURL == "" && cfg.Flavor == FlavorOpenAI {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Flavor == FlavorAzure {
		if cfg.APIVersion == "" {
			cfg.APIVersion = defaultAzureAPIVersion
		}
		if cfg.EndpointPath == "" {
			cfg.EndpointPath = "/openai/deployments/" + url.PathEscape(cfg.Deployment) + "/chat/completions"
		}
		if cfg.ModelsEndpoint == "" {
			cfg.ModelsEndpoint = "/openai/models"
		}
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = "/v1/models"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		Cfg:    cfg,
		Client: tlsutil.SecureHTTPClient(timeout),
		Logger: logger.With(zap.String("component", "llm"), zap.String("provider", cfg.ProviderName)),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.Cfg.ProviderName }

// buildHeaders applies headers to the HTTP request.
func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.Cfg.BuildHeaders != nil {
		p.Cfg.BuildHeaders(req, p.Cfg.APIKey)
		return
	}
	if p.Cfg.Flavor == FlavorAzure {
		req.Header.Set("api-key", p.Cfg.APIKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+p.Cfg.APIKey)
}

// endpoint builds the full URL for a given path.
func (p *Provider) endpoint(path string) string {
	u := strings.TrimRight(p.Cfg.BaseURL, "/") + path
	if p.Cfg.Flavor == FlavorAzure {
		u += "?api-version=" + url.QueryEscape(p.Cfg.APIVersion)
	}
	return u
}

// HealthCheck verifies the provider is reachable.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(p.Cfg.ModelsEndpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.Client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := llm.ReadErrorMessage(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("%s health check failed: status=%d msg=%s", p.Cfg.ProviderName, resp.StatusCode, msg)
	}

	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// Completion performs a non-streaming chat completion.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	model := req.Model
	if model == "" {
		model = p.Cfg.DefaultModel
	}
	body := wireRequest{
		Messages:         toWireMessages(req.Messages),
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		Stop:             req.Stop,
	}
	// Azure 的模型由 deployment 决定
	if p.Cfg.Flavor != FlavorAzure {
		body.Model = model
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.Cfg.EndpointPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	start := time.Now()
	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := llm.ReadErrorMessage(resp.Body)
		p.Logger.Warn("completion failed", zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return nil, llm.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var oaResp wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}

	result := toChatResponse(oaResp, p.Name())
	if oaResp.Created != 0 {
		result.CreatedAt = time.Unix(oaResp.Created, 0)
	}
	p.Logger.Debug("completion done",
		zap.String("model", result.Model),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)),
	)
	return result, nil
}
