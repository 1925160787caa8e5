package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/api"
	"github.com/BaSui01/agentroom/types"
)

// =============================================================================
// Agent Roster Handler
// =============================================================================

// AgentDirectory 在线 Agent 名册，*agent.Directory 实现了它
type AgentDirectory interface {
	Put(spec agent.Spec) (agent.Responder, error)
	Remove(alias string) bool
	Spec(alias string) (agent.Spec, bool)
	List() []agent.Spec
}

// AgentHandler manages the live agent roster.
//
// Agents added here live in memory only. A config reload that lists the same
// alias replaces them; one that drops an alias only removes config-defined agents.
type AgentHandler struct {
	dir    AgentDirectory
	logger *zap.Logger
}

// NewAgentHandler creates an Agent handler
func NewAgentHandler(dir AgentDirectory, logger *zap.Logger) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHandler{dir: dir, logger: logger.With(zap.String("handler", "agent"))}
}

// =============================================================================
// HTTP Handlers
// =============================================================================

// HandleListAgents lists the roster sorted by alias
// @Summary List agents
// @Tags agent
// @Produce json
// @Success 200 {object} Response{data=[]agent.Spec} "Agent list"
// @Security ApiKeyAuth
// @Router /api/v1/agents [get]
func (h *AgentHandler) HandleListAgents(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, h.dir.List())
}

// HandleGetAgent returns one agent spec
// @Summary Get agent
// @Tags agent
// @Produce json
// @Param alias path string true "Agent alias"
// @Success 200 {object} Response{data=agent.Spec} "Agent spec"
// @Failure 404 {object} Response "Agent not found"
// @Security ApiKeyAuth
// @Router /api/v1/agents/{alias} [get]
func (h *AgentHandler) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	alias := r.PathValue("alias")
	spec, ok := h.dir.Spec(alias)
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "agent "+alias+" not found", h.logger)
		return
	}
	WriteSuccess(w, spec)
}

// HandlePutAgent creates or replaces an agent
// @Summary Create or replace agent
// @Tags agent
// @Accept json
// @Produce json
// @Param request body api.PutAgentRequest true "Agent spec"
// @Success 201 {object} Response{data=agent.Spec} "Stored agent"
// @Failure 400 {object} Response "Invalid spec"
// @Security ApiKeyAuth
// @Router /api/v1/agents [post]
func (h *AgentHandler) HandlePutAgent(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var spec api.PutAgentRequest
	if err := DecodeJSONBody(w, r, &spec, h.logger); err != nil {
		return
	}
	spec.Alias = strings.TrimSpace(spec.Alias)
	if err := spec.Validate(); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if _, err := h.dir.Put(spec); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	h.logger.Info("agent stored via API", zap.String("alias", spec.Alias), zap.String("kind", string(spec.Kind)))
	WriteCreated(w, spec)
}

// HandleDeleteAgent removes an agent. Groups keep the alias; it is skipped
// when the group is next loaded.
// @Summary Delete agent
// @Tags agent
// @Param alias path string true "Agent alias"
// @Success 204 "Deleted"
// @Failure 404 {object} Response "Agent not found"
// @Security ApiKeyAuth
// @Router /api/v1/agents/{alias} [delete]
func (h *AgentHandler) HandleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	alias := r.PathValue("alias")
	if !h.dir.Remove(alias) {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "agent "+alias+" not found", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
