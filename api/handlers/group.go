package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/api"
	"github.com/BaSui01/agentroom/types"
)

// =============================================================================
// 💬 群组与对话 Handler
// =============================================================================

// RoomService 群组服务层，*conversation.Manager 实现了它
type RoomService interface {
	CreateGroup(ctx context.Context, name string, agents []string) (types.Group, error)
	GetGroup(ctx context.Context, name string) (types.Group, error)
	ListGroups(ctx context.Context) ([]types.Group, error)
	UpdateGroupAgents(ctx context.Context, name string, agents []string) (types.Group, error)
	DeleteGroup(ctx context.Context, name string) error

	Send(ctx context.Context, name string, msg types.Message, opts conversation.SendOptions) (*conversation.ChatResult, error)
	Step(ctx context.Context, name string, msg types.Message) ([]types.Message, error)
	MaxVote(ctx context.Context, name string, candidates []types.Message) (types.Message, error)
	RolePlay(ctx context.Context, name string, msg types.Message) (types.Participant, error)
	DeleteMessage(ctx context.Context, name, id string) (types.Group, error)
	Resend(ctx context.Context, name, id string, opts conversation.SendOptions) (*conversation.ChatResult, error)
}

var _ RoomService = (*conversation.Manager)(nil)

// GroupHandler 群组 CRUD 与对话动作
type GroupHandler struct {
	svc    RoomService
	logger *zap.Logger
}

// NewGroupHandler creates a group handler
func NewGroupHandler(svc RoomService, logger *zap.Logger) *GroupHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupHandler{svc: svc, logger: logger.With(zap.String("handler", "group"))}
}

// =============================================================================
// 📁 CRUD
// =============================================================================

// HandleListGroups lists every group
// @Summary List groups
// @Tags group
// @Produce json
// @Success 200 {object} Response{data=[]api.GroupSummary}
// @Security ApiKeyAuth
// @Router /api/v1/groups [get]
func (h *GroupHandler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroups(r.Context())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	out := make([]api.GroupSummary, len(groups))
	for i, g := range groups {
		out[i] = api.NewGroupSummary(g)
	}
	WriteSuccess(w, out)
}

// HandleCreateGroup creates an empty group
// @Summary Create group
// @Tags group
// @Accept json
// @Produce json
// @Param request body api.CreateGroupRequest true "Group"
// @Success 201 {object} Response{data=types.Group}
// @Failure 409 {object} Response "Group exists or duplicate alias"
// @Security ApiKeyAuth
// @Router /api/v1/groups [post]
func (h *GroupHandler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req api.CreateGroupRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.svc.CreateGroup(r.Context(), req.Name, req.Agents)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteCreated(w, rec)
}

// HandleGetGroup returns the group with its full conversation
// @Summary Get group
// @Tags group
// @Produce json
// @Param name path string true "Group name"
// @Success 200 {object} Response{data=types.Group}
// @Failure 404 {object} Response "Group not found"
// @Security ApiKeyAuth
// @Router /api/v1/groups/{name} [get]
func (h *GroupHandler) HandleGetGroup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetGroup(r.Context(), r.PathValue("name"))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, rec)
}

// HandleUpdateGroup replaces the group's agent list
// @Summary Update group agents
// @Tags group
// @Accept json
// @Produce json
// @Param name path string true "Group name"
// @Param request body api.UpdateGroupRequest true "Agents"
// @Success 200 {object} Response{data=types.Group}
// @Security ApiKeyAuth
// @Router /api/v1/groups/{name} [put]
func (h *GroupHandler) HandleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateGroupRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.svc.UpdateGroupAgents(r.Context(), r.PathValue("name"), req.Agents)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, rec)
}

// HandleDeleteGroup deletes a group and its conversation
// @Summary Delete group
// @Tags group
// @Param name path string true "Group name"
// @Success 204 "Deleted"
// @Security ApiKeyAuth
// @Router /api/v1/groups/{name} [delete]
func (h *GroupHandler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteGroup(r.Context(), r.PathValue("name")); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// 🎯 对话动作
// =============================================================================

// HandleSendMessage runs one policy-driven exchange
// @Summary Send message
// @Description Appends the message and lets the orchestration policy run until the user's turn or max_rounds.
// @Tags conversation
// @Accept json
// @Produce json
// @Param name path string true "Group name"
// @Param request body api.SendMessageRequest true "Message"
// @Success 200 {object} Response{data=conversation.ChatResult}
// @Security ApiKeyAuth
// @Router /api/v1/groups/{name}/messages [post]
func (h *GroupHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req api.SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Send(r.Context(), r.PathValue("name"), req.ToMessage(), req.Options())
	h.writeChatResult(w, res, err)
}

// HandleDeleteMessage splices a message out of the conversation
// @Summary Delete message
// @Tags conversation
// @Param name path string true "Group name"
// @Param id path string true "Message ID"
// @Success 200 {object} Response{data=types.Group}
// @Security ApiKeyAuth
// @Router /api/v1/groups/{name}/messages/{id} [delete]
func (h *GroupHandler) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.DeleteMessage(r.Context(), r.PathValue("name"), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, rec)
}

// HandleResend re-submits a message as a new turn
// @Summary Resend message
// @Tags conversation
// @Accept json
// @Produce json
// @Param name path string true "Group name"
// @Param id path string true "Message ID"
// @Param request body api.ResendRequest false "Options"
// @Success 200 {object} Response{data=conversation.ChatResult}
// @Security ApiKeyAuth
// @Router /api/v1/groups/{name}/messages/{id}/resend [post]
func (h *GroupHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	var req api.ResendRequest
	// 请求体可选
	if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
		if !h.decode(w, r, &req) {
			return
		}
	}
	opts := conversation.SendOptions{Policy: req.Policy, MaxRounds: req.MaxRounds}
	res, err := h.svc.Resend(r.Context(), r.PathValue("name"), r.PathValue("id"), opts)
	h.writeChatResult(w, res, err)
}

// HandleStep appends a message and returns the concurrent replies
// @Summary Step
// @Description Replies come back in random order and are not appended.
// @Tags conversation
// @Accept json
// @Produce json
// @Param name path string true "Group name"
// @Param request body api.StepRequest true "Message"
// @Success 200 {object} Response{data=api.StepResponse}
// @Security ApiKeyAuth
// @Router /api/v1/groups/{name}/step [post]
func (h *GroupHandler) HandleStep(w http.ResponseWriter, r *http.Request) {
	var req api.StepRequest
	if !h.decode(w, r, &req) {
		return
	}
	replies, err := h.svc.Step(r.Context(), r.PathValue("name"), req.ToMessage())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.StepResponse{Replies: replies})
}

// HandleMaxVote lets the group's agents vote for one candidate
// @Summary Max vote
// @Tags conversation
// @Accept json
// @Produce json
// @Param name path string true "Group name"
// @Param request body api.MaxVoteRequest true "Candidates"
// @Success 200 {object} Response{data=api.MaxVoteResponse}
// @Failure 422 {object} Response "No candidates"
// @Security ApiKeyAuth
// @Router /api/v1/groups/{name}/maxvote [post]
func (h *GroupHandler) HandleMaxVote(w http.ResponseWriter, r *http.Request) {
	var req api.MaxVoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	for i := range req.Candidates {
		req.Candidates[i] = req.Candidates[i].Stamp()
	}
	winner, err := h.svc.MaxVote(r.Context(), r.PathValue("name"), req.Candidates)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.MaxVoteResponse{Winner: winner})
}

// HandleRolePlay appends a message and arbitrates the next speaker
// @Summary Role play
// @Tags conversation
// @Accept json
// @Produce json
// @Param name path string true "Group name"
// @Param request body api.RolePlayRequest true "Message"
// @Success 200 {object} Response{data=api.RolePlayResponse}
// @Security ApiKeyAuth
// @Router /api/v1/groups/{name}/roleplay [post]
func (h *GroupHandler) HandleRolePlay(w http.ResponseWriter, r *http.Request) {
	var req api.RolePlayRequest
	if !h.decode(w, r, &req) {
		return
	}
	speaker, err := h.svc.RolePlay(r.Context(), r.PathValue("name"), req.ToMessage())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.RolePlayResponse{Speaker: speaker, IsUser: speaker.IsUser()})
}

// =============================================================================
// 🔧 辅助方法
// =============================================================================

func (h *GroupHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !ValidateContentType(w, r, h.logger) {
		return false
	}
	return DecodeJSONBody(w, r, dst, h.logger) == nil
}

// writeChatResult 取消时保存的部分结果仍然返回，连同错误信息
func (h *GroupHandler) writeChatResult(w http.ResponseWriter, res *conversation.ChatResult, err error) {
	if err == nil {
		WriteSuccess(w, res)
		return
	}
	apiErr := ToAPIError(err)
	if res == nil || apiErr.Code != types.ErrCancelled {
		WriteError(w, apiErr, h.logger)
		return
	}
	status := apiErr.HTTPStatus
	WriteJSON(w, status, Response{
		Success: false,
		Data:    res,
		Error: &ErrorInfo{
			Code:       string(apiErr.Code),
			Message:    apiErr.Message,
			HTTPStatus: status,
		},
		Timestamp: time.Now(),
		RequestID: w.Header().Get("X-Request-ID"),
	})
}
