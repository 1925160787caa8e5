package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/BaSui01/agentroom/internal/events"
)

// =============================================================================
// 📡 WebSocket 事件流
// =============================================================================

// EventSource 按群组订阅事件，*events.Hub 实现了它
type EventSource interface {
	Subscribe(group string) (*events.Subscription, error)
}

// StreamHandler 把群组事件推送给 WebSocket 客户端
type StreamHandler struct {
	source       EventSource
	groups       RoomService
	origins      []string
	pingInterval time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
}

// StreamOption 配置 StreamHandler
type StreamOption func(*StreamHandler)

// WithOriginPatterns 允许的跨域来源（与 CORS 配置一致），为空时只接受同源
func WithOriginPatterns(origins ...string) StreamOption {
	return func(h *StreamHandler) { h.origins = origins }
}

// WithPingInterval 心跳间隔
func WithPingInterval(d time.Duration) StreamOption {
	return func(h *StreamHandler) { h.pingInterval = d }
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(source EventSource, groups RoomService, logger *zap.Logger, opts ...StreamOption) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &StreamHandler{
		source:       source,
		groups:       groups,
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
		logger:       logger.With(zap.String("handler", "stream")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleStream upgrades to a WebSocket and streams the group's events as JSON
// text frames until the client disconnects or the server shuts down.
// @Summary Group event stream
// @Tags conversation
// @Param name path string true "Group name"
// @Success 101 "Switching protocols"
// @Failure 404 {object} Response "Group not found"
// @Security ApiKeyAuth
// @Router /api/v1/groups/{name}/stream [get]
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("name")
	if _, err := h.groups.GetGroup(r.Context(), group); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	// 先订阅再升级，升级完成前产生的事件不会丢
	sub, err := h.source.Subscribe(group)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	defer sub.Close()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		// Accept 已写出错误响应
		h.logger.Debug("websocket upgrade failed", zap.String("group", group), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// 客户端只读；CloseRead 处理控制帧，客户端断开时取消 ctx
	ctx := conn.CloseRead(context.WithoutCancel(r.Context()))

	h.logger.Info("stream opened", zap.String("group", group))
	err = h.pump(ctx, conn, sub)
	switch {
	case err == nil:
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	case errors.Is(err, context.Canceled), websocket.CloseStatus(err) != -1:
		// 客户端正常断开
	default:
		h.logger.Warn("stream write failed", zap.String("group", group), zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "write failed")
	}
	h.logger.Info("stream closed", zap.String("group", group))
}

// pump 返回 nil 表示订阅被关闭（服务关闭）
func (h *StreamHandler) pump(ctx context.Context, conn *websocket.Conn, sub *events.Subscription) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := h.write(ctx, conn, ev); err != nil {
				return err
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *StreamHandler) write(ctx context.Context, conn *websocket.Conn, ev events.Event) error {
	wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, ev)
}
