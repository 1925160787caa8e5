package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/agent/persistence"
	"github.com/BaSui01/agentroom/llm"
	"github.com/BaSui01/agentroom/types"
)

// StatusClientClosedRequest 客户端在处理完成前断开（nginx 约定）
const StatusClientClosedRequest = 499

// =============================================================================
// 📦 通用响应结构
// =============================================================================

// Response 统一 API 响应结构
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
	HTTPStatus int    `json:"-"` // 不序列化到 JSON
}

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 头已写出，编码失败无法再改状态码
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess 写入成功响应
func WriteSuccess(w http.ResponseWriter, data any) {
	writeData(w, http.StatusOK, data)
}

// WriteCreated 写入 201 响应
func WriteCreated(w http.ResponseWriter, data any) {
	writeData(w, http.StatusCreated, data)
}

func writeData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: w.Header().Get("X-Request-ID"),
	})
}

// WriteError 写入错误响应（从 types.Error）
func WriteError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	status := err.HTTPStatus
	if status == 0 {
		status = mapErrorCodeToHTTPStatus(err.Code)
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
			zap.Bool("retryable", err.Retryable),
		}
		if err.Cause != nil {
			fields = append(fields, zap.Error(err.Cause))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("API error", fields...)
		} else {
			logger.Debug("API error", fields...)
		}
	}

	info := &ErrorInfo{
		Code:       string(err.Code),
		Message:    err.Message,
		Retryable:  err.Retryable,
		HTTPStatus: status,
	}
	if err.Cause != nil && status < http.StatusInternalServerError {
		info.Details = err.Cause.Error()
	}

	WriteJSON(w, status, Response{
		Success:   false,
		Error:     info,
		Timestamp: time.Now(),
		RequestID: w.Header().Get("X-Request-ID"),
	})
}

// WriteErrorMessage 写入简单错误消息
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message).WithHTTPStatus(status), logger)
}

// WriteServiceError 把服务层错误映射为 API 错误后写出
func WriteServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	WriteError(w, ToAPIError(err), logger)
}

// =============================================================================
// 🔄 错误映射
// =============================================================================

// ToAPIError maps service-layer errors onto API error codes.
func ToAPIError(err error) *types.Error {
	if apiErr, ok := types.AsError(err); ok {
		return apiErr
	}

	var llmErr *llm.Error
	switch {
	case errors.Is(err, conversation.ErrGroupNotFound),
		errors.Is(err, conversation.ErrMessageNotFound),
		errors.Is(err, agent.ErrAgentNotFound),
		errors.Is(err, persistence.ErrNotFound):
		return types.NewError(types.ErrNotFound, err.Error()).WithCause(err)

	case errors.Is(err, conversation.ErrGroupExists),
		errors.Is(err, persistence.ErrAlreadyExists):
		return types.NewError(types.ErrAlreadyExists, err.Error()).WithCause(err)

	case errors.Is(err, conversation.ErrDuplicateAlias):
		return types.NewError(types.ErrDuplicateAlias, err.Error()).WithCause(err)

	case errors.Is(err, conversation.ErrReservedAlias), errors.Is(err, agent.ErrReservedAlias):
		return types.NewError(types.ErrReservedAlias, err.Error()).WithCause(err)

	case errors.Is(err, conversation.ErrNoCandidates):
		return types.NewError(types.ErrNoCandidates, err.Error()).WithCause(err)

	case errors.Is(err, conversation.ErrUnknownPolicy),
		errors.Is(err, conversation.ErrInvalidGroupName),
		errors.Is(err, agent.ErrInvalidSpec),
		errors.Is(err, agent.ErrUnknownKind),
		errors.Is(err, persistence.ErrInvalidInput):
		return types.NewError(types.ErrInvalidRequest, err.Error()).WithCause(err)

	case errors.Is(err, agent.ErrProviderNotSet), errors.Is(err, persistence.ErrStoreClosed):
		return types.NewError(types.ErrServiceUnavailable, "service unavailable").WithCause(err).WithRetryable(true)

	case errors.Is(err, context.Canceled):
		return types.NewError(types.ErrCancelled, "request cancelled").WithCause(err).WithHTTPStatus(StatusClientClosedRequest)

	case errors.Is(err, context.DeadlineExceeded):
		return types.NewError(types.ErrTimeout, "request timed out").WithCause(err).WithRetryable(true)

	case errors.As(err, &llmErr):
		return types.NewError(types.ErrUpstreamError, llmErr.Message).WithCause(err).WithRetryable(llmErr.Retryable)

	default:
		return types.NewError(types.ErrInternalError, "internal server error").WithCause(err)
	}
}

func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	// 4xx 客户端错误
	case types.ErrInvalidRequest, types.ErrReservedAlias:
		return http.StatusBadRequest
	case types.ErrUnauthorized:
		return http.StatusUnauthorized
	case types.ErrForbidden:
		return http.StatusForbidden
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrAlreadyExists, types.ErrDuplicateAlias:
		return http.StatusConflict
	case types.ErrNoCandidates:
		return http.StatusUnprocessableEntity
	case types.ErrRateLimited:
		return http.StatusTooManyRequests
	case types.ErrCancelled:
		return StatusClientClosedRequest

	// 5xx 服务端错误
	case types.ErrTimeout:
		return http.StatusGatewayTimeout
	case types.ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case types.ErrUpstreamError, types.ErrResponderFailure:
		return http.StatusBadGateway
	case types.ErrInternalError:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// 🛡️ 请求验证辅助函数
// =============================================================================

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// DecodeJSONBody 解码并校验 JSON 请求体，失败时已写出 400 响应
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	if r.Body == nil || r.Body == http.NoBody {
		err := types.NewError(types.ErrInvalidRequest, "request body is empty")
		WriteError(w, err, logger)
		return err
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields() // 严格模式：拒绝未知字段

	if err := decoder.Decode(dst); err != nil {
		msg := "invalid JSON body"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			msg = "request body too large"
		} else if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		apiErr := types.NewError(types.ErrInvalidRequest, msg).WithCause(err)
		WriteError(w, apiErr, logger)
		return apiErr
	}

	if err := requestValidator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+" failed "+fe.Tag())
			}
			err = errors.New(strings.Join(fields, "; "))
		}
		apiErr := types.NewError(types.ErrInvalidRequest, "request validation failed").WithCause(err)
		WriteError(w, apiErr, logger)
		return apiErr
	}
	return nil
}

// ValidateContentType 验证 Content-Type
func ValidateContentType(w http.ResponseWriter, r *http.Request, logger *zap.Logger) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && contentType != "application/json; charset=utf-8" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "Content-Type must be application/json"), logger)
		return false
	}
	return true
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码。
// 实现 Flusher 与 Hijacker，WebSocket 升级可以穿过中间件。
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode   int
	Written      bool
	BytesWritten int64
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.BytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher.
func (rw *ResponseWriter) Flush() {
	_ = http.NewResponseController(rw.ResponseWriter).Flush()
}

// Hijack implements http.Hijacker. A hijacked connection reports 101.
func (rw *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, buf, err := http.NewResponseController(rw.ResponseWriter).Hijack()
	if err == nil && !rw.Written {
		rw.StatusCode = http.StatusSwitchingProtocols
		rw.Written = true
	}
	return conn, buf, err
}

// Unwrap 供 http.ResponseController 访问底层 writer
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
