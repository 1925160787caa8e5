package agent

import "errors"

var (
	// ErrInvalidSpec Agent 配置无效
	ErrInvalidSpec = errors.New("invalid agent spec")

	// ErrReservedAlias 使用了用户保留名
	ErrReservedAlias = errors.New("alias is reserved for the user")

	// ErrUnknownKind 未注册的 Agent 类型
	ErrUnknownKind = errors.New("agent kind not registered")

	// ErrProviderNotSet LLM Provider 未配置
	ErrProviderNotSet = errors.New("llm provider not set")

	// ErrAgentNotFound Agent 不存在
	ErrAgentNotFound = errors.New("agent not found")
)
