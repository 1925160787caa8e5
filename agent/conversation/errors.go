package conversation

import "errors"

var (
	// ErrDuplicateAlias 同一群组内 alias 重复（大小写不敏感）
	ErrDuplicateAlias = errors.New("duplicate agent alias")

	// ErrReservedAlias Agent 使用了用户保留名
	ErrReservedAlias = errors.New("alias is reserved for the user")

	// ErrNoCandidates MaxVote 没有候选消息
	ErrNoCandidates = errors.New("no candidate messages")

	// ErrGroupNotFound 群组不存在
	ErrGroupNotFound = errors.New("group not found")

	// ErrGroupExists 群组已存在
	ErrGroupExists = errors.New("group already exists")

	// ErrMessageNotFound 消息不存在
	ErrMessageNotFound = errors.New("message not found")

	// ErrUnknownPolicy 未知的编排策略
	ErrUnknownPolicy = errors.New("unknown orchestration policy")

	// ErrResponderPanicked Agent 调用发生 panic，按失败处理
	ErrResponderPanicked = errors.New("responder panicked")

	// ErrInvalidGroupName 群组名为空
	ErrInvalidGroupName = errors.New("group name is required")
)
