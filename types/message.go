package types

import (
	"time"

	"github.com/google/uuid"
)

// MessageType 消息内容类型标签
type MessageType string

const (
	MessageTypeMarkdown MessageType = "message.markdown"
	MessageTypeZeroshot MessageType = "message.zeroshot"
)

// Message 对话中的一条消息，追加后不可变。
type Message struct {
	ID        string      `json:"id"`
	From      string      `json:"from"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp,omitempty"` // unix 毫秒
	Error     string      `json:"error,omitempty"`
}

// NewMessage creates a markdown message stamped with a fresh ID and the current time.
func NewMessage(from, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		From:      from,
		Type:      MessageTypeMarkdown,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Stamp fills in ID and Timestamp when they are missing.
func (m Message) Stamp() Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp == 0 {
		m.Timestamp = time.Now().UnixMilli()
	}
	if m.Type == "" {
		m.Type = MessageTypeMarkdown
	}
	return m
}

// Failed reports whether the responder attached an error instead of content.
func (m Message) Failed() bool {
	return m.Error != ""
}

// IsFromUser reports whether the message was sent by the user sentinel.
// The alias is reserved in any case, so "avatar" is the user too.
func (m Message) IsFromUser() bool {
	return SameAlias(m.From, UserAlias)
}

// Resent returns a copy of m with a new identity, used when a caller re-submits a message.
func (m Message) Resent() Message {
	m.ID = uuid.NewString()
	m.Timestamp = time.Now().UnixMilli()
	m.Error = ""
	return m
}

// CopyMessages returns a shallow copy of msgs.
func CopyMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// =============================================================================
// 👤 用户占位消息
// =============================================================================

// AskUserMessage 广播模式下提示由用户接话的占位消息
func AskUserMessage() Message {
	return Message{
		From:    UserAlias,
		Type:    MessageTypeMarkdown,
		Content: "// ask Avatar for his response",
	}.Stamp()
}

