package conversation

import (
	"sync"

	"github.com/BaSui01/agentroom/types"
)

// Conversation 有序、仅追加的消息序列。
type Conversation struct {
	mu       sync.RWMutex
	messages []types.Message
}

// NewConversation creates a conversation seeded with history.
func NewConversation(history []types.Message) *Conversation {
	return &Conversation{messages: types.CopyMessages(history)}
}

// Append stamps msg and appends it. The stored message is returned.
func (c *Conversation) Append(msg types.Message) types.Message {
	msg = msg.Stamp()
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return msg
}

// Messages returns a snapshot of the conversation.
func (c *Conversation) Messages() []types.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.CopyMessages(c.messages)
}
