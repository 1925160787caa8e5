package events

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/agentroom/types"
	"github.com/google/uuid"
)

// Type 事件类型
type Type string

const (
	TypeMessageAppended Type = "message.appended"
	TypeResponderFailed Type = "responder.failed"
	TypeChatFinished    Type = "chat.finished"
)

// ErrPublisherClosed 发布器已关闭
var ErrPublisherClosed = errors.New("publisher closed")

// Event 群聊事件
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Group     string         `json:"group"`
	Message   *types.Message `json:"message,omitempty"`
	Agent     string         `json:"agent,omitempty"`
	Phase     string         `json:"phase,omitempty"`
	Error     string         `json:"error,omitempty"`
	Policy    string         `json:"policy,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Rounds    int            `json:"rounds,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// New creates an event of type t for group with a fresh id.
func New(t Type, group string) Event {
	return Event{ID: uuid.NewString(), Type: t, Group: group, Timestamp: time.Now().UTC()}
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
