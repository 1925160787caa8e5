package events

import (
	"context"
	"time"

	"github.com/BaSui01/agentroom/agent/conversation"
	"github.com/BaSui01/agentroom/types"
	"go.uber.org/zap"
)

// Observer 把 conversation 的回调转成事件发布。
// 发布失败只记录日志，不影响编排。
type Observer struct {
	pub     Publisher
	timeout time.Duration
	logger  *zap.Logger
}

var _ conversation.Observer = (*Observer)(nil)

// NewObserver creates an observer publishing through pub. Each publish gets
// its own timeout so a slow broker cannot stall a conversation indefinitely.
func NewObserver(pub Publisher, timeout time.Duration, logger *zap.Logger) *Observer {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{pub: pub, timeout: timeout, logger: logger.With(zap.String("component", "event_observer"))}
}

func (o *Observer) publish(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	if err := o.pub.Publish(ctx, ev); err != nil {
		o.logger.Warn("event dropped",
			zap.String("group", ev.Group),
			zap.String("type", string(ev.Type)),
			zap.Error(err))
	}
}

func (o *Observer) MessageAppended(group string, msg types.Message) {
	ev := New(TypeMessageAppended, group)
	ev.Message = &msg
	o.publish(ev)
}

// VoteCast is not published; votes are only counted by metrics.
func (o *Observer) VoteCast(string, conversation.Vote) {}

func (o *Observer) ResponderFailed(group, alias string, phase conversation.Phase, err error) {
	ev := New(TypeResponderFailed, group)
	ev.Agent = alias
	ev.Phase = string(phase)
	if err != nil {
		ev.Error = err.Error()
	}
	o.publish(ev)
}

func (o *Observer) ChatFinished(group string, res *conversation.ChatResult) {
	ev := New(TypeChatFinished, group)
	if res != nil {
		ev.Policy = string(res.Policy)
		ev.Reason = string(res.Reason)
		ev.Rounds = res.Rounds
	}
	o.publish(ev)
}
