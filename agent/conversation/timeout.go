package conversation

import (
	"context"
	"time"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/types"
)

// timeoutResponder bounds every call of the wrapped responder.
type timeoutResponder struct {
	agent.Responder
	d time.Duration
}

// WithResponderTimeout wraps r so each Respond, RolePlay and Ask call gets its
// own deadline. A non-positive d returns r unchanged.
func WithResponderTimeout(r agent.Responder, d time.Duration) agent.Responder {
	if d <= 0 {
		return r
	}
	return timeoutResponder{Responder: r, d: d}
}

func (t timeoutResponder) Respond(ctx context.Context, conv []types.Message, roster []types.Participant) (types.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.Responder.Respond(ctx, conv, roster)
}

func (t timeoutResponder) RolePlay(ctx context.Context, conv []types.Message, roster []types.Participant) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.Responder.RolePlay(ctx, conv, roster)
}

func (t timeoutResponder) Ask(ctx context.Context, candidates, history []types.Message, roster []types.Participant) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.Responder.Ask(ctx, candidates, history, roster)
}
