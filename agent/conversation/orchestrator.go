package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// State 编排状态机
type State string

const (
	StateIdle            State = "idle"
	StateArbitrating     State = "arbitrating"
	StateAgentResponding State = "agent_responding"
	StateTerminated      State = "terminated"
)

// TerminationReason 对话结束原因
type TerminationReason string

const (
	ReasonUserSelected    TerminationReason = "user_selected"
	ReasonRoundBudget     TerminationReason = "round_budget"
	ReasonResponderFailed TerminationReason = "responder_failed"
	ReasonCancelled       TerminationReason = "cancelled"
)

// ChatResult contains the outcome of one orchestrated send.
type ChatResult struct {
	Group    string            `json:"group"`
	Policy   PolicyName        `json:"policy"`
	Messages []types.Message   `json:"messages"`
	Appended []types.Message   `json:"appended"`
	Rounds   int               `json:"rounds"`
	State    State             `json:"state"`
	Reason   TerminationReason `json:"reason"`
	// Transitions 记录本次调用经过的状态，首项总是 idle
	Transitions []State   `json:"transitions"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// run tracks one call through the state machine.
type run struct {
	g      *Group
	result *ChatResult
}

func (g *Group) newRun(policy PolicyName) *run {
	return &run{g: g, result: &ChatResult{
		Group:       g.name,
		Policy:      policy,
		State:       StateIdle,
		Transitions: []State{StateIdle},
		StartTime:   time.Now(),
	}}
}

func (r *run) to(s State) {
	r.result.State = s
	r.result.Transitions = append(r.result.Transitions, s)
}

func (r *run) appendMsg(msg types.Message) types.Message {
	stored := r.g.append(msg)
	r.result.Appended = append(r.result.Appended, stored)
	return stored
}

func (r *run) terminate(reason TerminationReason) *ChatResult {
	r.to(StateTerminated)
	r.result.Reason = reason
	r.result.EndTime = time.Now()
	r.result.Messages = r.g.conv.Messages()
	r.g.logger.Info("chat finished",
		zap.String("policy", string(r.result.Policy)),
		zap.String("reason", string(reason)),
		zap.Int("rounds", r.result.Rounds),
	)
	r.g.observer.ChatFinished(r.g.name, r.result)
	return r.result
}

// finish closes the span and maps cancellation to ctx.Err().
func finish(ctx context.Context, span trace.Span, res *ChatResult) (*ChatResult, error) {
	defer span.End()
	span.SetAttributes(
		attribute.Int("rounds", res.Rounds),
		attribute.String("reason", string(res.Reason)),
	)
	if res.Reason == ReasonCancelled {
		err := ctx.Err()
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return res, err
	}
	return res, nil
}

// =============================================================================
// 🎯 Group Orchestrator
// =============================================================================

// Chat appends seed and alternates arbitration and agent replies until the
// user is selected or maxRounds agent replies have been appended.
// A failing responder ends the chat without appending anything.
// When ctx is cancelled between rounds the partial result is returned
// together with ctx.Err().
func (g *Group) Chat(ctx context.Context, seed types.Message, maxRounds int) (*ChatResult, error) {
	ctx, span := g.tracer.Start(ctx, "conversation.Chat",
		trace.WithAttributes(attribute.String("group", g.name), attribute.Int("max_rounds", maxRounds)))

	r := g.newRun(PolicyTurnTaking)
	r.appendMsg(seed)

	for {
		if r.result.Rounds >= maxRounds {
			return finish(ctx, span, r.terminate(ReasonRoundBudget))
		}
		if ctx.Err() != nil {
			return finish(ctx, span, r.terminate(ReasonCancelled))
		}

		r.to(StateArbitrating)
		winner := g.arbitrate(ctx)
		if winner.IsUser() {
			return finish(ctx, span, r.terminate(ReasonUserSelected))
		}

		r.to(StateAgentResponding)
		responder := g.find(winner.Alias)
		reply, err := g.respond(ctx, responder, g.conv.Messages())
		if err != nil {
			return finish(ctx, span, r.terminate(ReasonResponderFailed))
		}
		r.appendMsg(reply)
		r.result.Rounds++
	}
}

func (g *Group) find(alias string) agent.Responder {
	for _, a := range g.agents {
		if a.Participant().Alias == alias {
			return a
		}
	}
	return nil
}

// respond invokes one responder. A returned error or a reply carrying an
// Error is a failure; it is logged and reported to the observer.
func (g *Group) respond(ctx context.Context, a agent.Responder, conv []types.Message) (types.Message, error) {
	if a == nil {
		return types.Message{}, fmt.Errorf("%w: responder missing", agent.ErrAgentNotFound)
	}
	alias := a.Participant().Alias
	reply, err := safeCall(alias, func() (types.Message, error) {
		return a.Respond(ctx, conv, agent.Participants(g.agents))
	})
	if err == nil && reply.Failed() {
		err = fmt.Errorf("responder %s: %s", alias, reply.Error)
	}
	if err != nil {
		g.logger.Warn("responder failed", zap.String("agent", alias), zap.Error(err))
		g.observer.ResponderFailed(g.name, alias, PhaseRespond, err)
		return types.Message{}, err
	}
	reply.From = alias
	return reply.Stamp(), nil
}

// safeCall runs one responder call, converting a panic into ErrResponderPanicked.
func safeCall[T any](alias string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, err = zero, fmt.Errorf("%w: %s: %v", ErrResponderPanicked, alias, r)
		}
	}()
	return fn()
}
