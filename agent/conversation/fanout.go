package conversation

import (
	"context"
	"fmt"

	"github.com/BaSui01/agentroom/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🎯 Fan-out
// =============================================================================

// Step appends msg and collects one reply from every agent except the
// sender, concurrently. Failed responders are dropped. When the sender is
// not the user an ASK_USER placeholder joins the candidates. The result is
// shuffled and is not appended to the conversation.
func (g *Group) Step(ctx context.Context, msg types.Message) ([]types.Message, error) {
	ctx, span := g.tracer.Start(ctx, "conversation.Step",
		trace.WithAttributes(attribute.String("group", g.name), attribute.String("from", msg.From)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored := g.append(msg)
	out := g.candidates(ctx, stored)
	span.SetAttributes(attribute.Int("candidates", len(out)))
	return out, nil
}

// candidates fans out from last without appending it again.
func (g *Group) candidates(ctx context.Context, last types.Message) []types.Message {
	replies := g.fanOut(ctx, last.From)
	if !last.IsFromUser() {
		replies = append(replies, types.AskUserMessage())
	}
	return g.shuffle(replies)
}

func (g *Group) fanOut(ctx context.Context, sender string) []types.Message {
	conv := g.conv.Messages()

	responders := g.agents[:0:0]
	for _, a := range g.agents {
		if types.SameAlias(a.Participant().Alias, sender) {
			continue
		}
		responders = append(responders, a)
	}

	results := make([]types.Message, len(responders))
	ok := make([]bool, len(responders))

	var eg errgroup.Group
	if g.maxConcurrency > 0 {
		eg.SetLimit(g.maxConcurrency)
	}
	for i, a := range responders {
		eg.Go(func() error {
			reply, err := g.respond(ctx, a, conv)
			if err != nil {
				// 失败的 Agent 只是缺席，不影响其他 Agent
				return nil
			}
			results[i], ok[i] = reply, true
			return nil
		})
	}
	_ = eg.Wait()

	out := make([]types.Message, 0, len(responders)+1)
	for i := range results {
		if ok[i] {
			out = append(out, results[i])
		}
	}
	g.logger.Debug("fan-out done", zap.Int("responders", len(responders)), zap.Int("replies", len(out)))
	return out
}

// =============================================================================
// 🎯 Max-Vote
// =============================================================================

// MaxVote asks every agent to pick the most reasonable candidate and returns
// the candidate whose sender collected the most votes. Ties go to the earlier
// candidate; with no votes candidates[0] wins.
func (g *Group) MaxVote(ctx context.Context, candidates []types.Message) (types.Message, error) {
	if len(candidates) == 0 {
		return types.Message{}, ErrNoCandidates
	}
	ctx, span := g.tracer.Start(ctx, "conversation.MaxVote",
		trace.WithAttributes(attribute.String("group", g.name), attribute.Int("candidates", len(candidates))))
	defer span.End()

	history := g.conv.Messages()
	roster := g.Roster()
	tally := make(map[string]int, len(candidates))

	for _, a := range g.agents {
		voter := a.Participant().Alias
		idx, err := safeCall(voter, func() (int, error) { return a.Ask(ctx, candidates, history, roster) })
		if err != nil {
			g.logger.Warn("max vote failed", zap.String("agent", voter), zap.Error(err))
			g.observer.ResponderFailed(g.name, voter, PhaseVote, err)
			g.observer.VoteCast(g.name, Vote{Kind: VoteMaxVote, Voter: voter, Abstained: true})
			continue
		}
		if idx < 0 || idx >= len(candidates) {
			g.observer.VoteCast(g.name, Vote{Kind: VoteMaxVote, Voter: voter, Abstained: true})
			continue
		}
		choice := candidates[idx].From
		tally[choice]++
		g.observer.VoteCast(g.name, Vote{Kind: VoteMaxVote, Voter: voter, Choice: choice})
	}

	senders := make([]string, len(candidates))
	for i, c := range candidates {
		senders[i] = c.From
	}
	winner := candidates[PluralityWinner(senders, tally)]
	span.SetAttributes(attribute.String("winner", winner.From))
	return winner, nil
}

// =============================================================================
// 🎯 Broadcast
// =============================================================================

// Broadcast appends seed, then repeatedly fans out from the last message and
// appends the max-voted candidate until a user placeholder wins or maxRounds
// replies have been appended.
func (g *Group) Broadcast(ctx context.Context, seed types.Message, maxRounds int) (*ChatResult, error) {
	ctx, span := g.tracer.Start(ctx, "conversation.Broadcast",
		trace.WithAttributes(attribute.String("group", g.name), attribute.Int("max_rounds", maxRounds)))

	r := g.newRun(PolicyBroadcast)
	last := r.appendMsg(seed)

	for {
		if r.result.Rounds >= maxRounds {
			return finish(ctx, span, r.terminate(ReasonRoundBudget))
		}
		if ctx.Err() != nil {
			return finish(ctx, span, r.terminate(ReasonCancelled))
		}

		r.to(StateAgentResponding)
		cands := g.candidates(ctx, last)
		if len(cands) == 0 {
			// 所有 Agent 都失败：等同于全部弃权，轮到用户
			return finish(ctx, span, r.terminate(ReasonUserSelected))
		}

		r.to(StateArbitrating)
		winner, err := g.MaxVote(ctx, cands)
		if err != nil {
			return finish(ctx, span, r.terminate(ReasonUserSelected))
		}
		if winner.IsFromUser() {
			return finish(ctx, span, r.terminate(ReasonUserSelected))
		}
		last = r.appendMsg(winner)
		r.result.Rounds++
	}
}

// String implements fmt.Stringer for logs.
func (r *ChatResult) String() string {
	return fmt.Sprintf("group=%s policy=%s rounds=%d reason=%s", r.Group, r.Policy, r.Rounds, r.Reason)
}
