package conversation

import (
	"context"

	"github.com/BaSui01/agentroom/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// =============================================================================
// 🎯 Turn Arbiter
// =============================================================================

// RolePlay appends msg and asks every agent who should speak next.
// Vote failures and unparseable votes are abstentions. With no votes the
// user wins.
func (g *Group) RolePlay(ctx context.Context, msg types.Message) types.Participant {
	ctx, span := g.tracer.Start(ctx, "conversation.RolePlay",
		trace.WithAttributes(attribute.String("group", g.name)))
	defer span.End()

	g.append(msg)
	winner := g.arbitrate(ctx)
	span.SetAttributes(attribute.String("winner", winner.Alias))
	return winner
}

// arbitrate polls agents sequentially over the current conversation without appending.
func (g *Group) arbitrate(ctx context.Context) types.Participant {
	roster := g.Roster()
	conv := g.conv.Messages()
	tally := make(map[string]int, len(roster))

	for _, a := range g.agents {
		voter := a.Participant().Alias
		idx, err := safeCall(voter, func() (int, error) { return a.RolePlay(ctx, conv, roster) })
		if err != nil {
			g.logger.Warn("role play vote failed", zap.String("agent", voter), zap.Error(err))
			g.observer.ResponderFailed(g.name, voter, PhaseVote, err)
			g.observer.VoteCast(g.name, Vote{Kind: VoteRolePlay, Voter: voter, Abstained: true})
			continue
		}
		if idx < 0 || idx >= len(roster) {
			g.logger.Debug("abstained", zap.String("agent", voter), zap.Int("index", idx))
			g.observer.VoteCast(g.name, Vote{Kind: VoteRolePlay, Voter: voter, Abstained: true})
			continue
		}
		choice := roster[idx].Alias
		tally[choice]++
		g.observer.VoteCast(g.name, Vote{Kind: VoteRolePlay, Voter: voter, Choice: choice})
	}

	aliases := make([]string, len(roster))
	for i, p := range roster {
		aliases[i] = p.Alias
	}
	winner := roster[PluralityWinner(aliases, tally)]
	g.logger.Debug("arbitration done", zap.String("winner", winner.Alias), zap.Any("tally", tally))
	return winner
}
