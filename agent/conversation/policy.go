package conversation

import (
	"context"
	"fmt"

	"github.com/BaSui01/agentroom/types"
)

// PolicyName 编排策略名称
type PolicyName string

const (
	// PolicyTurnTaking 每轮投票选出一位发言者（RolePlay + Chat）
	PolicyTurnTaking PolicyName = "turn_taking"
	// PolicyBroadcast 每轮所有 Agent 都回复，再投票选出一条（Step + MaxVote）
	PolicyBroadcast PolicyName = "broadcast"
)

// Policy drives one send through a group.
type Policy interface {
	Name() PolicyName
	Run(ctx context.Context, g *Group, seed types.Message, maxRounds int) (*ChatResult, error)
}

// TurnTaking runs Group.Chat.
type TurnTaking struct{}

func (TurnTaking) Name() PolicyName { return PolicyTurnTaking }

func (TurnTaking) Run(ctx context.Context, g *Group, seed types.Message, maxRounds int) (*ChatResult, error) {
	return g.Chat(ctx, seed, maxRounds)
}

// Broadcast runs Group.Broadcast.
type Broadcast struct{}

func (Broadcast) Name() PolicyName { return PolicyBroadcast }

func (Broadcast) Run(ctx context.Context, g *Group, seed types.Message, maxRounds int) (*ChatResult, error) {
	return g.Broadcast(ctx, seed, maxRounds)
}

// PolicyFor resolves a policy by name. An empty name selects turn_taking.
func PolicyFor(name PolicyName) (Policy, error) {
	switch name {
	case "", PolicyTurnTaking:
		return TurnTaking{}, nil
	case PolicyBroadcast:
		return Broadcast{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
