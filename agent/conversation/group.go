package conversation

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/types"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/agentroom/agent/conversation"

// Group 一个多 Agent 聊天室：固定的 Agent 名册加一份对话。
// Group 只操作内存中的对话，持久化由 Manager 负责。
type Group struct {
	name     string
	agents   []agent.Responder
	conv     *Conversation
	observer Observer
	logger   *zap.Logger
	tracer   trace.Tracer

	// 扇出并发上限，<=0 表示不限制
	maxConcurrency int
	shuffle        func([]types.Message) []types.Message
}

// Option configures a Group.
type Option func(*Group)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Group) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(g *Group) {
		if o != nil {
			g.observer = o
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(g *Group) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithMaxConcurrency bounds the number of concurrent responders in Step.
func WithMaxConcurrency(n int) Option {
	return func(g *Group) { g.maxConcurrency = n }
}

// WithRand makes the Step shuffle draw from r.
func WithRand(r *rand.Rand) Option {
	return func(g *Group) {
		if r == nil {
			return
		}
		g.shuffle = func(msgs []types.Message) []types.Message {
			r.Shuffle(len(msgs), func(i, j int) { msgs[i], msgs[j] = msgs[j], msgs[i] })
			return msgs
		}
	}
}

// ValidateRoster rejects the reserved user alias and case-insensitive duplicates.
func ValidateRoster(aliases []string) error {
	for _, a := range aliases {
		if types.SameAlias(a, types.UserAlias) {
			return fmt.Errorf("%w: %q", ErrReservedAlias, a)
		}
	}
	if dups := lo.FindDuplicatesBy(aliases, strings.ToLower); len(dups) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateAlias, strings.Join(dups, ", "))
	}
	return nil
}

// NewGroup creates a group over agents with an existing history.
func NewGroup(name string, agents []agent.Responder, history []types.Message, opts ...Option) (*Group, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidGroupName
	}
	if err := ValidateRoster(agent.Aliases(agents)); err != nil {
		return nil, err
	}

	g := &Group{
		name:     name,
		agents:   append([]agent.Responder(nil), agents...),
		conv:     NewConversation(history),
		observer: NopObserver{},
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(instrumentationName),
		shuffle:  shuffleMessages,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("component", "group"), zap.String("group", name))
	return g, nil
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Agents returns the agent roster (without the user).
func (g *Group) Agents() []agent.Responder {
	return append([]agent.Responder(nil), g.agents...)
}

// Roster returns [User, ...agents], the list votes index into.
func (g *Group) Roster() []types.Participant {
	return append([]types.Participant{types.User()}, agent.Participants(g.agents)...)
}

// Messages returns a snapshot of the conversation.
func (g *Group) Messages() []types.Message { return g.conv.Messages() }

// Record returns the persistable form of the group.
func (g *Group) Record() types.Group {
	return types.Group{
		Name:         g.name,
		Agents:       agent.Aliases(g.agents),
		Conversation: g.conv.Messages(),
	}
}

func (g *Group) append(msg types.Message) types.Message {
	stored := g.conv.Append(msg)
	g.observer.MessageAppended(g.name, stored)
	return stored
}

func shuffleMessages(msgs []types.Message) []types.Message {
	return lo.Shuffle(msgs)
}

// PluralityWinner scans keys in order and returns the index of the first key
// whose tally is strictly greater than the running maximum (starting at 0).
// Ties go to the earlier key; with no votes the result is 0.
func PluralityWinner(keys []string, tally map[string]int) int {
	best, top := 0, 0
	for i, k := range keys {
		if n := tally[k]; n > top {
			best, top = i, n
		}
	}
	return best
}
