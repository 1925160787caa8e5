package conversation

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/testutil/mocks"
	"github.com/BaSui01/agentroom/types"
	"github.com/stretchr/testify/require"
)

// recordingObserver 记录所有事件，供断言使用
type recordingObserver struct {
	mu       sync.Mutex
	appended []types.Message
	votes    []Vote
	failures []string
	finished []*ChatResult
}

func (o *recordingObserver) MessageAppended(_ string, msg types.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appended = append(o.appended, msg)
}

func (o *recordingObserver) VoteCast(_ string, v Vote) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.votes = append(o.votes, v)
}

func (o *recordingObserver) ResponderFailed(_ string, alias string, phase Phase, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, fmt.Sprintf("%s/%s", alias, phase))
}

func (o *recordingObserver) ChatFinished(_ string, res *ChatResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, res)
}

func (o *recordingObserver) Failures() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.failures...)
}

func responders(rs ...*mocks.ScriptedResponder) []agent.Responder {
	out := make([]agent.Responder, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out
}

func newTestGroup(t testing.TB, agents []agent.Responder, opts ...Option) *Group {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	g, err := NewGroup("room", agents, nil, opts...)
	require.NoError(t, err)
	return g
}

func userMessage(content string) types.Message {
	return types.NewMessage(types.UserAlias, content)
}

func senders(msgs []types.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.From
	}
	return out
}
