package chatagent

import (
	"context"
	"fmt"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/llm"
	"github.com/BaSui01/agentroom/llm/observability"
	"github.com/BaSui01/agentroom/llm/tokenizer"
	"github.com/BaSui01/agentroom/types"
	"go.uber.org/zap"
)

// Agent 基于提示词的聊天 Agent，回复与投票都通过同一个 LLM 完成。
type Agent struct {
	spec     agent.Spec
	provider llm.Provider
	tokens   tokenizer.Counter
	logger   *zap.Logger
}

var _ agent.Responder = (*Agent)(nil)

// New creates a chat agent.
func New(spec agent.Spec, provider llm.Provider, tokens tokenizer.Counter, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens == nil {
		tokens = tokenizer.NewEstimator()
	}
	return &Agent{
		spec:     spec,
		provider: provider,
		tokens:   tokens,
		logger:   logger.With(zap.String("component", "chat_agent"), zap.String("alias", spec.Alias)),
	}
}

// Factory builds chat agents for agent.Registry.
func Factory(spec agent.Spec, deps agent.Deps) (agent.Responder, error) {
	p, err := deps.Provider(spec.LLM)
	if err != nil {
		return nil, err
	}
	return New(spec, p, deps.Tokens, deps.Logger), nil
}

func (a *Agent) Participant() types.Participant { return a.spec.Participant() }

// history renders conv and drops the oldest lines beyond the token budget.
func (a *Agent) history(conv []types.Message) []string {
	lines := renderLines(conv)
	trimmed, err := tokenizer.Trim(a.tokens, lines, a.spec.MaxHistoryTokens)
	if err != nil {
		a.logger.Warn("token count failed, using full history", zap.Error(err))
		return lines
	}
	if dropped := len(lines) - len(trimmed); dropped > 0 {
		a.logger.Debug("history trimmed", zap.Int("dropped", dropped))
	}
	return trimmed
}

func (a *Agent) call(ctx context.Context, prompt string) (string, error) {
	a.logger.Debug("prompt", zap.String("prompt", prompt))
	out, err := llm.Complete(observability.WithAgent(ctx, a.spec.Alias), a.provider, llm.ChatRequest{
		Model:       a.spec.Model,
		MaxTokens:   a.spec.MaxTokens,
		Temperature: a.spec.Temperature,
		TopP:        a.spec.TopP,
		Stop:        a.spec.Stop,
	}, prompt)
	if err != nil {
		return "", err
	}
	a.logger.Debug("response", zap.String("response", out))
	return out, nil
}

// Respond 生成一条 markdown 回复
func (a *Agent) Respond(ctx context.Context, conv []types.Message, _ []types.Participant) (types.Message, error) {
	out, err := a.call(ctx, CallPrompt(a.spec, a.history(conv)))
	if err != nil {
		return types.Message{}, fmt.Errorf("chat agent %s: %w", a.spec.Alias, err)
	}
	return types.Message{
		From:    a.spec.Alias,
		Type:    types.MessageTypeMarkdown,
		Content: out,
	}.Stamp(), nil
}

// RolePlay 预测下一位发言者，无法解析时弃权（-1）
func (a *Agent) RolePlay(ctx context.Context, conv []types.Message, roster []types.Participant) (int, error) {
	out, err := a.call(ctx, RolePlayPrompt(a.history(conv), roster))
	if err != nil {
		return -1, fmt.Errorf("chat agent %s: %w", a.spec.Alias, err)
	}
	aliases := make([]string, len(roster))
	for i, p := range roster {
		aliases[i] = p.Alias
	}
	idx := agent.ParseRole(out, aliases)
	a.logger.Debug("role play vote", zap.Int("index", idx))
	return idx, nil
}

// Ask 从候选回复中投票，按候选的发送者解析
func (a *Agent) Ask(ctx context.Context, candidates, history []types.Message, roster []types.Participant) (int, error) {
	out, err := a.call(ctx, AskPrompt(candidates, a.history(history), roster))
	if err != nil {
		return -1, fmt.Errorf("chat agent %s: %w", a.spec.Alias, err)
	}
	senders := make([]string, len(candidates))
	for i, m := range candidates {
		senders[i] = m.From
	}
	idx := agent.ParseRole(out, senders)
	a.logger.Debug("ask vote", zap.Int("index", idx))
	return idx, nil
}
