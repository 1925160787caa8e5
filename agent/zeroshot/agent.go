// Package zeroshot implements a template-driven agent that replies to the
// latest message in a single LLM call and never votes.
package zeroshot

import (
	"context"
	"strings"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/llm"
	"github.com/BaSui01/agentroom/llm/observability"
	"github.com/BaSui01/agentroom/types"
	"go.uber.org/zap"
)

// Agent 零样本 Agent
type Agent struct {
	spec     agent.Spec
	provider llm.Provider
	logger   *zap.Logger
}

var _ agent.Responder = (*Agent)(nil)

// New creates a zero-shot agent.
func New(spec agent.Spec, provider llm.Provider, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		spec:     spec,
		provider: provider,
		logger:   logger.With(zap.String("component", "zeroshot_agent"), zap.String("alias", spec.Alias)),
	}
}

// Factory builds zero-shot agents for agent.Registry.
func Factory(spec agent.Spec, deps agent.Deps) (agent.Responder, error) {
	p, err := deps.Provider(spec.LLM)
	if err != nil {
		return nil, err
	}
	return New(spec, p, deps.Logger), nil
}

func (a *Agent) Participant() types.Participant { return a.spec.Participant() }

// RenderHistory renders earlier messages as "from:content" lines, or ChatML blocks.
func RenderHistory(msgs []types.Message, chatML bool) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		if chatML {
			lines[i] = "<|im_start|>" + m.From + "\n" + m.Content + "\n<|im_end|>"
		} else {
			lines[i] = m.From + ":" + m.Content
		}
	}
	return strings.Join(lines, "\n")
}

// Prompt renders prefix and suffix with {history}, {from}, {content} and
// {agent_scratchpad}. The last message of conv is the one being answered.
func Prompt(spec agent.Spec, conv []types.Message) string {
	var last types.Message
	history := conv
	if len(conv) > 0 {
		last = conv[len(conv)-1]
		history = conv[:len(conv)-1]
	}
	prompt := strings.NewReplacer(
		"{history}", RenderHistory(history, spec.UseChatML),
		"{from}", last.From,
		"{content}", last.Content,
		"{agent_scratchpad}", "",
	).Replace(spec.PrefixPrompt + "\n\n" + spec.SuffixPrompt)

	if spec.UseChatML {
		prompt = "<|im_start|>system\n" + prompt + "\n<|im_end|>\n<|im_start|>assistant"
	}
	return prompt
}

// Respond 失败时不返回 error，而是返回带 Error 的空消息
func (a *Agent) Respond(ctx context.Context, conv []types.Message, _ []types.Participant) (types.Message, error) {
	msg := types.Message{From: a.spec.Alias, Type: types.MessageTypeZeroshot}
	out, err := llm.Complete(observability.WithAgent(ctx, a.spec.Alias), a.provider, llm.ChatRequest{
		Model:       a.spec.Model,
		MaxTokens:   a.spec.MaxTokens,
		Temperature: a.spec.Temperature,
		TopP:        a.spec.TopP,
		Stop:        a.spec.Stop,
	}, Prompt(a.spec, conv))
	if err != nil {
		a.logger.Warn("zeroshot call failed", zap.Error(err))
		msg.Error = err.Error()
		return msg.Stamp(), nil
	}
	msg.Content = out
	return msg.Stamp(), nil
}

// RolePlay 零样本 Agent 总是弃权
func (a *Agent) RolePlay(context.Context, []types.Message, []types.Participant) (int, error) {
	return -1, nil
}

// Ask 零样本 Agent 总是弃权
func (a *Agent) Ask(context.Context, []types.Message, []types.Message, []types.Participant) (int, error) {
	return -1, nil
}
