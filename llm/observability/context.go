package observability

import "context"

type agentKey struct{}

// WithAgent tags ctx with the alias of the agent issuing LLM calls.
func WithAgent(ctx context.Context, alias string) context.Context {
	return context.WithValue(ctx, agentKey{}, alias)
}

// AgentFromContext returns the alias set by WithAgent.
func AgentFromContext(ctx context.Context) (string, bool) {
	alias, ok := ctx.Value(agentKey{}).(string)
	return alias, ok && alias != ""
}
