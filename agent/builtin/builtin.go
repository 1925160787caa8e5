// Package builtin wires the built-in agent kinds into an agent.Registry.
package builtin

import (
	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/agent/chatagent"
	"github.com/BaSui01/agentroom/agent/zeroshot"
)

// Factories returns the factories for every built-in kind.
func Factories() map[agent.Kind]agent.Factory {
	return map[agent.Kind]agent.Factory{
		agent.KindChat:     chatagent.Factory,
		agent.KindZeroshot: zeroshot.Factory,
	}
}

// NewRegistry creates a registry with all built-in kinds registered.
func NewRegistry(deps agent.Deps) *agent.Registry {
	return agent.NewRegistry(deps, Factories())
}
