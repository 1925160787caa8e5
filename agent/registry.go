package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BaSui01/agentroom/llm"
	"github.com/BaSui01/agentroom/llm/tokenizer"
	"go.uber.org/zap"
)

// Deps 构建 Agent 所需的共享依赖
type Deps struct {
	Providers map[string]llm.Provider
	Tokens    tokenizer.Counter
	Logger    *zap.Logger
}

// Provider returns the named provider or ErrProviderNotSet.
func (d Deps) Provider(name string) (llm.Provider, error) {
	p, ok := d.Providers[name]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotSet, name)
	}
	return p, nil
}

// Factory is a function that creates a Responder from its spec.
type Factory func(spec Spec, deps Deps) (Responder, error)

// Registry manages agent kind registration and creation.
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]Factory
	deps      Deps
	logger    *zap.Logger
}

// NewRegistry creates a registry with the given factories.
func NewRegistry(deps Deps, factories map[Kind]Factory) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Tokens == nil {
		deps.Tokens = tokenizer.NewEstimator()
	}
	r := &Registry{
		factories: make(map[Kind]Factory, len(factories)),
		deps:      deps,
		logger:    deps.Logger.With(zap.String("component", "agent_registry")),
	}
	for k, f := range factories {
		r.factories[k] = f
	}
	return r
}

// Register registers a new agent kind with its factory function.
func (r *Registry) Register(kind Kind, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[kind] = factory
	r.logger.Info("agent kind registered", zap.String("kind", string(kind)))
}

// IsRegistered checks if an agent kind is registered.
func (r *Registry) IsRegistered(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[kind]
	return exists
}

// ListKinds returns all registered kinds in sorted order.
func (r *Registry) ListKinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Build validates spec and instantiates its responder.
func (r *Registry) Build(spec Spec) (Responder, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory, exists := r.factories[spec.Kind]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}

	resp, err := factory(spec, r.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent %q of kind %q: %w", spec.Alias, spec.Kind, err)
	}

	r.logger.Debug("agent created",
		zap.String("kind", string(spec.Kind)),
		zap.String("alias", spec.Alias),
		zap.String("llm", spec.LLM),
	)
	return resp, nil
}
