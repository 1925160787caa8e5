package agent

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type entry struct {
	spec      Spec
	responder Responder
}

// Directory 在线 Agent 名册：alias（大小写不敏感）→ spec + responder。
// 群组只保存 alias，使用时再通过 Resolve 解析；已删除的 alias 被静默丢弃。
type Directory struct {
	mu       sync.RWMutex
	registry *Registry
	entries  map[string]entry
	logger   *zap.Logger
}

// NewDirectory creates an empty directory backed by registry.
func NewDirectory(registry *Registry, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		registry: registry,
		entries:  make(map[string]entry),
		logger:   logger.With(zap.String("component", "agent_directory")),
	}
}

func key(alias string) string { return strings.ToLower(alias) }

// Put builds spec and stores it, replacing any agent with the same alias.
func (d *Directory) Put(spec Spec) (Responder, error) {
	r, err := d.registry.Build(spec)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	_, replaced := d.entries[key(spec.Alias)]
	d.entries[key(spec.Alias)] = entry{spec: spec, responder: r}
	d.mu.Unlock()

	d.logger.Info("agent stored", zap.String("alias", spec.Alias), zap.Bool("replaced", replaced))
	return r, nil
}

// Remove deletes the agent with alias. It reports whether one existed.
func (d *Directory) Remove(alias string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[key(alias)]; !ok {
		return false
	}
	delete(d.entries, key(alias))
	d.logger.Info("agent removed", zap.String("alias", alias))
	return true
}

// Get returns the responder for alias.
func (d *Directory) Get(alias string) (Responder, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entries[key(alias)]
	return e.responder, ok
}

// Spec returns the stored spec for alias.
func (d *Directory) Spec(alias string) (Spec, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entries[key(alias)]
	return e.spec, ok
}

// List returns all specs sorted by alias.
func (d *Directory) List() []Spec {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Spec, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e.spec)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i].Alias) < key(out[j].Alias) })
	return out
}

// Resolve maps aliases to responders in order, dropping unknown aliases.
func (d *Directory) Resolve(aliases []string) []Responder {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Responder, 0, len(aliases))
	for _, a := range aliases {
		e, ok := d.entries[key(a)]
		if !ok {
			d.logger.Debug("dropping dangling alias", zap.String("alias", a))
			continue
		}
		out = append(out, e.responder)
	}
	return out
}
