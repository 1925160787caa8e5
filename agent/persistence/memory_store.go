package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/BaSui01/agentroom/types"
)

// MemoryGroupStore is an in-memory implementation of GroupStore.
// Suitable for development and testing.
type MemoryGroupStore struct {
	mu     sync.RWMutex
	groups map[string]types.Group
	closed bool
}

// NewMemoryGroupStore creates a new in-memory group store
func NewMemoryGroupStore() *MemoryGroupStore {
	return &MemoryGroupStore{groups: make(map[string]types.Group)}
}

func (s *MemoryGroupStore) Save(ctx context.Context, group types.Group) error {
	if err := validName(group.Name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.groups[group.Name] = normalize(group)
	return nil
}

func (s *MemoryGroupStore) Load(ctx context.Context, name string) (types.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.Group{}, ErrStoreClosed
	}
	g, ok := s.groups[name]
	if !ok {
		return types.Group{}, ErrNotFound
	}
	return g.Clone(), nil
}

func (s *MemoryGroupStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.groups[name]; !ok {
		return ErrNotFound
	}
	delete(s.groups, name)
	return nil
}

func (s *MemoryGroupStore) List(ctx context.Context) ([]types.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]types.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Ping checks if the store is healthy
func (s *MemoryGroupStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close closes the store
func (s *MemoryGroupStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
