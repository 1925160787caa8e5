package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/BaSui01/agentroom/internal/cache"
	"github.com/BaSui01/agentroom/types"
)

// RedisGroupStore stores each group as a JSON value under <prefix>group:<name>
// and keeps the names in the <prefix>groups set.
// Suitable for distributed production deployments.
type RedisGroupStore struct {
	redis *cache.Manager
}

// NewRedisGroupStore wraps an already connected manager. The store does not
// own the manager: Close leaves the connection open for other users.
func NewRedisGroupStore(m *cache.Manager) (*RedisGroupStore, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: redis manager is required for the redis store", ErrInvalidInput)
	}
	return &RedisGroupStore{redis: m}, nil
}

func (s *RedisGroupStore) groupKey(name string) string { return s.redis.Key("group", name) }
func (s *RedisGroupStore) indexKey() string            { return s.redis.Key("groups") }

func (s *RedisGroupStore) Save(ctx context.Context, group types.Group) error {
	if err := validName(group.Name); err != nil {
		return err
	}
	return mapRedisErr(s.redis.SaveIndexed(ctx, s.groupKey(group.Name), normalize(group), s.indexKey(), group.Name))
}

func (s *RedisGroupStore) Load(ctx context.Context, name string) (types.Group, error) {
	var g types.Group
	if err := s.redis.GetJSON(ctx, s.groupKey(name), &g); err != nil {
		return types.Group{}, mapRedisErr(err)
	}
	return normalize(g), nil
}

func (s *RedisGroupStore) Delete(ctx context.Context, name string) error {
	n, err := s.redis.DeleteIndexed(ctx, s.groupKey(name), s.indexKey(), name)
	if err != nil {
		return mapRedisErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List loads every indexed group. Index entries whose value has vanished are skipped.
func (s *RedisGroupStore) List(ctx context.Context) ([]types.Group, error) {
	names, err := s.redis.Members(ctx, s.indexKey())
	if err != nil {
		return nil, mapRedisErr(err)
	}
	sort.Strings(names)

	out := make([]types.Group, 0, len(names))
	for _, name := range names {
		g, err := s.Load(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *RedisGroupStore) Ping(ctx context.Context) error {
	return mapRedisErr(s.redis.Ping(ctx))
}

// Close is a no-op; the manager is closed by its owner.
func (s *RedisGroupStore) Close() error { return nil }

func mapRedisErr(err error) error {
	switch {
	case err == nil:
		return nil
	case cache.IsCacheMiss(err):
		return ErrNotFound
	case errors.Is(err, cache.ErrClosed):
		return ErrStoreClosed
	default:
		return err
	}
}
