// =============================================================================
// 🗄️ MockGroupStore - 群组存储模拟实现
// =============================================================================
// 用于测试的内存群组存储，支持错误注入与调用计数
//
// 使用方法:
//
//	store := mocks.NewMockGroupStore().WithSaveError(errors.New("disk full"))
//	manager := conversation.NewManager(store, dir, cfg)
// =============================================================================
package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/BaSui01/agentroom/agent/persistence"
	"github.com/BaSui01/agentroom/types"
)

// MockGroupStore 是 persistence.GroupStore 的模拟实现
type MockGroupStore struct {
	mu sync.RWMutex

	groups map[string]types.Group

	// 错误注入
	saveErr error
	loadErr error
	pingErr error

	// 调用记录
	saveCalls int
	loadCalls int
}

// NewMockGroupStore 创建空的 MockGroupStore
func NewMockGroupStore() *MockGroupStore {
	return &MockGroupStore{groups: make(map[string]types.Group)}
}

// WithGroup 预置群组
func (m *MockGroupStore) WithGroup(g types.Group) *MockGroupStore {
	m.groups[g.Name] = g.Clone()
	return m
}

// WithSaveError 让 Save 失败
func (m *MockGroupStore) WithSaveError(err error) *MockGroupStore {
	m.saveErr = err
	return m
}

// WithLoadError 让 Load 失败（优先于 ErrNotFound）
func (m *MockGroupStore) WithLoadError(err error) *MockGroupStore {
	m.loadErr = err
	return m
}

// WithPingError 让 Ping 失败
func (m *MockGroupStore) WithPingError(err error) *MockGroupStore {
	m.pingErr = err
	return m
}

func (m *MockGroupStore) Save(ctx context.Context, g types.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.groups[g.Name] = g.Clone()
	return nil
}

func (m *MockGroupStore) Load(ctx context.Context, name string) (types.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls++
	if m.loadErr != nil {
		return types.Group{}, m.loadErr
	}
	g, ok := m.groups[name]
	if !ok {
		return types.Group{}, persistence.ErrNotFound
	}
	return g.Clone(), nil
}

func (m *MockGroupStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[name]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.groups, name)
	return nil
}

func (m *MockGroupStore) List(ctx context.Context) ([]types.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockGroupStore) Ping(ctx context.Context) error { return m.pingErr }
func (m *MockGroupStore) Close() error                   { return nil }

// SaveCalls 返回 Save 调用次数
func (m *MockGroupStore) SaveCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCalls
}

// LoadCalls 返回 Load 调用次数
func (m *MockGroupStore) LoadCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadCalls
}

// Stored 直接读取存储内容，不计入调用次数
func (m *MockGroupStore) Stored(name string) (types.Group, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[name]
	return g.Clone(), ok
}
