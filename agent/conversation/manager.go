package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/agent/persistence"
	"github.com/BaSui01/agentroom/types"
	"go.uber.org/zap"
)

// ManagerConfig 群组服务层配置
type ManagerConfig struct {
	// DefaultPolicy 未指定策略时使用
	DefaultPolicy PolicyName `yaml:"default_policy" json:"default_policy" split_words:"true" validate:"omitempty,oneof=turn_taking broadcast"`

	// MaxRounds 未指定轮数时的 Agent 回复上限
	MaxRounds int `yaml:"max_rounds" json:"max_rounds" split_words:"true" validate:"gte=0"`

	// ResponderTimeout 单次 Respond/RolePlay/Ask 的超时，0 表示不限制
	ResponderTimeout time.Duration `yaml:"responder_timeout" json:"responder_timeout" split_words:"true" validate:"gte=0"`

	// MaxConcurrency Step 扇出的并发上限，0 表示不限制
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" split_words:"true" validate:"gte=0"`
}

// DefaultManagerConfig returns the defaults used by the server.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DefaultPolicy:    PolicyTurnTaking,
		MaxRounds:        5,
		ResponderTimeout: 60 * time.Second,
	}
}

// SendOptions selects the policy and round budget of one send.
// An empty Policy or nil MaxRounds falls back to the manager defaults;
// an explicit 0 rounds only appends the seed.
type SendOptions struct {
	Policy    PolicyName `json:"policy,omitempty"`
	MaxRounds *int       `json:"max_rounds,omitempty"`
}

// Rounds returns a round budget for SendOptions.MaxRounds.
func Rounds(n int) *int { return &n }

// Manager is the service layer over groups: CRUD, orchestrated sends and
// message edits. Every mutation of one group runs under that group's lock,
// loads the record, works on an in-memory Group and saves the record back.
type Manager struct {
	store    persistence.GroupStore
	dir      *agent.Directory
	cfg      ManagerConfig
	observer Observer
	logger   *zap.Logger
	groupOpt []Option

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger.
func WithManagerLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerObserver sets the observer handed to every group.
func WithManagerObserver(o Observer) ManagerOption {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithGroupOptions appends options applied to every group the manager builds.
func WithGroupOptions(opts ...Option) ManagerOption {
	return func(m *Manager) { m.groupOpt = append(m.groupOpt, opts...) }
}

// NewManager creates a manager over store and the live agent directory.
func NewManager(store persistence.GroupStore, dir *agent.Directory, cfg ManagerConfig, opts ...ManagerOption) *Manager {
	if cfg.DefaultPolicy == "" {
		cfg.DefaultPolicy = PolicyTurnTaking
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultManagerConfig().MaxRounds
	}
	m := &Manager{
		store:    store,
		dir:      dir,
		cfg:      cfg,
		observer: NopObserver{},
		logger:   zap.NewNop(),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("component", "group_manager"))
	return m
}

func (m *Manager) lock(name string) func() {
	m.mu.Lock()
	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (m *Manager) load(ctx context.Context, name string) (types.Group, error) {
	rec, err := m.store.Load(ctx, name)
	if errors.Is(err, persistence.ErrNotFound) {
		return types.Group{}, fmt.Errorf("%w: %q", ErrGroupNotFound, name)
	}
	if err != nil {
		return types.Group{}, fmt.Errorf("load group %q: %w", name, err)
	}
	return rec, nil
}

func (m *Manager) save(ctx context.Context, rec types.Group) error {
	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.Error("failed to save group", zap.String("group", rec.Name), zap.Error(err))
		return fmt.Errorf("save group %q: %w", rec.Name, err)
	}
	return nil
}

// build resolves the record's aliases against the directory. Dangling aliases
// are dropped here and nowhere else; the stored alias list is left untouched.
func (m *Manager) build(rec types.Group) (*Group, error) {
	responders := m.dir.Resolve(rec.Agents)
	for i, r := range responders {
		responders[i] = WithResponderTimeout(r, m.cfg.ResponderTimeout)
	}
	opts := append([]Option{
		WithLogger(m.logger),
		WithObserver(m.observer),
		WithMaxConcurrency(m.cfg.MaxConcurrency),
	}, m.groupOpt...)
	return NewGroup(rec.Name, responders, rec.Conversation, opts...)
}

// =============================================================================
// 📁 群组 CRUD
// =============================================================================

// CreateGroup stores a new empty group.
func (m *Manager) CreateGroup(ctx context.Context, name string, agents []string) (types.Group, error) {
	if strings.TrimSpace(name) == "" {
		return types.Group{}, ErrInvalidGroupName
	}
	if err := ValidateRoster(agents); err != nil {
		return types.Group{}, err
	}

	defer m.lock(name)()

	if _, err := m.store.Load(ctx, name); err == nil {
		return types.Group{}, fmt.Errorf("%w: %q", ErrGroupExists, name)
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return types.Group{}, fmt.Errorf("load group %q: %w", name, err)
	}

	rec := types.Group{Name: name, Agents: append([]string{}, agents...), Conversation: []types.Message{}}
	if err := m.save(ctx, rec); err != nil {
		return types.Group{}, err
	}
	m.logger.Info("group created", zap.String("group", name), zap.Strings("agents", agents))
	return rec, nil
}

// GetGroup returns the stored record.
func (m *Manager) GetGroup(ctx context.Context, name string) (types.Group, error) {
	return m.load(ctx, name)
}

// ListGroups returns every group sorted by name.
func (m *Manager) ListGroups(ctx context.Context) ([]types.Group, error) {
	return m.store.List(ctx)
}

// UpdateGroupAgents replaces the agent list, keeping the conversation.
func (m *Manager) UpdateGroupAgents(ctx context.Context, name string, agents []string) (types.Group, error) {
	if err := ValidateRoster(agents); err != nil {
		return types.Group{}, err
	}

	defer m.lock(name)()

	rec, err := m.load(ctx, name)
	if err != nil {
		return types.Group{}, err
	}
	rec.Agents = append([]string{}, agents...)
	if err := m.save(ctx, rec); err != nil {
		return types.Group{}, err
	}
	m.logger.Info("group agents updated", zap.String("group", name), zap.Strings("agents", agents))
	return rec, nil
}

// DeleteGroup removes the group and its conversation.
func (m *Manager) DeleteGroup(ctx context.Context, name string) error {
	defer m.lock(name)()

	err := m.store.Delete(ctx, name)
	if errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("%w: %q", ErrGroupNotFound, name)
	}
	if err != nil {
		return err
	}
	m.logger.Info("group deleted", zap.String("group", name))
	return nil
}

// =============================================================================
// 🎯 编排入口
// =============================================================================

// Send runs one policy-driven exchange seeded with msg and persists the
// extended conversation. On cancellation the partial conversation is saved and
// ctx.Err() is returned with the result.
func (m *Manager) Send(ctx context.Context, name string, msg types.Message, opts SendOptions) (*ChatResult, error) {
	defer m.lock(name)()
	return m.sendLocked(ctx, name, msg, opts)
}

func (m *Manager) sendLocked(ctx context.Context, name string, msg types.Message, opts SendOptions) (*ChatResult, error) {
	policyName := opts.Policy
	if policyName == "" {
		policyName = m.cfg.DefaultPolicy
	}
	policy, err := PolicyFor(policyName)
	if err != nil {
		return nil, err
	}
	maxRounds := m.cfg.MaxRounds
	if opts.MaxRounds != nil {
		maxRounds = max(*opts.MaxRounds, 0)
	}

	rec, err := m.load(ctx, name)
	if err != nil {
		return nil, err
	}
	g, err := m.build(rec)
	if err != nil {
		return nil, err
	}

	res, runErr := policy.Run(ctx, g, msg, maxRounds)
	rec.Conversation = g.Messages()
	// 取消后仍需保存已追加的消息，使用不受取消影响的 ctx
	if err := m.save(context.WithoutCancel(ctx), rec); err != nil {
		return res, err
	}
	return res, runErr
}

// Step appends msg to the group, persists it and returns the fan-out replies.
// The replies themselves are not appended.
func (m *Manager) Step(ctx context.Context, name string, msg types.Message) ([]types.Message, error) {
	defer m.lock(name)()

	rec, g, err := m.open(ctx, name)
	if err != nil {
		return nil, err
	}
	replies, err := g.Step(ctx, msg)
	if err != nil {
		return nil, err
	}
	rec.Conversation = g.Messages()
	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}
	return replies, nil
}

// MaxVote lets the group's agents pick one of candidates. Nothing is persisted.
func (m *Manager) MaxVote(ctx context.Context, name string, candidates []types.Message) (types.Message, error) {
	defer m.lock(name)()

	_, g, err := m.open(ctx, name)
	if err != nil {
		return types.Message{}, err
	}
	return g.MaxVote(ctx, candidates)
}

// RolePlay appends msg, persists it and returns the arbitrated next speaker.
func (m *Manager) RolePlay(ctx context.Context, name string, msg types.Message) (types.Participant, error) {
	defer m.lock(name)()

	rec, g, err := m.open(ctx, name)
	if err != nil {
		return types.Participant{}, err
	}
	winner := g.RolePlay(ctx, msg)
	rec.Conversation = g.Messages()
	if err := m.save(ctx, rec); err != nil {
		return types.Participant{}, err
	}
	return winner, nil
}

func (m *Manager) open(ctx context.Context, name string) (types.Group, *Group, error) {
	rec, err := m.load(ctx, name)
	if err != nil {
		return types.Group{}, nil, err
	}
	g, err := m.build(rec)
	if err != nil {
		return types.Group{}, nil, err
	}
	return rec, g, nil
}

// =============================================================================
// ✏️ 消息编辑
// =============================================================================

// DeleteMessage splices the message with id out of the conversation.
func (m *Manager) DeleteMessage(ctx context.Context, name, id string) (types.Group, error) {
	defer m.lock(name)()

	rec, err := m.load(ctx, name)
	if err != nil {
		return types.Group{}, err
	}
	idx := indexOf(rec.Conversation, id)
	if idx < 0 {
		return types.Group{}, fmt.Errorf("%w: %q", ErrMessageNotFound, id)
	}
	rec.Conversation = append(rec.Conversation[:idx:idx], rec.Conversation[idx+1:]...)
	if err := m.save(ctx, rec); err != nil {
		return types.Group{}, err
	}
	m.logger.Info("message deleted", zap.String("group", name), zap.String("message_id", id))
	return rec, nil
}

// Resend re-submits the content of message id as a new turn.
func (m *Manager) Resend(ctx context.Context, name, id string, opts SendOptions) (*ChatResult, error) {
	defer m.lock(name)()

	rec, err := m.load(ctx, name)
	if err != nil {
		return nil, err
	}
	idx := indexOf(rec.Conversation, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMessageNotFound, id)
	}
	return m.sendLocked(ctx, name, rec.Conversation[idx].Resent(), opts)
}

func indexOf(msgs []types.Message, id string) int {
	for i, msg := range msgs {
		if msg.ID == id {
			return i
		}
	}
	return -1
}
