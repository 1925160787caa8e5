package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Subscription 一个群组的事件订阅
type Subscription struct {
	group string
	ch    chan Event
	hub   *Hub
	once  sync.Once
}

// Events returns the channel of delivered events. It is closed by Close or
// when the hub shuts down.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub 进程内事件分发，按群组名路由
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
	logger *zap.Logger
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger.With(zap.String("component", "event_hub")),
	}
}

// Subscribe registers a subscription for group.
func (h *Hub) Subscribe(group string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrPublisherClosed
	}
	s := &Subscription{group: group, ch: make(chan Event, h.buffer), hub: h}
	if h.subs[group] == nil {
		h.subs[group] = make(map[*Subscription]struct{})
	}
	h.subs[group][s] = struct{}{}
	return s, nil
}

// Subscribers returns the number of live subscriptions for group.
func (h *Hub) Subscribers(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[group])
}

// Publish delivers ev to the group's subscribers without blocking. A full
// subscriber buffer drops the event for that subscriber only.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrPublisherClosed
	}
	for s := range h.subs[ev.Group] {
		select {
		case s.ch <- ev:
		default:
			h.logger.Warn("dropping event for slow subscriber",
				zap.String("group", ev.Group), zap.String("type", string(ev.Type)))
		}
	}
	return nil
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.group]; ok {
		if _, ok := set[s]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.group)
			}
		}
	}
	s.once.Do(func() { close(s.ch) })
}

// Close closes every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, set := range h.subs {
		for s := range set {
			s.once.Do(func() { close(s.ch) })
		}
	}
	h.subs = make(map[string]map[*Subscription]struct{})
	return nil
}
