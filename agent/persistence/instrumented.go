package persistence

import (
	"context"
	"time"

	"github.com/BaSui01/agentroom/types"
)

// OpRecorder receives the outcome of every store call (metrics collector).
type OpRecorder interface {
	RecordStoreOp(backend, op string, duration time.Duration, err error)
}

// InstrumentedStore bounds each call with a timeout and reports its duration.
type InstrumentedStore struct {
	inner    GroupStore
	backend  string
	timeout  time.Duration
	recorder OpRecorder
}

// Instrument wraps inner. A zero timeout and a nil recorder make it a pass-through.
func Instrument(inner GroupStore, backend StoreType, timeout time.Duration, recorder OpRecorder) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, backend: string(backend), timeout: timeout, recorder: recorder}
}

// Unwrap returns the wrapped store.
func (s *InstrumentedStore) Unwrap() GroupStore { return s.inner }

func (s *InstrumentedStore) do(ctx context.Context, op string, fn func(context.Context) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	if s.recorder != nil {
		s.recorder.RecordStoreOp(s.backend, op, time.Since(start), err)
	}
	return err
}

func (s *InstrumentedStore) Save(ctx context.Context, group types.Group) error {
	return s.do(ctx, "save", func(ctx context.Context) error {
		return s.inner.Save(ctx, group)
	})
}

func (s *InstrumentedStore) Load(ctx context.Context, name string) (types.Group, error) {
	var g types.Group
	err := s.do(ctx, "load", func(ctx context.Context) error {
		var err error
		g, err = s.inner.Load(ctx, name)
		return err
	})
	return g, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, name string) error {
	return s.do(ctx, "delete", func(ctx context.Context) error {
		return s.inner.Delete(ctx, name)
	})
}

func (s *InstrumentedStore) List(ctx context.Context) ([]types.Group, error) {
	var out []types.Group
	err := s.do(ctx, "list", func(ctx context.Context) error {
		var err error
		out, err = s.inner.List(ctx)
		return err
	})
	return out, err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", s.inner.Ping)
}

func (s *InstrumentedStore) Close() error { return s.inner.Close() }
