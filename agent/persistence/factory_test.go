package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/agentroom/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedOp struct {
	backend, op string
	err         error
}

type fakeRecorder struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (r *fakeRecorder) RecordStoreOp(backend, op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, recordedOp{backend: backend, op: op, err: err})
}

func TestNewGroupStore_Types(t *testing.T) {
	tests := []struct {
		name    string
		config  StoreConfig
		deps    Deps
		wantErr bool
	}{
		{name: "default is memory", config: StoreConfig{}},
		{name: "memory", config: StoreConfig{Type: StoreTypeMemory}},
		{name: "file", config: StoreConfig{Type: StoreTypeFile, BaseDir: t.TempDir()}},
		{name: "badger in memory", config: StoreConfig{Type: StoreTypeBadger, Badger: BadgerStoreConfig{InMemory: true}}},
		{name: "redis without manager", config: StoreConfig{Type: StoreTypeRedis}, wantErr: true},
		{name: "database without db", config: StoreConfig{Type: StoreTypeDatabase}, wantErr: true},
		{name: "mongo without client", config: StoreConfig{Type: StoreTypeMongo, Mongo: DefaultStoreConfig().Mongo}, wantErr: true},
		{name: "unknown", config: StoreConfig{Type: "etcd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewGroupStore(tt.config, tt.deps)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.NoError(t, store.Ping(context.Background()))
		})
	}
}

func TestMustNewGroupStore_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNewGroupStore(StoreConfig{Type: "nope"}, Deps{}) })
	assert.NotPanics(t, func() { MustNewGroupStore(DefaultStoreConfig(), Deps{}) })
}

func TestInstrumentedStore_RecordsOps(t *testing.T) {
	rec := &fakeRecorder{}
	store := Instrument(NewMemoryGroupStore(), StoreTypeMemory, time.Second, rec)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, types.Group{Name: "g"}))
	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.List(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "g"))
	require.NoError(t, store.Ping(ctx))

	require.Len(t, rec.ops, 5)
	assert.Equal(t, recordedOp{backend: "memory", op: "save"}, rec.ops[0])
	assert.Equal(t, "load", rec.ops[1].op)
	assert.ErrorIs(t, rec.ops[1].err, ErrNotFound)
	assert.Equal(t, []string{"list", "delete", "ping"}, []string{rec.ops[2].op, rec.ops[3].op, rec.ops[4].op})
	assert.IsType(t, &MemoryGroupStore{}, store.Unwrap())
}

type slowStore struct{ GroupStore }

func (slowStore) Load(ctx context.Context, _ string) (types.Group, error) {
	<-ctx.Done()
	return types.Group{}, ctx.Err()
}

func TestInstrumentedStore_Timeout(t *testing.T) {
	store := Instrument(slowStore{NewMemoryGroupStore()}, StoreTypeMemory, 20*time.Millisecond, nil)

	_, err := store.Load(context.Background(), "g")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
