package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/BaSui01/agentroom/types"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const badgerGroupPrefix = "group:"

// BadgerGroupStore is an embedded key-value backend: one JSON value per group.
// Suitable for single-node deployments without an external database.
type BadgerGroupStore struct {
	db *badger.DB
}

// NewBadgerGroupStore opens (or creates) the badger database.
func NewBadgerGroupStore(config StoreConfig, logger *zap.Logger) (*BadgerGroupStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if config.Badger.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := config.Badger.Dir
		if dir == "" {
			if config.BaseDir == "" {
				return nil, fmt.Errorf("%w: badger dir or base_dir is required", ErrInvalidInput)
			}
			dir = filepath.Join(config.BaseDir, "badger")
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(badgerLogger{logger.With(zap.String("component", "badger")).Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerGroupStore{db: db}, nil
}

func badgerKey(name string) []byte { return []byte(badgerGroupPrefix + name) }

func (s *BadgerGroupStore) Save(ctx context.Context, group types.Group) error {
	if err := validName(group.Name); err != nil {
		return err
	}
	data, err := json.Marshal(normalize(group))
	if err != nil {
		return fmt.Errorf("failed to marshal group: %w", err)
	}
	return mapBadgerErr(s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(group.Name), data)
	}))
}

func (s *BadgerGroupStore) Load(ctx context.Context, name string) (types.Group, error) {
	var g types.Group
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &g)
		})
	})
	if err != nil {
		return types.Group{}, mapBadgerErr(err)
	}
	return normalize(g), nil
}

func (s *BadgerGroupStore) Delete(ctx context.Context, name string) error {
	return mapBadgerErr(s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(name)); err != nil {
			return err
		}
		return txn.Delete(badgerKey(name))
	}))
}

// List iterates keys in byte order, which is name order.
func (s *BadgerGroupStore) List(ctx context.Context) ([]types.Group, error) {
	out := []types.Group{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(badgerGroupPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var g types.Group
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &g)
			}); err != nil {
				return err
			}
			out = append(out, normalize(g))
		}
		return nil
	})
	if err != nil {
		return nil, mapBadgerErr(err)
	}
	return out, nil
}

func (s *BadgerGroupStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return ErrStoreClosed
	}
	return nil
}

// Close flushes and closes the database.
func (s *BadgerGroupStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

func mapBadgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case errors.Is(err, badger.ErrDBClosed):
		return ErrStoreClosed
	default:
		return err
	}
}

// badgerLogger routes badger's printf logging into zap.
type badgerLogger struct{ s *zap.SugaredLogger }

func (l badgerLogger) Errorf(f string, v ...any)   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...any) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...any)    { l.s.Debugf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...any)   { l.s.Debugf(f, v...) }
