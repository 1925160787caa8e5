package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BaSui01/agentroom/types"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrStoreClosed   = errors.New("store is closed")
	ErrInvalidInput  = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeFile     StoreType = "file"
	StoreTypeRedis    StoreType = "redis"
	StoreTypeDatabase StoreType = "database"
	StoreTypeBadger   StoreType = "badger"
	StoreTypeMongo    StoreType = "mongo"
)

// StoreConfig selects and configures the group store backend.
type StoreConfig struct {
	// Type is the storage backend type
	Type StoreType `json:"type" yaml:"type" split_words:"true" validate:"omitempty,oneof=memory file redis database badger mongo"`

	// BaseDir is the directory for the file backend and the default badger directory
	BaseDir string `json:"base_dir" yaml:"base_dir" split_words:"true"`

	// OpTimeout bounds every backend call; 0 disables the bound
	OpTimeout time.Duration `json:"op_timeout" yaml:"op_timeout" split_words:"true"`

	Badger BadgerStoreConfig `json:"badger" yaml:"badger"`
	Mongo  MongoStoreConfig  `json:"mongo" yaml:"mongo"`
}

// BadgerStoreConfig configures the embedded badger backend.
type BadgerStoreConfig struct {
	// Dir defaults to <BaseDir>/badger
	Dir string `json:"dir" yaml:"dir" split_words:"true"`

	// InMemory keeps everything in RAM (tests, ephemeral demos)
	InMemory bool `json:"in_memory" yaml:"in_memory" split_words:"true"`
}

// MongoStoreConfig names the database and collection for the mongo backend.
type MongoStoreConfig struct {
	Database   string `json:"database" yaml:"database" split_words:"true"`
	Collection string `json:"collection" yaml:"collection" split_words:"true"`
}

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:      StoreTypeMemory,
		BaseDir:   "./data/groups",
		OpTimeout: 5 * time.Second,
		Mongo: MongoStoreConfig{
			Database:   "agentroom",
			Collection: "groups",
		},
	}
}

// Store is the base interface for all persistent stores
type Store interface {
	// Close closes the store and releases resources
	Close() error

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error
}

// GroupStore persists group records {name, agents, conversation}.
// Save is an upsert of the whole record; the conversation is replaced, not merged.
type GroupStore interface {
	Store

	// Save creates or replaces the group record
	Save(ctx context.Context, group types.Group) error

	// Load returns the record or ErrNotFound
	Load(ctx context.Context, name string) (types.Group, error)

	// Delete removes the record or returns ErrNotFound
	Delete(ctx context.Context, name string) error

	// List returns every record sorted by name
	List(ctx context.Context) ([]types.Group, error)
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidInput
	}
	return nil
}

// normalize makes nil slices empty so every backend round-trips the same shape.
func normalize(g types.Group) types.Group {
	g = g.Clone()
	if g.Agents == nil {
		g.Agents = []string{}
	}
	if g.Conversation == nil {
		g.Conversation = []types.Message{}
	}
	return g
}
