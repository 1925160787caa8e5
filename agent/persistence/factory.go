package persistence

import (
	"fmt"

	"github.com/BaSui01/agentroom/internal/cache"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps carries the shared connections a backend may need. Only the one
// matching StoreConfig.Type has to be set.
type Deps struct {
	Redis    *cache.Manager
	DB       *gorm.DB
	Mongo    *mongo.Client
	Recorder OpRecorder
	Logger   *zap.Logger
}

// NewGroupStore creates a GroupStore based on the configuration
func NewGroupStore(config StoreConfig, deps Deps) (GroupStore, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if config.Type == "" {
		config.Type = StoreTypeMemory
	}

	var (
		store GroupStore
		err   error
	)
	switch config.Type {
	case StoreTypeMemory:
		store = NewMemoryGroupStore()
	case StoreTypeFile:
		store, err = NewFileGroupStore(config)
	case StoreTypeRedis:
		store, err = NewRedisGroupStore(deps.Redis)
	case StoreTypeDatabase:
		store, err = NewDatabaseGroupStore(deps.DB)
	case StoreTypeBadger:
		store, err = NewBadgerGroupStore(config, deps.Logger)
	case StoreTypeMongo:
		store, err = NewMongoGroupStore(deps.Mongo, config.Mongo)
	default:
		return nil, fmt.Errorf("unsupported group store type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	deps.Logger.Info("group store initialized",
		zap.String("component", "persistence"),
		zap.String("type", string(config.Type)),
	)
	return Instrument(store, config.Type, config.OpTimeout, deps.Recorder), nil
}

// MustNewGroupStore creates a new GroupStore or panics on error.
//
// WARNING: This function should ONLY be used during application initialization.
// For runtime store creation, use NewGroupStore instead.
func MustNewGroupStore(config StoreConfig, deps Deps) GroupStore {
	store, err := NewGroupStore(config, deps)
	if err != nil {
		panic(fmt.Sprintf("failed to create group store: %v", err))
	}
	return store
}
