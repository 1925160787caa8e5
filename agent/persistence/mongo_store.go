package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/agentroom/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoGroupStore keeps one document per group, keyed by name (_id).
type MongoGroupStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoGroupStore uses an already connected client. The client is not
// owned by the store.
func NewMongoGroupStore(client *mongo.Client, config MongoStoreConfig) (*MongoGroupStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: mongo client is required for the mongo store", ErrInvalidInput)
	}
	if config.Database == "" || config.Collection == "" {
		return nil, fmt.Errorf("%w: mongo database and collection are required", ErrInvalidInput)
	}
	return &MongoGroupStore{
		client: client,
		coll:   client.Database(config.Database).Collection(config.Collection),
	}, nil
}

func byName(name string) bson.D { return bson.D{{Key: "_id", Value: name}} }

func (s *MongoGroupStore) Save(ctx context.Context, group types.Group) error {
	if err := validName(group.Name); err != nil {
		return err
	}
	_, err := s.coll.ReplaceOne(ctx, byName(group.Name), normalize(group), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	return nil
}

func (s *MongoGroupStore) Load(ctx context.Context, name string) (types.Group, error) {
	var g types.Group
	err := s.coll.FindOne(ctx, byName(name)).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.Group{}, ErrNotFound
	}
	if err != nil {
		return types.Group{}, err
	}
	return normalize(g), nil
}

func (s *MongoGroupStore) Delete(ctx context.Context, name string) error {
	res, err := s.coll.DeleteOne(ctx, byName(name))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoGroupStore) List(ctx context.Context) ([]types.Group, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var groups []types.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	out := make([]types.Group, len(groups))
	for i, g := range groups {
		out[i] = normalize(g)
	}
	return out, nil
}

func (s *MongoGroupStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close is a no-op; the client is disconnected by its owner.
func (s *MongoGroupStore) Close() error { return nil }
