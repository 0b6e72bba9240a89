package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"consentd/pkg/platform/sentinel"
)

// MongoStore keeps one document per key, with _id "<namespace>:<key>".
type MongoStore struct {
	collection *mongo.Collection
	namespace  string
}

type mongoEntry struct {
	ID        string    `bson:"_id"`
	Namespace string    `bson:"namespace"`
	Key       string    `bson:"key"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongo constructs a MongoDB-backed store for namespace.
func NewMongo(db *mongo.Database, collectionName, namespace string) *MongoStore {
	return &MongoStore{
		collection: db.Collection(collectionName),
		namespace:  namespace,
	}
}

func (s *MongoStore) id(key string) string {
	return s.namespace + ":" + key
}

func (s *MongoStore) Get(ctx context.Context, key string) (string, error) {
	var entry mongoEntry
	err := s.collection.FindOne(ctx, bson.M{"_id": s.id(key)}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("mongo find %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return entry.Value, nil
}

func (s *MongoStore) Set(ctx context.Context, key, value string) error {
	entry := mongoEntry{
		ID:        s.id(key),
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": entry.ID}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Remove(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": s.id(key)}); err != nil {
		return fmt.Errorf("mongo delete %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}
