package storage

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores one document per key: {_id: key, value: value}
type Mongo struct {
	DB *mongo.Collection
}

type mongoEntry struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// Get reads key
func (s *Mongo) Get(ctx context.Context, key string) (string, bool, error) {
	var entry = mongoEntry{}

	result := s.DB.FindOne(ctx, bson.M{"_id": key})
	if result.Err() == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if result.Err() != nil {
		return "", false, errors.Wrapf(result.Err(), "could not read %s", key)
	}

	err := result.Decode(&entry)
	if err != nil {
		return "", false, errors.Wrapf(err, "could not decode %s", key)
	}

	return entry.Value, true, nil
}

// Set upserts key
func (s *Mongo) Set(ctx context.Context, key string, value string) error {
	_, err := s.DB.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrapf(err, "could not write %s", key)
	}

	return nil
}

// Remove deletes key
func (s *Mongo) Remove(ctx context.Context, key string) error {
	_, err := s.DB.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return errors.Wrapf(err, "could not remove %s", key)
	}

	return nil
}
