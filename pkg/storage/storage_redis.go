package storage

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// Redis keeps every key as a plain string under a common prefix
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a Redis store. prefix namespaces the keys, e.g. "tracker:"
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Get reads key
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "could not read %s", key)
	}

	return value, true, nil
}

// Set writes key without expiration
func (r *Redis) Set(ctx context.Context, key string, value string) error {
	err := r.client.Set(ctx, r.prefix+key, value, 0).Err()
	if err != nil {
		return errors.Wrapf(err, "could not write %s", key)
	}

	return nil
}

// Remove deletes key
func (r *Redis) Remove(ctx context.Context, key string) error {
	err := r.client.Del(ctx, r.prefix+key).Err()
	if err != nil {
		return errors.Wrapf(err, "could not remove %s", key)
	}

	return nil
}
