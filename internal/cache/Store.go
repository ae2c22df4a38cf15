// This file contains the Store interface and the RedisStore implementation.
// Cache misses are reported through the found flag rather than an error, so callers
// can fall through to the database without an errors.Is dance on every read.

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frankk00/gaetools/internal/log"
)

// Store is the cache interface used throughout the application.
type Store interface {
	// Get returns the cached value for key. found is false on a cache miss.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key for ttl. A ttl of 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key from the cache. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

type RedisStore struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisStore creates a Store backed by the Redis instance at addr.
func NewRedisStore(addr, password string, logger *log.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Ping checks the Redis connection. Used by the capability checker.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
