package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keys
const (
	// FolderHandleKey holds the resolved output folder as JSON {path, uri}
	FolderHandleKey = "challan:baseUri"
)

// RedisStore is a Store backed by Redis. A nil client degrades to a store
// that never hits and silently drops writes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Options for connecting to Redis
type Options struct {
	Addr     string
	Password string
	DB       int
	// TTL applied to every Set; zero keeps keys until deleted
	TTL time.Duration
}

// Init connects to Redis. On a failed ping the client is closed and a
// degraded store is returned together with the error.
func Init(opts Options) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		return &RedisStore{}, err
	}
	return &RedisStore{client: client, ttl: opts.TTL}, nil
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Client returns the Redis client, nil when degraded
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.client == nil {
		return "", false, nil
	}
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Set(ctx, key, value, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

// IsHealthy returns true if Redis connection is working
func (s *RedisStore) IsHealthy(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}

func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
