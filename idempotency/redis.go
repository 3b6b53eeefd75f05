package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultTTL is how long a confirmed-transfer key is kept. Settlement runs
// are retried within minutes, not weeks, so this is generous.
const defaultTTL = 30 * 24 * time.Hour

// Redis is a registry shared across processes.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to the given Redis URL and verifies the connection.
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisWithClient(client), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		prefix: "settle:txn:",
		ttl:    defaultTTL,
	}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Lookup implements Registry.
func (r *Redis) Lookup(ctx context.Context, key string) (string, bool, error) {
	ref, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up transfer key: %w", err)
	}
	return ref, true, nil
}

// Record implements Registry. SETNX keeps the first reference on replay.
func (r *Redis) Record(ctx context.Context, key, reference string) error {
	if err := r.client.SetNX(ctx, r.key(key), reference, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record transfer key: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
