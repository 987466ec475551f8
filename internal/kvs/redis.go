package kvs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis store backend.
type RedisConfig struct {
	// Address is the Redis server address (e.g. "localhost:6379").
	Address string

	// Password for Redis authentication (optional).
	Password string

	// Database number to use (default 0).
	Database int

	// Prefix is prepended to all attribute paths.
	Prefix string

	// Timeout bounds individual Redis operations.
	Timeout time.Duration

	// PoolSize is the maximum number of connections.
	PoolSize int
}

// DefaultRedisConfig returns sensible defaults for address.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:  address,
		Prefix:   "jobmeta:",
		Timeout:  5 * time.Second,
		PoolSize: 10,
	}
}

// Redis is a Store backed by a shared Redis instance, for deployments
// where several jobmeta processes serve the same metadata.
type Redis struct {
	cfg    RedisConfig
	client *redis.Client
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{cfg: cfg, client: client}, nil
}

func (r *Redis) key(path string) string {
	return r.cfg.Prefix + path
}

// Get retrieves the value stored at path.
func (r *Redis) Get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	value, err := r.client.Get(ctx, r.key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", path, err)
	}
	return value, nil
}

// Put stores value at path with no expiration.
func (r *Redis) Put(ctx context.Context, path string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(path), value, 0).Err(); err != nil {
		return fmt.Errorf("put %q: %w", path, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
