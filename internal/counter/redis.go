package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// maxPoolSize bounds the number of open connections to the store.
	maxPoolSize = 30

	// poolTimeout bounds how long an increment waits for a free connection.
	poolTimeout = 10 * time.Second
)

// Redis keeps counters in Redis using INCR, which is atomic on the server.
type Redis struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to the store at url and verifies it is reachable.
func OpenRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	if url == "" {
		return nil, errors.New("redis counter store requires a URL")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.PoolSize = maxPoolSize
	opts.PoolTimeout = poolTimeout
	// Increments are never retried in-core.
	opts.MaxRetries = -1

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return NewRedis(client, prefix), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) IncrementReceived(ctx context.Context) (uint64, error) {
	return r.increment(ctx, Received)
}

func (r *Redis) IncrementSent(ctx context.Context) (uint64, error) {
	return r.increment(ctx, Sent)
}

func (r *Redis) increment(ctx context.Context, name string) (uint64, error) {
	value, err := r.client.Incr(ctx, key(r.prefix, name)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: increment %s: %v", ErrUnavailable, name, err)
	}
	return uint64(value), nil
}

func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	values, err := r.client.MGet(ctx, key(r.prefix, Received), key(r.prefix, Sent)).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("%w: read counters: %v", ErrUnavailable, err)
	}

	var stats Stats
	for i, dst := range []*uint64{&stats.Received, &stats.Sent} {
		s, ok := values[i].(string)
		if !ok {
			continue
		}
		if _, err := fmt.Sscan(s, dst); err != nil {
			return Stats{}, fmt.Errorf("%w: corrupt counter value %q: %v", ErrUnavailable, s, err)
		}
	}
	return stats, nil
}

func (r *Redis) Name() string {
	return "redis"
}

func (r *Redis) Close() error {
	return r.client.Close()
}
