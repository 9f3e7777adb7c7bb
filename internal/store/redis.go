package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces state keys in a shared redis.
const DefaultRedisPrefix = "stocksync:"

// Redis stores each key as a redis string. Batches run inside MULTI/EXEC.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, db int, prefix string) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis store: address is required")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis store: ping: %w", err)
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis store: get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) SetMany(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, r.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis store: set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis store: delete: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
