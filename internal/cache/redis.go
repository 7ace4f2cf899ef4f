// Package cache keeps pages of the public story listing in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/data"
	"github.com/redis/go-redis/v9"
)

const prefix = "stories:published:"

// Redis caches listing pages under a generation number. Invalidate bumps the
// generation, which orphans every cached page at once; orphans expire by TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(redisURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisWithClient(client, ttl), nil
}

func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, prefix+"gen").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache generation: %w", err)
	}
	return gen, nil
}

func pageKey(gen int64, page data.Page) string {
	return fmt.Sprintf("%sv%d:p%d:l%d", prefix, gen, page.Page, page.Limit)
}

func (r *Redis) Get(ctx context.Context, page data.Page) ([]data.Story, bool, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return nil, false, err
	}
	raw, err := r.client.Get(ctx, pageKey(gen, page)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached page: %w", err)
	}

	var stories []data.Story
	if err := json.Unmarshal(raw, &stories); err != nil {
		return nil, false, fmt.Errorf("decode cached page: %w", err)
	}
	return stories, true, nil
}

func (r *Redis) Set(ctx context.Context, page data.Page, stories []data.Story) error {
	gen, err := r.generation(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(stories)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	if err := r.client.Set(ctx, pageKey(gen, page), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("write cached page: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, prefix+"gen").Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
