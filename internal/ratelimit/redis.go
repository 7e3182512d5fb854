package ratelimit

import (
	"context"
	"fmt"
	"time"

	"costumier/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces one booking attempt per key per window using a
// SET NX key with TTL. Shared state survives process restarts and is
// correct across multiple instances.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(cfg config.RedisConfig) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisLimiter{client: client}, nil
}

// NewRedisLimiterWithClient wraps an existing client shared with other
// Redis consumers.
func NewRedisLimiterWithClient(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Allow returns true when no attempt is recorded for the key and records
// this one. The key expires on its own after the window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, "ratelimit:booking:"+key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit setnx: %w", err)
	}
	return ok, nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
