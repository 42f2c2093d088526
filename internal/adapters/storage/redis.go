package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/classroom/signup-engine/internal/config"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

const redisKeyPrefix = "signup:draft:"

// RedisClient is the subset of go-redis used for draft slots.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSubstrate stores each device's draft under its own key. Redis expiry is
// set to the draft TTL, so abandoned slots disappear even if never read again.
type RedisSubstrate struct {
	client RedisClient
	ttl    time.Duration
	cb     *gobreaker.CircuitBreaker
}

var _ ports.DraftSubstrate = (*RedisSubstrate)(nil)

func NewRedisSubstrate(client RedisClient, ttl time.Duration) *RedisSubstrate {
	return &RedisSubstrate{
		client: client,
		ttl:    ttl,
		cb:     config.NewCircuitBreaker("Redis-Drafts"),
	}
}

func (r *RedisSubstrate) Read(ctx context.Context, key string) ([]byte, error) {
	res, err := r.cb.Execute(func() (interface{}, error) {
		val, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ports.ErrNotFound
	}
	return res.([]byte), nil
}

func (r *RedisSubstrate) Write(ctx context.Context, key string, value []byte) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, redisKeyPrefix+key, string(value), r.ttl).Err()
	})
	return err
}

func (r *RedisSubstrate) Delete(ctx context.Context, key string) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.client.Del(ctx, redisKeyPrefix+key).Err()
	})
	return err
}
