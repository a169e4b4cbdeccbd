package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per email and refuses further attempts
// once the limit is reached, until the lockout window lapses.
type LoginThrottle interface {
	Locked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type RedisLoginThrottle struct {
	client      *redis.Client
	maxFailures int
	lockoutTTL  time.Duration
}

func NewRedisLoginThrottle(client *redis.Client, maxFailures int, lockoutTTL time.Duration) *RedisLoginThrottle {
	return &RedisLoginThrottle{client: client, maxFailures: maxFailures, lockoutTTL: lockoutTTL}
}

func failureKey(email string) string {
	return "login:failures:" + email
}

func (t *RedisLoginThrottle) Locked(ctx context.Context, email string) (bool, error) {
	count, err := t.client.Get(ctx, failureKey(email)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count >= t.maxFailures, nil
}

func (t *RedisLoginThrottle) RecordFailure(ctx context.Context, email string) error {
	key := failureKey(email)
	if err := t.client.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return t.client.Expire(ctx, key, t.lockoutTTL).Err()
}

func (t *RedisLoginThrottle) Reset(ctx context.Context, email string) error {
	return t.client.Del(ctx, failureKey(email)).Err()
}
