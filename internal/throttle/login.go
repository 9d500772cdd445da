// Package throttle counts failed logins per email in Redis and locks the
// email out once a limit is reached within the lockout window.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login:fail:"

// LoginThrottle is a fixed-window failed-login counter.
type LoginThrottle struct {
	client      redis.Cmdable
	maxAttempts int64
	lockout     time.Duration
}

// NewLoginThrottle creates a throttle allowing maxAttempts failures per
// lockout window.
func NewLoginThrottle(client redis.Cmdable, maxAttempts int, lockout time.Duration) *LoginThrottle {
	return &LoginThrottle{
		client:      client,
		maxAttempts: int64(maxAttempts),
		lockout:     lockout,
	}
}

// Allow reports whether email may attempt a login, and if not how long the
// lockout still lasts.
func (t *LoginThrottle) Allow(ctx context.Context, email string) (bool, time.Duration, error) {
	key := keyPrefix + email

	n, err := t.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, 0, nil
		}
		return false, 0, fmt.Errorf("redis get login failures: %w", err)
	}
	if n < t.maxAttempts {
		return true, 0, nil
	}

	ttl, err := t.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis ttl login failures: %w", err)
	}
	if ttl < 0 {
		ttl = t.lockout
	}
	return false, ttl, nil
}

// Fail records a failed attempt. The window starts at the first failure.
func (t *LoginThrottle) Fail(ctx context.Context, email string) error {
	key := keyPrefix + email

	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis incr login failures: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, t.lockout).Err(); err != nil {
			return fmt.Errorf("redis expire login failures: %w", err)
		}
	}
	return nil
}

// Reset clears the failure count after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) error {
	if err := t.client.Del(ctx, keyPrefix+email).Err(); err != nil {
		return fmt.Errorf("redis reset login failures: %w", err)
	}
	return nil
}

// Noop never throttles. It is used when no Redis is configured.
type Noop struct{}

// Allow always allows.
func (Noop) Allow(context.Context, string) (bool, time.Duration, error) { return true, 0, nil }

// Fail does nothing.
func (Noop) Fail(context.Context, string) error { return nil }

// Reset does nothing.
func (Noop) Reset(context.Context, string) error { return nil }
