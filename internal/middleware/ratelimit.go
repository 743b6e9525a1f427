package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// RateLimiter enforces fixed-window limits backed by Redis counters.
type RateLimiter struct {
	rdb *redis.Client
	env string
}

// NewRateLimiter returns a limiter for env. Limits are not enforced in
// test, development or stress environments.
func NewRateLimiter(rdb *redis.Client, env string) *RateLimiter {
	return &RateLimiter{rdb: rdb, env: env}
}

func (l *RateLimiter) enabled() bool {
	switch l.env {
	case "", "test", "development", "stress":
		return false
	}
	return true
}

// Allow reports whether one more call of resource by id fits in the window.
func (l *RateLimiter) Allow(ctx context.Context, resource, id string, limit int, window time.Duration) (bool, error) {
	if !l.enabled() {
		return true, nil
	}
	if l.rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// Limit returns a Fiber middleware enforcing limit requests per window under name.
// It keys by authenticated identity when known and by remote IP otherwise, failing open.
func (l *RateLimiter) Limit(limit int, window time.Duration, name string) fiber.Handler {
	return l.LimitWithPolicy(limit, window, name, FailOpen)
}

// LimitWithPolicy is Limit with an explicit failure policy.
func (l *RateLimiter) LimitWithPolicy(limit int, window time.Duration, name string, policy FailPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if userID, ok := UserID(c); ok {
			id = fmt.Sprintf("user:%d", userID)
		}

		allowed, err := l.Allow(c.UserContext(), name, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
					"resource", name, "error", err.Error())
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
