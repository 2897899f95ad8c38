package middleware

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds per-client request budgets
type RateLimitConfig struct {
	PerSecond int
	PerMinute int
}

// DefaultRateLimits returns budgets sized for a public evacuation API:
// generous enough for a map client polling layers, tight enough to stop
// a single origin from starving route computation for everyone else.
func DefaultRateLimits() RateLimitConfig {
	return RateLimitConfig{
		PerSecond: 10,
		PerMinute: 300,
	}
}

// RateLimit limits requests per client IP using Redis counters. Redis
// being unavailable never blocks traffic: the middleware fails open.
func RateLimit(rdb *redis.Client, limits RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		ctx := context.Background()
		now := time.Now()

		keySecond := fmt.Sprintf("rl:ip:%s:second:%d", ip, now.Unix())
		keyMinute := fmt.Sprintf("rl:ip:%s:minute:%s", ip, now.Format("2006-01-02T15:04"))

		if limits.PerSecond > 0 {
			count, err := rdb.Incr(ctx, keySecond).Result()
			if err != nil {
				log.Printf("Warning: rate limit check failed: %v", err)
				return c.Next()
			}
			rdb.Expire(ctx, keySecond, 2*time.Second)

			if count > int64(limits.PerSecond) {
				c.Set("Retry-After", "1")
				return c.Status(429).JSON(fiber.Map{
					"error": "rate limit exceeded",
				})
			}
		}

		if limits.PerMinute > 0 {
			count, err := rdb.Incr(ctx, keyMinute).Result()
			if err != nil {
				log.Printf("Warning: rate limit check failed: %v", err)
				return c.Next()
			}
			rdb.Expire(ctx, keyMinute, 2*time.Minute)

			if count > int64(limits.PerMinute) {
				c.Set("Retry-After", strconv.Itoa(60-now.Second()))
				return c.Status(429).JSON(fiber.Map{
					"error": "rate limit exceeded",
				})
			}
		}

		return c.Next()
	}
}
