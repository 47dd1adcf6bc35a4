package middleware

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/paypark-backend/internal/apperr"
)

// fixedWindow counts hits in KEYS[1] and starts the window on the first hit.
// It returns the count and the milliseconds left in the window.
var fixedWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {n, ttl}
`)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Prefix string
	Limit  int
	Window time.Duration
}

// RateLimit caps requests per client IP and route in a fixed window stored
// in Redis. Without a client, or when Redis fails, requests pass through.
func RateLimit(cfg RateLimitConfig, rdb redis.Scripter) fiber.Handler {
	if rdb == nil || cfg.Limit <= 0 || cfg.Window <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		key := rateKey(cfg.Prefix, c)
		vals, err := fixedWindow.Run(c.UserContext(), rdb, []string{key}, cfg.Window.Milliseconds()).Int64Slice()
		if err != nil || len(vals) != 2 {
			logrus.WithError(err).WithField("key", key).Warn("Rate limiter unavailable, allowing request")
			return c.Next()
		}
		count, ttlMs := vals[0], vals[1]

		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.Limit) {
			secs := int(math.Ceil(float64(ttlMs) / 1000.0))
			if secs < 1 {
				secs = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return apperr.RateLimited(fmt.Sprintf("Too many OTP requests. Try again in %d seconds", secs), secs)
		}
		return c.Next()
	}
}

func rateKey(prefix string, c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		ip = "unknown"
	}
	return fmt.Sprintf("%s:%s:%s", prefix, ip, c.Path())
}
