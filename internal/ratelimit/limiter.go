// Package ratelimit implements the fixed-window rate limiter enforced
// by the downstream endpoint. Fails open on any Redis error.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments a per-client counter and sets a
// one-window expiry on the first increment, so the window resets
// `window` seconds after the first request rather than rolling.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
    redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
    return 0
end
return 1
`)

type Limiter struct {
	client *redis.Client
	logger *slog.Logger
	script *redis.Script
	limit  int
	window time.Duration
}

func New(client *redis.Client, logger *slog.Logger, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		logger: logger,
		script: fixedWindowScript,
		limit:  limit,
		window: window,
	}
}

// Allow reports whether a request from key is within the current fixed
// window. On any Redis failure it fails open (allows the request) and
// logs the error.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.limit <= 0 {
		return true
	}

	windowKey := fmt.Sprintf("rate_limit:%s", key)
	windowSeconds := int(l.window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}

	result, err := l.script.Run(ctx, l.client, []string{windowKey}, l.limit, windowSeconds).Int64()
	if err != nil {
		l.logger.Error("rate limiter script failed", "error", err, "key", key)
		return true
	}

	if result == 0 {
		l.logger.Debug("rate limited", "key", key, "limit", l.limit)
		return false
	}
	return true
}
