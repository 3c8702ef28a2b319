package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/visitor-tracker/internal/config"
	"github.com/iliyamo/visitor-tracker/internal/logger"
)

// takeScript refills the bucket continuously from the time elapsed since
// the last call and then tries to take one token.
// KEYS[1] bucket; ARGV now_ms, capacity, tokens_per_ms, ttl_ms.
// Returns {allowed, whole tokens left, ms until a token is available}.
var takeScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local per_ms = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local b = redis.call('HMGET', KEYS[1], 'level', 'ts')
local level = tonumber(b[1]) or cap
local ts = tonumber(b[2]) or now
level = math.min(cap, level + math.max(0, now - ts) * per_ms)

local ok, wait = 0, 0
if level >= 1 then
  ok = 1
  level = level - 1
else
  wait = math.ceil((1 - level) / per_ms)
end

redis.call('HSET', KEYS[1], 'level', tostring(level), 'ts', now)
redis.call('PEXPIRE', KEYS[1], ttl)
return {ok, math.floor(level), wait}
`)

// verdict is the outcome of taking one token from a bucket.
type verdict struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

// bucket hands out tokens per key.
type bucket interface {
	take(ctx context.Context, key string) (verdict, error)
}

type redisBucket struct {
	rdb *redis.Client
	cfg config.RateLimitConfig
}

func (b redisBucket) take(ctx context.Context, key string) (verdict, error) {
	perMs := b.cfg.RefillPerSecond() / 1000
	res, err := takeScript.Run(ctx, b.rdb, []string{key},
		time.Now().UnixMilli(), b.cfg.Capacity, perMs, b.cfg.TTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(res) != 3 {
		return verdict{}, redis.Nil
	}
	return verdict{
		allowed:   res[0] == 1,
		remaining: res[1],
		wait:      time.Duration(res[2]) * time.Millisecond,
	}, nil
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewTokenBucket limits requests with buckets kept in Redis, so several
// server processes share one budget per key.  A Redis error lets the
// request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return limitWith(cfg, redisBucket{rdb: rdb, cfg: cfg})
}

// NewLocalTokenBucket keeps the buckets in process memory.  It is used when
// Redis is unavailable.  Idle keys are swept until ctx is done.
func NewLocalTokenBucket(ctx context.Context, cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return passThrough
	}
	b := newLocalBucket(cfg)
	go b.sweepEvery(ctx, cfg.TTL/2)
	return limitWith(cfg, b)
}

func limitWith(cfg config.RateLimitConfig, b bucket) echo.MiddlewareFunc {
	limit := strconv.Itoa(cfg.Capacity)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			v, err := b.take(c.Request().Context(), key)
			if err != nil {
				logger.LogWf("ratelimit: %s: %v", key, err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if v.allowed {
				return next(c)
			}

			retry := int(math.Ceil(v.wait.Seconds()))
			if retry < 1 {
				retry = 1
			}
			h.Set("Retry-After", strconv.Itoa(retry))
			if cfg.Debug {
				logger.LogIf("ratelimit: rejected %s, retry in %s", key, v.wait)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"success":     false,
				"message":     "Too many requests",
				"retry_after": retry,
			})
		}
	}
}

// rateKey scopes a bucket to the client IP, the route, or both
// (ip_route, the default).
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		return cfg.Prefix + ":ip:" + ip
	case "route":
		return cfg.Prefix + ":route:" + route
	}
	return cfg.Prefix + ":ip:" + ip + ":route:" + route
}
