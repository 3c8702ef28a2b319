package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/visitor-tracker/internal/config"
	"github.com/iliyamo/visitor-tracker/internal/logger"
)

// cachedResponse is one cache entry.  It is stored as snappy-compressed
// JSON; visitor listings compress well and can get large.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func (r cachedResponse) encode() ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

func decodeCachedResponse(bs []byte) (cachedResponse, bool) {
	var r cachedResponse
	raw, err := snappy.Decode(nil, bs)
	if err != nil {
		return r, false
	}
	if err := json.Unmarshal(raw, &r); err != nil || r.Status == 0 {
		return r, false
	}
	return r, true
}

// bodyRecorder tees the response to the client and keeps up to limit bytes
// for the cache.  A limit of zero keeps everything.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (br *bodyRecorder) WriteHeader(code int) {
	br.status = code
	br.ResponseWriter.WriteHeader(code)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	if !br.overflow {
		if br.limit > 0 && br.body.Len()+len(b) > br.limit {
			br.overflow = true
			br.body.Reset()
		} else {
			br.body.Write(b)
		}
	}
	return br.ResponseWriter.Write(b)
}

// generationKey holds a counter bumped by CacheInvalidator.  Entry keys
// embed the generation current when the request started, so a response
// rendered from data older than the last write lands under a key that is
// never read again.
func generationKey(prefix string) string { return prefix + ":gen" }

// cacheKey hashes the parts of the request selected by cfg.KeyStrategy.
func cacheKey(cfg config.CacheConfig, c echo.Context, gen int64) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	var b strings.Builder
	if strings.HasPrefix(strategy, "method_") {
		b.WriteString(c.Request().Method)
		b.WriteByte(' ')
	}
	b.WriteString(c.Path())
	if strings.HasSuffix(strategy, "_query") || strategy == "" {
		b.WriteByte('?')
		b.WriteString(c.Request().URL.RawQuery)
	}
	sum := sha1.Sum([]byte(b.String()))
	return cfg.Prefix + ":" + strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:])
}

// storableHeader drops headers that depend on the caller rather than the
// resource.  CORS headers are set again by the CORS middleware on a hit.
func storableHeader(h http.Header) http.Header {
	out := h.Clone()
	for k := range out {
		if strings.HasPrefix(k, "Access-Control-") {
			delete(out, k)
		}
	}
	out.Del(echo.HeaderVary)
	out.Del(echo.HeaderContentLength)
	out.Del("X-Cache")
	return out
}

// NewRedisCache serves repeated reads of the visitor list and stats from
// Redis.  Only 200 responses are stored; a hit replays status, headers and
// body and is marked X-Cache: HIT.  Without a client it is a pass-through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()

			gen, err := rdb.Get(ctx, generationKey(cfg.Prefix)).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				logger.LogWf("cache: read generation failed: %v", err)
				return next(c)
			}
			key := cacheKey(cfg, c, gen)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if cached, ok := decodeCachedResponse(bs); ok {
					logger.LogD("cache: hit " + key)
					return replay(c, cached)
				}
			} else if !errors.Is(err, redis.Nil) {
				logger.LogWf("cache: get %s failed: %v", key, err)
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}

			entry := cachedResponse{Status: rec.status, Header: storableHeader(c.Response().Header()), Body: rec.body.Bytes()}
			payload, err := entry.encode()
			if err != nil {
				return nil
			}
			// the request context may already be cancelled once the body is written
			if err := rdb.Set(context.Background(), key, payload, ttl).Err(); err != nil {
				logger.LogWf("cache: set %s failed: %v", key, err)
			}
			return nil
		}
	}
}

// replay writes a cached response on top of the headers already set by
// earlier middleware.
func replay(c echo.Context, cached cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range cached.Header {
		h[k] = append([]string(nil), vals...)
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(cached.Status)
	if len(cached.Body) == 0 {
		return nil
	}
	_, err := c.Response().Write(cached.Body)
	return err
}

// CacheInvalidator retires every entry written by NewRedisCache by bumping
// the generation.  Old entries are left to expire.  The track handler
// calls it after each successful append.
type CacheInvalidator struct {
	prefix string
	rdb    *redis.Client
}

// NewCacheInvalidator returns nil when caching is off.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client) *CacheInvalidator {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &CacheInvalidator{prefix: cfg.Prefix, rdb: rdb}
}

// Invalidate bumps the generation.  A nil receiver is a no-op.
func (ci *CacheInvalidator) Invalidate(ctx context.Context) error {
	if ci == nil {
		return nil
	}
	return ci.rdb.Incr(ctx, generationKey(ci.prefix)).Err()
}
