package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visitor-tracker/internal/config"
)

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "visitors-cache",
		MaxBodyBytes: 1024,
	}
}

func TestCachedResponseRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	hdr.Set(echo.HeaderAccessControlAllowOrigin, "*")
	in := cachedResponse{
		Status: http.StatusOK,
		Header: hdr,
		Body:   []byte(`{"success":true,"count":0,"visitors":[]}`),
	}

	bs, err := in.encode()
	require.NoError(t, err)

	out, ok := decodeCachedResponse(bs)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestDecodeCachedResponse_RejectsGarbage(t *testing.T) {
	_, ok := decodeCachedResponse([]byte{0, 0, 0})
	assert.False(t, ok)

	// valid snappy, but not an entry
	_, ok = decodeCachedResponse(snappy.Encode(nil, []byte(`{"body":"eA=="}`)))
	assert.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	cfg := testCacheConfig()
	e := echo.New()

	key := func(method, target string) string {
		req := httptest.NewRequest(method, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/api/stats")
		return cacheKey(cfg, c, 0)
	}

	a := key(http.MethodGet, "/api/stats")
	assert.Equal(t, a, key(http.MethodGet, "/api/stats"))
	assert.NotEqual(t, a, key(http.MethodGet, "/api/stats?x=1"))
	assert.Equal(t, a, key(http.MethodHead, "/api/stats"))
	assert.Regexp(t, `^visitors-cache:0:[0-9a-f]{40}$`, a)

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/stats", nil), httptest.NewRecorder())
	c.SetPath("/api/stats")
	assert.NotEqual(t, a, cacheKey(cfg, c, 1))

	cfg.KeyStrategy = "route"
	assert.Equal(t, key(http.MethodGet, "/api/stats"), key(http.MethodGet, "/api/stats?x=1"))

	cfg.KeyStrategy = "method_route"
	assert.NotEqual(t, key(http.MethodGet, "/api/stats"), key(http.MethodHead, "/api/stats"))
}

func TestStorableHeader_DropsCallerSpecificHeaders(t *testing.T) {
	h := http.Header{}
	h.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	h.Set(echo.HeaderAccessControlAllowOrigin, "https://a.example")
	h.Set(echo.HeaderAccessControlAllowCredentials, "true")
	h.Set(echo.HeaderVary, echo.HeaderOrigin)
	h.Set(echo.HeaderContentLength, "12")
	h.Set("X-Cache", "MISS")

	out := storableHeader(h)

	assert.Equal(t, http.Header{echo.HeaderContentType: {echo.MIMEApplicationJSON}}, out)
	assert.Equal(t, "https://a.example", h.Get(echo.HeaderAccessControlAllowOrigin))
}

func TestBodyRecorder_Limit(t *testing.T) {
	rec := httptest.NewRecorder()
	br := &bodyRecorder{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	_, _ = br.Write([]byte("abc"))
	assert.False(t, br.overflow)
	assert.Equal(t, "abc", br.body.String())

	_, _ = br.Write([]byte("def"))
	assert.True(t, br.overflow)
	assert.Zero(t, br.body.Len())
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestBodyRecorder_TracksStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	br := &bodyRecorder{ResponseWriter: rec, status: http.StatusOK}

	br.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusInternalServerError, br.status)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNewRedisCache_PassThroughWithoutClient(t *testing.T) {
	e := echo.New()
	calls := 0
	h := NewRedisCache(testCacheConfig(), nil)(func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/visitors", nil), rec)
		require.NoError(t, h(c))
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, calls)
}

func TestCacheInvalidator_NilIsNoop(t *testing.T) {
	ci := NewCacheInvalidator(testCacheConfig(), nil)

	assert.Nil(t, ci)
	assert.NoError(t, ci.Invalidate(context.Background()))
}
