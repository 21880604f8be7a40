package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marense/feedline/internal/config"
	"github.com/marense/feedline/internal/utils"
)

func limiterConfig(limit int, window time.Duration) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:     true,
		Prefix:      "rl",
		FailOpen:    true,
		ExemptPaths: map[string]bool{"/healthz": true},
		Global:      config.LimiterConfig{Name: "global", Limit: limit, Window: window},
		Auth:        config.LimiterConfig{Name: "auth", Limit: limit, Window: window},
		Upload:      config.LimiterConfig{Name: "upload", Limit: limit, Window: window},
	}
}

func newLimitedEcho(t *testing.T, lim *Limiter) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	}, lim.Global())
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, lim.Global())
	return e
}

func doGet(e *echo.Echo, path, remoteAddr string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLimiter_BlocksOverLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lim := NewLimiter(rdb, limiterConfig(3, time.Minute), "", 0, false, zerolog.Nop())
	e := newLimitedEcho(t, lim)

	for i := 0; i < 3; i++ {
		rec := doGet(e, "/ping", "1.2.3.4:5000", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doGet(e, "/ping", "1.2.3.4:5000", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLimiter_WindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lim := NewLimiter(rdb, limiterConfig(1, time.Minute), "", 0, false, zerolog.Nop())
	e := newLimitedEcho(t, lim)

	require.Equal(t, http.StatusOK, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)

	mr.FastForward(61 * time.Second)

	assert.Equal(t, http.StatusOK, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)
}

func TestLimiter_TracksCallersSeparately(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lim := NewLimiter(rdb, limiterConfig(1, time.Minute), "", 0, false, zerolog.Nop())
	e := newLimitedEcho(t, lim)

	require.Equal(t, http.StatusOK, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)

	// A different address has its own counter.
	assert.Equal(t, http.StatusOK, doGet(e, "/ping", "5.6.7.8:5000", nil).Code)
}

func TestLimiter_UserTrackerFollowsAcrossAddresses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	const secret = "limiter-secret"
	lim := NewLimiter(rdb, limiterConfig(1, time.Minute), secret, 0, false, zerolog.Nop())
	e := newLimitedEcho(t, lim)

	at, err := utils.NewAccessToken(secret, "user-1", "a@example.com", nil, 900)
	require.NoError(t, err)
	hdr := map[string]string{"Authorization": "Bearer " + at.Token}

	// Same account from two addresses shares one counter.
	require.Equal(t, http.StatusOK, doGet(e, "/ping", "1.2.3.4:5000", hdr).Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(e, "/ping", "5.6.7.8:5000", hdr).Code)
}

func TestLimiter_ExemptPath(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lim := NewLimiter(rdb, limiterConfig(1, time.Minute), "", 0, false, zerolog.Nop())
	e := newLimitedEcho(t, lim)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(e, "/healthz", "1.2.3.4:5000", nil).Code)
	}
}

func TestLimiter_TrustProxy(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	hdr := map[string]string{"X-Forwarded-For": "9.9.9.9, 10.0.0.1"}

	// Untrusted: the spoofable header is ignored, both hit the same counter.
	lim := NewLimiter(rdb, limiterConfig(1, time.Minute), "", 0, false, zerolog.Nop())
	e := newLimitedEcho(t, lim)
	require.Equal(t, http.StatusOK, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(e, "/ping", "1.2.3.4:5000", hdr).Code)

	// Trusted proxy: the first forwarded hop becomes the tracker.
	mr.FlushAll()
	lim = NewLimiter(rdb, limiterConfig(1, time.Minute), "", 0, true, zerolog.Nop())
	e = newLimitedEcho(t, lim)
	require.Equal(t, http.StatusOK, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)
	assert.Equal(t, http.StatusOK, doGet(e, "/ping", "1.2.3.4:5000", hdr).Code)
}

func TestLimiter_RearmsCounterThatLostItsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lim := NewLimiter(rdb, limiterConfig(1, time.Minute), "", 0, false, zerolog.Nop())
	e := newLimitedEcho(t, lim)

	// A counter without a TTL, as left by a crash between INCR and EXPIRE.
	const key = "rl:global:ip:1.2.3.4"
	require.NoError(t, mr.Set(key, "5"))

	rec := doGet(e, "/ping", "1.2.3.4:5000", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Greater(t, mr.TTL(key), time.Duration(0), "window must be rearmed")

	// Once the rearmed window elapses the tracker recovers.
	mr.FastForward(61 * time.Second)
	assert.Equal(t, http.StatusOK, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)
}

func TestLimiter_StoreDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	// Fail open: requests pass.
	cfg := limiterConfig(1, time.Minute)
	lim := NewLimiter(rdb, cfg, "", 0, false, zerolog.Nop())
	e := newLimitedEcho(t, lim)
	assert.Equal(t, http.StatusOK, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)

	// Fail closed: requests are rejected.
	cfg.FailOpen = false
	lim = NewLimiter(rdb, cfg, "", 0, false, zerolog.Nop())
	e = newLimitedEcho(t, lim)
	assert.Equal(t, http.StatusServiceUnavailable, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)
}

func TestLimiter_DisabledPassesThrough(t *testing.T) {
	cfg := limiterConfig(1, time.Minute)
	cfg.Enabled = false
	lim := NewLimiter(nil, cfg, "", 0, false, zerolog.Nop())
	e := newLimitedEcho(t, lim)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(e, "/ping", "1.2.3.4:5000", nil).Code)
	}
}
