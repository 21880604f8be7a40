package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/marense/feedline/internal/config"
	"github.com/marense/feedline/internal/httperr"
)

// Limiter builds named fixed-window rate limit middleware backed by Redis.
// Counter keys are {prefix}:{name}:{tracker}; the increment is a single
// atomic INCR so concurrent bursts from the same tracker never undercount.
type Limiter struct {
	rdb        *redis.Client
	cfg        config.RateLimitConfig
	secret     string
	skew       time.Duration
	trustProxy bool
	log        zerolog.Logger
}

func NewLimiter(rdb *redis.Client, cfg config.RateLimitConfig, secret string,
	skewSec int, trustProxy bool, log zerolog.Logger) *Limiter {
	return &Limiter{
		rdb:        rdb,
		cfg:        cfg,
		secret:     secret,
		skew:       time.Duration(skewSec) * time.Second,
		trustProxy: trustProxy,
		log:        log,
	}
}

// Global returns the limiter applied to every route.
func (l *Limiter) Global() echo.MiddlewareFunc { return l.middleware(l.cfg.Global) }

// Auth returns the stricter limiter for credential endpoints (opt-in).
func (l *Limiter) Auth() echo.MiddlewareFunc { return l.middleware(l.cfg.Auth) }

// Upload returns the limiter for upload endpoints (opt-in).
func (l *Limiter) Upload() echo.MiddlewareFunc { return l.middleware(l.cfg.Upload) }

func passthrough(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error { return next(c) }
}

func (l *Limiter) middleware(lc config.LimiterConfig) echo.MiddlewareFunc {
	if l == nil || !l.cfg.Enabled || l.rdb == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.cfg.ExemptPaths[c.Request().URL.Path] {
				return next(c)
			}

			ctx := c.Request().Context()
			key := l.cfg.Prefix + ":" + lc.Name + ":" + l.tracker(c)

			count, err := l.rdb.Incr(ctx, key).Result()
			if err != nil {
				return l.storeFailure(c, next, err)
			}
			// Fixed-window semantics: the TTL is set only on the first hit.
			if count == 1 {
				if err := l.rdb.Expire(ctx, key, lc.Window).Err(); err != nil {
					return l.storeFailure(c, next, err)
				}
			}

			remaining := int64(lc.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(lc.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(lc.Limit) {
				retry := int(math.Ceil(lc.Window.Seconds()))
				if ttl, err := l.rdb.PTTL(ctx, key).Result(); err == nil {
					if ttl > 0 {
						retry = int(math.Ceil(float64(ttl.Milliseconds()) / 1000.0))
					} else {
						// The counter lost its TTL (crash between INCR and
						// EXPIRE). Rearm the window so the tracker is not
						// blocked forever.
						_ = l.rdb.Expire(ctx, key, lc.Window).Err()
					}
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
				return httperr.JSON(c, http.StatusTooManyRequests, "too_many_requests",
					"too many requests, please try again later")
			}
			return next(c)
		}
	}
}

// storeFailure applies the configured policy when the counter store is
// unreachable: pass the request through (fail open) or reject it.
func (l *Limiter) storeFailure(c echo.Context, next echo.HandlerFunc, err error) error {
	l.log.Warn().Err(err).Msg("rate limiter store unavailable")
	if l.cfg.FailOpen {
		return next(c)
	}
	return httperr.JSON(c, http.StatusServiceUnavailable, "rate_limiter_unavailable",
		"request rejected: rate limiter unavailable")
}

// tracker resolves the per-caller counter identity: user:<id> for requests
// carrying a valid access token, ip:<addr> otherwise.
func (l *Limiter) tracker(c echo.Context) string {
	if p, ok := CurrentPrincipal(c); ok {
		return "user:" + p.UserID
	}
	if raw := bearerToken(c); raw != "" && l.secret != "" {
		if p, ok := principalFromToken(l.secret, raw, l.skew); ok {
			return "user:" + p.UserID
		}
	}
	return "ip:" + l.resolveIP(c)
}

// resolveIP returns the caller's address. The first hop of X-Forwarded-For
// is honored only when the deployment explicitly trusts its upstream proxy,
// so an untrusted client cannot dodge the limiter by spoofing the header.
func (l *Limiter) resolveIP(c echo.Context) string {
	if l.trustProxy {
		if fwd := c.Request().Header.Get("X-Forwarded-For"); fwd != "" {
			first := strings.TrimSpace(strings.Split(fwd, ",")[0])
			if first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil || host == "" {
		if c.Request().RemoteAddr != "" {
			return c.Request().RemoteAddr
		}
		return "unknown"
	}
	return host
}
