package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marense/feedline/internal/httperr"
)

// RequestLogger records one structured line per request: method, path,
// status, latency and correlation id. Bodies are never logged, so
// credentials and tokens cannot leak into the logs.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			rid, _ := c.Get(httperr.ContextKeyRequestID).(string)
			ev := log.Info()
			status := c.Response().Status
			if status >= 500 {
				ev = log.Error()
			} else if status >= 400 {
				ev = log.Warn()
			}
			ev.Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Str("ip", c.RealIP()).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("request_id", rid).
				Msg("request")
			return err
		}
	}
}
