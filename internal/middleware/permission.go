package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marense/feedline/internal/httperr"
)

// RequirePermission enforces that the authenticated principal carries the
// given resource/action pair. Routes without this middleware carry no
// permission restriction. Missing principal means 401, unless the route used
// optional authentication, in which case the handler decides visibility.
// A principal lacking the permission gets 403.
func RequirePermission(resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := CurrentPrincipal(c)
			if !ok {
				if optional, _ := c.Get(ContextKeyOptionalAuth).(bool); optional {
					return next(c)
				}
				return httperr.JSON(c, http.StatusUnauthorized, "unauthorized",
					"authentication required to access this resource")
			}
			if !p.Has(resource, action) {
				return httperr.JSON(c, http.StatusForbidden, "forbidden",
					fmt.Sprintf("missing permission: %s:%s", resource, action))
			}
			return next(c)
		}
	}
}
