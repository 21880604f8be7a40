package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/marense/feedline/internal/authz"
	"github.com/marense/feedline/internal/httperr"
	"github.com/marense/feedline/internal/utils"
)

// Context keys used by the auth chain.
const (
	ContextKeyPrincipal    = "principal"
	ContextKeyOptionalAuth = "auth_optional"
)

// bearerToken extracts the raw token from the Authorization header, or ""
// when the header is missing or malformed.
func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

func principalFromToken(secret, raw string, skew time.Duration) (authz.Principal, bool) {
	claims, err := utils.VerifyAccessToken(secret, raw, skew)
	if err != nil {
		return authz.Principal{}, false
	}
	return authz.Principal{
		UserID:      claims.Subject,
		Email:       claims.Email,
		Status:      "active",
		Permissions: claims.Permissions,
	}, true
}

// JWTAuth returns middleware that requires a valid Bearer access token and
// injects the reconstructed principal into the request context. Signature,
// algorithm and expiry (with clock-skew leeway) are all enforced by the
// verifier.
func JWTAuth(secret string, skewSec int) echo.MiddlewareFunc {
	skew := time.Duration(skewSec) * time.Second
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			}
			p, ok := principalFromToken(secret, raw, skew)
			if !ok {
				return httperr.JSON(c, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
			}
			c.Set(ContextKeyPrincipal, p)
			return next(c)
		}
	}
}

// OptionalJWTAuth verifies a Bearer token when one is present but lets the
// request through without a principal when the token is missing or invalid.
// Downstream permission checks and handlers decide visibility.
func OptionalJWTAuth(secret string, skewSec int) echo.MiddlewareFunc {
	skew := time.Duration(skewSec) * time.Second
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextKeyOptionalAuth, true)
			if raw := bearerToken(c); raw != "" {
				if p, ok := principalFromToken(secret, raw, skew); ok {
					c.Set(ContextKeyPrincipal, p)
				}
			}
			return next(c)
		}
	}
}

// CurrentPrincipal returns the principal stored by the auth middleware, if
// any.
func CurrentPrincipal(c echo.Context) (authz.Principal, bool) {
	p, ok := c.Get(ContextKeyPrincipal).(authz.Principal)
	return p, ok
}
