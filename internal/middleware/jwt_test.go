package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marense/feedline/internal/authz"
	"github.com/marense/feedline/internal/utils"
)

const jwtTestSecret = "jwt-test-secret"

func authedEcho(mw echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		p, ok := CurrentPrincipal(c)
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, p.UserID)
	}, mw)
	return e
}

func getWithToken(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth_ValidToken(t *testing.T) {
	e := authedEcho(JWTAuth(jwtTestSecret, 0))
	at, err := utils.NewAccessToken(jwtTestSecret, "user-1", "a@example.com",
		authz.DefaultPermissions, 900)
	require.NoError(t, err)

	rec := getWithToken(e, at.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestJWTAuth_MissingToken(t *testing.T) {
	e := authedEcho(JWTAuth(jwtTestSecret, 0))

	rec := getWithToken(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	e := authedEcho(JWTAuth(jwtTestSecret, 0))
	at, err := utils.NewAccessToken("other-secret", "user-1", "a@example.com", nil, 900)
	require.NoError(t, err)

	rec := getWithToken(e, at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_token")
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	e := authedEcho(JWTAuth(jwtTestSecret, 0))
	at, err := utils.NewAccessToken(jwtTestSecret, "user-1", "a@example.com", nil, -60)
	require.NoError(t, err)

	rec := getWithToken(e, at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalJWTAuth(t *testing.T) {
	e := authedEcho(OptionalJWTAuth(jwtTestSecret, 0))

	// No token: request passes without a principal.
	rec := getWithToken(e, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	// Invalid token: tolerated, still anonymous.
	rec = getWithToken(e, "garbage")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	// Valid token: principal attached.
	at, err := utils.NewAccessToken(jwtTestSecret, "user-1", "a@example.com", nil, 900)
	require.NoError(t, err)
	rec = getWithToken(e, at.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}
