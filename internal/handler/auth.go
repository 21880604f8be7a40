package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/marense/feedline/internal/httperr"
	"github.com/marense/feedline/internal/middleware"
	"github.com/marense/feedline/internal/service"
)

// AuthHandler exposes the credential and session endpoints.
type AuthHandler struct {
	Svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler { return &AuthHandler{Svc: svc} }

// ----- DTOs -----

type signupReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type signupResp struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutReq struct {
	SessionID string `json:"sessionId"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type tokenResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

func toTokenResp(p service.TokenPair) tokenResp {
	return tokenResp{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.ExpiresIn,
		TokenType:    "Bearer",
	}
}

const requestTimeout = 5 * time.Second

func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// Signup creates a new account. No session is issued; the client logs in
// afterwards.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "invalid request body")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	res, err := h.Svc.Signup(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, signupResp{
		ID:          res.UserID,
		Email:       res.Email,
		DisplayName: res.DisplayName,
	})
}

// Login exchanges credentials for an access/refresh pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "email and password are required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	meta := service.SessionMeta{
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	}
	pair, err := h.Svc.Login(ctx, req.Email, req.Password, meta)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toTokenResp(pair))
}

// Refresh rotates a refresh token and returns a new pair. The presented
// token is single-use.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "refreshToken is required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	pair, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toTokenResp(pair))
}

// Logout revokes the session named in the body, or every session of the
// caller when none is given. Requires a valid access token.
func (h *AuthHandler) Logout(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}

	var req logoutReq
	_ = c.Bind(&req) // empty body allowed: logout everywhere

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Svc.Logout(ctx, p.UserID, strings.TrimSpace(req.SessionID)); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword verifies the current password, stores the new one and
// revokes every session of the account.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body",
			"currentPassword and newPassword are required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Svc.ChangePassword(ctx, p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// mapError translates domain failures to fixed HTTP statuses and codes.
// Unexpected errors are logged with detail server-side and surface as a
// generic 500.
func (h *AuthHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return httperr.JSON(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, service.ErrUserDisabled):
		return httperr.JSON(c, http.StatusUnauthorized, "user_disabled", "user account is disabled")
	case errors.Is(err, service.ErrEmailAlreadyUsed):
		return httperr.JSON(c, http.StatusConflict, "email_already_used", "email is already registered")
	case errors.Is(err, service.ErrSessionRevoked):
		return httperr.JSON(c, http.StatusUnauthorized, "session_revoked", "session has been revoked")
	case errors.Is(err, service.ErrSessionNotFound):
		return httperr.JSON(c, http.StatusUnauthorized, "session_not_found", "session not found or expired")
	case errors.Is(err, service.ErrInvalidToken):
		return httperr.JSON(c, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
	case errors.Is(err, service.ErrInvalidPassword):
		return httperr.JSON(c, http.StatusBadRequest, "invalid_password", err.Error())
	case errors.Is(err, service.ErrInvalidDisplayName):
		return httperr.JSON(c, http.StatusBadRequest, "invalid_display_name",
			"display name must be between 2 and 100 characters")
	case errors.Is(err, service.ErrInvalidEmail):
		return httperr.JSON(c, http.StatusBadRequest, "invalid_email", "invalid email address")
	case errors.Is(err, service.ErrForbidden):
		return httperr.JSON(c, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, service.ErrNotFound):
		return httperr.JSON(c, http.StatusNotFound, "not_found", "not found")
	default:
		h.Svc.Log.Error().Err(err).Msg("auth handler internal error")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
