package handler

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marense/feedline/internal/httperr"
	"github.com/marense/feedline/internal/middleware"
	"github.com/marense/feedline/internal/model"
	"github.com/marense/feedline/internal/repository"
)

const maxAvatarBytes = 5 << 20 // 5 MiB

// UserHandler exposes profile and avatar endpoints.
type UserHandler struct {
	Users     *repository.UserRepo
	AvatarDir string
	Log       zerolog.Logger
}

func NewUserHandler(users *repository.UserRepo, avatarDir string, log zerolog.Logger) *UserHandler {
	return &UserHandler{Users: users, AvatarDir: avatarDir, Log: log}
}

type profileResp struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Bio         *string   `json:"bio"`
	AvatarURL   *string   `json:"avatarUrl"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type publicProfileResp struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Bio         *string   `json:"bio"`
	AvatarURL   *string   `json:"avatarUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

type updateProfileReq struct {
	DisplayName string  `json:"displayName"`
	Bio         *string `json:"bio"`
}

// Me returns the caller's own profile, email and status included.
func (h *UserHandler) Me(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httperr.JSON(c, http.StatusNotFound, "not_found", "user not found")
		}
		h.Log.Error().Err(err).Msg("load profile failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	return c.JSON(http.StatusOK, profileResp{
		ID: u.ID, Email: u.Email, DisplayName: u.DisplayName,
		Bio: u.Bio, AvatarURL: u.AvatarURL, Status: u.Status,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	})
}

// UpdateMe updates display name and bio.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "invalid request body")
	}
	name := strings.TrimSpace(req.DisplayName)
	if len(name) < 2 || len(name) > 100 {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_display_name",
			"display name must be between 2 and 100 characters")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, p.UserID, name, req.Bio); err != nil {
		h.Log.Error().Err(err).Msg("update profile failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	return h.Me(c)
}

// PublicProfile returns the public view of a user. Only active accounts are
// visible.
func (h *UserHandler) PublicProfile(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httperr.JSON(c, http.StatusNotFound, "not_found", "user not found")
		}
		h.Log.Error().Err(err).Msg("load profile failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	if u.Status != model.StatusActive {
		return httperr.JSON(c, http.StatusNotFound, "not_found", "user not found")
	}
	return c.JSON(http.StatusOK, publicProfileResp{
		ID: u.ID, DisplayName: u.DisplayName, Bio: u.Bio,
		AvatarURL: u.AvatarURL, CreatedAt: u.CreatedAt,
	})
}

// UploadAvatar stores a new avatar image on local disk and records its
// public URL. The route opts into the upload rate limiter.
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "file field is required")
	}
	if fh.Size > maxAvatarBytes {
		return httperr.JSON(c, http.StatusBadRequest, "file_too_large", "avatar must be 5MB or smaller")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return httperr.JSON(c, http.StatusBadRequest, "unsupported_type",
			"avatar must be a jpg, png or webp image")
	}

	src, err := fh.Open()
	if err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "cannot read uploaded file")
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(h.AvatarDir, 0o755); err != nil {
		h.Log.Error().Err(err).Msg("avatar dir create failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(h.AvatarDir, name))
	if err != nil {
		h.Log.Error().Err(err).Msg("avatar create failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	defer func() { _ = dst.Close() }()
	if _, err := io.Copy(dst, io.LimitReader(src, maxAvatarBytes)); err != nil {
		h.Log.Error().Err(err).Msg("avatar write failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}

	url := "/static/avatars/" + name

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Users.UpdateAvatarURL(ctx, p.UserID, &url); err != nil {
		h.Log.Error().Err(err).Msg("avatar url update failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{"avatarUrl": url})
}

// DeleteAvatar clears the avatar URL. The stored file stays on disk.
func (h *UserHandler) DeleteAvatar(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Users.UpdateAvatarURL(ctx, p.UserID, nil); err != nil {
		h.Log.Error().Err(err).Msg("avatar clear failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	return c.NoContent(http.StatusNoContent)
}
