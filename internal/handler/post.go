package handler

import (
	"errors"
	"net/http"
	"strconv"
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

// PostHandler exposes post CRUD. Permission checks run in middleware;
// ownership checks live here.
type PostHandler struct {
	Posts *repository.PostRepo
	Log   zerolog.Logger
}

func NewPostHandler(posts *repository.PostRepo, log zerolog.Logger) *PostHandler {
	return &PostHandler{Posts: posts, Log: log}
}

type postReq struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Visibility string `json:"visibility"`
}

type postResp struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toPostResp(p model.Post) postResp {
	return postResp{
		ID:         p.ID,
		OwnerID:    p.OwnerID,
		Title:      p.Title,
		Content:    p.Content,
		Visibility: p.Visibility,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func validatePostReq(req *postReq) string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || len(req.Title) > 255 {
		return "title must be between 1 and 255 characters"
	}
	if strings.TrimSpace(req.Content) == "" {
		return "content is required"
	}
	switch req.Visibility {
	case "":
		req.Visibility = model.VisibilityPublic
	case model.VisibilityPublic, model.VisibilityPrivate:
	default:
		return "visibility must be public or private"
	}
	return ""
}

// Create inserts a post owned by the caller.
func (h *PostHandler) Create(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	var req postReq
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "invalid request body")
	}
	if msg := validatePostReq(&req); msg != "" {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", msg)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	post := &model.Post{
		ID:         uuid.NewString(),
		OwnerID:    p.UserID,
		Title:      req.Title,
		Content:    req.Content,
		Visibility: req.Visibility,
	}
	if err := h.Posts.Create(ctx, post); err != nil {
		h.Log.Error().Err(err).Msg("create post failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	created, err := h.Posts.GetByID(ctx, post.ID)
	if err != nil {
		created = *post
	}
	return c.JSON(http.StatusCreated, toPostResp(created))
}

// Get returns one post. Private posts are visible to their owner only; the
// route uses optional authentication so anonymous callers can read public
// posts.
func (h *PostHandler) Get(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	post, err := h.Posts.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httperr.JSON(c, http.StatusNotFound, "not_found", "post not found")
		}
		h.Log.Error().Err(err).Msg("get post failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	if post.Visibility == model.VisibilityPrivate {
		p, ok := middleware.CurrentPrincipal(c)
		if !ok || p.UserID != post.OwnerID {
			// Not-found instead of forbidden: private posts do not reveal
			// their existence.
			return httperr.JSON(c, http.StatusNotFound, "not_found", "post not found")
		}
	}
	return c.JSON(http.StatusOK, toPostResp(post))
}

// ListPublic returns the newest public posts, paginated with ?limit/?offset.
func (h *PostHandler) ListPublic(c echo.Context) error {
	limit := 20
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		offset = v
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	posts, err := h.Posts.ListPublic(ctx, limit, offset)
	if err != nil {
		h.Log.Error().Err(err).Msg("list posts failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	out := make([]postResp, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"posts": out, "limit": limit, "offset": offset})
}

// Update rewrites a post owned by the caller.
func (h *PostHandler) Update(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	var req postReq
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "invalid request body")
	}
	if msg := validatePostReq(&req); msg != "" {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", msg)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	post, err := h.Posts.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httperr.JSON(c, http.StatusNotFound, "not_found", "post not found")
		}
		h.Log.Error().Err(err).Msg("get post failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	if post.OwnerID != p.UserID {
		return httperr.JSON(c, http.StatusForbidden, "forbidden", "you do not own this post")
	}

	post.Title = req.Title
	post.Content = req.Content
	post.Visibility = req.Visibility
	if err := h.Posts.Update(ctx, &post); err != nil {
		h.Log.Error().Err(err).Msg("update post failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	updated, err := h.Posts.GetByID(ctx, post.ID)
	if err != nil {
		updated = post
	}
	return c.JSON(http.StatusOK, toPostResp(updated))
}

// Delete removes a post owned by the caller.
func (h *PostHandler) Delete(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	post, err := h.Posts.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httperr.JSON(c, http.StatusNotFound, "not_found", "post not found")
		}
		h.Log.Error().Err(err).Msg("get post failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	if post.OwnerID != p.UserID {
		return httperr.JSON(c, http.StatusForbidden, "forbidden", "you do not own this post")
	}
	if err := h.Posts.Delete(ctx, post.ID); err != nil {
		h.Log.Error().Err(err).Msg("delete post failed")
		return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
	return c.NoContent(http.StatusNoContent)
}
