package handler

import (
	"context"
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
)

// ChatStore is the conversation persistence port. *repository.ChatRepo
// satisfies it; tests supply in-memory fakes.
type ChatStore interface {
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	AddMember(ctx context.Context, conversationID, userID string) error
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	CreateMessage(ctx context.Context, m *model.Message) error
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error)
}

// ChatHandler exposes conversations and direct messages. Every operation on
// a conversation requires membership.
type ChatHandler struct {
	Chats ChatStore
	Log   zerolog.Logger
}

func NewChatHandler(chats ChatStore, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{Chats: chats, Log: log}
}

type createConversationReq struct {
	Title *string `json:"title"`
}

type conversationResp struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"createdBy"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type addMemberReq struct {
	UserID string `json:"userId"`
}

type sendMessageReq struct {
	Content string `json:"content"`
}

type messageResp struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (h *ChatHandler) internal(c echo.Context, msg string, err error) error {
	h.Log.Error().Err(err).Msg(msg)
	return httperr.JSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
}

// requireMember resolves the caller and checks conversation membership. The
// boolean reports whether the caller may proceed; when it is false the
// rejection has already been written and the returned error is the handler's
// result. Callers must stop on ok == false: a JSON write that succeeds
// returns a nil error, so the error value alone cannot signal denial.
func (h *ChatHandler) requireMember(c echo.Context, conversationID string) (string, bool, error) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return "", false, httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	member, err := h.Chats.IsMember(ctx, conversationID, p.UserID)
	if err != nil {
		return "", false, h.internal(c, "membership check failed", err)
	}
	if !member {
		return "", false, httperr.JSON(c, http.StatusForbidden, "forbidden",
			"you are not a member of this conversation")
	}
	return p.UserID, true, nil
}

// CreateConversation starts a conversation with the caller as first member.
func (h *ChatHandler) CreateConversation(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	var req createConversationReq
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "invalid request body")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	conv := &model.Conversation{
		ID:        uuid.NewString(),
		CreatedBy: p.UserID,
		Title:     req.Title,
	}
	if err := h.Chats.CreateConversation(ctx, conv); err != nil {
		return h.internal(c, "create conversation failed", err)
	}
	return c.JSON(http.StatusCreated, conversationResp{
		ID: conv.ID, CreatedBy: conv.CreatedBy, Title: conv.Title,
	})
}

// ListMyConversations returns the caller's conversations.
func (h *ChatHandler) ListMyConversations(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	convs, err := h.Chats.ListForUser(ctx, p.UserID)
	if err != nil {
		return h.internal(c, "list conversations failed", err)
	}
	out := make([]conversationResp, 0, len(convs))
	for _, cv := range convs {
		out = append(out, conversationResp{
			ID: cv.ID, CreatedBy: cv.CreatedBy, Title: cv.Title,
			CreatedAt: cv.CreatedAt, UpdatedAt: cv.UpdatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"conversations": out})
}

// AddMember adds a user to a conversation the caller belongs to.
func (h *ChatHandler) AddMember(c echo.Context) error {
	convID := c.Param("id")
	_, ok, err := h.requireMember(c, convID)
	if !ok {
		return err
	}
	var req addMemberReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "userId is required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Chats.AddMember(ctx, convID, strings.TrimSpace(req.UserID)); err != nil {
		return h.internal(c, "add member failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SendMessage posts a message into a conversation the caller belongs to.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	convID := c.Param("id")
	senderID, ok, err := h.requireMember(c, convID)
	if !ok {
		return err
	}
	var req sendMessageReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return httperr.JSON(c, http.StatusBadRequest, "invalid_body", "content is required")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: convID,
		SenderID:       senderID,
		Content:        req.Content,
	}
	if err := h.Chats.CreateMessage(ctx, msg); err != nil {
		return h.internal(c, "send message failed", err)
	}
	return c.JSON(http.StatusCreated, messageResp{
		ID: msg.ID, ConversationID: msg.ConversationID,
		SenderID: msg.SenderID, Content: msg.Content,
	})
}

// ListMessages returns a conversation's messages, oldest first.
func (h *ChatHandler) ListMessages(c echo.Context) error {
	convID := c.Param("id")
	_, ok, err := h.requireMember(c, convID)
	if !ok {
		return err
	}
	limit := 50
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		offset = v
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	msgs, err := h.Chats.ListMessages(ctx, convID, limit, offset)
	if err != nil {
		return h.internal(c, "list messages failed", err)
	}
	out := make([]messageResp, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResp{
			ID: m.ID, ConversationID: m.ConversationID,
			SenderID: m.SenderID, Content: m.Content, CreatedAt: m.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": out})
}
