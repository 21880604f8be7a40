package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marense/feedline/internal/authz"
	"github.com/marense/feedline/internal/middleware"
	"github.com/marense/feedline/internal/model"
	"github.com/marense/feedline/internal/utils"
)

const chatTestSecret = "chat-test-secret"

// memChat is an in-memory ChatStore for the HTTP-level scenarios.
type memChat struct {
	convs    map[string]model.Conversation
	members  map[string]map[string]bool
	messages map[string][]model.Message
}

func newMemChat() *memChat {
	return &memChat{
		convs:    map[string]model.Conversation{},
		members:  map[string]map[string]bool{},
		messages: map[string][]model.Message{},
	}
}

func (m *memChat) CreateConversation(_ context.Context, conv *model.Conversation) error {
	m.convs[conv.ID] = *conv
	m.members[conv.ID] = map[string]bool{conv.CreatedBy: true}
	return nil
}

func (m *memChat) AddMember(_ context.Context, conversationID, userID string) error {
	if m.members[conversationID] == nil {
		m.members[conversationID] = map[string]bool{}
	}
	m.members[conversationID][userID] = true
	return nil
}

func (m *memChat) IsMember(_ context.Context, conversationID, userID string) (bool, error) {
	return m.members[conversationID][userID], nil
}

func (m *memChat) ListForUser(_ context.Context, userID string) ([]model.Conversation, error) {
	var out []model.Conversation
	for id, conv := range m.convs {
		if m.members[id][userID] {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (m *memChat) CreateMessage(_ context.Context, msg *model.Message) error {
	msg.CreatedAt = time.Now().UTC()
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	return nil
}

func (m *memChat) ListMessages(_ context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	msgs := m.messages[conversationID]
	if offset >= len(msgs) {
		return nil, nil
	}
	msgs = msgs[offset:]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func newChatTestServer(t *testing.T) (*echo.Echo, *memChat) {
	t.Helper()
	store := newMemChat()
	h := NewChatHandler(store, zerolog.Nop())

	e := echo.New()
	g := e.Group("/v1/conversations", middleware.JWTAuth(chatTestSecret, 0))
	g.POST("", h.CreateConversation)
	g.GET("", h.ListMyConversations)
	g.POST("/:id/members", h.AddMember)
	g.POST("/:id/messages", h.SendMessage)
	g.GET("/:id/messages", h.ListMessages)
	return e, store
}

func chatToken(t *testing.T, userID string) string {
	t.Helper()
	at, err := utils.NewAccessToken(chatTestSecret, userID, userID+"@example.com",
		authz.DefaultPermissions, 900)
	require.NoError(t, err)
	return at.Token
}

func getJSON(e *echo.Echo, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChatFlow(t *testing.T) {
	e, store := newChatTestServer(t)
	alice := chatToken(t, "alice")
	bob := chatToken(t, "bob")

	// Alice starts a conversation and is its first member.
	rec := postJSON(e, "/v1/conversations", `{"title":"weekend plans"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	convID, _ := decodeBody(t, rec)["id"].(string)
	require.NotEmpty(t, convID)

	rec = postJSON(e, "/v1/conversations/"+convID+"/messages", `{"content":"hi"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alice", decodeBody(t, rec)["senderId"])

	// Bob joins and can read and write.
	rec = postJSON(e, "/v1/conversations/"+convID+"/members", `{"userId":"bob"}`, alice)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = postJSON(e, "/v1/conversations/"+convID+"/messages", `{"content":"hey"}`, bob)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = getJSON(e, "/v1/conversations/"+convID+"/messages", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hi")
	assert.Contains(t, rec.Body.String(), "hey")
	assert.Len(t, store.messages[convID], 2)

	rec = getJSON(e, "/v1/conversations", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), convID)
}

func TestChat_NonMemberCannotSendMessage(t *testing.T) {
	e, store := newChatTestServer(t)
	alice := chatToken(t, "alice")
	intruder := chatToken(t, "intruder")

	rec := postJSON(e, "/v1/conversations", `{}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	convID, _ := decodeBody(t, rec)["id"].(string)

	rec = postJSON(e, "/v1/conversations/"+convID+"/messages",
		`{"content":"intruder was here"}`, intruder)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeBody(t, rec)["error"])

	// The rejection must stop the handler: nothing may be written.
	assert.Empty(t, store.messages[convID], "a non-member's message must never be stored")
}

func TestChat_NonMemberCannotAddMember(t *testing.T) {
	e, store := newChatTestServer(t)
	alice := chatToken(t, "alice")
	intruder := chatToken(t, "intruder")

	rec := postJSON(e, "/v1/conversations", `{}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	convID, _ := decodeBody(t, rec)["id"].(string)

	rec = postJSON(e, "/v1/conversations/"+convID+"/members",
		`{"userId":"intruder"}`, intruder)
	require.Equal(t, http.StatusForbidden, rec.Code)

	assert.False(t, store.members[convID]["intruder"], "membership must be unchanged")
	assert.Len(t, store.members[convID], 1)
}

func TestChat_NonMemberCannotListMessages(t *testing.T) {
	e, _ := newChatTestServer(t)
	alice := chatToken(t, "alice")
	intruder := chatToken(t, "intruder")

	rec := postJSON(e, "/v1/conversations", `{}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	convID, _ := decodeBody(t, rec)["id"].(string)

	rec = postJSON(e, "/v1/conversations/"+convID+"/messages", `{"content":"private note"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = getJSON(e, "/v1/conversations/"+convID+"/messages", intruder)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// The body is exactly the rejection; no messages leak after it.
	body := rec.Body.String()
	assert.Contains(t, body, "forbidden")
	assert.NotContains(t, body, "private note")
	assert.NotContains(t, body, "messages")
}

func TestChat_RequiresAuthentication(t *testing.T) {
	e, _ := newChatTestServer(t)

	rec := postJSON(e, "/v1/conversations", `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = getJSON(e, "/v1/conversations/some-id/messages", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
