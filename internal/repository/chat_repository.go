package repository

import (
	"context"
	"database/sql"

	"github.com/marense/feedline/internal/model"
)

// ChatRepo persists conversations, memberships and messages.
type ChatRepo struct{ DB *sql.DB }

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{DB: db} }

// CreateConversation inserts a conversation and adds the creator as its
// first member.
func (r *ChatRepo) CreateConversation(ctx context.Context, c *model.Conversation) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO conversations (id, created_by, title) VALUES (?,?,?)",
		c.ID, c.CreatedBy, c.Title); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO conversation_members (conversation_id, user_id) VALUES (?,?)",
		c.ID, c.CreatedBy); err != nil {
		return err
	}
	return tx.Commit()
}

// AddMember inserts a membership row. Adding an existing member is a no-op.
func (r *ChatRepo) AddMember(ctx context.Context, conversationID, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO conversation_members (conversation_id, user_id) VALUES (?,?)",
		conversationID, userID)
	return err
}

// IsMember reports whether the user belongs to the conversation.
func (r *ChatRepo) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM conversation_members WHERE conversation_id=? AND user_id=? LIMIT 1",
		conversationID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListForUser returns the conversations the user is a member of, newest
// activity first.
func (r *ChatRepo) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.id, c.created_by, c.title, c.created_at, c.updated_at
		   FROM conversations c
		   JOIN conversation_members m ON m.conversation_id = c.id
		  WHERE m.user_id = ?
		  ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Conversation{}
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.CreatedBy, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateMessage inserts a message and bumps the conversation's updated_at.
func (r *ChatRepo) CreateMessage(ctx context.Context, m *model.Message) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO messages (id, conversation_id, sender_id, content) VALUES (?,?,?,?)",
		m.ID, m.ConversationID, m.SenderID, m.Content); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE conversations SET updated_at=NOW() WHERE id=?", m.ConversationID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListMessages returns messages of a conversation, oldest first, paginated.
func (r *ChatRepo) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, conversation_id, sender_id, content, created_at
		   FROM messages WHERE conversation_id=?
		  ORDER BY created_at ASC LIMIT ? OFFSET ?`,
		conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
