package model

import "time"

// Conversation mirrors the `conversations` table. Title is optional.
type Conversation struct {
	ID        string
	CreatedBy string
	Title     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationMember mirrors the `conversation_members` table (N:N between
// conversations and users, composite primary key).
type ConversationMember struct {
	ConversationID string
	UserID         string
	JoinedAt       time.Time
}

// Message mirrors the `messages` table.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	CreatedAt      time.Time
}
