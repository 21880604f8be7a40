package model

import "time"

// Account status values. Only active accounts may authenticate.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusBanned   = "banned"
)

// User mirrors the `users` table. The json tags are omitted because these
// structs are used by the repository layer; handlers define their own
// response types.
//
// Fields:
//
//	ID           – UUID primary key.
//	Email        – unique, stored lowercase.
//	PasswordHash – bcrypt hash, never the plaintext.
//	DisplayName  – 2-100 characters.
//	Bio          – optional profile text.
//	AvatarURL    – optional public avatar URL.
//	Status       – active | inactive | banned.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Bio          *string
	AvatarURL    *string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
