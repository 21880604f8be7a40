package model

import "time"

// Session models a row in the `sessions` table: one outstanding refresh
// token grant. The plain token is never stored, only its SHA-256 hash.
// RevokedAt is nil while the session is active; a non-nil value or a past
// ExpiresAt makes the session unusable for refresh.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	UserAgent *string
	IP        *string
}

// Active reports whether the session can still authorize a refresh at t.
func (s Session) Active(t time.Time) bool {
	return s.RevokedAt == nil && t.Before(s.ExpiresAt)
}
