package model

import "time"

// Post visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Post mirrors the `posts` table. Private posts are visible to their owner
// only; public posts appear in the public listing.
type Post struct {
	ID         string
	OwnerID    string
	Title      string
	Content    string
	Visibility string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
