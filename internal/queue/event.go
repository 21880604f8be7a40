// Package queue defines message payloads exchanged over the message broker
// plus the publisher and background consumer for the signup event stream.
package queue

// UserSignedUpEvent is published when a new account is created. It carries
// enough information for downstream consumers to log, send a welcome mail or
// feed analytics without querying the primary database.
type UserSignedUpEvent struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	SignedUpAt  string `json:"signed_up_at"`
}
