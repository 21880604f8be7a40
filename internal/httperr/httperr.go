// Package httperr builds the machine-readable error body shared by handlers
// and middleware: a stable error code, a human message, the request's
// correlation id and a timestamp.
package httperr

import (
	"time"

	"github.com/labstack/echo/v4"
)

// ContextKeyRequestID is where the request-id middleware stores the
// correlation id in the echo context.
const ContextKeyRequestID = "request_id"

// Payload is the wire shape of every error response.
type Payload struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// JSON writes an error response with the given status, code and message.
func JSON(c echo.Context, status int, code, message string) error {
	rid, _ := c.Get(ContextKeyRequestID).(string)
	return c.JSON(status, Payload{
		Error:     code,
		Message:   message,
		RequestID: rid,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
