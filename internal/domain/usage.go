package domain

import (
	"time"
)

// UsageEvent is an append-only record of one authentication attempt or
// action taken under an access key. Events are immutable once written and
// are never updated or deleted by normal operation.
type UsageEvent struct {
	// ID is the auto-assigned sequence number of the event.
	ID int64 `json:"id"`

	// KeyID references the access key the event was recorded against.
	KeyID string `json:"key_id"`

	// Endpoint is the logical endpoint or operation that was invoked.
	Endpoint string `json:"endpoint"`

	// Method is the request method or verb.
	Method string `json:"method"`

	// CallerAddr is the network address of the caller, if known.
	CallerAddr string `json:"caller_addr,omitempty"`

	// UserAgent is the caller's user agent string, if known.
	UserAgent string `json:"user_agent,omitempty"`

	// Status is the result status of the request (e.g. an HTTP status code).
	// Zero means unknown.
	Status int `json:"status,omitempty"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}
