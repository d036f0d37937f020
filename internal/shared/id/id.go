// Package id provides centralized ID generation for the backend.
//
// IDs are prefixed UUIDs: the prefix makes logs readable and prevents a
// session ID from being accepted where a user ID belongs, the UUID body
// guarantees uniqueness across services.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// SessionID identifies an editing session
type SessionID string

// UserID identifies a registered user
type UserID string

// RequestID identifies an API request
type RequestID string

// ChannelID identifies a live update channel between host and preview
type ChannelID string

const (
	SessionPrefix = "sess"
	UserPrefix    = "user"
	RequestPrefix = "req"
	ChannelPrefix = "chan"
)

// generate creates a prefixed UUID string.
func generate(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(generate(SessionPrefix))
}

// NewUserID generates a new user ID
func NewUserID() UserID {
	return UserID(generate(UserPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(generate(RequestPrefix))
}

// NewChannelID generates a new channel ID
func NewChannelID() ChannelID {
	return ChannelID(generate(ChannelPrefix))
}

func (id SessionID) String() string { return string(id) }
func (id UserID) String() string    { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id ChannelID) String() string { return string(id) }

// IsValid checks that an ID carries the expected prefix and a parseable
// UUID body.
func IsValid(id, prefix string) bool {
	body, ok := strings.CutPrefix(id, prefix+"_")
	if !ok {
		return false
	}
	_, err := uuid.Parse(body)
	return err == nil
}
