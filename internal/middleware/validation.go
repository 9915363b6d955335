package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidateMessageContent validates user message content. Empty content is
// allowed; the orchestrator answers it with a clarification prompt.
func ValidateMessageContent(content string) error {
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateUserID validates a user ID.
func ValidateUserID(id string) error {
	if len(id) == 0 {
		return errors.New("user ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("user ID exceeds maximum length")
	}
	return nil
}

// ValidateSessionID validates a session ID. An empty value is allowed and
// resolves to the user's default session.
func ValidateSessionID(id string) error {
	if len(id) > 64 {
		return errors.New("session ID exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("session ID must be valid UTF-8")
	}
	return nil
}
