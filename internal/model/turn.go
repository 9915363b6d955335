package model

import (
	"time"
)

// TurnRequest is one inbound user turn. SessionID is optional; when absent
// it defaults deterministically from the user id, so a returning user
// without an explicit session resumes the same default thread.
type TurnRequest struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id,omitempty"`
	UserMessage string `json:"user_message"`
}

// TurnResponse is the non-streaming reply for one turn.
type TurnResponse struct {
	Messages  []Message `json:"messages"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HealthStatus is the result of probing the full graph with a canned
// message. A missing LLM backend is degraded, not unhealthy: stub handlers
// can still respond.
type HealthStatus struct {
	Status               string `json:"status"` // healthy | unhealthy
	GraphInitialized     bool   `json:"graph_initialized"`
	LLMAvailable         bool   `json:"llm_available"`
	TestResponseReceived bool   `json:"test_response_received"`
	Error                string `json:"error,omitempty"`
}
