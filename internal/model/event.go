package model

import (
	"time"
)

// AuditEventKind classifies audit channel events.
type AuditEventKind string

const (
	AuditRouteDecision AuditEventKind = "route_decision"
	AuditTurnComplete  AuditEventKind = "turn_complete"
	AuditHandlerError  AuditEventKind = "handler_error"
)

// AuditEvent is a control-plane record published on the audit channel.
// Routing decisions live here, not in the message history, so downstream
// consumers get them without scraping conversation state.
type AuditEvent struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Kind      AuditEventKind `json:"kind"`
	Route     string         `json:"route,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
