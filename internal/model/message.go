// Package model defines data structures for the finance copilot.
package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "ai"
	RoleSystem    Role = "system"
)

// Agent names for assistant messages. Every assistant message carries the
// name of the handler that produced it.
const (
	AgentOrchestrator = "orchestrator"
	AgentSmallTalk    = "smalltalk"
	AgentSpending     = "spending"
	AgentInvestment   = "investment"
	AgentOnboarding   = "onboarding"
)

// MessageType classifies assistant messages beyond their role.
type MessageType string

const (
	MessageTypeAIResponse      MessageType = "ai_response"
	MessageTypeClarification   MessageType = "clarification"
	MessageTypeProfileComplete MessageType = "profile_complete"
	MessageTypeError           MessageType = "error"
)

// Message represents one entry in a conversation thread.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Agent identifies which handler produced an assistant message.
	// Empty for human and system messages.
	Agent       string      `json:"agent,omitempty"`
	MessageType MessageType `json:"message_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
