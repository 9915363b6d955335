package model

import (
	"time"

	"github.com/google/uuid"
)

// ConnectedAccount describes one externally-linked financial account. The
// core treats these as opaque context; handlers decide what to do with them.
type ConnectedAccount struct {
	AccountID   string `json:"account_id"`
	Institution string `json:"institution"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Mask        string `json:"mask,omitempty"`
}

// ProfileContext is a structured snapshot of what onboarding has learned
// about the user, used to personalize handler behavior.
type ProfileContext struct {
	Name          string   `json:"name,omitempty"`
	AgeRange      string   `json:"age_range,omitempty"`
	Occupation    string   `json:"occupation,omitempty"`
	AnnualIncome  string   `json:"annual_income,omitempty"`
	FinancialGoal string   `json:"financial_goal,omitempty"`
	RiskTolerance string   `json:"risk_tolerance,omitempty"`
	Interests     []string `json:"interests,omitempty"`
}

// ConversationState is the unit of persistence and the sole value threaded
// through the conversation graph. It is owned by exactly one thread; the
// checkpoint store holds the durable copy.
type ConversationState struct {
	Messages          []Message                   `json:"messages"`
	ConnectedAccounts map[string]ConnectedAccount `json:"connected_accounts,omitempty"`
	ProfileContext    *ProfileContext             `json:"profile_context,omitempty"`

	// ProfileComplete is monotonic: once true it never silently reverts.
	// The onboarding handler owns the only transition to true.
	ProfileComplete bool `json:"profile_complete"`
}

// NewConversationState returns the initial state for a fresh thread.
func NewConversationState() *ConversationState {
	return &ConversationState{
		Messages:        []Message{},
		ProfileComplete: false,
	}
}

// AppendHuman appends a human message and returns it.
func (s *ConversationState) AppendHuman(content string) Message {
	msg := Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      RoleHuman,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.Messages = append(s.Messages, msg)
	return msg
}

// AppendAssistant appends an assistant message tagged with the producing
// agent and returns it.
func (s *ConversationState) AppendAssistant(agent, content string, msgType MessageType) Message {
	if msgType == "" {
		msgType = MessageTypeAIResponse
	}
	msg := Message{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Role:        RoleAssistant,
		Content:     content,
		Agent:       agent,
		MessageType: msgType,
		CreatedAt:   time.Now().UTC(),
	}
	s.Messages = append(s.Messages, msg)
	return msg
}

// LastHuman returns the most recent human message, or nil if none exists.
func (s *ConversationState) LastHuman() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleHuman {
			return &s.Messages[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the state. Snapshots handed to the checkpoint
// store must not alias the in-flight copy.
func (s *ConversationState) Clone() *ConversationState {
	out := &ConversationState{
		Messages:        make([]Message, len(s.Messages)),
		ProfileComplete: s.ProfileComplete,
	}
	copy(out.Messages, s.Messages)
	if s.ConnectedAccounts != nil {
		out.ConnectedAccounts = make(map[string]ConnectedAccount, len(s.ConnectedAccounts))
		for k, v := range s.ConnectedAccounts {
			out.ConnectedAccounts[k] = v
		}
	}
	if s.ProfileContext != nil {
		pc := *s.ProfileContext
		pc.Interests = append([]string(nil), s.ProfileContext.Interests...)
		out.ProfileContext = &pc
	}
	return out
}
