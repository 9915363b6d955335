package agent

import (
	"context"
	"time"

	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

// TurnConfig carries invocation-scoped identity and limits into handlers.
type TurnConfig struct {
	UserID     string
	SessionID  string
	LLMTimeout time.Duration
}

// Reply is one new assistant message produced by a handler, before it is
// assigned an id and appended to state.
type Reply struct {
	Agent       string
	Content     string
	MessageType model.MessageType
}

// Update is the partial state update a handler returns. Handlers never
// mutate ConversationState directly; the graph applies updates so a failing
// handler cannot leave state half-written.
type Update struct {
	Replies []Reply

	// ProfileContext, when non-nil, replaces the stored profile snapshot.
	ProfileContext *model.ProfileContext

	// ProfileComplete requests the completion flag be set. The flag is
	// monotonic: requests to clear it are ignored at apply time.
	ProfileComplete bool
}

// Handler is one specialist unit. Implementations may be pure (canned
// replies) or LLM-backed with structured output.
type Handler interface {
	// Name returns the agent tag stamped on the handler's messages.
	Name() string

	// Handle consumes the state and produces a partial update. A returned
	// error must leave state untouched.
	Handle(ctx context.Context, state *model.ConversationState, cfg TurnConfig) (*Update, error)
}

// applyUpdate appends a handler's replies to state and applies profile
// changes, enforcing ProfileComplete monotonicity. It returns the appended
// messages.
func applyUpdate(state *model.ConversationState, update *Update) []model.Message {
	var appended []model.Message
	for _, reply := range update.Replies {
		appended = append(appended, state.AppendAssistant(reply.Agent, reply.Content, reply.MessageType))
	}
	if update.ProfileContext != nil {
		state.ProfileContext = update.ProfileContext
	}
	if update.ProfileComplete && !state.ProfileComplete {
		state.ProfileComplete = true
	}
	return appended
}
