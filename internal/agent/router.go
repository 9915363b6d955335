// Package agent implements the conversation orchestration core: the router,
// the specialist handlers, and the graph wiring them together.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/pocketsage-ai/finance-copilot/internal/llm"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
)

// RouteLabel is the closed set of destinations the router may select.
type RouteLabel string

const (
	RouteSmallTalk  RouteLabel = "SMALLTALK"
	RouteSpending   RouteLabel = "SPENDING"
	RouteInvestment RouteLabel = "INVESTMENT"
	RouteOnboarding RouteLabel = "ONBOARDING"

	// RouteNone means the turn was answered without routing (empty input
	// short-circuit).
	RouteNone RouteLabel = ""
)

// AllRoutes lists the valid destinations in prompt order.
var AllRoutes = []RouteLabel{RouteSmallTalk, RouteSpending, RouteInvestment, RouteOnboarding}

// RoutingError reports a router reply that could not be mapped to a known
// label. Callers decide fallback behavior.
type RoutingError struct {
	Raw string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("unrecognized route label %q", e.Raw)
}

// ParseRouteLabel maps a raw model reply onto the closed label set.
func ParseRouteLabel(raw string) (RouteLabel, error) {
	label := RouteLabel(strings.ToUpper(strings.TrimSpace(raw)))
	for _, r := range AllRoutes {
		if label == r {
			return r, nil
		}
	}
	return RouteNone, &RoutingError{Raw: raw}
}

const routerSystemPrompt = `You are the orchestrator of a personal-finance assistant.
Classify the user's latest message into exactly one destination:

SMALLTALK - greetings, chit-chat, anything not finance-specific
SPENDING - questions about transactions, spending, budgets, merchants
INVESTMENT - questions about investing, portfolios, markets
ONBOARDING - the user is sharing personal or financial profile details

Reply with the destination label only. No punctuation, no explanation.`

const clarificationReply = "I didn't catch that - could you tell me a bit more about what you'd like help with?"

// routerContextMessages bounds how much history the router sees.
const routerContextMessages = 12

// Router is the single-step classifier that decides which specialist handler
// processes a turn.
type Router struct {
	client llm.Client
	log    *logger.Logger
}

// NewRouter creates a router. A nil client is allowed; routing then fails
// with llm.ErrUnavailable and the graph falls back to its default handler.
func NewRouter(client llm.Client, log *logger.Logger) *Router {
	return &Router{client: client, log: log}
}

// Route produces exactly one RouteLabel for the current state.
//
// The state must contain at least one message. If the latest human message
// is empty or whitespace-only, Route skips the LLM entirely, appends a
// canned clarification tagged orchestrator, and returns RouteNone.
func (r *Router) Route(ctx context.Context, state *model.ConversationState) (RouteLabel, error) {
	if len(state.Messages) == 0 {
		return RouteNone, ErrNoMessages
	}

	last := state.LastHuman()
	if last == nil || strings.TrimSpace(last.Content) == "" {
		state.AppendAssistant(model.AgentOrchestrator, clarificationReply, model.MessageTypeClarification)
		return RouteNone, nil
	}

	if r.client == nil {
		return RouteNone, llm.ErrUnavailable
	}

	messages := []llm.ChatMessage{{Role: "system", Content: routerSystemPrompt}}
	history := state.Messages
	if len(history) > routerContextMessages {
		history = history[len(history)-routerContextMessages:]
	}
	for _, msg := range history {
		role := "user"
		if msg.Role == model.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: msg.Content})
	}

	resp, err := r.client.Complete(ctx, &llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   8,
		Temperature: 0,
	})
	if err != nil {
		return RouteNone, fmt.Errorf("router completion failed: %w", err)
	}

	label, err := ParseRouteLabel(resp.Content)
	if err != nil {
		return RouteNone, err
	}
	return label, nil
}
