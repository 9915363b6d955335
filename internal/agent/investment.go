package agent

import (
	"context"

	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

const investmentCannedReply = "Investment insights are on the way - I can't analyze portfolios just yet. " +
	"In the meantime I'm happy to help with your spending or answer general questions."

// InvestmentHandler is a pure placeholder agent: no LLM call, deterministic
// reply. It exists so the router's label set stays closed while the feature
// is built out.
type InvestmentHandler struct{}

// NewInvestmentHandler creates the investment placeholder handler.
func NewInvestmentHandler() *InvestmentHandler {
	return &InvestmentHandler{}
}

// Name returns the handler's agent tag.
func (h *InvestmentHandler) Name() string {
	return model.AgentInvestment
}

// Handle returns the canned placeholder reply.
func (h *InvestmentHandler) Handle(ctx context.Context, state *model.ConversationState, cfg TurnConfig) (*Update, error) {
	return &Update{Replies: []Reply{{
		Agent:       h.Name(),
		Content:     investmentCannedReply,
		MessageType: model.MessageTypeAIResponse,
	}}}, nil
}
