package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/pocketsage-ai/finance-copilot/internal/llm"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

const onboardingSystemPrompt = `You extract a user profile from a personal-finance conversation.

From the conversation, fill in whatever is known:
  name, age_range, occupation, annual_income, financial_goal,
  risk_tolerance (conservative/moderate/aggressive), interests (list)

Leave unknown fields empty. Reply with the JSON object only.`

const onboardingCannedReply = "Let's get you set up! Tell me your name, roughly what you earn, " +
	"and what you're saving toward."

const onboardingCompleteReply = "That's everything I need - your profile is all set. " +
	"Ask me anything about your money from here on."

// onboardingContextMessages bounds how much history the extractor sees.
const onboardingContextMessages = 16

// OnboardingHandler extracts profile fields from the conversation with
// structured output and decides when the profile is complete.
type OnboardingHandler struct {
	client    llm.Client
	extractor llm.Extractor
}

// NewOnboardingHandler creates the onboarding handler. A nil client is
// allowed; the handler then asks for details with a canned reply.
func NewOnboardingHandler(client llm.Client) *OnboardingHandler {
	h := &OnboardingHandler{client: client}
	if client != nil {
		h.extractor = llm.NewExtractor(client)
	}
	return h
}

// Name returns the handler's agent tag.
func (h *OnboardingHandler) Name() string {
	return model.AgentOnboarding
}

// profileComplete reports whether the extracted snapshot covers the fields
// onboarding needs before the assistant personalizes answers.
func profileComplete(p *model.ProfileContext) bool {
	return p != nil && p.Name != "" && p.AnnualIncome != "" && p.FinancialGoal != ""
}

// Handle extracts profile fields and emits a completion side effect exactly
// once, when the profile first becomes complete.
func (h *OnboardingHandler) Handle(ctx context.Context, state *model.ConversationState, cfg TurnConfig) (*Update, error) {
	if h.extractor == nil {
		return &Update{Replies: []Reply{{
			Agent:       h.Name(),
			Content:     onboardingCannedReply,
			MessageType: model.MessageTypeAIResponse,
		}}}, nil
	}

	var sb strings.Builder
	history := state.Messages
	if len(history) > onboardingContextMessages {
		history = history[len(history)-onboardingContextMessages:]
	}
	for _, msg := range history {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
	}

	var profile model.ProfileContext
	err := h.extractor.Extract(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: onboardingSystemPrompt},
			{Role: "user", Content: sb.String()},
		},
		MaxTokens:   512,
		Temperature: 0,
	}, &profile)
	if err != nil {
		return nil, fmt.Errorf("profile extraction failed: %w", err)
	}

	merged := mergeProfile(state.ProfileContext, &profile)
	update := &Update{ProfileContext: merged}

	if profileComplete(merged) && !state.ProfileComplete {
		update.ProfileComplete = true
		update.Replies = append(update.Replies, Reply{
			Agent:       h.Name(),
			Content:     onboardingCompleteReply,
			MessageType: model.MessageTypeProfileComplete,
		})
		return update, nil
	}

	update.Replies = append(update.Replies, Reply{
		Agent:       h.Name(),
		Content:     nextOnboardingQuestion(merged),
		MessageType: model.MessageTypeAIResponse,
	})
	return update, nil
}

// mergeProfile overlays newly extracted fields onto the stored snapshot,
// never clearing a field that was already known.
func mergeProfile(prev, next *model.ProfileContext) *model.ProfileContext {
	if prev == nil {
		out := *next
		return &out
	}
	out := *prev
	if next.Name != "" {
		out.Name = next.Name
	}
	if next.AgeRange != "" {
		out.AgeRange = next.AgeRange
	}
	if next.Occupation != "" {
		out.Occupation = next.Occupation
	}
	if next.AnnualIncome != "" {
		out.AnnualIncome = next.AnnualIncome
	}
	if next.FinancialGoal != "" {
		out.FinancialGoal = next.FinancialGoal
	}
	if next.RiskTolerance != "" {
		out.RiskTolerance = next.RiskTolerance
	}
	if len(next.Interests) > 0 {
		out.Interests = next.Interests
	}
	return &out
}

func nextOnboardingQuestion(p *model.ProfileContext) string {
	switch {
	case p.Name == "":
		return "Great to meet you! What should I call you?"
	case p.AnnualIncome == "":
		return fmt.Sprintf("Thanks, %s! Roughly what do you earn in a year? A ballpark is fine.", p.Name)
	case p.FinancialGoal == "":
		return "Got it. What's the main thing you're working toward - a purchase, savings, paying something off?"
	default:
		return "Anything else you'd like me to know about your finances?"
	}
}
