package agent

import (
	"context"

	"github.com/pocketsage-ai/finance-copilot/internal/llm"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

const smallTalkSystemPrompt = `You are a friendly personal-finance assistant.
Keep replies short and warm. If the conversation drifts toward money topics,
gently offer to help with spending or investing questions.`

const smallTalkCannedReply = "Hi there! I'm your personal-finance assistant. " +
	"Ask me about your spending, or tell me a bit about yourself to get started."

// smallTalkContextMessages bounds how much history the handler sends.
const smallTalkContextMessages = 10

// SmallTalkHandler answers conversational chit-chat. With no LLM configured
// it degrades to a canned greeting.
type SmallTalkHandler struct {
	client llm.Client
}

// NewSmallTalkHandler creates the small-talk handler.
func NewSmallTalkHandler(client llm.Client) *SmallTalkHandler {
	return &SmallTalkHandler{client: client}
}

// Name returns the handler's agent tag.
func (h *SmallTalkHandler) Name() string {
	return model.AgentSmallTalk
}

// Handle produces one conversational reply.
func (h *SmallTalkHandler) Handle(ctx context.Context, state *model.ConversationState, cfg TurnConfig) (*Update, error) {
	if h.client == nil {
		return &Update{Replies: []Reply{{
			Agent:       h.Name(),
			Content:     smallTalkCannedReply,
			MessageType: model.MessageTypeAIResponse,
		}}}, nil
	}

	messages := []llm.ChatMessage{{Role: "system", Content: smallTalkSystemPrompt}}
	history := state.Messages
	if len(history) > smallTalkContextMessages {
		history = history[len(history)-smallTalkContextMessages:]
	}
	for _, msg := range history {
		role := "user"
		if msg.Role == model.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: msg.Content})
	}

	resp, err := h.client.Complete(ctx, &llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   512,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	return &Update{Replies: []Reply{{
		Agent:       h.Name(),
		Content:     resp.Content,
		MessageType: model.MessageTypeAIResponse,
	}}}, nil
}
