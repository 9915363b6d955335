package agent

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/pocketsage-ai/finance-copilot/internal/llm"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

// scriptedClient replays canned completions in order. Requests past the end
// of the script fail.
type scriptedClient struct {
	mu      sync.Mutex
	replies []string
	calls   int
	err     error
}

func newScriptedClient(replies ...string) *scriptedClient {
	return &scriptedClient{replies: replies}
}

func (c *scriptedClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if len(c.replies) == 0 {
		return nil, errors.New("script exhausted")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return &llm.CompletionResponse{Content: reply, Model: "scripted"}, nil
}

func (c *scriptedClient) Name() string { return "scripted" }
func (c *scriptedClient) Models() []string { return []string{"scripted"} }
func (c *scriptedClient) ContextWindow(string) int { return 100000 }

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// cannedHandler is a handler stub with a fixed reply or a fixed failure.
type cannedHandler struct {
	name  string
	reply string
	err   error
	panic bool
}

func (h *cannedHandler) Name() string { return h.name }

func (h *cannedHandler) Handle(ctx context.Context, state *model.ConversationState, cfg TurnConfig) (*Update, error) {
	if h.panic {
		panic("boom")
	}
	if h.err != nil {
		return nil, h.err
	}
	return &Update{Replies: []Reply{{
		Agent:       h.name,
		Content:     h.reply,
		MessageType: model.MessageTypeAIResponse,
	}}}, nil
}

func stateWith(contents ...string) *model.ConversationState {
	state := model.NewConversationState()
	for _, c := range contents {
		state.AppendHuman(c)
	}
	return state
}
