package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pocketsage-ai/finance-copilot/internal/agent"
	"github.com/pocketsage-ai/finance-copilot/internal/checkpoint"
	"github.com/pocketsage-ai/finance-copilot/internal/llm"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
	"github.com/pocketsage-ai/finance-copilot/internal/session"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

// routeClient always routes to the same label.
type routeClient struct {
	label string
}

func (c *routeClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: c.label}, nil
}

func (c *routeClient) Name() string { return "route" }
func (c *routeClient) Models() []string { return nil }
func (c *routeClient) ContextWindow(string) int { return 100000 }

type echoHandler struct {
	name string
}

func (h *echoHandler) Name() string { return h.name }

func (h *echoHandler) Handle(ctx context.Context, state *model.ConversationState, cfg agent.TurnConfig) (*agent.Update, error) {
	return &agent.Update{Replies: []agent.Reply{{
		Agent:       h.name,
		Content:     "echo: " + state.LastHuman().Content,
		MessageType: model.MessageTypeAIResponse,
	}}}, nil
}

func newTestGraph(t *testing.T, label string) *agent.Graph {
	t.Helper()
	router := agent.NewRouter(&routeClient{label: label}, testLogger())
	graph, err := agent.NewGraph(context.Background(), router, agent.Handlers{
		SmallTalk:  &echoHandler{name: model.AgentSmallTalk},
		Spending:   &echoHandler{name: model.AgentSpending},
		Investment: &echoHandler{name: model.AgentInvestment},
		Onboarding: &echoHandler{name: model.AgentOnboarding},
	}, testLogger())
	require.NoError(t, err)
	return graph
}

// recordingSink captures published audit events.
type recordingSink struct {
	mu     sync.Mutex
	events []*model.AuditEvent
}

func (s *recordingSink) Publish(ctx context.Context, event *model.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) kinds() []model.AuditEventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AuditEventKind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

func TestProcessPersistsTurn(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	svc := NewTurnService(newTestGraph(t, "SMALLTALK"), store, nil, true, time.Second, testLogger())

	resp, err := svc.Process(context.Background(), &model.TurnRequest{
		UserID:      "u1",
		SessionID:   "s1",
		UserMessage: "Hello!",
	})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "echo: Hello!", resp.Messages[0].Content)
	assert.Equal(t, "s1", resp.SessionID)

	state, err := store.Load(context.Background(), checkpoint.ThreadKey{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, model.RoleHuman, state.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, state.Messages[1].Role)
}

func TestProcessResumesAcrossTurns(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	svc := NewTurnService(newTestGraph(t, "SMALLTALK"), store, nil, true, time.Second, testLogger())

	for _, msg := range []string{"Hello!", "How are you?"} {
		_, err := svc.Process(context.Background(), &model.TurnRequest{
			UserID: "u1", SessionID: "s1", UserMessage: msg,
		})
		require.NoError(t, err)
	}

	state, err := store.Load(context.Background(), checkpoint.ThreadKey{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, state.Messages, 4)
	for i, msg := range state.Messages {
		if i%2 == 0 {
			assert.Equal(t, model.RoleHuman, msg.Role, "index %d", i)
		} else {
			assert.Equal(t, model.RoleAssistant, msg.Role, "index %d", i)
		}
	}
}

func TestProcessDefaultsSessionID(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	svc := NewTurnService(newTestGraph(t, "SMALLTALK"), store, nil, true, time.Second, testLogger())

	resp, err := svc.Process(context.Background(), &model.TurnRequest{
		UserID:      "u1",
		UserMessage: "Hello!",
	})
	require.NoError(t, err)
	assert.Equal(t, session.DefaultSessionID("u1"), resp.SessionID)

	// a second turn without a session lands on the same thread
	_, err = svc.Process(context.Background(), &model.TurnRequest{
		UserID:      "u1",
		UserMessage: "Still me",
	})
	require.NoError(t, err)

	state, err := store.Load(context.Background(), checkpoint.ThreadKey{
		UserID:    "u1",
		SessionID: session.DefaultSessionID("u1"),
	})
	require.NoError(t, err)
	require.Len(t, state.Messages, 4)
}

func TestProcessSessionsAreIsolated(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	svc := NewTurnService(newTestGraph(t, "SMALLTALK"), store, nil, true, time.Second, testLogger())

	_, err := svc.Process(context.Background(), &model.TurnRequest{UserID: "u1", SessionID: "s1", UserMessage: "one"})
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), &model.TurnRequest{UserID: "u1", SessionID: "s2", UserMessage: "two"})
	require.NoError(t, err)

	s1, err := store.Load(context.Background(), checkpoint.ThreadKey{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	s2, err := store.Load(context.Background(), checkpoint.ThreadKey{UserID: "u1", SessionID: "s2"})
	require.NoError(t, err)

	require.Len(t, s1.Messages, 2)
	require.Len(t, s2.Messages, 2)
	assert.Equal(t, "one", s1.Messages[0].Content)
	assert.Equal(t, "two", s2.Messages[0].Content)
}

// failStore fails every save.
type failStore struct {
	checkpoint.Store
}

func (s *failStore) Save(ctx context.Context, key checkpoint.ThreadKey, state *model.ConversationState) error {
	return &checkpoint.IOError{Op: "save", Key: key, Err: errors.New("disk full")}
}

func TestProcessCheckpointFailureIsFatal(t *testing.T) {
	store := &failStore{Store: checkpoint.NewMemoryStore()}
	svc := NewTurnService(newTestGraph(t, "SMALLTALK"), store, nil, true, time.Second, testLogger())

	_, err := svc.Process(context.Background(), &model.TurnRequest{
		UserID: "u1", SessionID: "s1", UserMessage: "Hello!",
	})
	require.Error(t, err)

	var ioErr *checkpoint.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestProcessPublishesAuditEvents(t *testing.T) {
	sink := &recordingSink{}
	svc := NewTurnService(newTestGraph(t, "SPENDING"), checkpoint.NewMemoryStore(), sink, true, time.Second, testLogger())

	_, err := svc.Process(context.Background(), &model.TurnRequest{
		UserID: "u1", SessionID: "s1", UserMessage: "what did I spend?",
	})
	require.NoError(t, err)

	kinds := sink.kinds()
	assert.Contains(t, kinds, model.AuditRouteDecision)
	assert.Contains(t, kinds, model.AuditTurnComplete)
	assert.NotContains(t, kinds, model.AuditHandlerError)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, event := range sink.events {
		assert.Equal(t, "u1", event.UserID)
		assert.Equal(t, "s1", event.SessionID)
		assert.NotEmpty(t, event.ID)
	}
}

func TestHealthReportsHealthyPipeline(t *testing.T) {
	svc := NewTurnService(newTestGraph(t, "SMALLTALK"), checkpoint.NewMemoryStore(), nil, true, time.Second, testLogger())

	status := svc.Health(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.True(t, status.GraphInitialized)
	assert.True(t, status.LLMAvailable)
	assert.True(t, status.TestResponseReceived)
	assert.Empty(t, status.Error)
}

func TestHealthNilGraphIsUnhealthy(t *testing.T) {
	svc := NewTurnService(nil, checkpoint.NewMemoryStore(), nil, false, time.Second, testLogger())

	status := svc.Health(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.False(t, status.GraphInitialized)
	assert.NotEmpty(t, status.Error)
}
