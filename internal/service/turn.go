// Package service provides the turn-processing business logic.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pocketsage-ai/finance-copilot/internal/agent"
	"github.com/pocketsage-ai/finance-copilot/internal/checkpoint"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
	"github.com/pocketsage-ai/finance-copilot/internal/session"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
	"github.com/pocketsage-ai/finance-copilot/pkg/metrics"
)

// AuditSink receives control-plane events. The NATS publisher implements
// it; a nil sink disables auditing.
type AuditSink interface {
	Publish(ctx context.Context, event *model.AuditEvent) error
}

// TurnService runs one conversation turn end to end: load checkpoint,
// append the human message, invoke the graph, checkpoint the result.
// Turns for the same thread are serialized; distinct threads proceed in
// parallel.
type TurnService struct {
	graph        *agent.Graph
	store        checkpoint.Store
	locks        *session.KeyedMutex
	audit        AuditSink
	llmAvailable bool
	llmTimeout   time.Duration
	logger       *logger.Logger
}

// NewTurnService creates a turn service.
func NewTurnService(
	graph *agent.Graph,
	store checkpoint.Store,
	audit AuditSink,
	llmAvailable bool,
	llmTimeout time.Duration,
	log *logger.Logger,
) *TurnService {
	return &TurnService{
		graph:        graph,
		store:        store,
		locks:        session.NewKeyedMutex(),
		audit:        audit,
		llmAvailable: llmAvailable,
		llmTimeout:   llmTimeout,
		logger:       log,
	}
}

// Process runs one turn. A checkpoint failure is fatal for the turn: the
// caller must not report success for state that was not durably saved.
// Handler failures have already been converted into apology replies by the
// graph and are only surfaced here through logging and audit.
func (s *TurnService) Process(ctx context.Context, req *model.TurnRequest) (*model.TurnResponse, error) {
	start := time.Now()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = session.DefaultSessionID(req.UserID)
	}
	key := checkpoint.ThreadKey{UserID: req.UserID, SessionID: sessionID}

	s.locks.Lock(key.String())
	defer s.locks.Unlock(key.String())

	state, err := s.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	if state == nil {
		state = model.NewConversationState()
	}

	state.AppendHuman(req.UserMessage)

	turn, err := s.graph.Invoke(ctx, &agent.Turn{
		State: state,
		Config: agent.TurnConfig{
			UserID:     req.UserID,
			SessionID:  sessionID,
			LLMTimeout: s.llmTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("graph invocation: %w", err)
	}

	if err := s.store.Save(ctx, key, state); err != nil {
		return nil, fmt.Errorf("saving checkpoint: %w", err)
	}

	s.publishAudit(ctx, req.UserID, sessionID, turn)
	metrics.RecordTurn(string(turn.Route), turn.HandlerErr == nil, time.Since(start).Seconds())

	if turn.HandlerErr != nil {
		s.logger.Warn("turn completed with handler failure",
			zap.String("user_id", req.UserID),
			zap.String("session_id", sessionID),
			zap.Error(turn.HandlerErr),
		)
	}

	return &model.TurnResponse{
		Messages:  turn.Replies,
		SessionID: sessionID,
		UserID:    req.UserID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// publishAudit sends routing and failure events to the audit channel.
// Auditing is best-effort: a publish failure is logged, never fatal.
func (s *TurnService) publishAudit(ctx context.Context, userID, sessionID string, turn *agent.Turn) {
	if s.audit == nil {
		return
	}

	events := []*model.AuditEvent{}
	if turn.Route != agent.RouteNone {
		events = append(events, &model.AuditEvent{
			Kind:  model.AuditRouteDecision,
			Route: string(turn.Route),
		})
	}
	if turn.HandlerErr != nil {
		events = append(events, &model.AuditEvent{
			Kind:   model.AuditHandlerError,
			Route:  string(turn.Route),
			Detail: turn.HandlerErr.Error(),
		})
	}
	events = append(events, &model.AuditEvent{
		Kind:  model.AuditTurnComplete,
		Route: string(turn.Route),
	})

	for _, event := range events {
		event.ID = uuid.Must(uuid.NewV7()).String()
		event.UserID = userID
		event.SessionID = sessionID
		event.CreatedAt = time.Now().UTC()
		if err := s.audit.Publish(ctx, event); err != nil {
			s.logger.Warn("audit publish failed",
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
		}
	}
}

// Health probes the full pipeline with a canned message on a scratch
// thread. A missing LLM backend reports degraded capability but the
// service stays healthy: stub handlers still respond.
func (s *TurnService) Health(ctx context.Context) *model.HealthStatus {
	status := &model.HealthStatus{
		GraphInitialized: s.graph != nil,
		LLMAvailable:     s.llmAvailable,
	}
	if s.graph == nil {
		status.Status = "unhealthy"
		status.Error = "conversation graph not initialized"
		return status
	}

	resp, err := s.Process(ctx, &model.TurnRequest{
		UserID:      "healthcheck",
		SessionID:   "probe-" + uuid.NewString(),
		UserMessage: "Hello!",
	})
	if err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
		return status
	}

	status.TestResponseReceived = len(resp.Messages) > 0
	status.Status = "healthy"
	return status
}
