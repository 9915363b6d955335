package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"go.uber.org/zap"

	"github.com/pocketsage-ai/finance-copilot/internal/model"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
)

// ErrNoMessages is the malformed-fatal condition of routing an empty state.
// It propagates as a hard error rather than falling back.
var ErrNoMessages = errors.New("cannot route a state with no messages")

const apologyReply = "Sorry - something went wrong on my end while handling that. " +
	"Mind trying again in a moment?"

// Node keys in the compiled graph.
const (
	nodeRouter     = "router"
	nodeSmallTalk  = "smalltalk"
	nodeSpending   = "spending"
	nodeInvestment = "investment"
	nodeOnboarding = "onboarding"
)

var routeNodes = map[RouteLabel]string{
	RouteSmallTalk:  nodeSmallTalk,
	RouteSpending:   nodeSpending,
	RouteInvestment: nodeInvestment,
	RouteOnboarding: nodeOnboarding,
}

// Turn is the value threaded through one graph invocation: the in-flight
// state plus turn-scoped config and outcomes.
type Turn struct {
	State  *model.ConversationState
	Config TurnConfig

	// Route is the label the router selected, or RouteNone for the empty
	// input short-circuit.
	Route RouteLabel

	// Replies are the assistant messages appended during this turn, in
	// order.
	Replies []model.Message

	// HandlerErr records a handler failure that was converted into an
	// apology reply. Retained for the caller's logging, never shown
	// verbatim to the user.
	HandlerErr error
}

// Handlers bundles the specialist handlers the graph routes between.
type Handlers struct {
	SmallTalk  Handler
	Spending   Handler
	Investment Handler
	Onboarding Handler
}

// Graph is the single-step conversation state machine: router in, exactly
// one handler, terminal. Per-thread serialization is the caller's job.
type Graph struct {
	runnable compose.Runnable[*Turn, *Turn]
	log      *logger.Logger
}

// NewGraph compiles the conversation graph.
func NewGraph(ctx context.Context, router *Router, handlers Handlers, log *logger.Logger) (*Graph, error) {
	if router == nil {
		return nil, fmt.Errorf("router is nil")
	}
	byNode := map[string]Handler{
		nodeSmallTalk:  handlers.SmallTalk,
		nodeSpending:   handlers.Spending,
		nodeInvestment: handlers.Investment,
		nodeOnboarding: handlers.Onboarding,
	}
	for node, h := range byNode {
		if h == nil {
			return nil, fmt.Errorf("handler %s is nil", node)
		}
	}

	g := compose.NewGraph[*Turn, *Turn]()

	_ = g.AddLambdaNode(nodeRouter, compose.InvokableLambda(routerNode(router, log)))
	for node, h := range byNode {
		_ = g.AddLambdaNode(node, compose.InvokableLambda(handlerNode(h, log)))
	}

	_ = g.AddEdge(compose.START, nodeRouter)

	outMap := map[string]bool{
		nodeSmallTalk:  true,
		nodeSpending:   true,
		nodeInvestment: true,
		nodeOnboarding: true,
		compose.END:    true,
	}
	if err := g.AddBranch(nodeRouter, compose.NewGraphBranch(routeCondition, outMap)); err != nil {
		return nil, fmt.Errorf("adding route branch: %w", err)
	}

	for node := range byNode {
		_ = g.AddEdge(node, compose.END)
	}

	runnable, err := g.Compile(ctx,
		compose.WithGraphName("finance-copilot"),
		compose.WithMaxRunSteps(4),
	)
	if err != nil {
		return nil, fmt.Errorf("compiling conversation graph: %w", err)
	}

	return &Graph{runnable: runnable, log: log}, nil
}

// Invoke runs one turn through router and handler. The returned turn's
// state is the caller's input state, mutated in place.
func (g *Graph) Invoke(ctx context.Context, turn *Turn) (*Turn, error) {
	if turn.State == nil || len(turn.State.Messages) == 0 {
		return nil, ErrNoMessages
	}
	return g.runnable.Invoke(ctx, turn)
}

// routerNode wraps the router. A routing failure is never fatal here: the
// turn falls back to small talk and the failure is logged.
func routerNode(router *Router, log *logger.Logger) func(ctx context.Context, t *Turn) (*Turn, error) {
	return func(ctx context.Context, t *Turn) (*Turn, error) {
		before := len(t.State.Messages)

		rctx, cancel := turnContext(ctx, t.Config)
		defer cancel()

		label, err := router.Route(rctx, t.State)
		if err != nil {
			if errors.Is(err, ErrNoMessages) {
				return nil, err
			}
			log.Warn("routing failed, falling back to small talk",
				zap.String("user_id", t.Config.UserID),
				zap.String("session_id", t.Config.SessionID),
				zap.Error(err),
			)
			label = RouteSmallTalk
		}

		t.Route = label
		t.Replies = append(t.Replies, t.State.Messages[before:]...)
		return t, nil
	}
}

// routeCondition selects the handler node for the routed label. The empty
// input short-circuit ends the turn at the router.
func routeCondition(ctx context.Context, t *Turn) (string, error) {
	if t.Route == RouteNone {
		return compose.END, nil
	}
	node, ok := routeNodes[t.Route]
	if !ok {
		return "", &RoutingError{Raw: string(t.Route)}
	}
	return node, nil
}

// handlerNode wraps a specialist handler. A handler that errors or panics
// must not corrupt state: updates are only applied on success, and the
// failure becomes a single apology reply with the cause retained on the
// turn.
func handlerNode(h Handler, log *logger.Logger) func(ctx context.Context, t *Turn) (*Turn, error) {
	return func(ctx context.Context, t *Turn) (out *Turn, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panicked",
					zap.String("agent", h.Name()),
					zap.Any("panic", r),
				)
				t.HandlerErr = fmt.Errorf("handler %s panicked: %v", h.Name(), r)
				t.Replies = append(t.Replies,
					t.State.AppendAssistant(h.Name(), apologyReply, model.MessageTypeError))
				out, err = t, nil
			}
		}()

		hctx, cancel := turnContext(ctx, t.Config)
		defer cancel()

		update, herr := h.Handle(hctx, t.State, t.Config)
		if herr != nil {
			log.Warn("handler failed",
				zap.String("agent", h.Name()),
				zap.String("user_id", t.Config.UserID),
				zap.Error(herr),
			)
			t.HandlerErr = fmt.Errorf("handler %s: %w", h.Name(), herr)
			t.Replies = append(t.Replies,
				t.State.AppendAssistant(h.Name(), apologyReply, model.MessageTypeError))
			return t, nil
		}

		t.Replies = append(t.Replies, applyUpdate(t.State, update)...)
		return t, nil
	}
}

// turnContext bounds LLM work by the turn's configured timeout.
func turnContext(ctx context.Context, cfg TurnConfig) (context.Context, context.CancelFunc) {
	if cfg.LLMTimeout > 0 {
		return context.WithTimeout(ctx, cfg.LLMTimeout)
	}
	return context.WithCancel(ctx)
}
