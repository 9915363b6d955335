package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketsage-ai/finance-copilot/internal/llm"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

func TestParseRouteLabel(t *testing.T) {
	tests := []struct {
		raw     string
		want    RouteLabel
		wantErr bool
	}{
		{"SMALLTALK", RouteSmallTalk, false},
		{"spending", RouteSpending, false},
		{"  Investment \n", RouteInvestment, false},
		{"ONBOARDING", RouteOnboarding, false},
		{"SMALLTALK.", RouteNone, true},
		{"I think SPENDING", RouteNone, true},
		{"", RouteNone, true},
	}
	for _, tt := range tests {
		got, err := ParseRouteLabel(tt.raw)
		if tt.wantErr {
			var rerr *RoutingError
			require.ErrorAs(t, err, &rerr, "raw=%q", tt.raw)
			continue
		}
		require.NoError(t, err, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestRouteEmptyInputShortCircuit(t *testing.T) {
	client := newScriptedClient("SMALLTALK")
	router := NewRouter(client, testLogger())

	for _, input := range []string{"", "   ", "\n\t"} {
		state := stateWith(input)

		label, err := router.Route(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, RouteNone, label)

		// clarification appended, model never invoked
		require.Len(t, state.Messages, 2)
		reply := state.Messages[1]
		assert.Equal(t, model.RoleAssistant, reply.Role)
		assert.Equal(t, model.AgentOrchestrator, reply.Agent)
		assert.Equal(t, model.MessageTypeClarification, reply.MessageType)
		assert.Zero(t, client.callCount())
	}
}

func TestRouteDeterministicForIdenticalState(t *testing.T) {
	router := NewRouter(newScriptedClient("SMALLTALK", "SMALLTALK"), testLogger())

	first, err := router.Route(context.Background(), stateWith("hello there"))
	require.NoError(t, err)
	second, err := router.Route(context.Background(), stateWith("hello there"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRouteUnknownLabel(t *testing.T) {
	router := NewRouter(newScriptedClient("BANKING"), testLogger())

	label, err := router.Route(context.Background(), stateWith("move my money"))
	assert.Equal(t, RouteNone, label)

	var rerr *RoutingError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "BANKING", rerr.Raw)
}

func TestRouteNoMessages(t *testing.T) {
	router := NewRouter(newScriptedClient(), testLogger())

	_, err := router.Route(context.Background(), model.NewConversationState())
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestRouteNilClient(t *testing.T) {
	router := NewRouter(nil, testLogger())

	_, err := router.Route(context.Background(), stateWith("hello"))
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestRouteCompletionFailure(t *testing.T) {
	client := newScriptedClient()
	client.err = errors.New("upstream 500")
	router := NewRouter(client, testLogger())

	_, err := router.Route(context.Background(), stateWith("hello"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMessages)
}
