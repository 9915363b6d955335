package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

func TestOnboardingPartialProfileAsksFollowUp(t *testing.T) {
	h := NewOnboardingHandler(newScriptedClient(`{"name": "Ada"}`))

	state := stateWith("Hi, I'm Ada")
	update, err := h.Handle(context.Background(), state, TurnConfig{UserID: "u1"})
	require.NoError(t, err)

	assert.False(t, update.ProfileComplete)
	require.NotNil(t, update.ProfileContext)
	assert.Equal(t, "Ada", update.ProfileContext.Name)
	require.Len(t, update.Replies, 1)
	assert.Equal(t, model.MessageTypeAIResponse, update.Replies[0].MessageType)
}

func TestOnboardingCompletionEmittedOnce(t *testing.T) {
	h := NewOnboardingHandler(newScriptedClient(
		`{"name": "Ada", "annual_income": "95k", "financial_goal": "buy a house"}`,
		`{"name": "Ada", "annual_income": "95k", "financial_goal": "buy a house", "occupation": "engineer"}`,
	))

	state := stateWith("I'm Ada, I make 95k and I'm saving for a house")
	update, err := h.Handle(context.Background(), state, TurnConfig{UserID: "u1"})
	require.NoError(t, err)

	assert.True(t, update.ProfileComplete)
	require.Len(t, update.Replies, 1)
	assert.Equal(t, model.MessageTypeProfileComplete, update.Replies[0].MessageType)

	applyUpdate(state, update)
	assert.True(t, state.ProfileComplete)

	// a later turn on an already-complete profile never re-announces
	state.AppendHuman("I'm an engineer by the way")
	update, err = h.Handle(context.Background(), state, TurnConfig{UserID: "u1"})
	require.NoError(t, err)

	assert.False(t, update.ProfileComplete)
	for _, reply := range update.Replies {
		assert.NotEqual(t, model.MessageTypeProfileComplete, reply.MessageType)
	}
	assert.Equal(t, "engineer", update.ProfileContext.Occupation)
}

func TestMergeProfileNeverClearsKnownFields(t *testing.T) {
	prev := &model.ProfileContext{Name: "Ada", AnnualIncome: "95k", Interests: []string{"etfs"}}
	next := &model.ProfileContext{FinancialGoal: "retire early"}

	merged := mergeProfile(prev, next)
	assert.Equal(t, "Ada", merged.Name)
	assert.Equal(t, "95k", merged.AnnualIncome)
	assert.Equal(t, "retire early", merged.FinancialGoal)
	assert.Equal(t, []string{"etfs"}, merged.Interests)
}

func TestApplyUpdateProfileCompleteIsMonotonic(t *testing.T) {
	state := model.NewConversationState()
	state.ProfileComplete = true

	applyUpdate(state, &Update{ProfileComplete: false})
	assert.True(t, state.ProfileComplete)
}

func TestOnboardingNilClientAsksForDetails(t *testing.T) {
	h := NewOnboardingHandler(nil)

	update, err := h.Handle(context.Background(), stateWith("set me up"), TurnConfig{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, update.Replies, 1)
	assert.NotEmpty(t, update.Replies[0].Content)
}
