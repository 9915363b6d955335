package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessagesSplitsSystemRole(t *testing.T) {
	messages, system := convertMessages([]ChatMessage{
		{Role: "system", Content: "You are a routing classifier."},
		{Role: "user", Content: "how much did I spend on coffee"},
	})

	assert.Equal(t, "You are a routing classifier.", system)
	require.Len(t, messages, 1)
	assert.Equal(t, anthropic.MessageParamRoleUser, messages[0].Role.Value)

	// The system turn must never appear in the message list. The Messages
	// API rejects any role other than user/assistant there.
	for _, m := range messages {
		assert.NotEqual(t, anthropic.MessageParamRole("system"), m.Role.Value)
	}
}

func TestConvertMessagesJoinsMultipleSystemTurns(t *testing.T) {
	messages, system := convertMessages([]ChatMessage{
		{Role: "system", Content: "first instruction"},
		{Role: "user", Content: "hi"},
		{Role: "system", Content: "second instruction"},
	})

	assert.Equal(t, "first instruction\n\nsecond instruction", system)
	require.Len(t, messages, 1)
}

func TestConvertMessagesRoleMapping(t *testing.T) {
	messages, system := convertMessages([]ChatMessage{
		{Role: "user", Content: "what can you do"},
		{Role: "assistant", Content: "I can help with your finances."},
		{Role: "user", Content: "great"},
	})

	assert.Empty(t, system)
	require.Len(t, messages, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, messages[0].Role.Value)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, messages[1].Role.Value)
	assert.Equal(t, anthropic.MessageParamRoleUser, messages[2].Role.Value)

	blocks := messages[1].Content.Value
	require.Len(t, blocks, 1)
	text, ok := blocks[0].(anthropic.TextBlockParam)
	require.True(t, ok)
	assert.Equal(t, "I can help with your finances.", text.Text.Value)
}

func TestConvertMessagesEmpty(t *testing.T) {
	messages, system := convertMessages(nil)
	assert.Empty(t, messages)
	assert.Empty(t, system)
}
