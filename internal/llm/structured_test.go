package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalLoose(t *testing.T) {
	type payload struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain object", `{"intent": "spending_summary", "confidence": 0.9}`, false},
		{"fenced", "```json\n{\"intent\": \"spending_summary\", \"confidence\": 0.9}\n```", false},
		{"bare fence", "```\n{\"intent\": \"spending_summary\", \"confidence\": 0.9}\n```", false},
		{"surrounding prose", `Sure! Here you go: {"intent": "spending_summary", "confidence": 0.9} Hope that helps.`, false},
		{"no json", "I cannot help with that.", true},
		{"unterminated", `{"intent": "spending_summary"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out payload
			err := UnmarshalLoose(tt.content, &out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "spending_summary", out.Intent)
			assert.Equal(t, 0.9, out.Confidence)
		})
	}
}

// textClient is a plain completion backend.
type textClient struct {
	lastReq *CompletionRequest
	reply   string
}

func (c *textClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	c.lastReq = req
	return &CompletionResponse{Content: c.reply}, nil
}

func (c *textClient) Name() string { return "text" }
func (c *textClient) Models() []string { return nil }
func (c *textClient) ContextWindow(string) int { return 100000 }

// structuredStub additionally supports native structured output.
type structuredStub struct {
	textClient
	structuredCalls int
}

func (c *structuredStub) CompleteStructured(ctx context.Context, req *CompletionRequest, out any) error {
	c.structuredCalls++
	return UnmarshalLoose(c.reply, out)
}

func TestNewExtractorPrefersNativeStructuredOutput(t *testing.T) {
	stub := &structuredStub{textClient: textClient{reply: `{"name": "Ada"}`}}
	extractor := NewExtractor(stub)

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, extractor.Extract(context.Background(), &CompletionRequest{}, &out))
	assert.Equal(t, "Ada", out.Name)
	assert.Equal(t, 1, stub.structuredCalls)
}

func TestJSONExtractorAppendsInstructionWithoutMutatingRequest(t *testing.T) {
	client := &textClient{reply: `{"name": "Ada"}`}
	extractor := NewExtractor(client)

	req := &CompletionRequest{Messages: []ChatMessage{{Role: "user", Content: "who am I?"}}}
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, extractor.Extract(context.Background(), req, &out))
	assert.Equal(t, "Ada", out.Name)

	// the JSON-only instruction goes to the backend, not the caller's request
	require.Len(t, req.Messages, 1)
	require.Len(t, client.lastReq.Messages, 2)
	assert.Contains(t, client.lastReq.Messages[1].Content, "JSON object only")
}
