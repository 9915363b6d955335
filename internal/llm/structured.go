package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Extractor produces a typed object from an LLM invocation. The two
// implementations cover the two provider classes: native structured output,
// and text-only backends that are asked for raw JSON and validated here.
type Extractor interface {
	Extract(ctx context.Context, req *CompletionRequest, out any) error
}

// NewExtractor selects the extraction strategy for a client, once, at
// construction time.
func NewExtractor(c Client) Extractor {
	if sc, ok := c.(StructuredClient); ok {
		return &schemaExtractor{client: sc}
	}
	return &jsonExtractor{client: c}
}

// schemaExtractor delegates to a provider's native structured output mode.
type schemaExtractor struct {
	client StructuredClient
}

func (e *schemaExtractor) Extract(ctx context.Context, req *CompletionRequest, out any) error {
	return e.client.CompleteStructured(ctx, req, out)
}

// jsonExtractor asks a text-only backend for raw JSON and parses it.
type jsonExtractor struct {
	client Client
}

func (e *jsonExtractor) Extract(ctx context.Context, req *CompletionRequest, out any) error {
	jsonReq := *req
	jsonReq.Messages = append([]ChatMessage{}, req.Messages...)
	jsonReq.Messages = append(jsonReq.Messages, ChatMessage{
		Role:    "user",
		Content: "Respond with a single JSON object only. No prose, no code fences.",
	})

	resp, err := e.client.Complete(ctx, &jsonReq)
	if err != nil {
		return err
	}
	return UnmarshalLoose(resp.Content, out)
}

// UnmarshalLoose parses a JSON object out of model text, tolerating code
// fences and surrounding prose.
func UnmarshalLoose(content string, out any) error {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON value in model output")
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return fmt.Errorf("unterminated JSON value in model output")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), out); err != nil {
		return fmt.Errorf("failed to parse model output: %w", err)
	}
	return nil
}
