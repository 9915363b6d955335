// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by callers that require an LLM backend when
// none is configured. Routine handling treats this as degraded, not fatal.
var ErrUnavailable = errors.New("llm backend not configured")

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string

	// ContextWindow returns the context window size in tokens for a model.
	// An empty model name returns the window of the provider default.
	ContextWindow(model string) int
}

// StructuredClient is implemented by providers that support
// schema-constrained output natively. Providers without it are served by the
// JSON-text fallback extractor instead; the capability is decided once at
// construction, never probed per call.
type StructuredClient interface {
	Client

	// CompleteStructured sends a completion constrained to JSON output and
	// unmarshals the result into out.
	CompleteStructured(ctx context.Context, req *CompletionRequest, out any) error
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// PickProvider selects the provider to run with. The preferred name wins when
// its API key is present; otherwise whichever key is set is used. The returned
// bool is false when no key is configured at all.
func PickProvider(preferred string, anthropicKey, openaiKey string) (Provider, string, bool) {
	switch Provider(preferred) {
	case ProviderOpenAI:
		if openaiKey != "" {
			return ProviderOpenAI, openaiKey, true
		}
	case ProviderAnthropic:
		if anthropicKey != "" {
			return ProviderAnthropic, anthropicKey, true
		}
	}
	if anthropicKey != "" {
		return ProviderAnthropic, anthropicKey, true
	}
	if openaiKey != "" {
		return ProviderOpenAI, openaiKey, true
	}
	return "", "", false
}

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewAnthropicClient(apiKey)
	}
}
