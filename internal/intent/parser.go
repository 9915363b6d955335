// Package intent converts free-text transaction queries into a constrained
// structured intent object for safe downstream execution.
package intent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pocketsage-ai/finance-copilot/internal/llm"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
	"github.com/pocketsage-ai/finance-copilot/pkg/metrics"
)

// LowConfidenceThreshold marks parses that need offline review.
const LowConfidenceThreshold = 0.7

const maxQueryLimit = 100

const parserSystemPrompt = `You translate a user's transaction question into a JSON intent object.

Fields:
  intent: one of transactions_by_amount, transactions_by_category,
          transactions_by_merchant, transactions_by_date, spending_summary,
          recurring_charges, unknown
  start_date, end_date: ISO dates, only when the user names explicit dates
  days_back: integer, for relative ranges ("this week" = 7, "this month" = 30)
  category, merchant: filter strings taken from the user's words
  min_amount, max_amount: decimal amounts, no currency symbols
  aggregation: none, sum, count, or avg
  sort_by: amount or date; sort_order: asc or desc
  limit: integer result cap
  confidence: 0.0-1.0, your confidence in this parse

Today is %s. Reply with the JSON object only.`

// Parser parses natural-language queries into TransactionQueryIntent
// objects. Parsing is fail-soft: any failure yields an unknown intent with
// confidence 0.0 rather than an error, since this feeds a best-effort
// feature, not a critical path.
type Parser struct {
	extractor llm.Extractor
	log       *logger.Logger
	now       func() time.Time
}

// NewParser creates a parser. A nil client is allowed; every parse then
// returns the unknown intent.
func NewParser(client llm.Client, log *logger.Logger) *Parser {
	p := &Parser{log: log, now: time.Now}
	if client != nil {
		p.extractor = llm.NewExtractor(client)
	}
	return p
}

// Parse converts a query into a structured intent. It never returns an
// error; unknown/0.0 is the failure result, and low-confidence parses are
// logged for offline review.
func (p *Parser) Parse(ctx context.Context, query, userID string) *model.TransactionQueryIntent {
	if p.extractor == nil {
		p.logFailure(query, userID, llm.ErrUnavailable)
		return model.UnknownIntent(query)
	}

	var parsed model.TransactionQueryIntent
	err := p.extractor.Extract(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: fmt.Sprintf(parserSystemPrompt, p.now().UTC().Format("2006-01-02"))},
			{Role: "user", Content: query},
		},
		MaxTokens:   512,
		Temperature: 0,
	}, &parsed)
	if err != nil {
		p.logFailure(query, userID, err)
		return model.UnknownIntent(query)
	}

	intent := p.validate(&parsed, query)
	metrics.RecordIntentParse(string(intent.Intent), intent.Confidence)

	if intent.Intent == model.IntentUnknown || intent.Confidence < LowConfidenceThreshold {
		p.log.Warn("low-confidence intent parse",
			zap.String("user_id", userID),
			zap.String("query", query),
			zap.String("intent", string(intent.Intent)),
			zap.Float64("confidence", intent.Confidence),
		)
	}
	return intent
}

// validate clamps fields into the closed vocabulary and sane bounds. The
// raw query is always retained for audit.
func (p *Parser) validate(parsed *model.TransactionQueryIntent, query string) *model.TransactionQueryIntent {
	if !parsed.Intent.Valid() {
		return model.UnknownIntent(query)
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	if parsed.DaysBack < 0 {
		parsed.DaysBack = 0
	}
	if parsed.Limit < 0 {
		parsed.Limit = 0
	}
	if parsed.Limit > maxQueryLimit {
		parsed.Limit = maxQueryLimit
	}
	if parsed.Aggregation == "" {
		parsed.Aggregation = model.AggregationNone
	}
	if parsed.SortOrder == "" {
		parsed.SortOrder = model.SortDesc
	}
	parsed.RawQuery = query
	return parsed
}

func (p *Parser) logFailure(query, userID string, err error) {
	metrics.RecordIntentParse(string(model.IntentUnknown), 0)
	p.log.Warn("intent parse failed",
		zap.String("user_id", userID),
		zap.String("query", query),
		zap.Error(err),
	)
}
