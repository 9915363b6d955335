// Package categorize implements the batch transaction categorization
// engine: dynamic batch sizing against an LLM's token budgets, per-batch
// failure isolation, and order-preserving result merging.
package categorize

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pocketsage-ai/finance-copilot/internal/llm"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
	"github.com/pocketsage-ai/finance-copilot/pkg/metrics"
)

// Config tunes batch sizing. Zero values fall back to defaults.
type Config struct {
	// ReservedTokens is held back from the context window for the system
	// prompt and user context block.
	ReservedTokens int

	// TokensPerRecord estimates the prompt cost of one transaction.
	TokensPerRecord int

	// MaxCompletionTokens bounds the model's output per call.
	MaxCompletionTokens int

	// TokensPerResponseRecord estimates the output cost of one
	// categorization.
	TokensPerResponseRecord int

	// ProviderCaps caps batch size per provider name. Some providers
	// degrade badly on large structured-output batches even with large
	// context windows.
	ProviderCaps map[string]int
}

// DefaultProviderCaps are conservative per-provider batch caps.
var DefaultProviderCaps = map[string]int{
	"anthropic": 40,
	"openai":    50,
}

const (
	defaultReservedTokens          = 2000
	defaultTokensPerRecord         = 120
	defaultMaxCompletionTokens     = 4096
	defaultTokensPerResponseRecord = 60
	fallbackProviderCap            = 25
)

func (c Config) withDefaults() Config {
	if c.ReservedTokens == 0 {
		c.ReservedTokens = defaultReservedTokens
	}
	if c.TokensPerRecord == 0 {
		c.TokensPerRecord = defaultTokensPerRecord
	}
	if c.MaxCompletionTokens == 0 {
		c.MaxCompletionTokens = defaultMaxCompletionTokens
	}
	if c.TokensPerResponseRecord == 0 {
		c.TokensPerResponseRecord = defaultTokensPerResponseRecord
	}
	if c.ProviderCaps == nil {
		c.ProviderCaps = DefaultProviderCaps
	}
	return c
}

const categorizeSystemPrompt = `You categorize bank transactions for a personal-finance assistant.

For every transaction in the input, output one object with:
  transaction_id: copied from the input, unchanged
  category: a broad category (Food & Drink, Shopping, Transport, Bills &
            Utilities, Entertainment, Travel, Health, Income, Transfers, Other)
  subcategory: a narrower label, or empty
  confidence: 0.0-1.0
  tags: up to three short lowercase tags

Reply with a JSON object: {"categorizations": [...]} in input order.`

// Engine invokes structured extraction over dynamically sized transaction
// batches. It never retains the caller's records after returning.
type Engine struct {
	client    llm.Client
	extractor llm.Extractor
	cfg       Config
	log       *logger.Logger
}

// NewEngine creates a categorization engine. A nil client is allowed; every
// call then fails all batches and the summary reflects it.
func NewEngine(client llm.Client, cfg Config, log *logger.Logger) *Engine {
	e := &Engine{client: client, cfg: cfg.withDefaults(), log: log}
	if client != nil {
		e.extractor = llm.NewExtractor(client)
	}
	return e
}

// MaxBatchSize computes the largest batch the configured model can take:
// the minimum of the context-window budget, the completion budget, and the
// provider cap. Always at least 1.
func (e *Engine) MaxBatchSize() int {
	providerCap := fallbackProviderCap
	window := 0
	if e.client != nil {
		if c, ok := e.cfg.ProviderCaps[e.client.Name()]; ok {
			providerCap = c
		}
		window = e.client.ContextWindow("")
	}
	return maxBatchSize(window, e.cfg, providerCap)
}

func maxBatchSize(contextWindow int, cfg Config, providerCap int) int {
	byContext := (contextWindow - cfg.ReservedTokens) / cfg.TokensPerRecord
	byOutput := cfg.MaxCompletionTokens / cfg.TokensPerResponseRecord

	size := byContext
	if byOutput < size {
		size = byOutput
	}
	if providerCap < size {
		size = providerCap
	}
	if size < 1 {
		size = 1
	}
	return size
}

type batchResponse struct {
	Categorizations []model.Categorization `json:"categorizations"`
}

// Categorize partitions transactions into consecutive batches and invokes
// structured extraction per batch. One batch's failure never aborts its
// siblings; a failed batch contributes zero categorizations and the summary
// reports it.
func (e *Engine) Categorize(ctx context.Context, transactions []model.TransactionRecord, userContext string) (*model.BatchResult, error) {
	result := &model.BatchResult{
		Summary: model.BatchSummary{Total: len(transactions)},
	}
	if len(transactions) == 0 {
		return result, nil
	}

	size := e.MaxBatchSize()
	for start := 0; start < len(transactions); start += size {
		end := start + size
		if end > len(transactions) {
			end = len(transactions)
		}
		batch := transactions[start:end]
		result.Summary.Batches++

		cats, err := e.categorizeBatch(ctx, batch, userContext)
		if err != nil {
			result.Summary.Failed += len(batch)
			result.Summary.FailedBatches++
			metrics.CategorizationBatchesTotal.WithLabelValues("error").Inc()
			e.log.Warn("categorization batch failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			continue
		}

		result.Categorizations = append(result.Categorizations, cats...)
		result.Summary.Succeeded += len(cats)
		result.Summary.Failed += len(batch) - len(cats)
		metrics.CategorizationBatchesTotal.WithLabelValues("success").Inc()
	}

	metrics.CategorizedTransactionsTotal.Add(float64(result.Summary.Succeeded))
	return result, nil
}

// categorizeBatch runs one batch through the extractor and aligns replies
// with the batch's transactions in input order.
func (e *Engine) categorizeBatch(ctx context.Context, batch []model.TransactionRecord, userContext string) ([]model.Categorization, error) {
	if e.extractor == nil {
		return nil, llm.ErrUnavailable
	}

	var sb strings.Builder
	for _, txn := range batch {
		fmt.Fprintf(&sb, "id=%s amount=%s date=%s name=%q",
			txn.TransactionID, txn.Amount.String(), txn.Date, txn.Name)
		if txn.MerchantName != "" {
			fmt.Fprintf(&sb, " merchant=%q", txn.MerchantName)
		}
		if len(txn.Categories) > 0 {
			fmt.Fprintf(&sb, " raw_categories=%q", strings.Join(txn.Categories, ","))
		}
		sb.WriteByte('\n')
	}

	system := categorizeSystemPrompt
	if userContext != "" {
		system += "\n\nUser context:\n" + userContext
	}

	var resp batchResponse
	err := e.extractor.Extract(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: sb.String()},
		},
		MaxTokens:   e.cfg.MaxCompletionTokens,
		Temperature: 0,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("batch extraction failed: %w", err)
	}

	// Align by transaction id where the model echoed one; fall back to
	// input position. Replies beyond the batch length are dropped.
	byID := make(map[string]int, len(batch))
	for i, txn := range batch {
		byID[txn.TransactionID] = i
	}

	aligned := make([]model.Categorization, 0, len(resp.Categorizations))
	for i, cat := range resp.Categorizations {
		if _, ok := byID[cat.TransactionID]; !ok {
			if i >= len(batch) {
				continue
			}
			cat.TransactionID = batch[i].TransactionID
		}
		aligned = append(aligned, cat)
	}
	return aligned, nil
}

// Apply enriches transactions in place with their categorizations.
func Apply(transactions []model.TransactionRecord, cats []model.Categorization) {
	byID := make(map[string]model.Categorization, len(cats))
	for _, cat := range cats {
		byID[cat.TransactionID] = cat
	}
	for i := range transactions {
		if cat, ok := byID[transactions[i].TransactionID]; ok {
			transactions[i].AICategory = cat.Category
			transactions[i].AISubcategory = cat.Subcategory
			transactions[i].AIConfidence = cat.Confidence
			transactions[i].AITags = cat.Tags
		}
	}
}
