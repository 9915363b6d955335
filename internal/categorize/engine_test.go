package categorize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pocketsage-ai/finance-copilot/internal/llm"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

// scriptedClient replays canned completions in order.
type scriptedClient struct {
	mu      sync.Mutex
	replies []string
	calls   int
	window  int
}

func (c *scriptedClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(c.replies) == 0 {
		return nil, errors.New("script exhausted")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	if reply == "FAIL" {
		return nil, errors.New("upstream 500")
	}
	return &llm.CompletionResponse{Content: reply, Model: "scripted"}, nil
}

func (c *scriptedClient) Name() string { return "scripted" }
func (c *scriptedClient) Models() []string { return []string{"scripted"} }
func (c *scriptedClient) ContextWindow(string) int { return c.window }

func txns(n int) []model.TransactionRecord {
	out := make([]model.TransactionRecord, n)
	for i := range out {
		out[i] = model.TransactionRecord{
			TransactionID: fmt.Sprintf("txn-%d", i),
			Amount:        decimal.NewFromInt(int64(i + 1)),
			Date:          "2026-08-01",
			Name:          fmt.Sprintf("Merchant %d", i),
		}
	}
	return out
}

func batchReply(transactions []model.TransactionRecord) string {
	var cats string
	for i, txn := range transactions {
		if i > 0 {
			cats += ","
		}
		cats += fmt.Sprintf(`{"transaction_id":%q,"category":"Dining","confidence":0.9}`, txn.TransactionID)
	}
	return `{"categorizations":[` + cats + `]}`
}

func TestMaxBatchSizeFormula(t *testing.T) {
	cfg := Config{}.withDefaults()

	// output budget: 4096/60 = 68; provider cap 25 wins over a huge window
	assert.Equal(t, 25, maxBatchSize(1000000, cfg, 25))

	// context budget wins when the window is small: (5000-2000)/120 = 25
	assert.Equal(t, 25, maxBatchSize(5000, cfg, 50))

	// tiny window clamps to 1
	assert.Equal(t, 1, maxBatchSize(2000, cfg, 50))
	assert.Equal(t, 1, maxBatchSize(0, cfg, 50))
}

func TestMaxBatchSizeMonotonicInWindow(t *testing.T) {
	cfg := Config{}.withDefaults()
	prev := 0
	for _, window := range []int{0, 4000, 8000, 16000, 100000, 200000} {
		size := maxBatchSize(window, cfg, 1<<30)
		assert.GreaterOrEqual(t, size, prev, "window=%d", window)
		prev = size
	}
}

func TestCategorizeEmptyInputSkipsLLM(t *testing.T) {
	client := &scriptedClient{window: 100000}
	engine := NewEngine(client, Config{}, testLogger())

	result, err := engine.Categorize(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Zero(t, result.Summary.Total)
	assert.Zero(t, result.Summary.Batches)
	assert.Empty(t, result.Categorizations)
	assert.Zero(t, client.calls)
}

func TestCategorizePreservesOrderAcrossBatches(t *testing.T) {
	transactions := txns(7)
	// MaxCompletionTokens 180 / TokensPerResponseRecord 60 = batches of 3
	cfg := Config{MaxCompletionTokens: 180, TokensPerResponseRecord: 60}

	client := &scriptedClient{window: 100000, replies: []string{
		batchReply(transactions[0:3]),
		batchReply(transactions[3:6]),
		batchReply(transactions[6:7]),
	}}
	engine := NewEngine(client, cfg, testLogger())
	require.Equal(t, 3, engine.MaxBatchSize())

	result, err := engine.Categorize(context.Background(), transactions, "")
	require.NoError(t, err)

	assert.Equal(t, 3, client.calls)
	assert.Equal(t, 3, result.Summary.Batches)
	assert.Equal(t, 7, result.Summary.Succeeded)
	assert.Zero(t, result.Summary.Failed)

	require.Len(t, result.Categorizations, 7)
	for i, cat := range result.Categorizations {
		assert.Equal(t, fmt.Sprintf("txn-%d", i), cat.TransactionID)
	}
}

func TestCategorizeFailedBatchDoesNotAbortSiblings(t *testing.T) {
	transactions := txns(7)
	cfg := Config{MaxCompletionTokens: 180, TokensPerResponseRecord: 60}

	client := &scriptedClient{window: 100000, replies: []string{
		batchReply(transactions[0:3]),
		"FAIL",
		batchReply(transactions[6:7]),
	}}
	engine := NewEngine(client, cfg, testLogger())

	result, err := engine.Categorize(context.Background(), transactions, "")
	require.NoError(t, err)

	assert.Equal(t, 7, result.Summary.Total)
	assert.Equal(t, 4, result.Summary.Succeeded)
	assert.Equal(t, 3, result.Summary.Failed)
	assert.Equal(t, 3, result.Summary.Batches)
	assert.Equal(t, 1, result.Summary.FailedBatches)

	// the failed batch's transactions are simply absent
	ids := make([]string, 0, len(result.Categorizations))
	for _, cat := range result.Categorizations {
		ids = append(ids, cat.TransactionID)
	}
	assert.Equal(t, []string{"txn-0", "txn-1", "txn-2", "txn-6"}, ids)
}

func TestCategorizeAlignsByPositionWithoutEchoedIDs(t *testing.T) {
	transactions := txns(2)
	client := &scriptedClient{window: 100000, replies: []string{
		`{"categorizations":[{"category":"Dining","confidence":0.8},{"category":"Transit","confidence":0.7}]}`,
	}}
	engine := NewEngine(client, Config{}, testLogger())

	result, err := engine.Categorize(context.Background(), transactions, "")
	require.NoError(t, err)

	require.Len(t, result.Categorizations, 2)
	assert.Equal(t, "txn-0", result.Categorizations[0].TransactionID)
	assert.Equal(t, "txn-1", result.Categorizations[1].TransactionID)
}

func TestCategorizeNilClientFailsAllBatches(t *testing.T) {
	engine := NewEngine(nil, Config{}, testLogger())

	result, err := engine.Categorize(context.Background(), txns(3), "")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Summary.Failed)
	assert.Equal(t, result.Summary.Batches, result.Summary.FailedBatches)
	assert.Empty(t, result.Categorizations)
}

func TestApplyEnrichesRecords(t *testing.T) {
	transactions := txns(2)
	Apply(transactions, []model.Categorization{
		{TransactionID: "txn-1", Category: "Dining", Subcategory: "Coffee", Confidence: 0.92, Tags: []string{"recurring"}},
	})

	assert.Empty(t, transactions[0].AICategory)
	assert.Equal(t, "Dining", transactions[1].AICategory)
	assert.Equal(t, "Coffee", transactions[1].AISubcategory)
	assert.Equal(t, 0.92, transactions[1].AIConfidence)
	assert.Equal(t, []string{"recurring"}, transactions[1].AITags)
}
