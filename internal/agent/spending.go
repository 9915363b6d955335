package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pocketsage-ai/finance-copilot/internal/bank"
	"github.com/pocketsage-ai/finance-copilot/internal/categorize"
	"github.com/pocketsage-ai/finance-copilot/internal/intent"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

const spendingLookbackDays = 30

const spendingNoAccountsReply = "I can dig into your spending once you've connected a bank account. " +
	"Until then, tell me what you'd like to track and I'll keep it in mind."

// SpendingHandler answers spending questions. It parses the user's query
// into a structured intent, pulls recent transactions through the
// aggregation collaborator when accounts are connected, and summarizes
// AI-categorized spending.
type SpendingHandler struct {
	parser     *intent.Parser
	aggregator bank.Aggregator
	engine     *categorize.Engine
}

// NewSpendingHandler creates the spending handler. Aggregator and engine
// may be nil; the handler then answers from the parsed intent alone.
func NewSpendingHandler(parser *intent.Parser, aggregator bank.Aggregator, engine *categorize.Engine) *SpendingHandler {
	return &SpendingHandler{parser: parser, aggregator: aggregator, engine: engine}
}

// Name returns the handler's agent tag.
func (h *SpendingHandler) Name() string {
	return model.AgentSpending
}

// Handle produces a spending analysis reply.
func (h *SpendingHandler) Handle(ctx context.Context, state *model.ConversationState, cfg TurnConfig) (*Update, error) {
	last := state.LastHuman()
	if last == nil {
		return nil, fmt.Errorf("spending handler requires a human message")
	}

	parsed := h.parser.Parse(ctx, last.Content, cfg.UserID)

	if h.aggregator == nil || len(state.ConnectedAccounts) == 0 {
		return &Update{Replies: []Reply{{
			Agent:       h.Name(),
			Content:     spendingNoAccountsReply,
			MessageType: model.MessageTypeAIResponse,
		}}}, nil
	}

	from, to := queryWindow(parsed, time.Now().UTC())
	days := int(to.Sub(from).Hours() / 24)

	transactions, err := h.aggregator.Transactions(ctx, cfg.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}

	transactions = filterByIntent(transactions, parsed)

	if h.engine != nil {
		result, err := h.engine.Categorize(ctx, transactions, "")
		if err == nil {
			categorize.Apply(transactions, result.Categorizations)
		}
	}

	return &Update{Replies: []Reply{{
		Agent:       h.Name(),
		Content:     summarizeSpending(transactions, parsed, days),
		MessageType: model.MessageTypeAIResponse,
	}}}, nil
}

// queryWindow derives the fetch window from the parsed intent. An explicit
// start date wins over a relative lookback; the end date is inclusive. A
// half-open range falls back to now, and no dates at all means the default
// lookback.
func queryWindow(parsed *model.TransactionQueryIntent, now time.Time) (time.Time, time.Time) {
	start, startErr := time.Parse("2006-01-02", parsed.StartDate)
	end, endErr := time.Parse("2006-01-02", parsed.EndDate)

	if startErr == nil {
		to := now
		if endErr == nil && !end.Before(start) {
			to = end.AddDate(0, 0, 1)
		}
		return start, to
	}

	days := parsed.DaysBack
	if days == 0 {
		days = spendingLookbackDays
	}
	to := now
	if endErr == nil {
		to = end.AddDate(0, 0, 1)
	}
	return to.AddDate(0, 0, -days), to
}

// filterByIntent applies the parsed intent's filters. The intent object is
// the only channel from user text into this selection.
func filterByIntent(transactions []model.TransactionRecord, parsed *model.TransactionQueryIntent) []model.TransactionRecord {
	out := transactions[:0]
	for _, txn := range transactions {
		if parsed.MinAmount != nil && txn.Amount.LessThan(*parsed.MinAmount) {
			continue
		}
		if parsed.MaxAmount != nil && txn.Amount.GreaterThan(*parsed.MaxAmount) {
			continue
		}
		if parsed.Merchant != "" && !strings.EqualFold(txn.MerchantName, parsed.Merchant) {
			continue
		}
		if parsed.Category != "" && !matchesCategory(txn, parsed.Category) {
			continue
		}
		out = append(out, txn)
	}
	return out
}

func matchesCategory(txn model.TransactionRecord, category string) bool {
	if strings.EqualFold(txn.AICategory, category) {
		return true
	}
	for _, c := range txn.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// summarizeSpending renders a deterministic summary: total debits and top
// categories over the window.
func summarizeSpending(transactions []model.TransactionRecord, parsed *model.TransactionQueryIntent, days int) string {
	if len(transactions) == 0 {
		return fmt.Sprintf("I didn't find any matching transactions in the last %d days.", days)
	}

	total := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	for _, txn := range transactions {
		if txn.Amount.IsNegative() {
			continue // credits
		}
		total = total.Add(txn.Amount)
		category := txn.AICategory
		if category == "" {
			category = "Uncategorized"
		}
		byCategory[category] = byCategory[category].Add(txn.Amount)
	}

	type catTotal struct {
		name  string
		total decimal.Decimal
	}
	cats := make([]catTotal, 0, len(byCategory))
	for name, sum := range byCategory {
		cats = append(cats, catTotal{name, sum})
	}
	sort.Slice(cats, func(i, j int) bool {
		return cats[i].total.GreaterThan(cats[j].total)
	})
	if len(cats) > 3 {
		cats = cats[:3]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Over the last %d days you spent $%s across %d transactions.",
		days, total.StringFixed(2), len(transactions))
	if len(cats) > 0 {
		sb.WriteString(" Top categories: ")
		parts := make([]string, len(cats))
		for i, c := range cats {
			parts[i] = fmt.Sprintf("%s ($%s)", c.name, c.total.StringFixed(2))
		}
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteByte('.')
	}
	if parsed.Intent != model.IntentUnknown && parsed.Confidence >= intent.LowConfidenceThreshold {
		return sb.String()
	}
	sb.WriteString(" (I wasn't fully sure what you were asking, so this is a general summary.)")
	return sb.String()
}
