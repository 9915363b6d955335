package model

import (
	"github.com/shopspring/decimal"
)

// IntentType is the closed vocabulary of parsed query intents.
type IntentType string

const (
	IntentTransactionsByAmount   IntentType = "transactions_by_amount"
	IntentTransactionsByCategory IntentType = "transactions_by_category"
	IntentTransactionsByMerchant IntentType = "transactions_by_merchant"
	IntentTransactionsByDate     IntentType = "transactions_by_date"
	IntentSpendingSummary        IntentType = "spending_summary"
	IntentRecurringCharges       IntentType = "recurring_charges"
	IntentUnknown                IntentType = "unknown"
)

// Valid reports whether t is a member of the closed intent vocabulary.
func (t IntentType) Valid() bool {
	switch t {
	case IntentTransactionsByAmount, IntentTransactionsByCategory,
		IntentTransactionsByMerchant, IntentTransactionsByDate,
		IntentSpendingSummary, IntentRecurringCharges, IntentUnknown:
		return true
	}
	return false
}

// AggregationType selects how matched transactions are aggregated.
type AggregationType string

const (
	AggregationNone  AggregationType = "none"
	AggregationSum   AggregationType = "sum"
	AggregationCount AggregationType = "count"
	AggregationAvg   AggregationType = "avg"
)

// SortOrder for query results.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TransactionQueryIntent is the structured form of a natural-language
// transaction query. It is the only channel by which user free text may
// influence a downstream parameterized query; it never carries raw SQL or
// unescaped text into execution.
type TransactionQueryIntent struct {
	Intent IntentType `json:"intent"`

	StartDate string `json:"start_date,omitempty"` // ISO date
	EndDate   string `json:"end_date,omitempty"`
	DaysBack  int    `json:"days_back,omitempty"`

	Category string `json:"category,omitempty"`
	Merchant string `json:"merchant,omitempty"`

	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`

	Aggregation AggregationType `json:"aggregation,omitempty"`
	SortBy      string          `json:"sort_by,omitempty"`
	SortOrder   SortOrder       `json:"sort_order,omitempty"`
	Limit       int             `json:"limit,omitempty"`

	Confidence float64 `json:"confidence"`

	// RawQuery is the original user text, retained for audit and logging.
	RawQuery string `json:"raw_query"`
}

// UnknownIntent is the fail-soft result for a query that could not be parsed.
func UnknownIntent(rawQuery string) *TransactionQueryIntent {
	return &TransactionQueryIntent{
		Intent:     IntentUnknown,
		Confidence: 0.0,
		RawQuery:   rawQuery,
	}
}
