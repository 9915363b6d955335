package model

import (
	"github.com/shopspring/decimal"
)

// TransactionRecord is one bank transaction as delivered by the aggregation
// provider. Amounts are exact decimals: debits positive, credits negative.
// The categorization engine enriches the AI* fields in place.
type TransactionRecord struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"` // ISO date, YYYY-MM-DD
	Name          string          `json:"name"`
	MerchantName  string          `json:"merchant_name,omitempty"`
	Categories    []string        `json:"categories,omitempty"`
	Pending       bool            `json:"pending"`

	AICategory    string   `json:"ai_category,omitempty"`
	AISubcategory string   `json:"ai_subcategory,omitempty"`
	AIConfidence  float64  `json:"ai_confidence,omitempty"`
	AITags        []string `json:"ai_tags,omitempty"`
}

// Categorization is the engine's output for one transaction.
type Categorization struct {
	TransactionID string   `json:"transaction_id"`
	Category      string   `json:"category"`
	Subcategory   string   `json:"subcategory,omitempty"`
	Confidence    float64  `json:"confidence"`
	Tags          []string `json:"tags,omitempty"`
}

// BatchSummary reports the outcome of one categorization call.
type BatchSummary struct {
	Total         int `json:"total"`
	Succeeded     int `json:"succeeded"`
	Failed        int `json:"failed"`
	Batches       int `json:"batches"`
	FailedBatches int `json:"failed_batches"`
}

// BatchResult is the merged output of a categorization call. Partial success
// is valid: Categorizations may cover fewer transactions than the input when
// a batch failed, and the summary reflects that.
type BatchResult struct {
	Categorizations []Categorization `json:"categorizations"`
	Summary         BatchSummary     `json:"summary"`
}
