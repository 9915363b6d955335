// Package bank defines the bank-data aggregation collaborator. The core
// consumes the interface; the HTTP client here is a thin wrapper around the
// aggregation provider's REST API.
package bank

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

// Aggregator fetches externally-held financial data for a user.
type Aggregator interface {
	// Transactions returns the user's transactions in [from, to], oldest
	// first.
	Transactions(ctx context.Context, userID string, from, to time.Time) ([]model.TransactionRecord, error)

	// Accounts returns the user's linked accounts keyed by account id.
	Accounts(ctx context.Context, userID string) (map[string]model.ConnectedAccount, error)
}

// Client talks to the aggregation provider over HTTP.
type Client struct {
	http *resty.Client
}

// NewClient creates an aggregation client for the given base URL and API
// secret.
func NewClient(baseURL, apiSecret string, timeout time.Duration) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+apiSecret).
		SetHeader("Accept", "application/json")
	return &Client{http: http}
}

type transactionsResponse struct {
	Transactions []model.TransactionRecord `json:"transactions"`
}

type accountsResponse struct {
	Accounts []model.ConnectedAccount `json:"accounts"`
}

// Transactions implements Aggregator.
func (c *Client) Transactions(ctx context.Context, userID string, from, to time.Time) ([]model.TransactionRecord, error) {
	var out transactionsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"user_id":    userID,
			"start_date": from.Format("2006-01-02"),
			"end_date":   to.Format("2006-01-02"),
		}).
		SetResult(&out).
		Get("/transactions")
	if err != nil {
		return nil, fmt.Errorf("aggregator transactions request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("aggregator transactions request: status %d", resp.StatusCode())
	}
	return out.Transactions, nil
}

// Accounts implements Aggregator.
func (c *Client) Accounts(ctx context.Context, userID string) (map[string]model.ConnectedAccount, error) {
	var out accountsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", userID).
		SetResult(&out).
		Get("/accounts")
	if err != nil {
		return nil, fmt.Errorf("aggregator accounts request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("aggregator accounts request: status %d", resp.StatusCode())
	}
	accounts := make(map[string]model.ConnectedAccount, len(out.Accounts))
	for _, acct := range out.Accounts {
		accounts[acct.AccountID] = acct
	}
	return accounts, nil
}

var _ Aggregator = (*Client)(nil)
