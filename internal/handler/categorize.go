package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pocketsage-ai/finance-copilot/internal/bank"
	"github.com/pocketsage-ai/finance-copilot/internal/categorize"
	"github.com/pocketsage-ai/finance-copilot/internal/middleware"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
)

// CategorizeHandler handles transaction categorization endpoints.
type CategorizeHandler struct {
	engine     *categorize.Engine
	aggregator bank.Aggregator
	logger     *logger.Logger
}

// NewCategorizeHandler creates a new categorization handler. The
// aggregator may be nil when no provider is configured; inline
// transactions still work.
func NewCategorizeHandler(engine *categorize.Engine, aggregator bank.Aggregator, log *logger.Logger) *CategorizeHandler {
	return &CategorizeHandler{
		engine:     engine,
		aggregator: aggregator,
		logger:     log,
	}
}

type categorizeRequest struct {
	Transactions []model.TransactionRecord `json:"transactions,omitempty"`
	DaysBack     int                       `json:"days_back,omitempty"`
	UserContext  string                    `json:"user_context,omitempty"`
}

// Categorize handles POST /api/v1/transactions/categorize. Transactions
// come inline in the body, or are fetched from the aggregation provider
// when the body names a lookback window instead.
func (h *CategorizeHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "categorization engine not configured")
		return
	}

	var req categorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	transactions := req.Transactions
	if len(transactions) == 0 && req.DaysBack > 0 {
		if h.aggregator == nil {
			writeError(w, http.StatusBadRequest, "no transactions provided and no aggregation provider configured")
			return
		}
		userID := middleware.GetUserID(r.Context())
		to := time.Now().UTC()
		from := to.AddDate(0, 0, -req.DaysBack)
		fetched, err := h.aggregator.Transactions(r.Context(), userID, from, to)
		if err != nil {
			h.logger.Error("transaction fetch failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			writeError(w, http.StatusBadGateway, "failed to fetch transactions")
			return
		}
		transactions = fetched
	}

	result, err := h.engine.Categorize(r.Context(), transactions, req.UserContext)
	if err != nil {
		h.logger.Error("categorization failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "categorization failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
