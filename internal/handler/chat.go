package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/pocketsage-ai/finance-copilot/internal/middleware"
	"github.com/pocketsage-ai/finance-copilot/internal/model"
	"github.com/pocketsage-ai/finance-copilot/internal/service"
	"github.com/pocketsage-ai/finance-copilot/internal/stream"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
	"github.com/pocketsage-ai/finance-copilot/pkg/metrics"
)

// ChatHandler handles conversation turn endpoints.
type ChatHandler struct {
	turns   *service.TurnService
	adapter *stream.Adapter
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(turns *service.TurnService, adapter *stream.Adapter, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		turns:   turns,
		adapter: adapter,
		logger:  log,
	}
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// decodeTurn parses and validates a turn request. The user identity comes
// from the JWT, never from the body.
func decodeTurn(r *http.Request) (*model.TurnRequest, string, int) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "invalid request body", http.StatusBadRequest
	}

	userID := middleware.GetUserID(r.Context())
	if err := middleware.ValidateUserID(userID); err != nil {
		return nil, err.Error(), http.StatusUnauthorized
	}
	if err := middleware.ValidateSessionID(req.SessionID); err != nil {
		return nil, err.Error(), http.StatusBadRequest
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		return nil, err.Error(), http.StatusBadRequest
	}

	return &model.TurnRequest{
		UserID:      userID,
		SessionID:   req.SessionID,
		UserMessage: req.Message,
	}, "", 0
}

// Chat handles POST /api/v1/chat. The full reply set for the turn comes
// back in one JSON document.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	req, msg, code := decodeTurn(r)
	if req == nil {
		writeError(w, code, msg)
		return
	}

	resp, err := h.turns.Process(r.Context(), req)
	if err != nil {
		h.logger.Error("turn failed",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ChatStream handles POST /api/v1/chat/stream. The turn is processed and
// checkpointed first, then replies are replayed as newline-delimited JSON
// events. A client disconnect mid-stream never loses persisted state.
func (h *ChatHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	req, msg, code := decodeTurn(r)
	if req == nil {
		writeError(w, code, msg)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementStreamConnections()
	defer metrics.DecrementStreamConnections()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sw := &ndjsonWriter{w: w, flusher: flusher}

	resp, err := h.turns.Process(r.Context(), req)
	if err != nil {
		h.logger.Error("turn failed, streaming apology",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		if serr := h.adapter.StreamApology(r.Context(), sw); serr != nil {
			h.logger.Debug("apology stream aborted", zap.Error(serr))
		}
		return
	}

	if err := h.adapter.Stream(r.Context(), resp.Messages, sw); err != nil {
		// Client went away; state is already checkpointed.
		h.logger.Debug("stream aborted",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
	}
}

// ndjsonWriter writes stream events as one JSON object per line, flushing
// after every event so deltas reach the client immediately.
type ndjsonWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (n *ndjsonWriter) WriteEvent(event stream.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := n.w.Write(append(data, '\n')); err != nil {
		return err
	}
	n.flusher.Flush()
	return nil
}

func (n *ndjsonWriter) WriteDone() error {
	if _, err := n.w.Write([]byte(stream.DoneSentinel + "\n")); err != nil {
		return err
	}
	n.flusher.Flush()
	return nil
}
