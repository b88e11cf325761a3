package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/SauRavRwT/ChitChat/internal/api/middleware"
	"github.com/SauRavRwT/ChitChat/internal/models"
)

const maxHistoryLimit = 500

// HistoryResponse represents the conversation history response.
type HistoryResponse struct {
	Peer     string           `json:"peer"`
	Messages []models.Message `json:"messages"`
	Count    int              `json:"count"`
}

// History returns the canonical log for the conversation between the
// authenticated caller and {peer}, ascending by timestamp. Optional
// query params: limit (default 200, max 500) and before (unix ms,
// exclusive upper bound).
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFromContext(r.Context())
	if caller == "" {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	peer := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "peer")))
	if peer == "" {
		h.Error(w, http.StatusBadRequest, "peer is required")
		return
	}
	if peer == caller {
		h.Error(w, http.StatusBadRequest, "peer must be another identity")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	var before int64
	if raw := r.URL.Query().Get("before"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			h.Error(w, http.StatusBadRequest, "before must be a positive unix millisecond timestamp")
			return
		}
		before = n
	}

	messages, err := h.relay.Resync(r.Context(), caller, peer, limit, before)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	h.JSON(w, http.StatusOK, HistoryResponse{
		Peer:     peer,
		Messages: messages,
		Count:    len(messages),
	})
}
