package handlers

import (
	"net/http"

	"github.com/SauRavRwT/ChitChat/internal/models"
)

// RosterResponse represents the roster endpoint response.
type RosterResponse struct {
	Online []models.RosterEntry `json:"online"`
	Count  int                  `json:"count"`
}

// Roster returns the identities currently online, sorted. An identity
// with several open connections appears once.
func (h *Handler) Roster(w http.ResponseWriter, r *http.Request) {
	roster := h.registry.Roster()
	h.JSON(w, http.StatusOK, RosterResponse{
		Online: roster,
		Count:  len(roster),
	})
}
