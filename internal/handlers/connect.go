package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/SauRavRwT/ChitChat/internal/models"
	"github.com/SauRavRwT/ChitChat/internal/translate"
)

// ConnectRequest represents the profile provisioning request body.
type ConnectRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// ConnectResponse represents the provisioning response.
type ConnectResponse struct {
	Status string               `json:"status"`
	User   models.Profile       `json:"user"`
	Online []models.RosterEntry `json:"online"`
}

// Connect provisions a profile: it validates and upserts {email, name,
// language} and returns the stored profile plus the current roster.
// The email is the identity key and is stored lowercased. Idempotent.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		h.Error(w, http.StatusBadRequest, "email is required")
		return
	}
	if !isValidEmail(email) {
		h.Error(w, http.StatusBadRequest, "invalid email format")
		return
	}

	lang, ok := translate.Code(req.Language)
	if !ok {
		h.Error(w, http.StatusBadRequest, "unsupported language, expected one of: "+strings.Join(translate.Supported(), ", "))
		return
	}

	name := sanitizeName(req.Name)
	if name == "" {
		name = email
	}

	profile, err := h.profiles.UpsertProfile(r.Context(), email, name, lang)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to store profile")
		return
	}

	h.JSON(w, http.StatusOK, ConnectResponse{
		Status: "connected",
		User:   *profile,
		Online: h.registry.Roster(),
	})
}
