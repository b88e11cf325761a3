// Package handlers implements the HTTP surface: profile provisioning,
// roster and history reads, and service health.
package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/SauRavRwT/ChitChat/internal/presence"
	"github.com/SauRavRwT/ChitChat/internal/relay"
	"github.com/SauRavRwT/ChitChat/internal/room"
	"github.com/SauRavRwT/ChitChat/internal/store"
)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	profiles store.ProfileStore
	redis    *store.RedisStore // nil when running on the in-memory log
	registry *presence.Registry
	rooms    *room.Rooms
	relay    *relay.Relay
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(profiles store.ProfileStore, redis *store.RedisStore, registry *presence.Registry, rooms *room.Rooms, rel *relay.Relay) *Handler {
	return &Handler{
		profiles: profiles,
		redis:    redis,
		registry: registry,
		rooms:    rooms,
		relay:    rel,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits name to 100 characters, removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	// Remove control characters
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Limit to 100 characters
	if len(name) > 100 {
		name = name[:100]
	}

	return name
}

// isValidEmail validates email addresses using RFC 5322 pattern.
func isValidEmail(email string) bool {
	if len(email) == 0 || len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}
