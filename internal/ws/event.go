package ws

import "github.com/SauRavRwT/ChitChat/internal/models"

// Client-to-server event types.
const (
	EventJoin   = "join"
	EventLeave  = "leave"
	EventSend   = "send"
	EventResync = "resync"
)

// Server-to-client event types.
const (
	EventRoster  = "roster"
	EventMessage = "message"
	EventJoined  = "joined"
	EventLeft    = "left"
	EventHistory = "history"
	EventError   = "error"
)

// Event is the JSON envelope exchanged over the socket. Only the
// fields relevant to the event type are populated.
type Event struct {
	Type      string               `json:"type"`
	Peer      string               `json:"peer,omitempty"`
	Content   string               `json:"content,omitempty"`
	Timestamp int64                `json:"timestamp,omitempty"`
	Message   *models.Message      `json:"message,omitempty"`
	Messages  []models.Message     `json:"messages,omitempty"`
	Users     []models.RosterEntry `json:"users,omitempty"`
	Code      string               `json:"code,omitempty"`
	Error     string               `json:"error,omitempty"`
}
