// Package ws is the WebSocket gateway: it upgrades authenticated
// connections, registers them as presence handles, translates wire
// events into relay and room operations, and fans roster snapshots out
// to every connected client.
package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/SauRavRwT/ChitChat/internal/api/middleware"
	"github.com/SauRavRwT/ChitChat/internal/metrics"
	"github.com/SauRavRwT/ChitChat/internal/presence"
	"github.com/SauRavRwT/ChitChat/internal/relay"
	"github.com/SauRavRwT/ChitChat/internal/room"
	"github.com/SauRavRwT/ChitChat/internal/store"
)

const eventTimeout = 10 * time.Second

// Gateway wires sockets to the presence registry and the relay.
type Gateway struct {
	registry *presence.Registry
	rooms    *room.Rooms
	relay    *relay.Relay
	profiles store.ProfileStore
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewGateway creates the gateway.
func NewGateway(registry *presence.Registry, rooms *room.Rooms, rel *relay.Relay, profiles store.ProfileStore, logger zerolog.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		rooms:    rooms,
		relay:    rel,
		profiles: profiles,
		logger:   logger.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The browser client connects from its own origin; token
			// verification is the actual gate.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades an authenticated request to a WebSocket connection.
// The identity comes from the verified token; the display name is read
// from the profile store at connect time (read-only dependency).
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == "" {
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
		return
	}

	name := identity
	if profile, err := g.profiles.GetProfile(r.Context(), identity); err == nil && profile != nil && profile.Name != "" {
		name = profile.Name
	}

	sock, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}

	c := newClient(g, identity, name, sock)
	entry := g.registry.Register(identity, name, c)
	metrics.ConnectionsActive.Inc()
	metrics.IdentitiesOnline.Set(float64(g.registry.CountOnline()))

	g.logger.Info().Str("identity", identity).Str("conn", c.id.String()).Msg("client connected")

	// A first handle is covered by the roster broadcast its own
	// registration fired. Extra handles of an already online identity
	// get no broadcast, so hand those the current roster directly.
	if entry.Handles > 1 {
		c.DeliverRoster(g.registry.Roster())
	}

	go c.writePump()
	c.readPump()
}

// detach tears one connection down: presence handle removed first (so
// no further deliveries target it), then the socket.
func (g *Gateway) detach(c *client) {
	g.registry.Deregister(c)
	c.Close()
	metrics.ConnectionsActive.Dec()
	metrics.IdentitiesOnline.Set(float64(g.registry.CountOnline()))
	g.logger.Info().Str("identity", c.identity).Str("conn", c.id.String()).Msg("client disconnected")
}

// handleEvent dispatches one client event. The peer is normalized to
// the lowercase email key before any routing; room keys and presence
// lookups must see the same form the HTTP surface stores.
func (g *Gateway) handleEvent(c *client, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	ev.Peer = strings.ToLower(strings.TrimSpace(ev.Peer))

	switch ev.Type {
	case EventJoin:
		if !g.validPeer(c, ev.Peer) {
			return
		}
		g.rooms.Join(c.identity, ev.Peer)
		c.enqueue(Event{Type: EventJoined, Peer: ev.Peer})

	case EventLeave:
		if !g.validPeer(c, ev.Peer) {
			return
		}
		g.rooms.Leave(c.identity, ev.Peer)
		c.enqueue(Event{Type: EventLeft, Peer: ev.Peer})

	case EventSend:
		_, err := g.relay.Send(ctx, c.identity, ev.Peer, ev.Content, ev.Timestamp)
		var verr *relay.ValidationError
		if errors.As(err, &verr) {
			c.enqueue(Event{Type: EventError, Code: "validation", Error: verr.Error()})
			return
		}
		if err != nil {
			c.enqueue(Event{Type: EventError, Code: "internal", Error: "send failed"})
			return
		}
		// The canonical record reaches the sender through the echo; no
		// separate acknowledgment event is needed.

	case EventResync:
		if !g.validPeer(c, ev.Peer) {
			return
		}
		messages, err := g.relay.Resync(ctx, c.identity, ev.Peer, 0, ev.Timestamp)
		if err != nil {
			c.enqueue(Event{Type: EventError, Code: "internal", Error: "resync failed"})
			return
		}
		c.enqueue(Event{Type: EventHistory, Peer: ev.Peer, Messages: messages})

	default:
		c.enqueue(Event{Type: EventError, Code: "unknown_event", Error: "unknown event type: " + ev.Type})
	}
}

// validPeer rejects events with a missing peer or a peer equal to the
// caller, answering with a validation error event.
func (g *Gateway) validPeer(c *client, peer string) bool {
	if strings.TrimSpace(peer) == "" {
		c.enqueue(Event{Type: EventError, Code: "validation", Error: "peer is required"})
		return false
	}
	if peer == c.identity {
		c.enqueue(Event{Type: EventError, Code: "validation", Error: "peer must be another identity"})
		return false
	}
	return true
}

// Run fans roster snapshots out to every connected client until ctx is
// canceled. A handle that cannot accept the snapshot is dropped as if
// it had disconnected.
func (g *Gateway) Run(ctx context.Context) {
	sub := g.registry.Updates().Subscribe()
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case roster, ok := <-sub.C:
			if !ok {
				return
			}
			metrics.RosterBroadcasts.Inc()
			metrics.IdentitiesOnline.Set(float64(len(roster)))
			for _, conn := range g.registry.Connections() {
				if err := conn.DeliverRoster(roster); err != nil {
					metrics.DroppedHandles.Inc()
					g.registry.Deregister(conn)
					conn.Close()
				}
			}
		}
	}
}
