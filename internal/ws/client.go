package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/SauRavRwT/ChitChat/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 64
)

var (
	errConnClosed = errors.New("connection closed")
	errSlowClient = errors.New("send buffer full")
)

// client is one live WebSocket connection. It satisfies presence.Conn:
// deliveries only enqueue onto the send buffer; all socket writes
// happen on the write pump, so no relay or registry lock is ever held
// across network I/O. A client whose buffer is full reports an error
// and is dropped as if it had disconnected.
type client struct {
	id       uuid.UUID
	identity string
	name     string
	sock     *websocket.Conn
	gw       *Gateway

	send      chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(gw *Gateway, identity, name string, sock *websocket.Conn) *client {
	return &client{
		id:       uuid.New(),
		identity: identity,
		name:     name,
		sock:     sock,
		gw:       gw,
		send:     make(chan Event, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// ID returns the connection handle ID.
func (c *client) ID() uuid.UUID { return c.id }

// DeliverMessage enqueues a relayed message for this connection.
func (c *client) DeliverMessage(msg models.Message) error {
	return c.enqueue(Event{Type: EventMessage, Message: &msg})
}

// DeliverRoster enqueues a full roster snapshot.
func (c *client) DeliverRoster(roster []models.RosterEntry) error {
	return c.enqueue(Event{Type: EventRoster, Users: roster})
}

// Close shuts the connection down. Idempotent and non-blocking.
func (c *client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.sock.Close()
	})
}

func (c *client) enqueue(ev Event) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- ev:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errSlowClient
	}
}

// readPump consumes events from the socket and dispatches them to the
// gateway. It owns deregistration: whatever ends the read loop ends
// the connection's presence.
func (c *client) readPump() {
	defer func() {
		c.gw.detach(c)
	}()

	c.sock.SetReadLimit(maxMessageSize)
	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev Event
		if err := c.sock.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.gw.logger.Debug().Err(err).Str("identity", c.identity).Msg("socket closed unexpectedly")
			}
			return
		}
		c.gw.handleEvent(c, ev)
	}
}

// writePump serializes all socket writes: queued events and keepalive
// pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
