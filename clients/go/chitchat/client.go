// Package chitchat provides a Go client for the ChitChat relay: it
// maintains a local per-conversation log that converges on the
// server's canonical log through merge and periodic resync.
package chitchat

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SauRavRwT/ChitChat/internal/models"
	"github.com/SauRavRwT/ChitChat/internal/reconcile"
)

// resyncInterval is the period of the background reconciliation cycle.
// Each conversation resyncs independently; a failed cycle is skipped
// and the next one heals.
const resyncInterval = 5 * time.Second

// event mirrors the server's wire envelope.
type event struct {
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

// Client is a connected ChitChat user.
type Client struct {
	// OnMessage, OnRoster and OnError are invoked from the read loop.
	// They must not block.
	OnMessage func(models.Message)
	OnRoster  func([]models.RosterEntry)
	OnError   func(code, message string)

	identity string
	conn     *websocket.Conn

	wmu sync.Mutex // serializes socket writes

	mu     sync.Mutex
	logs   map[string][]models.Message // canonical-converging log per peer
	unseen map[string]int
	active string // peer whose conversation is open in the UI
	roster []models.RosterEntry

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the relay at baseURL (http:// or https://) with an
// identity-provider token. identity must match the token's subject.
func Dial(baseURL, token, identity string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	u.RawQuery = "token=" + url.QueryEscape(token)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c := &Client{
		identity: strings.ToLower(identity),
		conn:     conn,
		logs:     make(map[string][]models.Message),
		unseen:   make(map[string]int),
		done:     make(chan struct{}),
	}

	go c.readLoop()
	go c.resyncLoop()
	return c, nil
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

// Join opens the conversation with peer on the server side.
func (c *Client) Join(peer string) error {
	return c.write(event{Type: "join", Peer: peer})
}

// Leave closes the conversation with peer on the server side.
func (c *Client) Leave(peer string) error {
	return c.write(event{Type: "leave", Peer: peer})
}

// Send submits a message to peer. Nothing is written to the local log
// here; the server echoes the canonical record back and the echo is
// merged like any other message, so the log only ever holds canonical
// (sender, timestamp) identities.
func (c *Client) Send(peer, content string) error {
	return c.write(event{
		Type:      "send",
		Peer:      peer,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Resync requests the canonical log for the conversation with peer.
func (c *Client) Resync(peer string) error {
	return c.write(event{Type: "resync", Peer: peer})
}

// Open marks peer's conversation as the one being viewed: its unseen
// counter resets and stays at zero while open.
func (c *Client) Open(peer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = peer
	delete(c.unseen, peer)
}

// Log returns a copy of the local log for the conversation with peer,
// ascending by timestamp.
func (c *Client) Log(peer string) []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.logs[peer]))
	copy(out, c.logs[peer])
	return out
}

// Roster returns the last roster snapshot received.
func (c *Client) Roster() []models.RosterEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.RosterEntry, len(c.roster))
	copy(out, c.roster)
	return out
}

// Unseen returns the unseen-message counters per peer.
func (c *Client) Unseen() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.unseen))
	for peer, n := range c.unseen {
		out[peer] = n
	}
	return out
}

func (c *Client) write(ev event) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(ev)
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		var ev event
		if err := c.conn.ReadJSON(&ev); err != nil {
			return
		}
		c.handle(ev)
	}
}

func (c *Client) handle(ev event) {
	switch ev.Type {
	case "message":
		if ev.Message == nil {
			return
		}
		c.mergeMessage(*ev.Message)
		if c.OnMessage != nil {
			c.OnMessage(*ev.Message)
		}

	case "history":
		c.mergeHistory(ev.Peer, ev.Messages)

	case "roster":
		c.mu.Lock()
		c.roster = ev.Users
		// An identity that went offline keeps its log but loses its
		// badge; the log itself is never discarded.
		online := make(map[string]bool, len(ev.Users))
		for _, entry := range ev.Users {
			online[entry.Identity] = true
		}
		for peer := range c.unseen {
			if !online[peer] {
				delete(c.unseen, peer)
			}
		}
		c.mu.Unlock()
		if c.OnRoster != nil {
			c.OnRoster(ev.Users)
		}

	case "error":
		if c.OnError != nil {
			c.OnError(ev.Code, ev.Error)
		}
	}
}

// peerOf returns the other party of a message involving this identity.
func (c *Client) peerOf(msg models.Message) string {
	if msg.Sender == c.identity {
		return msg.Recipient
	}
	return msg.Sender
}

// mergeMessage folds one live message into the local log. Duplicates
// collapse by (sender, timestamp); the unseen counter only moves for a
// genuinely new inbound message in a conversation that is not open.
func (c *Client) mergeMessage(msg models.Message) {
	peer := c.peerOf(msg)

	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := !reconcile.Contains(c.logs[peer], msg)
	c.logs[peer] = reconcile.Merge(c.logs[peer], []models.Message{msg})

	if fresh && msg.Sender != c.identity && peer != c.active {
		c.unseen[peer]++
	}
}

// mergeHistory folds a canonical log snapshot into the local log. The
// local log is never replaced wholesale, so a stale or partial
// snapshot can only add, never lose messages.
func (c *Client) mergeHistory(peer string, messages []models.Message) {
	if peer == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs[peer] = reconcile.Merge(c.logs[peer], messages)
}

// resyncLoop reconciles every known conversation on a fixed interval.
func (c *Client) resyncLoop() {
	ticker := time.NewTicker(resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			peers := make([]string, 0, len(c.logs))
			for peer := range c.logs {
				peers = append(peers, peer)
			}
			if c.active != "" {
				peers = append(peers, c.active)
			}
			c.mu.Unlock()

			seen := make(map[string]bool, len(peers))
			for _, peer := range peers {
				if seen[peer] {
					continue
				}
				seen[peer] = true
				if err := c.Resync(peer); err != nil {
					return
				}
			}
		}
	}
}
