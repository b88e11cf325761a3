package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/SauRavRwT/ChitChat/internal/api/middleware"
	"github.com/SauRavRwT/ChitChat/internal/presence"
	"github.com/SauRavRwT/ChitChat/internal/relay"
	"github.com/SauRavRwT/ChitChat/internal/room"
	"github.com/SauRavRwT/ChitChat/internal/store"
)

const testSecret = "gateway-test-secret"

type testServer struct {
	srv    *httptest.Server
	cancel context.CancelFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	registry := presence.NewRegistry()
	rooms := room.NewRooms()
	logs := store.NewMemoryLog()
	profiles := store.NewMemoryProfiles()
	rel := relay.New(registry, rooms, logs, profiles, nil, zerolog.Nop())
	gw := NewGateway(registry, rooms, rel, profiles, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go gw.Run(ctx)

	auth := middleware.NewAuth(testSecret)
	mux := http.NewServeMux()
	mux.Handle("/ws", auth.RequireAuth(http.HandlerFunc(gw.Handle)))

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testServer{srv: srv, cancel: cancel}
}

func (ts *testServer) dial(t *testing.T, identity string) *websocket.Conn {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   identity,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws?token=" + signed
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial as %s: %v", identity, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads events until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %q: %v", eventType, err)
		}
		if ev.Type == eventType {
			return ev
		}
	}
}

func TestConnectReceivesRoster(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice@x.com")
	ev := readUntil(t, alice, EventRoster)
	if len(ev.Users) != 1 || ev.Users[0].Identity != "alice@x.com" {
		t.Fatalf("expected roster with alice only, got %v", ev.Users)
	}

	_ = ts.dial(t, "bob@x.com")
	ev = readUntil(t, alice, EventRoster)
	if len(ev.Users) != 2 {
		t.Fatalf("expected broadcast roster with both identities, got %v", ev.Users)
	}
}

func TestSendDeliversToPeerAndEchoesToSender(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice@x.com")
	bob := ts.dial(t, "bob@x.com")
	readUntil(t, alice, EventRoster)
	readUntil(t, bob, EventRoster)

	if err := alice.WriteJSON(Event{Type: EventJoin, Peer: "bob@x.com"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, alice, EventJoined)

	if err := alice.WriteJSON(Event{Type: EventSend, Peer: "bob@x.com", Content: "hi", Timestamp: 100}); err != nil {
		t.Fatal(err)
	}

	got := readUntil(t, bob, EventMessage)
	if got.Message == nil || got.Message.Sender != "alice@x.com" || got.Message.Content != "hi" || got.Message.Timestamp != 100 {
		t.Fatalf("bob received wrong message: %+v", got.Message)
	}

	echo := readUntil(t, alice, EventMessage)
	if echo.Message == nil || echo.Message.Key() != got.Message.Key() {
		t.Fatalf("echo must match the delivered record, got %+v", echo.Message)
	}
}

func TestInvalidSendReturnsValidationError(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice@x.com")
	readUntil(t, alice, EventRoster)

	if err := alice.WriteJSON(Event{Type: EventSend, Peer: "bob@x.com", Content: "   "}); err != nil {
		t.Fatal(err)
	}

	ev := readUntil(t, alice, EventError)
	if ev.Code != "validation" {
		t.Fatalf("expected validation error, got %+v", ev)
	}
}

func TestResyncReturnsHistory(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice@x.com")
	readUntil(t, alice, EventRoster)

	if err := alice.WriteJSON(Event{Type: EventSend, Peer: "bob@x.com", Content: "offline msg", Timestamp: 100}); err != nil {
		t.Fatal(err)
	}
	// Wait for the echo so the append has happened before resyncing.
	readUntil(t, alice, EventMessage)

	// A late-connecting bob reconciles through resync.
	bob := ts.dial(t, "bob@x.com")
	readUntil(t, bob, EventRoster)
	if err := bob.WriteJSON(Event{Type: EventResync, Peer: "alice@x.com"}); err != nil {
		t.Fatal(err)
	}

	hist := readUntil(t, bob, EventHistory)
	if len(hist.Messages) != 1 || hist.Messages[0].Content != "offline msg" {
		t.Fatalf("expected one historical message, got %v", hist.Messages)
	}
}

func TestMixedCasePeerIsNormalized(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice@x.com")
	bob := ts.dial(t, "bob@x.com")
	readUntil(t, alice, EventRoster)
	readUntil(t, bob, EventRoster)

	// The peer arrives in display casing; routing must still hit the
	// lowercased identity and the lowercased pair key.
	if err := alice.WriteJSON(Event{Type: EventSend, Peer: "Bob@X.com", Content: "hi", Timestamp: 100}); err != nil {
		t.Fatal(err)
	}

	got := readUntil(t, bob, EventMessage)
	if got.Message == nil || got.Message.Recipient != "bob@x.com" {
		t.Fatalf("expected live delivery to the lowercased identity, got %+v", got.Message)
	}

	if err := bob.WriteJSON(Event{Type: EventResync, Peer: "alice@x.com"}); err != nil {
		t.Fatal(err)
	}
	hist := readUntil(t, bob, EventHistory)
	if len(hist.Messages) != 1 || hist.Messages[0].Key() != got.Message.Key() {
		t.Fatalf("message must be logged under the lowercased pair key, got %v", hist.Messages)
	}
}

func TestFirstHandleGetsRosterExactlyOnce(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice@x.com")
	readUntil(t, alice, EventRoster)

	// Events are delivered in queue order, so a duplicate snapshot
	// would arrive before the join acknowledgment.
	if err := alice.WriteJSON(Event{Type: EventJoin, Peer: "bob@x.com"}); err != nil {
		t.Fatal(err)
	}
	alice.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev Event
	if err := alice.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventJoined {
		t.Fatalf("expected joined ack next, got a second %q event", ev.Type)
	}
}

func TestExtraHandleReceivesRosterDirectly(t *testing.T) {
	ts := newTestServer(t)

	first := ts.dial(t, "alice@x.com")
	readUntil(t, first, EventRoster)

	// A second tab changes no distinct-identity set, so no broadcast
	// fires; the snapshot must reach it anyway.
	second := ts.dial(t, "alice@x.com")
	ev := readUntil(t, second, EventRoster)
	if len(ev.Users) != 1 || ev.Users[0].Identity != "alice@x.com" {
		t.Fatalf("second handle must receive the current roster, got %v", ev.Users)
	}
}

func TestUnknownEventType(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice@x.com")
	readUntil(t, alice, EventRoster)

	if err := alice.WriteJSON(Event{Type: "dance"}); err != nil {
		t.Fatal(err)
	}
	ev := readUntil(t, alice, EventError)
	if ev.Code != "unknown_event" {
		t.Fatalf("expected unknown_event, got %+v", ev)
	}
}
