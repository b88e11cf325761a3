package relay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SauRavRwT/ChitChat/internal/models"
	"github.com/SauRavRwT/ChitChat/internal/presence"
	"github.com/SauRavRwT/ChitChat/internal/reconcile"
	"github.com/SauRavRwT/ChitChat/internal/room"
	"github.com/SauRavRwT/ChitChat/internal/store"
)

var errBrokenPipe = errors.New("broken pipe")

type fakeConn struct {
	id   uuid.UUID
	fail bool

	mu       sync.Mutex
	messages []models.Message
}

func newFakeConn() *fakeConn { return &fakeConn{id: uuid.New()} }

func (c *fakeConn) ID() uuid.UUID { return c.id }

func (c *fakeConn) DeliverMessage(msg models.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errBrokenPipe
	}
	c.messages = append(c.messages, msg)
	return nil
}

func (c *fakeConn) DeliverRoster(roster []models.RosterEntry) error { return nil }

func (c *fakeConn) Close() {}

func (c *fakeConn) received() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

type fixture struct {
	registry *presence.Registry
	rooms    *room.Rooms
	log      *store.MemoryLog
	profiles *store.MemoryProfiles
	relay    *Relay
}

func newFixture() *fixture {
	f := &fixture{
		registry: presence.NewRegistry(),
		rooms:    room.NewRooms(),
		log:      store.NewMemoryLog(),
		profiles: store.NewMemoryProfiles(),
	}
	f.relay = New(f.registry, f.rooms, f.log, f.profiles, nil, zerolog.Nop())
	return f
}

func TestSendRejectsEmptyContent(t *testing.T) {
	f := newFixture()

	for _, content := range []string{"", "   ", "\n\t "} {
		msg, err := f.relay.Send(context.Background(), "alice@x.com", "bob@x.com", content, 100)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("content %q: expected ValidationError, got %v", content, err)
		}
		if msg != nil {
			t.Fatal("no message may be produced for invalid input")
		}
	}

	f.relay.Flush()
	log, _ := f.log.Range(context.Background(), room.Key("alice@x.com", "bob@x.com"), 0, 0)
	if len(log) != 0 {
		t.Fatal("rejected sends must not reach the log")
	}
}

func TestSendRejectsSelfMessage(t *testing.T) {
	f := newFixture()

	_, err := f.relay.Send(context.Background(), "alice@x.com", "alice@x.com", "hi me", 100)
	if !errors.Is(err, ErrSelfMessage) {
		t.Fatalf("expected ErrSelfMessage, got %v", err)
	}
}

func TestSendToOfflineRecipientSucceedsAndEchoes(t *testing.T) {
	f := newFixture()
	alice := newFakeConn()
	f.registry.Register("alice@x.com", "Alice", alice)

	msg, err := f.relay.Send(context.Background(), "alice@x.com", "bob@x.com", "anyone there?", 100)
	if err != nil {
		t.Fatalf("offline recipient must not fail the send: %v", err)
	}
	f.relay.Flush()

	echoed := alice.received()
	if len(echoed) != 1 || echoed[0].Key() != msg.Key() {
		t.Fatalf("sender must receive the canonical echo, got %v", echoed)
	}

	log, _ := f.log.Range(context.Background(), room.Key("alice@x.com", "bob@x.com"), 0, 0)
	if len(log) != 1 {
		t.Fatalf("message must be logged for later reconciliation, got %d", len(log))
	}
}

func TestCollidingTimestampsYieldDistinctKeys(t *testing.T) {
	f := newFixture()

	first, err := f.relay.Send(context.Background(), "alice@x.com", "bob@x.com", "one", 100)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.relay.Send(context.Background(), "alice@x.com", "bob@x.com", "two", 100)
	if err != nil {
		t.Fatal(err)
	}

	if first.Key() == second.Key() {
		t.Fatalf("colliding client timestamps must be tie-broken, both got %v", first.Key())
	}
	if second.Timestamp <= first.Timestamp {
		t.Fatalf("tie-break must move forward: %d then %d", first.Timestamp, second.Timestamp)
	}
}

func TestPrivateMessageScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	alice := newFakeConn()
	bob := newFakeConn()
	f.registry.Register("alice@x.com", "Alice", alice)
	f.registry.Register("bob@x.com", "Bob", bob)
	f.rooms.Join("alice@x.com", "bob@x.com")

	sent, err := f.relay.Send(ctx, "alice@x.com", "bob@x.com", "hi", 100)
	if err != nil {
		t.Fatal(err)
	}
	f.relay.Flush()

	for name, conn := range map[string]*fakeConn{"alice": alice, "bob": bob} {
		got := conn.received()
		if len(got) != 1 {
			t.Fatalf("%s expected 1 message, got %d", name, len(got))
		}
		m := got[0]
		if m.Sender != "alice@x.com" || m.Recipient != "bob@x.com" || m.Content != "hi" || m.Timestamp != 100 {
			t.Fatalf("%s received wrong message: %+v", name, m)
		}
	}

	// Bob drops, reconnects, and resyncs: the message is present
	// exactly once.
	f.registry.Deregister(bob)
	f.registry.Register("bob@x.com", "Bob", newFakeConn())

	canonical, err := f.relay.Resync(ctx, "bob@x.com", "alice@x.com", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	merged := reconcile.Merge(canonical, canonical)
	count := 0
	for _, m := range merged {
		if m.Key() == sent.Key() {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("resynced log must contain the message exactly once, got %d", count)
	}
}

func TestPerRoomDeliveryOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	bob := newFakeConn()
	f.registry.Register("bob@x.com", "Bob", bob)

	var sent []models.Message
	for i := 0; i < 40; i++ {
		// Same client timestamp every time: the relay's watermark
		// produces a strictly increasing canonical order.
		msg, err := f.relay.Send(ctx, "alice@x.com", "bob@x.com", "m", 500)
		if err != nil {
			t.Fatal(err)
		}
		sent = append(sent, *msg)
	}
	f.relay.Flush()

	got := bob.received()
	if len(got) != len(sent) {
		t.Fatalf("expected %d deliveries, got %d", len(sent), len(got))
	}
	for i := range got {
		if got[i].Key() != sent[i].Key() {
			t.Fatalf("delivery order diverged from accept order at %d", i)
		}
	}
}

func TestFailedHandleIsDroppedWithoutFailingSend(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	healthy := newFakeConn()
	broken := newFakeConn()
	broken.fail = true
	f.registry.Register("bob@x.com", "Bob", healthy)
	f.registry.Register("bob@x.com", "Bob", broken)

	_, err := f.relay.Send(ctx, "alice@x.com", "bob@x.com", "hi", 100)
	if err != nil {
		t.Fatalf("a failing handle must never fail the send: %v", err)
	}
	f.relay.Flush()

	if len(healthy.received()) != 1 {
		t.Fatal("healthy handle must still receive the message")
	}
	if len(f.registry.Lookup("bob@x.com")) != 1 {
		t.Fatal("broken handle must be deregistered as if disconnected")
	}
}

func TestTwoTabsConverge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tabA := newFakeConn()
	tabB := newFakeConn()
	f.registry.Register("alice@x.com", "Alice", tabA)
	f.registry.Register("alice@x.com", "Alice", tabB)

	if _, err := f.relay.Send(ctx, "bob@x.com", "alice@x.com", "hello", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := f.relay.Send(ctx, "bob@x.com", "alice@x.com", "again", 101); err != nil {
		t.Fatal(err)
	}
	f.relay.Flush()

	canonical, err := f.relay.Resync(ctx, "alice@x.com", "bob@x.com", 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	logA := reconcile.Merge(tabA.received(), canonical)
	logB := reconcile.Merge(tabB.received(), canonical)
	if len(logA) != 2 || len(logB) != 2 {
		t.Fatalf("expected both tabs to converge on 2 messages, got %d and %d", len(logA), len(logB))
	}
	for i := range logA {
		if logA[i].Key() != logB[i].Key() {
			t.Fatalf("tab logs diverged at %d", i)
		}
	}
}

func TestEnrichmentAppliedAcrossLanguages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.profiles.UpsertProfile(ctx, "alice@x.com", "Alice", "en")
	f.profiles.UpsertProfile(ctx, "bob@x.com", "Bob", "es")
	f.relay.enrich = staticEnricher{"hola"}

	bob := newFakeConn()
	f.registry.Register("bob@x.com", "Bob", bob)

	if _, err := f.relay.Send(ctx, "alice@x.com", "bob@x.com", "hello", 100); err != nil {
		t.Fatal(err)
	}
	f.relay.Flush()

	got := bob.received()
	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].Content != "hello" || got[0].Translated != "hola" {
		t.Fatalf("expected original + translated content, got %+v", got[0])
	}
}

type staticEnricher struct{ out string }

func (e staticEnricher) Enrich(ctx context.Context, content, from, to string) (string, error) {
	return e.out, nil
}
