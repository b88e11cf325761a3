package presence

import (
	"sync"

	"github.com/SauRavRwT/ChitChat/internal/models"
)

// Dispatcher fans roster snapshots out to subscribers. Subscriptions
// are explicitly scoped: after Cancel returns, the subscriber's channel
// is closed and is guaranteed to never receive another snapshot.
type Dispatcher struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is one subscriber's handle on the dispatcher. Read
// snapshots from C; call Cancel exactly when done (idempotent).
type Subscription struct {
	C <-chan []models.RosterEntry

	d    *Dispatcher
	ch   chan []models.RosterEntry
	once sync.Once
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber.
func (d *Dispatcher) Subscribe() *Subscription {
	ch := make(chan []models.RosterEntry, 1)
	sub := &Subscription{C: ch, d: d, ch: ch}

	d.mu.Lock()
	d.subs[sub] = struct{}{}
	d.mu.Unlock()
	return sub
}

// Publish delivers the snapshot to every current subscriber without
// blocking. A subscriber that has not drained its previous snapshot
// has it replaced: only the latest full roster matters.
func (d *Dispatcher) Publish(roster []models.RosterEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for sub := range d.subs {
		select {
		case sub.ch <- roster:
		default:
			// Stale snapshot still queued; swap it for the fresh one.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- roster:
			default:
			}
		}
	}
}

// Cancel removes the subscription and closes its channel. Publish
// holds the same lock, so no snapshot is ever delivered after Cancel
// returns.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.d.mu.Lock()
		delete(s.d.subs, s)
		close(s.ch)
		s.d.mu.Unlock()
	})
}
