// Package room maps unordered identity pairs to private conversation
// channels and tracks which of the two members is actively viewing the
// conversation.
package room

import (
	"sync"
)

// Key returns the order-independent key for an identity pair. Both
// orderings of the same two identities yield the same key.
func Key(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

type state struct {
	joined  map[string]bool
	pending int
}

// Rooms tracks membership per identity pair. Rooms are created lazily
// on first join and reclaimed once both members have left and no
// delivery is pending. Reclamation is advisory cleanup only: messages
// never depend on room existence.
type Rooms struct {
	mu    sync.Mutex
	rooms map[string]*state
}

// NewRooms creates an empty room table.
func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[string]*state)}
}

// Join marks member as actively viewing the conversation with peer.
// Idempotent; joining twice has no additional effect. Either party may
// join without affecting the other's membership.
func (r *Rooms) Join(member, peer string) {
	key := Key(member, peer)

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[key]
	if !ok {
		st = &state{joined: make(map[string]bool, 2)}
		r.rooms[key] = st
	}
	st.joined[member] = true
}

// Leave marks member as no longer viewing the conversation with peer.
// Idempotent; leaving an unknown room is a no-op.
func (r *Rooms) Leave(member, peer string) {
	key := Key(member, peer)

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[key]
	if !ok {
		return
	}
	delete(st.joined, member)
	r.maybeReclaim(key, st)
}

// Joined reports whether member is actively viewing the conversation
// with peer.
func (r *Rooms) Joined(member, peer string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[Key(member, peer)]
	return ok && st.joined[member]
}

// AddPending records an in-flight delivery for the pair, keeping the
// room alive until the delivery completes. Creates the room if a
// message is in flight for a pair neither member has joined.
func (r *Rooms) AddPending(a, b string) {
	key := Key(a, b)

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[key]
	if !ok {
		st = &state{joined: make(map[string]bool, 2)}
		r.rooms[key] = st
	}
	st.pending++
}

// DonePending marks one in-flight delivery as finished and reclaims
// the room if it is now idle.
func (r *Rooms) DonePending(a, b string) {
	key := Key(a, b)

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[key]
	if !ok {
		return
	}
	if st.pending > 0 {
		st.pending--
	}
	r.maybeReclaim(key, st)
}

// Len returns the number of live rooms.
func (r *Rooms) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// maybeReclaim removes the room once both members have left and no
// delivery is pending. Caller holds r.mu.
func (r *Rooms) maybeReclaim(key string, st *state) {
	if len(st.joined) == 0 && st.pending == 0 {
		delete(r.rooms, key)
	}
}
