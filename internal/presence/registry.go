// Package presence tracks which identities are online and which live
// connection handles belong to each. State is sharded by identity so
// unrelated users never contend on one lock; no lock is ever held
// across network I/O.
package presence

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SauRavRwT/ChitChat/internal/models"
)

const shardCount = 32

// Conn is a live client connection handle. Deliver methods must only
// enqueue; a handle that cannot keep up reports an error and the caller
// drops it as if it had disconnected.
type Conn interface {
	ID() uuid.UUID
	DeliverMessage(msg models.Message) error
	DeliverRoster(roster []models.RosterEntry) error
	Close()
}

// Entry is a point-in-time snapshot of one online identity.
type Entry struct {
	Identity string
	Name     string
	Handles  int
	LastSeen time.Time
}

type record struct {
	name     string
	lastSeen time.Time
	conns    map[uuid.UUID]Conn
}

type shard struct {
	mu      sync.RWMutex
	records map[string]*record
}

// Registry owns all presence state. Connection handles are added with
// Register and removed with Deregister; an identity is online while it
// has at least one handle.
type Registry struct {
	shards [shardCount]*shard
	index  sync.Map // conn uuid -> identity

	// bmu serializes roster snapshot + publish so subscribers never see
	// snapshots out of order.
	bmu    sync.Mutex
	events *Dispatcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{events: NewDispatcher()}
	for i := range r.shards {
		r.shards[i] = &shard{records: make(map[string]*record)}
	}
	return r
}

func (r *Registry) shardFor(identity string) *shard {
	h := fnv.New32a()
	h.Write([]byte(identity))
	return r.shards[h.Sum32()%shardCount]
}

// Register adds a connection handle for identity. Registering an
// already online identity adds another handle (extra tab or device)
// instead of erroring. A roster broadcast fires only when the set of
// distinct online identities grew, i.e. for the first handle.
func (r *Registry) Register(identity, displayName string, conn Conn) Entry {
	s := r.shardFor(identity)

	s.mu.Lock()
	rec, ok := s.records[identity]
	if !ok {
		rec = &record{conns: make(map[uuid.UUID]Conn)}
		s.records[identity] = rec
	}
	rec.name = displayName
	rec.lastSeen = time.Now()
	rec.conns[conn.ID()] = conn
	entry := Entry{Identity: identity, Name: rec.name, Handles: len(rec.conns), LastSeen: rec.lastSeen}
	s.mu.Unlock()

	r.index.Store(conn.ID(), identity)

	if !ok {
		r.publishRoster()
	}
	return entry
}

// Deregister removes the given handle only; the identity stays online
// while other handles remain. Removing the last handle removes the
// entry and fires a roster broadcast. Unknown handles are ignored, so
// the call is safe on double-close. Never blocks on I/O.
func (r *Registry) Deregister(conn Conn) {
	v, ok := r.index.LoadAndDelete(conn.ID())
	if !ok {
		return
	}
	identity := v.(string)
	s := r.shardFor(identity)

	last := false
	s.mu.Lock()
	if rec, ok := s.records[identity]; ok {
		delete(rec.conns, conn.ID())
		if len(rec.conns) == 0 {
			delete(s.records, identity)
			last = true
		}
	}
	s.mu.Unlock()

	if last {
		r.publishRoster()
	}
}

// Lookup returns the live connection handles for identity. An unknown
// identity yields an empty slice, never an error: callers treat that as
// "recipient offline".
func (r *Registry) Lookup(identity string) []Conn {
	s := r.shardFor(identity)

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[identity]
	if !ok {
		return nil
	}
	conns := make([]Conn, 0, len(rec.conns))
	for _, c := range rec.conns {
		conns = append(conns, c)
	}
	return conns
}

// Roster returns every identity with at least one live handle, sorted
// by identity. No duplicates, no stale entries.
func (r *Registry) Roster() []models.RosterEntry {
	var roster []models.RosterEntry
	for _, s := range r.shards {
		s.mu.RLock()
		for identity, rec := range s.records {
			roster = append(roster, models.RosterEntry{Identity: identity, Name: rec.name})
		}
		s.mu.RUnlock()
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].Identity < roster[j].Identity })
	return roster
}

// Connections returns every live connection handle across all
// identities. Used for full fan-out of roster snapshots.
func (r *Registry) Connections() []Conn {
	var conns []Conn
	for _, s := range r.shards {
		s.mu.RLock()
		for _, rec := range s.records {
			for _, c := range rec.conns {
				conns = append(conns, c)
			}
		}
		s.mu.RUnlock()
	}
	return conns
}

// Online reports whether identity currently has at least one handle.
func (r *Registry) Online(identity string) bool {
	s := r.shardFor(identity)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[identity]
	return ok
}

// CountOnline returns the number of distinct online identities.
func (r *Registry) CountOnline() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.records)
		s.mu.RUnlock()
	}
	return n
}

// Updates exposes the roster subscription dispatcher. Every snapshot is
// the full current roster, never a diff, so a missed update can never
// cause permanent drift.
func (r *Registry) Updates() *Dispatcher {
	return r.events
}

func (r *Registry) publishRoster() {
	r.bmu.Lock()
	defer r.bmu.Unlock()
	r.events.Publish(r.Roster())
}
