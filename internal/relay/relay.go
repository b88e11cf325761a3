// Package relay routes private messages from a sender to the live
// connection handles of a recipient. Delivery is at-most-once and
// online-only: a message for an offline recipient is still accepted,
// logged and echoed, but nothing is queued for later delivery.
package relay

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/SauRavRwT/ChitChat/internal/metrics"
	"github.com/SauRavRwT/ChitChat/internal/models"
	"github.com/SauRavRwT/ChitChat/internal/presence"
	"github.com/SauRavRwT/ChitChat/internal/room"
	"github.com/SauRavRwT/ChitChat/internal/store"
	"github.com/SauRavRwT/ChitChat/internal/translate"
)

// ValidationError reports a malformed send request. It is surfaced to
// the originating client only and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid message: " + e.Reason
}

var (
	// ErrEmptyContent rejects messages whose content is empty after
	// trimming.
	ErrEmptyContent = &ValidationError{Reason: "content is empty"}

	// ErrSelfMessage rejects messages a sender addresses to itself.
	ErrSelfMessage = &ValidationError{Reason: "sender and recipient are the same identity"}

	// ErrNoRecipient rejects messages without a recipient.
	ErrNoRecipient = &ValidationError{Reason: "recipient is required"}
)

const deliverTimeout = 15 * time.Second

// Relay accepts send requests, assigns the canonical message identity,
// and fans the message out per room in accept order.
type Relay struct {
	registry *presence.Registry
	rooms    *room.Rooms
	log      store.LogStore
	profiles store.ProfileStore
	enrich   translate.Enricher
	logger   zerolog.Logger

	// clockMu guards the per-sender timestamp watermark that keeps
	// (sender, timestamp) keys unique under colliding client clocks.
	clockMu sync.Mutex
	lastTS  map[string]int64

	// wmu guards the per-room delivery queues. It is held only for
	// queue manipulation, never across store or socket I/O; rooms
	// drain in parallel, each in strict accept order.
	wmu     sync.Mutex
	queues  map[string][]models.Message
	active  map[string]bool
	pending sync.WaitGroup
}

// New creates a relay.
func New(registry *presence.Registry, rooms *room.Rooms, log store.LogStore, profiles store.ProfileStore, enrich translate.Enricher, logger zerolog.Logger) *Relay {
	if enrich == nil {
		enrich = translate.Passthrough{}
	}
	return &Relay{
		registry: registry,
		rooms:    rooms,
		log:      log,
		profiles: profiles,
		enrich:   enrich,
		logger:   logger.With().Str("component", "relay").Logger(),
		lastTS:   make(map[string]int64),
		queues:   make(map[string][]models.Message),
		active:   make(map[string]bool),
	}
}

// Send validates and accepts a message. The returned Message carries
// the canonical (sender, timestamp) identity and is what the sender
// must adopt in place of any optimistic local copy; the identical
// record is echoed to every sender handle once delivery runs. A
// recipient with no live handles is not an error.
func (r *Relay) Send(ctx context.Context, sender, recipient, content string, clientTS int64) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		metrics.MessagesRejected.Inc()
		return nil, ErrEmptyContent
	}
	if strings.TrimSpace(recipient) == "" {
		metrics.MessagesRejected.Inc()
		return nil, ErrNoRecipient
	}
	if sender == recipient {
		metrics.MessagesRejected.Inc()
		return nil, ErrSelfMessage
	}

	msg := models.Message{
		ID:        ulid.Make().String(),
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Timestamp: r.canonicalTimestamp(sender, clientTS),
	}

	r.rooms.AddPending(sender, recipient)
	r.enqueue(room.Key(sender, recipient), msg)

	return &msg, nil
}

// Resync returns the canonical log for the (local, peer) conversation,
// ascending by timestamp. Pure read: safe to call arbitrarily often.
func (r *Relay) Resync(ctx context.Context, local, peer string, limit int, before int64) ([]models.Message, error) {
	metrics.Resyncs.Inc()
	return r.log.Range(ctx, room.Key(local, peer), limit, before)
}

// Flush blocks until every accepted message has been delivered. Used
// by tests and shutdown.
func (r *Relay) Flush() {
	r.pending.Wait()
}

// canonicalTimestamp turns the client-supplied timestamp into the
// canonical one. An unusable client clock falls back to server time,
// and a timestamp at or before the sender's previous message is bumped
// past it, so (sender, timestamp) keys never collide.
func (r *Relay) canonicalTimestamp(sender string, clientTS int64) int64 {
	ts := clientTS
	if ts <= 0 {
		ts = time.Now().UnixMilli()
	}

	r.clockMu.Lock()
	defer r.clockMu.Unlock()
	if last := r.lastTS[sender]; ts <= last {
		ts = last + 1
	}
	r.lastTS[sender] = ts
	return ts
}

// enqueue appends the message to its room's queue and starts a drain
// goroutine for the room if one is not already running.
func (r *Relay) enqueue(key string, msg models.Message) {
	r.pending.Add(1)

	r.wmu.Lock()
	r.queues[key] = append(r.queues[key], msg)
	if !r.active[key] {
		r.active[key] = true
		go r.drain(key)
	}
	r.wmu.Unlock()
}

// drain delivers one room's queue in accept order, then exits.
func (r *Relay) drain(key string) {
	for {
		r.wmu.Lock()
		queue := r.queues[key]
		if len(queue) == 0 {
			r.active[key] = false
			delete(r.queues, key)
			r.wmu.Unlock()
			return
		}
		msg := queue[0]
		r.queues[key] = queue[1:]
		r.wmu.Unlock()

		r.deliver(msg)
		r.pending.Done()
	}
}

// deliver enriches, logs and fans out one message. Runs without any
// relay lock held.
func (r *Relay) deliver(msg models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	defer r.rooms.DonePending(msg.Sender, msg.Recipient)

	r.enrichMessage(ctx, &msg)

	if err := r.log.Append(ctx, room.Key(msg.Sender, msg.Recipient), msg); err != nil {
		// Delivery still proceeds; the log is for reconciliation, and
		// the periodic resync self-heals once the store recovers.
		r.logger.Error().Err(err).Str("sender", msg.Sender).Msg("failed to append to conversation log")
	}

	delivered := r.fanout(msg.Recipient, msg)
	if delivered == 0 {
		// Expected, common state: recipient simply offline.
		r.logger.Info().
			Str("sender", msg.Sender).
			Str("recipient", msg.Recipient).
			Msg("recipient offline, message logged only")
		metrics.MessagesRelayed.WithLabelValues("offline").Inc()
	} else {
		metrics.MessagesRelayed.WithLabelValues("delivered").Inc()
	}

	// The sender always receives its own message back so its local log
	// converges on the canonical record.
	r.fanout(msg.Sender, msg)
}

// enrichMessage asks the translator for a recipient-language rendering
// when sender and recipient prefer different languages. Failures fall
// back to the original content.
func (r *Relay) enrichMessage(ctx context.Context, msg *models.Message) {
	senderProf, err := r.profiles.GetProfile(ctx, msg.Sender)
	if err != nil || senderProf == nil {
		return
	}
	recipProf, err := r.profiles.GetProfile(ctx, msg.Recipient)
	if err != nil || recipProf == nil {
		return
	}
	if senderProf.Language == recipProf.Language {
		return
	}

	translated, err := r.enrich.Enrich(ctx, msg.Content, senderProf.Language, recipProf.Language)
	if err != nil {
		metrics.TranslationFailures.Inc()
		r.logger.Warn().Err(err).
			Str("from", senderProf.Language).
			Str("to", recipProf.Language).
			Msg("enrichment failed, delivering original content")
		return
	}
	msg.Translated = translated
	metrics.TranslationsApplied.Inc()
}

// fanout pushes the message to every live handle of identity. A handle
// that fails is dropped as if it had disconnected; the remaining
// handles still receive the message and the overall send never fails.
func (r *Relay) fanout(identity string, msg models.Message) int {
	delivered := 0
	for _, conn := range r.registry.Lookup(identity) {
		if err := conn.DeliverMessage(msg); err != nil {
			metrics.DroppedHandles.Inc()
			r.logger.Warn().
				Str("identity", identity).
				Str("conn", conn.ID().String()).
				Msg("dropping unresponsive connection handle")
			r.registry.Deregister(conn)
			conn.Close()
			continue
		}
		delivered++
	}
	return delivered
}
