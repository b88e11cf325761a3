// Package reconcile implements the log convergence strategy shared by
// the relay and its clients: a pure set union keyed by the stable
// message identity (sender, timestamp). Because the union is
// commutative and idempotent, replicas that merge the same batches in
// any order, any number of times, end up with identical logs.
package reconcile

import (
	"sort"

	"github.com/SauRavRwT/ChitChat/internal/models"
)

// Merge returns the union of local and incoming, deduplicated by
// (sender, timestamp) and sorted by timestamp ascending with sender as
// the tie-break. Neither input slice is modified. When both inputs
// carry a message with the same key, the local copy wins; copies of a
// canonical record are identical, so the choice is immaterial.
func Merge(local, incoming []models.Message) []models.Message {
	seen := make(map[models.MessageKey]models.Message, len(local)+len(incoming))
	for _, m := range local {
		if _, ok := seen[m.Key()]; !ok {
			seen[m.Key()] = m
		}
	}
	for _, m := range incoming {
		if _, ok := seen[m.Key()]; !ok {
			seen[m.Key()] = m
		}
	}

	merged := make([]models.Message, 0, len(seen))
	for _, m := range seen {
		merged = append(merged, m)
	}
	sortLog(merged)
	return merged
}

// Contains reports whether log already holds a message with the same
// deduplication key as msg.
func Contains(log []models.Message, msg models.Message) bool {
	key := msg.Key()
	for _, m := range log {
		if m.Key() == key {
			return true
		}
	}
	return false
}

// sortLog orders messages by (timestamp, sender). Keys are unique per
// (sender, timestamp), so this is a total order and every replica sorts
// the same set into the same sequence.
func sortLog(log []models.Message) {
	sort.Slice(log, func(i, j int) bool {
		if log[i].Timestamp != log[j].Timestamp {
			return log[i].Timestamp < log[j].Timestamp
		}
		return log[i].Sender < log[j].Sender
	})
}
