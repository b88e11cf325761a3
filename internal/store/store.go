package store

import (
	"context"

	"github.com/SauRavRwT/ChitChat/internal/models"
)

// LogStore is the canonical per-conversation message log, keyed by the
// unordered identity pair. The relay treats it as append-only: history
// is never mutated, only appended and read back for reconciliation.
// Both RedisStore and MemoryStore implement this interface.
type LogStore interface {
	Append(ctx context.Context, pairKey string, msg models.Message) error
	// Range returns up to limit messages for the pair in ascending
	// timestamp order. A positive before bounds the scan to messages
	// strictly older than that timestamp.
	Range(ctx context.Context, pairKey string, limit int, before int64) ([]models.Message, error)
	Ping(ctx context.Context) error
	Close() error
}

// ProfileStore reads user profiles owned by the external document
// store: display name and language preference, fetched at connect
// time. The relay core is a read-only consumer; Upsert exists for the
// provisioning endpoint and tooling, never for the relay itself.
// PostgresStore, SQLiteStore and MemoryStore implement this interface.
type ProfileStore interface {
	GetProfile(ctx context.Context, identity string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, identity, name, language string) (*models.Profile, error)
	CountProfiles(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close()
}
