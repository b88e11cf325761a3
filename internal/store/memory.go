package store

import (
	"context"
	"sync"
	"time"

	"github.com/SauRavRwT/ChitChat/internal/models"
	"github.com/SauRavRwT/ChitChat/internal/reconcile"
)

// MemoryLog is an in-process LogStore. It backs development runs
// without Redis and the test suites.
type MemoryLog struct {
	mu   sync.RWMutex
	logs map[string][]models.Message
}

// NewMemoryLog creates an empty in-memory log store.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{logs: make(map[string][]models.Message)}
}

// Append stores a message in the pair's log, keeping the log
// deduplicated and ordered through the same merge used everywhere
// else.
func (s *MemoryLog) Append(ctx context.Context, pairKey string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[pairKey] = reconcile.Merge(s.logs[pairKey], []models.Message{msg})
	return nil
}

// Range returns up to limit messages for the pair in ascending
// timestamp order, restricted to messages strictly older than before
// when before is positive.
func (s *MemoryLog) Range(ctx context.Context, pairKey string, limit int, before int64) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultRangeLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[pairKey]
	filtered := make([]models.Message, 0, len(log))
	for _, m := range log {
		if before > 0 && m.Timestamp >= before {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:] // keep the newest window
	}
	return filtered, nil
}

// Ping always succeeds.
func (s *MemoryLog) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryLog) Close() error { return nil }

// MemoryProfiles is an in-process ProfileStore for development and
// tests.
type MemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile
}

// NewMemoryProfiles creates an empty in-memory profile store.
func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{profiles: make(map[string]*models.Profile)}
}

// GetProfile retrieves a profile by identity; (nil, nil) when unknown.
func (s *MemoryProfiles) GetProfile(ctx context.Context, identity string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[identity]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// UpsertProfile creates or updates a profile record.
func (s *MemoryProfiles) UpsertProfile(ctx context.Context, identity, name, language string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p, ok := s.profiles[identity]
	if !ok {
		p = &models.Profile{Identity: identity, CreatedAt: now}
		s.profiles[identity] = p
	}
	p.Name = name
	p.Language = language
	p.UpdatedAt = now

	cp := *p
	return &cp, nil
}

// CountProfiles returns the number of stored profiles.
func (s *MemoryProfiles) CountProfiles(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.profiles)), nil
}

// Ping always succeeds.
func (s *MemoryProfiles) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryProfiles) Close() {}
