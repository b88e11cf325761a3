package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SauRavRwT/ChitChat/internal/models"
)

const (
	// logTTL bounds how far back reconciliation can reach. The log is a
	// recent-history window, not an archive.
	logTTL = 24 * time.Hour

	defaultRangeLimit = 200
)

// RedisStore backs the canonical conversation log with one sorted set
// per identity pair, scored by message timestamp. It also holds the
// fixed-window rate limit counters for the HTTP surface.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for middleware that shares the
// connection (rate limiting).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// conversationKey returns the key for a pair's message log.
func conversationKey(pairKey string) string {
	return fmt.Sprintf("chat:%s:log", pairKey)
}

// rateLimitKey returns the key for a caller's rate limit counter.
func rateLimitKey(caller string) string {
	return fmt.Sprintf("ratelimit:%s", caller)
}

// Append stores a message in the pair's log. The score is the
// canonical timestamp, so a replayed append of the same record lands on
// the same member and the log stays duplicate-free.
func (s *RedisStore) Append(ctx context.Context, pairKey string, msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := conversationKey(pairKey)

	err = s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(msg.Timestamp),
		Member: string(data),
	}).Err()
	if err != nil {
		return err
	}

	// Sliding retention window on the whole log.
	s.client.Expire(ctx, key, logTTL)

	return nil
}

// Range retrieves up to limit messages for the pair, ascending by
// timestamp. A positive before restricts the result to messages
// strictly older than that timestamp.
func (s *RedisStore) Range(ctx context.Context, pairKey string, limit int, before int64) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultRangeLimit
	}

	key := conversationKey(pairKey)

	maxScore := "+inf"
	if before > 0 {
		maxScore = fmt.Sprintf("(%d", before) // exclusive
	}

	// Newest first so the limit keeps the most recent window, then
	// reversed into ascending order for the caller.
	results, err := s.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   maxScore,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		var msg models.Message
		if err := json.Unmarshal([]byte(results[i]), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// CheckRateLimit reports whether the caller is still under limit for
// the current window.
func (s *RedisStore) CheckRateLimit(ctx context.Context, caller string, limit int) (bool, error) {
	count, err := s.client.Get(ctx, rateLimitKey(caller)).Int()
	if err != nil && err != redis.Nil {
		return false, err
	}
	return count < limit, nil
}

// IncrementRateLimit bumps the caller's counter and refreshes the
// window TTL.
func (s *RedisStore) IncrementRateLimit(ctx context.Context, caller string, window time.Duration) error {
	key := rateLimitKey(caller)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	_, err := pipe.Exec(ctx)
	return err
}
