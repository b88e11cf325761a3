package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/SauRavRwT/ChitChat/internal/metrics"
	"github.com/SauRavRwT/ChitChat/internal/store"
)

// Per-IP fixed-window limits. The WebSocket itself is not limited
// here; this protects the HTTP surface (provisioning, history reads)
// from abuse.
const (
	rateLimitWindow   = time.Minute
	rateLimitRequests = 120
)

// RateLimiter enforces per-IP request limits using Redis counters
// shared across relay instances.
type RateLimiter struct {
	redis  *store.RedisStore
	logger zerolog.Logger
}

// NewRateLimiter creates a limiter backed by the given Redis store.
func NewRateLimiter(redis *store.RedisStore, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{redis: redis, logger: logger}
}

// Middleware applies the rate limit. Redis errors fail open: a broken
// limiter must not take the relay down with it.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr

		ok, err := rl.redis.CheckRateLimit(r.Context(), ip, rateLimitRequests)
		if err != nil {
			rl.logger.Warn().Err(err).Msg("rate limit check failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if !ok {
			metrics.RateLimitHits.WithLabelValues(r.URL.Path).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		if err := rl.redis.IncrementRateLimit(r.Context(), ip, rateLimitWindow); err != nil {
			rl.logger.Warn().Err(err).Msg("rate limit increment failed")
		}

		next.ServeHTTP(w, r)
	})
}
