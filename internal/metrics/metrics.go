package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chitchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chitchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Presence metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chitchat_connections_active",
			Help: "Live WebSocket connections",
		},
	)

	IdentitiesOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chitchat_identities_online",
			Help: "Distinct online identities",
		},
	)

	RosterBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitchat_roster_broadcasts_total",
			Help: "Total full-roster broadcasts",
		},
	)

	// Relay metrics
	MessagesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chitchat_messages_relayed_total",
			Help: "Total messages accepted by the relay",
		},
		[]string{"delivery"}, // "delivered" or "offline"
	)

	MessagesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitchat_messages_rejected_total",
			Help: "Total send requests failing validation",
		},
	)

	TranslationsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitchat_translations_applied_total",
			Help: "Total messages enriched with a translation",
		},
	)

	TranslationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitchat_translation_failures_total",
			Help: "Total enrichment attempts that fell back to the original content",
		},
	)

	Resyncs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitchat_resyncs_total",
			Help: "Total reconciliation fetches served",
		},
	)

	DroppedHandles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitchat_dropped_handles_total",
			Help: "Connection handles dropped mid-delivery",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chitchat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
