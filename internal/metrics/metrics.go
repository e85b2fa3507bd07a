package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haro_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "haro_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haro_messages_posted_total",
			Help: "Total messages accepted into rooms",
		},
		[]string{"room"},
	)

	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haro_tokens_issued_total",
			Help: "Total identity tokens issued",
		},
	)

	// Flood guard metrics
	FloodRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haro_flood_rejections_total",
			Help: "Sends rejected by the flood guard",
		},
		[]string{"reason"}, // "cooldown" or "muted"
	)

	MutesApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haro_mutes_applied_total",
			Help: "Identities muted for constant-cadence flooding",
		},
	)

	// Reset metrics
	ResetsPerformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haro_resets_performed_total",
			Help: "Monthly state wipes performed by this process",
		},
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "haro_ws_connections",
			Help: "Currently open WebSocket connections",
		},
	)

	EventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haro_events_broadcast_total",
			Help: "Events fanned out to room subscribers",
		},
		[]string{"type"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "haro_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)
