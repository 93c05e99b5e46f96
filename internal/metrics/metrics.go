package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_users_registered_total",
			Help: "Total accounts registered",
		},
		[]string{"role"},
	)

	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_orders_created_total",
			Help: "Total orders placed",
		},
	)

	// Relay metrics
	MessagesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_relay_messages_submitted_total",
			Help: "Chat messages persisted by the relay",
		},
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_relay_messages_rejected_total",
			Help: "Chat submissions rejected before delivery",
		},
		[]string{"reason"}, // "validation" or "storage"
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_relay_deliveries_total",
			Help: "Live deliveries attempted per channel",
		},
		[]string{"result"}, // "delivered" or "dropped"
	)

	RelayChannels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crm_relay_channels",
			Help: "Live channels currently registered",
		},
	)

	RelayIdentities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crm_relay_identities",
			Help: "Identities with at least one live channel",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
