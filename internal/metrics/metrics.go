package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Live connections in the registry",
		},
	)

	UsersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_users_online",
			Help: "Users with at least one live connection",
		},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_auth_failures_total",
			Help: "Connections rejected during the handshake",
		},
		[]string{"reason"}, // "invalid", "timeout"
	)

	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_rooms_active",
			Help: "Rooms with at least one member",
		},
	)

	// Delivery metrics
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_deliveries_total",
			Help: "Per-connection delivery attempts",
		},
		[]string{"result"}, // "delivered" or "failed"
	)

	Evictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_evictions_total",
			Help: "Connections evicted after a failed delivery",
		},
	)

	// Business metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Messages persisted and dispatched",
		},
		[]string{"target"}, // "room" or "direct"
	)

	MessagesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_read_total",
			Help: "Messages flipped to read",
		},
	)

	CommandErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_command_errors_total",
			Help: "Rejected commands by error kind",
		},
		[]string{"kind"},
	)

	TypingExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_typing_expired_total",
			Help: "Typing indicators cleared by the server timer",
		},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_store_latency_seconds",
			Help:    "Message store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25},
		},
		[]string{"op"},
	)
)
