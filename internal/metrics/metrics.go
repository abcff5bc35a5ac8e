package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "conduit"

// Registry is the Prometheus registry served on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Realtime and push metrics
var (
	// WebSocketConnections tracks open WebSocket connections per channel ("chat" or "call").
	WebSocketConnections = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Current number of open WebSocket connections",
		},
		[]string{"channel"},
	)

	// WebSocketMessagesDropped counts relay frames that could not be delivered.
	WebSocketMessagesDropped = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_dropped_total",
			Help:      "Total number of realtime frames dropped because the recipient was gone or slow",
		},
		[]string{"channel"},
	)

	// PushNotificationsTotal counts push deliveries per provider mode and result.
	PushNotificationsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_notifications_total",
			Help:      "Total number of push notifications attempted, by mode and result",
		},
		[]string{"mode", "result"},
	)
)
