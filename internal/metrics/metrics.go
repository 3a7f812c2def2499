// Package metrics exposes the broker's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsConnected tracks the number of live sessions, counted from
	// accept until the session ends. Sessions still awaiting CONNECT are
	// included; the gauge does not separate them from Connected ones.
	SessionsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "broker_sessions_connected",
		Help: "Number of live sessions, from accept until the session ends (including those awaiting CONNECT)",
	})

	// ConnectionsTotal counts every accepted TCP connection, regardless of
	// whether the handshake succeeds.
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_connections_total",
		Help: "Total number of accepted TCP connections",
	})

	// PacketsReceived counts decoded packets by type.
	PacketsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_packets_received_total",
			Help: "Total number of packets received, by packet type",
		},
		[]string{"type"},
	)

	// PacketsSent counts encoded packets by type.
	PacketsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_packets_sent_total",
			Help: "Total number of packets sent, by packet type",
		},
		[]string{"type"},
	)

	// BytesReceived counts bytes read from client connections.
	BytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_bytes_received_total",
		Help: "Total bytes read from client connections",
	})

	// BytesSent counts bytes written to client connections.
	BytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_bytes_sent_total",
		Help: "Total bytes written to client connections",
	})

	// SubscriptionsActive tracks the number of distinct (session, topic)
	// subscriptions currently registered.
	SubscriptionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "broker_subscriptions_active",
		Help: "Number of active topic subscriptions",
	})

	// DroppedOutboxTotal counts PUBLISH deliveries dropped because a
	// subscriber's outbox was full.
	DroppedOutboxTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broker_dropped_outbox_total",
		Help: "Total number of PUBLISH deliveries dropped due to a full subscriber outbox",
	})
)
