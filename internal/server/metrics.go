package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's prometheus instruments.
type Metrics struct {
	ActiveTables      prometheus.Gauge
	ConnectedSessions prometheus.Gauge
	HandsCompleted    prometheus.Counter
	TurnTimeouts      prometheus.Counter
	DroppedMessages   prometheus.Counter
	MessagesReceived  *prometheus.CounterVec
}

// NewMetrics registers the server's instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveTables: factory.NewGauge(prometheus.GaugeOpts{
			Name: "holdemd_active_tables",
			Help: "Number of open tables.",
		}),
		ConnectedSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "holdemd_connected_sessions",
			Help: "Number of registered websocket sessions.",
		}),
		HandsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "holdemd_hands_completed_total",
			Help: "Hands played to completion across all tables.",
		}),
		TurnTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "holdemd_turn_timeouts_total",
			Help: "Turns resolved by the timeout default action.",
		}),
		DroppedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "holdemd_dropped_messages_total",
			Help: "Events dropped because a client send buffer was full.",
		}),
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "holdemd_messages_received_total",
			Help: "Client messages received, by type.",
		}, []string{"type"}),
	}
}
