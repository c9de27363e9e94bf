package server

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry collects the daemon's metrics; the bot API exposes it at
// /metrics.
var MetricsRegistry = prometheus.NewRegistry()

var (
	connectionsTotal = promauto.With(MetricsRegistry).NewCounter(
		prometheus.CounterOpts{
			Name: "ircd_connections_total",
			Help: "Total number of accepted client connections",
		},
	)

	clientsGauge = promauto.With(MetricsRegistry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ircd_registered_clients",
			Help: "Number of currently registered clients",
		},
	)

	channelsGauge = promauto.With(MetricsRegistry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ircd_channels",
			Help: "Number of live channels",
		},
	)

	messagesRouted = promauto.With(MetricsRegistry).NewCounter(
		prometheus.CounterOpts{
			Name: "ircd_messages_routed_total",
			Help: "Total number of PRIVMSG deliveries",
		},
	)

	numericsSent = promauto.With(MetricsRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircd_numeric_replies_total",
			Help: "Total numeric replies sent, by code",
		},
		[]string{"code"},
	)
)

func numericLabel(code int) string {
	return fmt.Sprintf("%03d", code)
}
