// Package metrics exposes Prometheus instrumentation for the game server,
// grounded on opd-ai-goldbox-rpg's pkg/server/metrics.go.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the server registers.
type Metrics struct {
	ActiveConnections  prometheus.Gauge
	ActivePlayers      prometheus.Gauge
	DisconnectedPlayers prometheus.Gauge
	MovesTotal         *prometheus.CounterVec
	BroadcastsTotal    prometheus.Counter
	BroadcastSeconds   prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers all server metrics against a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gridkeep_active_connections",
			Help: "Number of currently active connections.",
		}),
		ActivePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gridkeep_active_players",
			Help: "Number of currently active players.",
		}),
		DisconnectedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gridkeep_disconnected_players",
			Help: "Number of players awaiting reconnection within the grace period.",
		}),
		MovesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridkeep_moves_total",
			Help: "Total processed MOVE requests by verdict.",
		}, []string{"verdict"}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gridkeep_broadcasts_total",
			Help: "Total STATE_UPDATE broadcasts sent.",
		}),
		BroadcastSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridkeep_broadcast_seconds",
			Help:    "Time spent building and sending a STATE_UPDATE broadcast.",
			Buckets: prometheus.DefBuckets,
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.ActiveConnections,
		m.ActivePlayers,
		m.DisconnectedPlayers,
		m.MovesTotal,
		m.BroadcastsTotal,
		m.BroadcastSeconds,
	)

	return m
}

// Handler returns an http.Handler serving this registry's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
