package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "randomchat"

// Metrics groups every Prometheus collector of the server. Each instance owns
// its registry so tests can build as many as they need.
type Metrics struct {
	Registry *prometheus.Registry

	Registrations    *prometheus.CounterVec
	Matches          prometheus.Counter
	MatchFallbacks   *prometheus.CounterVec
	MessagesRelayed  prometheus.Counter
	MessagesCensored prometheus.Counter
	Departures       *prometheus.CounterVec
	WorkerRestarts   *prometheus.CounterVec

	ActiveUsers        prometheus.Gauge
	ConnectedEndpoints prometheus.Gauge
	PairingGroups      prometheus.Gauge
	QueueDepth         *prometheus.GaugeVec
	ProcessCPUPercent  prometheus.Gauge
	ProcessRSSBytes    prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by result.",
		}, []string{"result"}),
		Matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Pairs formed by the coordinator.",
		}),
		MatchFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_fallbacks_total",
			Help:      "Match attempts that ended in searching because of a concurrent change.",
		}, []string{"kind"}),
		MessagesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_relayed_total",
			Help:      "Chat messages delivered to a peer.",
		}),
		MessagesCensored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_censored_total",
			Help:      "Chat messages altered by moderation.",
		}),
		Departures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "departures_total",
			Help:      "Chats ended, by reason.",
		}, []string{"reason"}),
		WorkerRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_restarts_total",
			Help:      "Supervised workers restarted after a failure.",
		}, []string{"worker"}),
		ActiveUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_users",
			Help:      "Registered display names.",
		}),
		ConnectedEndpoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_endpoints",
			Help:      "Open connections known by the delivery bus.",
		}),
		PairingGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pairing_groups",
			Help:      "Live pairing groups.",
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Users waiting, by interest.",
		}, []string{"interest"}),
		ProcessCPUPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the server process.",
		}),
		ProcessRSSBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident memory of the server process.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		m.Registrations, m.Matches, m.MatchFallbacks,
		m.MessagesRelayed, m.MessagesCensored, m.Departures, m.WorkerRestarts,
		m.ActiveUsers, m.ConnectedEndpoints, m.PairingGroups, m.QueueDepth,
		m.ProcessCPUPercent, m.ProcessRSSBytes,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
