package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments of the bancho core.
type Metrics struct {
	OnlineUsers    prometheus.Gauge
	LoginsTotal    *prometheus.CounterVec
	PacketsTotal   *prometheus.CounterVec
	PacketsDropped prometheus.Counter
	BusMessages    prometheus.Gauge
	ReapedSessions prometheus.Counter
	PollDuration   prometheus.Histogram
}

// New registers the instruments with reg; pass a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OnlineUsers: f.NewGauge(prometheus.GaugeOpts{
			Name: "bancho_online_users",
			Help: "Number of live sessions in the store",
		}),
		LoginsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bancho_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		PacketsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bancho_packets_total",
			Help: "Inbound packets by kind and outcome",
		}, []string{"kind", "outcome"}),
		PacketsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "bancho_packets_dropped_total",
			Help: "Outbound packets dropped due to full session queues",
		}),
		BusMessages: f.NewGauge(prometheus.GaugeOpts{
			Name: "bancho_bus_messages",
			Help: "Messages currently stored in the broadcast bus",
		}),
		ReapedSessions: f.NewCounter(prometheus.CounterOpts{
			Name: "bancho_reaped_sessions_total",
			Help: "Sessions logged out by the idle reaper",
		}),
		PollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bancho_poll_duration_seconds",
			Help:    "Wall time of one bancho HTTP poll",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
