package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks publisher activity.
type Metrics struct {
	Published      *prometheus.CounterVec
	ConnectAttempt *prometheus.CounterVec
	Connected      prometheus.Gauge
}

// NewMetrics registers the publisher metrics on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_events_published_total",
			Help: "Events handed to the broker by topic kind and result",
		}, []string{"kind", "result"}), // result: "ok", "send_error", "canceled", "not_connected", "encode_error"

		ConnectAttempt: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_events_connect_attempts_total",
			Help: "Broker connection attempts by result",
		}, []string{"result"}),

		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "checkpoint_events_connected",
			Help: "Whether the publisher holds a live broker connection (1) or not (0)",
		}),
	}
}

func (m *Metrics) incPublished(kind, result string) {
	if m != nil {
		m.Published.WithLabelValues(kind, result).Inc()
	}
}

func (m *Metrics) incConnect(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.ConnectAttempt.WithLabelValues(result).Inc()
}

func (m *Metrics) setConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.Connected.Set(1)
	} else {
		m.Connected.Set(0)
	}
}
