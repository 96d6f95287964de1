package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for aggregation and persistence.
type Metrics struct {
	// Recognition call latencies by domain and result
	RecognitionLatency *prometheus.HistogramVec

	// Aggregation outcomes by direction and result
	AggregationOutcome *prometheus.CounterVec

	// Overall aggregation latency
	AggregationLatency prometheus.Histogram

	// Store operations by operation and result
	StoreOperations *prometheus.CounterVec
}

// New registers the registration metrics on reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecognitionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkpoint_recognition_duration_seconds",
			Help:    "Duration of recognition calls by domain and result",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"domain", "result"}), // domain: "identity", "plate"

		AggregationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_aggregation_outcomes_total",
			Help: "Aggregation outcomes by direction and result",
		}, []string{"direction", "result"}), // result: "success", "incomplete", "transport_error"

		AggregationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkpoint_aggregation_duration_seconds",
			Help:    "Duration of a full aggregation including both recognition calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_store_operations_total",
			Help: "Persistence gateway operations by operation and result",
		}, []string{"operation", "result"}),
	}
}

// ObserveRecognition records one recognition call.
func (m *Metrics) ObserveRecognition(domain, result string, d time.Duration) {
	if m != nil {
		m.RecognitionLatency.WithLabelValues(domain, result).Observe(d.Seconds())
	}
}

// IncrementOutcome records an aggregation outcome.
func (m *Metrics) IncrementOutcome(direction, result string) {
	if m != nil {
		m.AggregationOutcome.WithLabelValues(direction, result).Inc()
	}
}

// ObserveAggregation records the total aggregation duration.
func (m *Metrics) ObserveAggregation(d time.Duration) {
	if m != nil {
		m.AggregationLatency.Observe(d.Seconds())
	}
}

// IncrementStoreOperation records a persistence gateway call.
func (m *Metrics) IncrementStoreOperation(operation string, ok bool) {
	if m != nil {
		result := "ok"
		if !ok {
			result = "error"
		}
		m.StoreOperations.WithLabelValues(operation, result).Inc()
	}
}
