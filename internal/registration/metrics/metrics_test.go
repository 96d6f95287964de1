package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRecognition("plate", "ok", time.Second)
	m.IncrementOutcome("entry", "success")
	m.ObserveAggregation(time.Second)
	m.IncrementStoreOperation("save", true)
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementOutcome("entry", "success")
	m.IncrementOutcome("entry", "success")
	m.IncrementStoreOperation("save", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AggregationOutcome.WithLabelValues("entry", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("save", "error")))
}
