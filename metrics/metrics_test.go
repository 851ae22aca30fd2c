package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"ListenerCheckpointHeight", ListenerCheckpointHeight},
		{"ListenerLogsProcessed", ListenerLogsProcessed},
		{"ListenerBatchLatency", ListenerBatchLatency},
		{"PendingTransitions", PendingTransitions},
		{"InvalidTransitions", InvalidTransitions},
		{"WatcherOrdersPublished", WatcherOrdersPublished},
		{"WatcherOpenOrders", WatcherOpenOrders},
		{"FillerFills", FillerFills},
		{"FillerCooldownOrders", FillerCooldownOrders},
		{"APIRequests", APIRequests},
		{"ServiceRestarts", ServiceRestarts},
	}

	for _, v := range vars {
		assert.NotNilf(t, v.val, "%s should not be nil", v.name)
	}
}

func TestMetrics_CounterIncrement(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { ListenerLogsProcessed.WithLabelValues("metrics-test", "created").Inc() })
	assert.NotPanics(t, func() { ListenerBatchLatency.WithLabelValues("metrics-test").Observe(0.2) })
	assert.NotPanics(t, func() { PendingTransitions.WithLabelValues("metrics-test", "FILLED").Inc() })
	assert.NotPanics(t, func() { InvalidTransitions.WithLabelValues("metrics-test", "FILLED").Inc() })
	assert.NotPanics(t, func() { WatcherOpenOrders.WithLabelValues("metrics-test").Set(3) })

	FillerFills.WithLabelValues("metrics-test", FillResultFilled).Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(FillerFills.WithLabelValues("metrics-test", FillResultFilled)))

	ListenerCheckpointHeight.WithLabelValues("metrics-test").Set(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(ListenerCheckpointHeight.WithLabelValues("metrics-test")))
}
