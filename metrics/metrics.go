package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are partitioned by chain id.

var (
	// Listener
	ListenerCheckpointHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ilayer",
		Subsystem: "listener",
		Name:      "checkpoint_height",
		Help:      "Highest block whose logs have been fully processed",
	}, []string{"chain"})

	ListenerLogsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ilayer",
		Subsystem: "listener",
		Name:      "logs_processed_total",
		Help:      "Order-book logs applied to the order table, by event",
	}, []string{"chain", "event"})

	ListenerBatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ilayer",
		Subsystem: "listener",
		Name:      "batch_duration_seconds",
		Help:      "Backfill batch processing duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"chain"})

	// Projector
	PendingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ilayer",
		Subsystem: "projector",
		Name:      "pending_transitions_total",
		Help:      "Terminal events buffered because their order was not indexed yet",
	}, []string{"chain", "status"})

	InvalidTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ilayer",
		Subsystem: "projector",
		Name:      "invalid_transitions_total",
		Help:      "Terminal events rejected because the order already reached another terminal state",
	}, []string{"chain", "status"})

	// Watcher
	WatcherOrdersPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ilayer",
		Subsystem: "watcher",
		Name:      "orders_published_total",
		Help:      "Ready orders published to the filler topic",
	}, []string{"chain"})

	WatcherOpenOrders = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ilayer",
		Subsystem: "watcher",
		Name:      "open_orders",
		Help:      "Orders in CREATED status at the last scan",
	}, []string{"chain"})

	// Filler
	FillerFills = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ilayer",
		Subsystem: "filler",
		Name:      "fills_total",
		Help:      "Fill attempts by result (filled, failed, duplicate, skipped)",
	}, []string{"chain", "result"})

	FillerCooldownOrders = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ilayer",
		Subsystem: "filler",
		Name:      "cooldown_orders",
		Help:      "Orders tracked by the failed-fill cooldown, expired ones included",
	}, []string{"chain"})

	// API
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ilayer",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Query server requests by route and status code",
	}, []string{"method", "route", "status"})

	// Supervisor
	ServiceRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ilayer",
		Subsystem: "supervisor",
		Name:      "service_restarts_total",
		Help:      "Service runs that ended with an error",
	}, []string{"chain", "service"})
)

// Fill results.
const (
	FillResultFilled    = "filled"
	FillResultFailed    = "failed"
	FillResultDuplicate = "duplicate"
	FillResultSkipped   = "skipped"
)
