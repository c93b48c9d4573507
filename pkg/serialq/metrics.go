package serialq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "goods_market",
		Subsystem: "serialq",
		Name:      "depth",
		Help:      "Number of operations waiting in the queue.",
	}, []string{"queue"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "goods_market",
		Subsystem: "serialq",
		Name:      "operation_duration_seconds",
		Help:      "Execution time of queued operations.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"queue", "operation"})

	queueRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goods_market",
		Subsystem: "serialq",
		Name:      "rejected_total",
		Help:      "Submissions rejected because the queue was full or closed.",
	}, []string{"queue", "reason"})

	slowOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goods_market",
		Subsystem: "serialq",
		Name:      "slow_operations_total",
		Help:      "Operations that exceeded the slow threshold.",
	}, []string{"queue"})
)
