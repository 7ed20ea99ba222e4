package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chemstore_store_operations_total",
			Help: "Total number of data-access operations by verb and outcome.",
		},
		[]string{"verb", "table", "status"},
	)

	storeOperationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chemstore_store_operation_duration_seconds",
			Help:    "Data-access operation latency by verb.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"verb"},
	)

	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chemstore_auth_attempts_total",
			Help: "Total number of login verifications by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(storeOperationsTotal, storeOperationDurationSeconds, authAttemptsTotal)
}

func ObserveStoreOperation(verb, table, status string, duration time.Duration) {
	storeOperationsTotal.WithLabelValues(verb, table, status).Inc()
	storeOperationDurationSeconds.WithLabelValues(verb).Observe(duration.Seconds())
}

func ObserveAuthAttempt(outcome string) {
	authAttemptsTotal.WithLabelValues(outcome).Inc()
}
