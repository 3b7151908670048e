package services

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/yigit/registrar/internal/pkg/apperrors"
)

var (
	// operationTotal counts engine operations.
	// Labels: operation (enroll, drop, add_prerequisite, ...), result (ok or error kind)
	operationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registrar",
		Subsystem: "engine",
		Name:      "operations_total",
		Help:      "Total engine operations by outcome",
	}, []string{"operation", "result"})

	// operationLatency measures engine operation latency.
	// Labels: operation
	operationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "registrar",
		Subsystem: "engine",
		Name:      "operation_duration_seconds",
		Help:      "Engine operation latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation"})

	// txRetries counts serializable transactions replayed after a serialization failure.
	txRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "registrar",
		Subsystem: "store",
		Name:      "transaction_retries_total",
		Help:      "Total transaction replays after serialization failures",
	})

	// bulkItems counts per-student outcomes of bulk enrollment.
	// Labels: result
	bulkItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registrar",
		Subsystem: "engine",
		Name:      "bulk_enroll_items_total",
		Help:      "Total bulk enrollment items by outcome",
	}, []string{"result"})
)

// RecordTxRetry counts one replayed transaction
func RecordTxRetry() {
	txRetries.Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(apperrors.KindOf(err)))
}

func observe(operation string, start time.Time, err error) {
	operationTotal.WithLabelValues(operation, resultLabel(err)).Inc()
	operationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
