// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "plst"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5},
	}, []string{"method", "path"})

	ListOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "list_operations_total",
		Help:      "Linked-list mutations by operation and result.",
	}, []string{"op", "result"})

	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "watch_connections",
		Help:      "Number of viewer connections currently registered.",
	})

	BroadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watch_broadcasts_total",
		Help:      "Total broadcasts by message.",
	}, []string{"message"})

	SendFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watch_send_failures_total",
		Help:      "Total connection sends that failed and evicted the connection.",
	})

	BarrierAdvancesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watch_barrier_advances_total",
		Help:      "Total times every viewer finished an item and the playlist advanced.",
	})

	BroadcastDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "watch_broadcast_duration_seconds",
		Help:      "Time to fan a message out to every connection of a playlist.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ListOperationsTotal,
		ActiveConnections,
		BroadcastsTotal,
		SendFailuresTotal,
		BarrierAdvancesTotal,
		BroadcastDuration,
	)
}

// ObserveListOp counts one list mutation, labelled ok or error.
func ObserveListOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ListOperationsTotal.WithLabelValues(op, result).Inc()
}
