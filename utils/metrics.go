package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReqCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "planner_request_duration_seconds",
			Help: "Request duration seconds",
		},
		[]string{"method", "path"},
	)

	ErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_errors_total",
			Help: "Total app errors",
		},
		[]string{"handler", "type"},
	)

	SyncPushCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_sync_pushes_total",
			Help: "Partial field updates pushed to the document store",
		},
		[]string{"field", "result"},
	)

	SnapshotCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "planner_snapshots_applied_total",
			Help: "Remote snapshots applied to session state",
		},
	)

	DegradedCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "planner_sync_degraded_total",
			Help: "Transitions into the degraded permission state",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(ReqCount, ReqDuration, ErrorCount,
		SyncPushCount, SnapshotCount, DegradedCount)
}
