// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route template and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ppcp_http_requests_total",
			Help: "Total HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ppcp_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ImportRowsTotal counts imported sheet rows by result (accepted, rejected)
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ppcp_import_rows_total",
			Help: "Rows read from imported spreadsheets",
		},
		[]string{"result"},
	)

	// RestoresTotal counts snapshot restores by result (ok, rejected)
	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ppcp_restores_total",
			Help: "Snapshot restore attempts",
		},
		[]string{"result"},
	)

	RemoteBackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ppcp_remote_backups_total",
			Help: "Snapshot uploads to remote storage",
		},
		[]string{"result"},
	)

	PanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ppcp_http_panics_total",
			Help: "Handler panics recovered, by method",
		},
		[]string{"method"},
	)

	// EntriesGauge is the size of the collection after the last write
	EntriesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ppcp_entries",
			Help: "Number of entries in the collection",
		},
	)
)

// Result labels
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultOK       = "ok"
	ResultFailed   = "failed"
)
