package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestTotal counts HTTP requests by method, route and status.
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetlink_relay_requests_total",
			Help: "Total number of relay HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// requestDuration is the latency of relay requests, upstream time included.
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheetlink_relay_request_duration_seconds",
			Help:    "Relay request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// upstreamErrors counts failed Databricks calls by route and kind
	// (remote, transport, statement).
	upstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetlink_relay_upstream_errors_total",
			Help: "Total number of failed upstream Databricks calls",
		},
		[]string{"route", "kind"},
	)
	rowsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sheetlink_relay_rows_returned",
			Help:    "Rows returned per tabular response",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)
