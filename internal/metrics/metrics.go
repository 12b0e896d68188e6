// Package metrics holds the Prometheus collectors exported on /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challan_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "challan_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Outcome is "success" or the apperr kind of the failure
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challan_generations_total",
			Help: "Challan generation attempts by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "challan_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	DocumentBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "challan_document_bytes",
			Help:    "Size of rendered challan PDFs",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
		},
	)

	NotificationClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "challan_notification_clients",
			Help: "Connected notification websocket clients",
		},
	)
)
