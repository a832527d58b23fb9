package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by route pattern, method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantreco_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration tracks request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plantreco_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// PredictionsTotal counts prediction requests by outcome.
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantreco_predictions_total",
			Help: "Total number of plant predictions",
		},
		[]string{"outcome"},
	)

	// FeedbackTotal counts feedback submissions by outcome.
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantreco_feedback_total",
			Help: "Total number of feedback submissions",
		},
		[]string{"outcome"},
	)

	// DiagnosticsTotal counts diagnostics by resulting diagnosis.
	DiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantreco_diagnostics_total",
			Help: "Total number of symptom diagnostics",
		},
		[]string{"diagnostic"},
	)
)

// Outcome label values.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)
