package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Token lifecycle
	TokenRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portchart_token_rotations_total",
			Help: "Token rotation attempts by outcome",
		},
		[]string{"outcome"}, // skipped, still_valid, generated, backup, failed
	)

	TokenInitializations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portchart_token_initializations_total",
			Help: "Token initializations from client credentials by result",
		},
		[]string{"result"}, // success, error
	)

	TokenValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portchart_token_validations_total",
			Help: "Token validation probes by result",
		},
		[]string{"result"}, // valid, invalid
	)

	TokenLastRotation = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portchart_token_last_rotation_timestamp_seconds",
			Help: "Unix time of the last successful rotation or initialization",
		},
	)

	// Upstream Port API
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portchart_upstream_requests_total",
			Help: "Requests sent to the Port API by operation and status code",
		},
		[]string{"operation", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portchart_upstream_request_duration_seconds",
			Help:    "Port API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	UpstreamAuthRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portchart_upstream_auth_retries_total",
			Help: "Requests retried after a 401/403 triggered token rotation",
		},
	)

	// Dashboard HTTP API
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portchart_http_requests_total",
			Help: "Dashboard API requests by route, method and status code",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portchart_http_request_duration_seconds",
			Help:    "Dashboard API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
