package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonal_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tonal_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonal_cache_lookups_total",
			Help: "Result cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonal_provider_calls_total",
			Help: "Completion provider calls by pass and outcome",
		},
		[]string{"pass", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tonal_provider_latency_seconds",
			Help:    "Completion provider latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"pass"},
	)

	SecondPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonal_second_pass_total",
			Help: "Conciseness second passes by outcome (accepted, truncated, failed)",
		},
		[]string{"outcome"},
	)

	CoalescedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tonal_coalesced_requests_total",
			Help: "Requests that shared an in-flight generation for the same fingerprint",
		},
	)
)
