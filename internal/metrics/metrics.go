package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deniedpage_requests_total",
			Help: "Requests served, by endpoint and status class",
		},
		[]string{"endpoint", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deniedpage_request_duration_seconds",
			Help:    "Latency of API endpoints",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"endpoint"},
	)
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deniedpage_userdetails_cache_hits_total",
			Help: "Combined-response cache hits",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deniedpage_userdetails_cache_misses_total",
			Help: "Combined-response cache misses",
		},
	)
	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deniedpage_upstream_errors_total",
			Help: "Upstream call failures, by target",
		},
		[]string{"target"},
	)
	IdentityRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deniedpage_identity_retries_total",
			Help: "Identity fetches retried after a malformed response",
		},
	)
	BuildInfo = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "deniedpage_build_info",
			Help:        "Build info gauge with const labels",
			ConstLabels: prometheus.Labels{"version": "0.1.0"},
		},
	)
)

func MustRegister() {
	prometheus.MustRegister(Requests, RequestDuration, CacheHits, CacheMisses, UpstreamErrors, IdentityRetries, BuildInfo)
}
