// Package metrics exposes the proxy's Prometheus instrumentation:
// request latency by route, init-segment cache hit/miss counts, and
// decryption failures by kind.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlsgate_request_duration_seconds",
		Help:    "HTTP request latency by route and status class",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})

	InitCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsgate_init_cache_hits_total",
		Help: "Init segment cache hits",
	})

	InitCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsgate_init_cache_misses_total",
		Help: "Init segment cache misses",
	})

	DecryptFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsgate_decrypt_failures_total",
		Help: "Segment decryption failures by error kind",
	}, []string{"kind"})

	UpstreamFetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsgate_upstream_fetch_failures_total",
		Help: "Upstream fetch failures by error kind",
	}, []string{"kind"})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
