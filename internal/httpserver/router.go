// Package httpserver wires the proxy's HTTP surface: the /manifest
// and /segment rewrite endpoints, /health, and /metrics, behind the
// canonical chi middleware stack (recovery, request logging, CORS,
// per-IP rate limiting).
package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/ManuGH/hlsgate/internal/log"
	"github.com/ManuGH/hlsgate/internal/metrics"
)

// Dependencies bundles every collaborator a handler needs, decoupling
// the router from how each is constructed.
type Dependencies struct {
	ServerBase     string
	ServiceName    string
	SigningKey     Signer
	Fetcher        Fetcher
	InitCache      InitSegmentCache
	Version        string
	CORSOrigin     string
	RateLimitRPS   int
	RateLimitBurst int
}

// NewRouter builds the full chi router for the proxy.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.StripSlashes)
	r.Use(chimw.Recoverer)
	r.Use(OTelHTTP(serviceNameOrDefault(deps.ServiceName)))
	r.Use(log.Middleware())
	r.Use(requestMetrics)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{originOrWildcard(deps.CORSOrigin)},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	}))

	if deps.RateLimitRPS > 0 {
		burst := deps.RateLimitBurst
		if burst <= 0 {
			burst = deps.RateLimitRPS
		}
		r.Use(httprate.Limit(burst, time.Second, httprate.WithKeyFuncs(httprate.KeyByIP)))
	}

	h := &Handlers{deps: deps}

	r.Get("/manifest", h.Manifest)
	r.Get("/segment", h.Segment)
	r.Get("/segment.{ext}", h.Segment)
	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())

	return r
}

// requestMetrics records per-route request latency, labeled by the
// matched chi route pattern and the response status class.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		status := fmt.Sprintf("%dxx", ww.Status()/100)
		metrics.RequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
	})
}

func originOrWildcard(origin string) string {
	if origin == "" {
		return "*"
	}
	return origin
}

func serviceNameOrDefault(name string) string {
	if name == "" {
		return "hlsgate"
	}
	return name
}
