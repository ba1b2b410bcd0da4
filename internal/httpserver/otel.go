package httpserver

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// OTelHTTP wraps the handler with OpenTelemetry HTTP instrumentation:
// one server span per proxied request, with trace context propagated to
// the upstream fetches the handler makes through the otelhttp-wrapped
// proxy client.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanNameFormatter),
		)
	}
}

// shouldTrace skips health and metrics probes to reduce noise.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/health", "/metrics":
		return false
	}
	return true
}

// spanNameFormatter creates meaningful span names without exposing
// query parameter values (the "url"/"k"/"h" parameters carry upstream
// URLs, keys, and credentials).
func spanNameFormatter(operation string, r *http.Request) string {
	route := r.URL.Path
	if r.URL.RawQuery != "" {
		return operation + " " + route + "?"
	}
	return operation + " " + route
}
