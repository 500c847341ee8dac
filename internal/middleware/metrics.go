package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"hpdash/internal/infrastructure"
)

// RequestMetricsMiddleware records request count and latency on the
// application's OpenTelemetry instruments.
func RequestMetricsMiddleware(metrics *infrastructure.RequestMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("path", r.URL.Path),
				attribute.Int("status", ww.Status()),
			)
			metrics.RequestsTotal.Add(r.Context(), 1, attrs)
			metrics.RequestDuration.Record(r.Context(), time.Since(start).Seconds(), attrs)
		})
	}
}
