package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	_metricPrefix   = "lumen_remote.http."
	_unmatchedRoute = "unmatched"
)

// requestMetrics labels every request with the ServeMux pattern that
// serves it, so path values never leak into metric cardinality.
type requestMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	active   metric.Int64UpDownCounter
}

func newRequestMetrics(meter metric.Meter) *requestMetrics {
	fallback := noop.NewMeterProvider().Meter("")
	m := &requestMetrics{}

	var err error
	if m.duration, err = meter.Float64Histogram(_metricPrefix+"request.duration.seconds",
		metric.WithDescription("Status server request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1),
	); err != nil {
		slog.Warn("http duration histogram unavailable", slog.Any("error", err))
		m.duration, _ = fallback.Float64Histogram("")
	}
	if m.total, err = meter.Int64Counter(_metricPrefix+"requests.total",
		metric.WithDescription("Status server requests by route and status"),
	); err != nil {
		slog.Warn("http request counter unavailable", slog.Any("error", err))
		m.total, _ = fallback.Int64Counter("")
	}
	if m.active, err = meter.Int64UpDownCounter(_metricPrefix+"requests.active",
		metric.WithDescription("Status server requests in flight"),
	); err != nil {
		slog.Warn("http in-flight counter unavailable", slog.Any("error", err))
		m.active, _ = fallback.Int64UpDownCounter("")
	}
	return m
}

// routeOf resolves the pattern routes would dispatch r to.
func routeOf(routes *http.ServeMux, r *http.Request) string {
	if _, pattern := routes.Handler(r); pattern != "" {
		return pattern
	}
	return _unmatchedRoute
}

func (m *requestMetrics) middleware(routes *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			route := attribute.String("http.route", routeOf(routes, r))
			inFlight := metric.WithAttributes(route)

			m.active.Add(r.Context(), 1, inFlight)
			defer m.active.Add(r.Context(), -1, inFlight)

			wrapped := &statusCodeResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			done := metric.WithAttributes(
				route,
				attribute.String("http.method", r.Method),
				attribute.Int("http.status_code", wrapped.statusCode),
			)
			m.duration.Record(r.Context(), time.Since(started).Seconds(), done)
			m.total.Add(r.Context(), 1, done)
		})
	}
}
