package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"lumen-remote/internal/infra/node"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	_ "net/http/pprof"
)

const (
	DefaultAddr     = ":8080"
	_shutdownWindow = 5 * time.Second
)

type Server interface {
	Run()
	Shutdown()
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

var _ Server = &StandardServer{}

type StandardServer struct {
	server *http.Server
}

func (s *StandardServer) Run() {
	slog.Info("status server listening", slog.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("status server stopped", slog.Any("error", err))
	}
}

func (s *StandardServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), _shutdownWindow)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Error("shutting down status server", slog.Any("error", err))
	}
}

// Handler exposes the fully wrapped router, mostly for tests.
func (s *StandardServer) Handler() http.Handler {
	return s.server.Handler
}

func NewServer(config ServerConfig, controllers ...Controller) *StandardServer {
	router := http.NewServeMux()

	addr := config.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	tracingMiddleware := createTracingMiddleware()
	metricsMiddleware := newRequestMetrics(otel.Meter("lumen-remote")).middleware(router)

	server := &StandardServer{
		&http.Server{
			Addr:              addr,
			ReadHeaderTimeout: _shutdownWindow,
			Handler: c.Handler(
				metricsMiddleware(
					tracingMiddleware(router),
				),
			),
		},
	}

	router.Handle("GET /healthz", getHealthz())
	router.Handle("GET /metrics", promhttp.Handler())

	for _, controller := range controllers {
		controller.AddRoutes(router)
	}

	return server
}

// createTracingMiddleware opens a server span per request, continuing any
// b3 context the caller sent.
func createTracingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			propagator := b3.New()
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			tracer := otel.Tracer("lumen-remote")
			ctx, span := tracer.Start(ctx, "http.request",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.url", r.URL.String()),
					attribute.String("http.user_agent", r.UserAgent()),
					attribute.String("http.remote_addr", r.RemoteAddr),
					attribute.String("component", "status-server"),
				),
			)
			defer span.End()

			r = r.WithContext(ctx)

			propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			wrapped := &statusCodeResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			span.SetAttributes(attribute.Int("http.status_code", wrapped.statusCode))
		})
	}
}

type statusCodeResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusCodeResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func getHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		span := GetSpanFromContext(r)
		span.SetAttributes(attribute.String("endpoint", "healthz"))

		info := node.GetNodeInfo()
		output := map[string]string{
			"status":      "success",
			"VERSION":     info.Version,
			"COMMIT_HASH": info.CommitHash,
		}
		ReplyJSONResponse(w, http.StatusOK, output)
	}
}
