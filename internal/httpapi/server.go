// Package httpapi serves the evaluation ingestion endpoint. It is the
// transport slice for clients that report response evaluations over
// HTTP instead of linking the library.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/driftsignal/bedrockobs/internal/sink"
	"github.com/driftsignal/bedrockobs/pkg/bedrockobs"
)

// Server bundles the built router with the configured port; the binary
// owns the http.Server and its shutdown.
type Server struct {
	Router *chi.Mux
	Port   int
}

// New builds the router with its middleware chain and routes.
func New(port int, appName string, target sink.Sink, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(TraceIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "evald")
	})

	h := &evaluationHandler{
		registry: bedrockobs.NewCollectorRegistry(appName, target),
		logger:   logger,
	}
	r.Post("/v1/evaluations", h.create)
	r.Get("/healthz", healthz)

	return &Server{Router: r, Port: port}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
