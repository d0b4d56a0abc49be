package http

import (
	"io"
	"net/http"

	"github.com/atinyakov/GateKeeper/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the user API.
//
// Routes:
//
//	GET    /users               → userHandler.List
//	POST   /users/register      → userHandler.Register      (JSON only)
//	POST   /users/authenticate  → userHandler.Authenticate  (JSON only)
//	POST   /users/is-pw-leaked  → userHandler.IsPasswordLeaked
//	DELETE /users/{username}    → userHandler.Delete
//	GET    /metrics             → Prometheus metrics from gatherer
//	GET    /healthz             → liveness probe
//
// Middleware chain (applied in order):
//  1. Recoverer                   — turns panics into 500s
//  2. WithRequestLogging(logger)  — request ID and access log
func NewRouter(
	userHandler *UserHandler,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/users", func(r chi.Router) {
		r.Method(http.MethodGet, "/", endpoint(userHandler.List))
		r.Method(http.MethodPost, "/is-pw-leaked", endpoint(userHandler.IsPasswordLeaked))
		r.Method(http.MethodDelete, "/{username}", endpoint(userHandler.Delete))

		// User bodies must be JSON
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Method(http.MethodPost, "/register", endpoint(userHandler.Register))
			r.Method(http.MethodPost, "/authenticate", endpoint(userHandler.Authenticate))
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})

	return r
}
