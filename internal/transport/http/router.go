// Package httptransport assembles the public router. Endpoint logic lives
// in the per-module handler packages; this layer only stacks middleware and
// mounts them.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mediationhandler "privacygate/internal/mediation/handler"
	"privacygate/internal/platform/middleware"
)

// NewRouter wires the mediation endpoints plus the operational surface.
func NewRouter(h *mediationhandler.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.BearerToken)

	r.Route("/v1", h.Register)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
