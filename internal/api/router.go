package api

import (
	"log"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates http router.
func NewRouter(opts *Options) *chi.Mux {
	httpRouter := chi.NewRouter()

	httpRouter.Group(func(r chi.Router) {
		r.Use(middleware.CleanPath)
		r.Use(middleware.Recoverer)
		r.Method("GET", "/ready", readyHandler(opts.Broker))
		r.Method("GET", "/healthz", healthzHandler(opts.Broker, opts.Snapshots))
		r.Method("GET", "/metrics", promhttp.Handler())
	})
	httpRouter.Group(func(r chi.Router) {
		r.Use(middleware.CleanPath)
		if len(opts.AuthUsers) > 0 {
			r.Use(middleware.BasicAuth("api", opts.AuthUsers))
		} else {
			log.Printf("auth for HTTP API disabled")
		}
		r.Use(middleware.Recoverer)

		r.Mount("/debug", middleware.Profiler())

		r.Get("/api/state", stateHandler(opts.Snapshots))
		r.Get("/api/entities", entitiesHandler(opts.Registrations))
		r.Get("/api/sse", sseHandler(opts.Bus))
	})

	return httpRouter
}
