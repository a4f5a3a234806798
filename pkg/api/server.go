// Package api exposes an opened dataset over a small REST surface, mainly
// for inspection and monitoring of record files in place.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/freyr-data/tfrecord/pkg/dataset"
)

// NewRouter builds the route table for a server
func NewRouter(server *Server, metrics *Metrics) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", metrics.InstrumentHandler("GET", "/healthz", server.handleHealth))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", metrics.InstrumentHandler("GET", "/api/v1/stats", server.handleStats))
		r.Get("/records/{index}", metrics.InstrumentHandler("GET", "/api/v1/records/{index}", server.handleGetRecord))
		r.Get("/records/{index}/features", metrics.InstrumentHandler("GET", "/api/v1/records/{index}/features", server.handleGetFeatures))
	})

	return r
}

// StartServer starts the HTTP server with all routes configured
func StartServer(ds *dataset.Dataset, config ServerConfig) error {
	metrics := NewMetrics()
	server := NewServer(ds, config, metrics)
	router := NewRouter(server, metrics)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	fmt.Printf("Starting tfrec REST API server on %s\n", addr)
	fmt.Printf("Metrics available at: http://%s/metrics\n", addr)
	return http.ListenAndServe(addr, router)
}
