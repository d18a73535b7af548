package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// StatsSource reports runtime counters as JSON-friendly maps.
type StatsSource interface {
	Stats() map[string]interface{}
}

// MetricsHandler exposes the Prometheus scrape endpoint and a JSON summary
// of in-process counters.
type MetricsHandler struct {
	prometheus http.Handler
	sources    map[string]StatsSource
}

// NewMetricsHandler creates a metrics handler. prom may be nil when the
// Prometheus exporter is disabled.
func NewMetricsHandler(prom http.Handler, sources map[string]StatsSource) *MetricsHandler {
	return &MetricsHandler{prometheus: prom, sources: sources}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Scrape)
	r.Get("/stats", h.GetStats)
	return r
}

// Scrape serves the Prometheus exposition format.
func (h *MetricsHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.Error(w, "metrics exporter disabled", http.StatusNotFound)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// GetStats returns the counters of every registered source.
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]interface{}, len(h.sources))
	for name, src := range h.sources {
		out[name] = src.Stats()
	}
	respond(w, r, out)
}
