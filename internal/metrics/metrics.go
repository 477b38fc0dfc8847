// Package metrics registers the pipeline's Prometheus instruments and can
// serve them, together with pprof, on an embedded listener.
package metrics

import (
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PagesCrawled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventmind_pages_crawled_total",
		Help: "Listing pages rendered and scanned for event links.",
	})
	IdentifiersFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventmind_identifiers_found_total",
		Help: "Distinct event identifiers collected by the crawler.",
	})
	EventsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventmind_events_inserted_total",
		Help: "Event records newly persisted by the discovery phase.",
	})
	EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventmind_events_skipped_total",
		Help: "Discovered identifiers not persisted, by reason.",
	}, []string{"reason"})
	CatalogErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventmind_catalog_errors_total",
		Help: "Catalog API calls normalized to empty results, by endpoint.",
	}, []string{"endpoint"})
	StoreBusyRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventmind_store_busy_retries_total",
		Help: "Write attempts retried because the store was busy or locked.",
	})
	EnrichTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventmind_enrich_tasks_total",
		Help: "Enrichment tasks completed, by result.",
	}, []string{"result"})
)

// Serve exposes /metrics and /debug/pprof/* on addr in a background
// goroutine. An empty addr disables the listener.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
