// Package adminhttp implements the diagnostic-only HTTP surface described
// in SPEC_FULL.md Module Additions A and B: /healthz and /metrics for the
// coordinator and each storage node. It never participates in the framed
// binary wire protocol and carries no authentication — it exposes no file
// contents or ACLs, only liveness and counters.
//
// Grounded on the teacher's pkg/controlplane/api/router.go: chi router,
// RequestID/RealIP/Recoverer/Timeout middleware stack, and a custom
// request-logging middleware built on internal/log instead of the
// teacher's internal/logger.
package adminhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opendocstore/docstore/internal/log"
)

// AliveFunc reports whether the owning process is healthy enough to serve
// /healthz with 200. Both the coordinator and the storage node binaries
// pass a func that always returns true, so /healthz answers 200 whenever
// the HTTP server is up.
type AliveFunc func() bool

// NewRouter builds the chi router for one diagnostic HTTP surface. reg is
// the Prometheus registry to expose at /metrics — callers pass
// metrics.Coordinator.Registry() or metrics.Storage.Registry().
func NewRouter(component string, alive AliveFunc, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(component))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if alive != nil && !alive() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/healthz", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs every diagnostic request at DEBUG — this surface is
// polled continuously by operators/monitoring and shouldn't pollute the
// file-backed logs mandated by spec.md §6 at INFO.
func requestLogger(component string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Debug("admin request",
				"component", component,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).String(),
			)
		})
	}
}
