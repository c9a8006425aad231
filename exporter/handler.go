package exporter

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"metricsgate/internal/logging"
	"metricsgate/registry"
)

// MetricsPath is the only route the exporter answers.
const MetricsPath = "/metrics"

// NewHandler serves GET /metrics from h and answers everything else with an
// empty 404. Requests are handled one at a time.
func NewHandler(h *registry.Handle) http.Handler {
	r := chi.NewRouter()
	r.Use(serialize(), accessLog, middleware.Recoverer)

	r.Get(MetricsPath, metricsHandler(h))
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)
	return r
}

func serialize() func(http.Handler) http.Handler {
	var mu sync.Mutex
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			next.ServeHTTP(w, r)
		})
	}
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.L().Debug("metrics request",
			"remote", r.RemoteAddr, "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "bytes", ww.BytesWritten())
	})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}

func metricsHandler(h *registry.Handle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := h.Gather()
		if err != nil {
			logging.L().Error("metrics gather failed", "remote", r.RemoteAddr, "err", err)
			http.Error(w, "metrics unavailable", http.StatusInternalServerError)
			return
		}
		body, err := snap.Text()
		if err != nil {
			logging.L().Error("metrics render failed", "remote", r.RemoteAddr, "err", err)
			http.Error(w, "metrics unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", registry.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
