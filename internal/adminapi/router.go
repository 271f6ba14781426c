// Package adminapi is the read-only HTTP surface operators use to watch
// a session while it runs: health, Prometheus metrics, order book
// snapshots, and per-client ledger state. It never accepts an order —
// that only ever arrives over the transport (spec.md §6).
package adminapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nutc-exchange/core/internal/engine"
	"github.com/nutc-exchange/core/internal/ledger"
)

// NewRouter creates a chi router with all admin routes registered,
// mirroring the teacher's handler.NewRouter — request logging middleware,
// then one handler per resource.
func NewRouter(registry *engine.Registry, l *ledger.Ledger, metricsReg prometheus.Gatherer, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogging(logger))

	bookH := NewBookHandler(registry)
	clientH := NewClientHandler(l)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))
	r.Get("/tickers/{ticker}/book", bookH.Get)
	r.Get("/clients/{client_id}", clientH.Get)

	return r
}

// requestLogging mirrors the teacher's handler.requestLogging middleware.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("admin request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
