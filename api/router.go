package api

import (
	"log/slog"
	"net/http"

	"github.com/GoCodeAlone/capture/session"
)

// Version reported by the root endpoint.
const Version = "1.0.0"

// Deps groups the session-engine components the API serves.
type Deps struct {
	Allocator  *session.Allocator
	Router     *session.Router
	Reconciler *session.Reconciler
	Packager   *session.Packager
}

// Config holds configuration for the API layer.
type Config struct {
	Logger *slog.Logger

	// Metrics defaults to NoopMetrics; a *PromMetrics also mounts the
	// scrape endpoint.
	Metrics Metrics

	// UploadRatePerMinute caps upload requests per client IP.
	UploadRatePerMinute int
}

// NewRouter creates an http.Handler with all routes registered. The
// returned Middleware owns the rate-limiter cleanup goroutine; call its
// Stop on shutdown.
func NewRouter(deps Deps, cfg Config) (http.Handler, *Middleware) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	mux := http.NewServeMux()
	mw := NewMiddleware(logger, metrics)
	uploadRL := mw.RateLimit(cfg.UploadRatePerMinute)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"message": "Capture Coordinator API",
			"version": Version,
		})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	// Unmatched routes stay on the JSON envelope instead of the mux's
	// plain-text default.
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "Route not found", "")
	})

	sessH := NewSessionHandler(deps.Allocator, deps.Reconciler, deps.Packager, logger, metrics)
	mux.HandleFunc("GET /session/current", sessH.Current)
	mux.HandleFunc("POST /session/end", sessH.End)
	mux.HandleFunc("GET /session/status/{session_id}", sessH.Status)
	mux.HandleFunc("GET /session/download/{session_id}", sessH.Download)

	upH := NewUploadHandler(deps.Allocator, deps.Router, logger, metrics)
	mux.Handle("POST /upload/image", uploadRL(http.HandlerFunc(upH.Image)))
	mux.Handle("POST /upload/meta", uploadRL(http.HandlerFunc(upH.Meta)))

	if prom, ok := metrics.(*PromMetrics); ok {
		mux.Handle("GET /metrics", prom.Handler())
	}

	return mw.Instrument(mw.CORS(mux)), mw
}
