// Package api serves the provider callback endpoint and the poison-queue
// admin API.
//
// POST /WebHook authenticates the provider, checks the status
// discriminator and queues the raw body for the relay engine. Every other
// route is a JSON admin route over the poison queue and requires the admin
// secret as Basic credentials.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/observability"
	"github.com/squideyes/esignatures/signature"
)

// DefaultMaxBodyBytes caps the size of an inbound callback body.
const DefaultMaxBodyBytes int64 = 5 << 20

// Config configures a Handler.
type Config struct {
	// Secret is the shared secret providers send as Basic credentials.
	Secret string

	// AdminSecret is the Basic credential the poison queue and stats
	// routes require. Empty means Secret.
	AdminSecret string

	// MaxBodyBytes caps inbound callback bodies. Zero means
	// DefaultMaxBodyBytes.
	MaxBodyBytes int64

	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Handler is the root HTTP handler.
type Handler struct {
	queue  delivery.Queue
	dlqSvc *dlq.Service
	config Config
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler creates a new handler. A nil dlqSvc leaves the admin routes
// answering 503.
func NewHandler(q delivery.Queue, dlqSvc *dlq.Service, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.AdminSecret == "" {
		cfg.AdminSecret = cfg.Secret
	}

	h := &Handler{
		queue:  q,
		dlqSvc: dlqSvc,
		config: cfg,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Provider callbacks
	h.mux.HandleFunc("POST /WebHook", h.receiveWebHook)

	// Poison queue
	h.mux.HandleFunc("GET /dlq", h.requireAdmin(h.requireDLQ(h.listPoison)))
	h.mux.HandleFunc("GET /dlq/{id}", h.requireAdmin(h.requireDLQ(h.getPoison)))
	h.mux.HandleFunc("POST /dlq/{id}/replay", h.requireAdmin(h.requireDLQ(h.replayPoison)))
	h.mux.HandleFunc("POST /dlq/replay", h.requireAdmin(h.requireDLQ(h.replayBulkPoison)))
	h.mux.HandleFunc("DELETE /dlq", h.requireAdmin(h.requireDLQ(h.purgePoison)))

	// Stats
	h.mux.HandleFunc("GET /stats", h.requireAdmin(h.getStats))
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.panicRecovery(h.logging(next))
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.InfoContext(r.Context(), "api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.ErrorContext(r.Context(), "panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := signature.Verify(r.Header.Get("Authorization"), h.config.AdminSecret); err != nil {
			h.logger.WarnContext(r.Context(), "admin request rejected",
				"method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", err)
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	}
}

func (h *Handler) requireDLQ(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.dlqSvc == nil {
			writeError(w, http.StatusServiceUnavailable, "poison queue not configured")
			return
		}
		next(w, r)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Response helpers.

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt returns a query parameter as int or a default value.
func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

// queryTime parses an RFC 3339 query parameter. ok is false when the
// parameter is absent.
func queryTime(r *http.Request, key string) (t time.Time, ok bool, err error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, true, err
	}
	return t, true, nil
}
