package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"securetransfer/internal/platform/middleware"
	"securetransfer/internal/ratelimit"
)

// RouterConfig carries what NewRouter mounts besides the transfer handlers.
type RouterConfig struct {
	Validator middleware.IdentityValidator
	Logger    *slog.Logger
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Ready reports dependency health for GET /health.
	Ready func() error
	// UploadLimiter throttles POST /transfers per identity when set.
	UploadLimiter *ratelimit.Limiter
}

// NewRouter wires all public endpoints. /health and /metrics are open;
// transfer routes require a bearer token.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.ClientMetadata)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(); err != nil {
				logger.Warn("health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity(cfg.Validator, logger))
		var upload []func(http.Handler) http.Handler
		if cfg.UploadLimiter != nil {
			upload = append(upload, ratelimit.Middleware(cfg.UploadLimiter, func(r *http.Request) string {
				return middleware.GetIdentity(r.Context())
			}, logger))
		}
		h.Register(r, upload...)
	})
	return r
}
