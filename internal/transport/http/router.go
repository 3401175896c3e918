// Package httptransport assembles the service's HTTP surface: the session
// API under /api/v1, health probes and the Prometheus scrape endpoint.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Manoelfg123/wpp-ohi/internal/platform/health"
	"github.com/Manoelfg123/wpp-ohi/internal/platform/middleware"
	sessionhandler "github.com/Manoelfg123/wpp-ohi/internal/session/handler"
)

// Config carries the transport-level knobs.
type Config struct {
	// APIKey guards the /api/v1 routes. Empty disables authentication.
	APIKey string

	// RequestTimeout bounds handler execution. Zero means 30s.
	RequestTimeout time.Duration
}

// NewRouter wires the full endpoint set. Health and metrics stay outside
// the API key guard so probes and scrapers need no credentials.
func NewRouter(sessions *sessionhandler.Handler, healthHandler *health.Handler, cfg Config, logger *slog.Logger) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(timeout))

	healthHandler.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.APIKey(cfg.APIKey))
		sessions.Register(api)
	})

	return r
}
