// Package httpx exposes the session endpoints and their middleware over net/http.
package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/mmk-sessiongate/internal/observability/metrics"
	"github.com/target/mmk-sessiongate/internal/service"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Session *SessionHandlers   // Required
	Guard   *service.CSRFGuard // Required: Origin check on every state-changing request

	// Optional: the admin audit endpoints are only mounted when Admin and
	// Events are set; DELETE additionally needs EventPruner.
	Admin       *AdminGuard
	Events      SecurityEventLister
	EventPruner service.EventPruner

	Readiness   []ReadinessCheck // Optional: dependencies reported by /readyz
	RateLimiter *RateLimiter     // Optional: nil disables rate limiting
	Metrics     *metrics.Auth    // Optional

	// Optional: served at MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string

	TrustProxyHeaders bool
	Logger            *slog.Logger
}

// NewRouter creates and configures the HTTP router. The Origin check wraps the
// whole mux so no state-changing route can be added without it.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.Readiness))

	registerSessionRoutes(mux, services)
	registerAdminRoutes(mux, services)

	if services.MetricsHandler != nil && services.MetricsPath != "" {
		mux.Handle("GET "+services.MetricsPath, services.MetricsHandler)
	}

	return chain(mux,
		Metrics(services.Metrics),
		RequireOrigin(services.Guard, services.TrustProxyHeaders),
	)
}

func registerSessionRoutes(mux *http.ServeMux, s RouterServices) {
	h := s.Session
	mux.Handle("POST /api/auth/session",
		chain(http.HandlerFunc(h.Establish), s.RateLimiter.Limit("session")))
	mux.Handle("POST /api/auth/logout",
		chain(http.HandlerFunc(h.Logout), s.RateLimiter.Limit("logout")))
	mux.Handle("GET /api/auth/device-token", http.HandlerFunc(h.DeviceToken))
	mux.Handle("GET /api/auth/csrf", http.HandlerFunc(h.CSRFToken))
	mux.Handle("GET /api/auth/me", http.HandlerFunc(h.Me))
}

func registerAdminRoutes(mux *http.ServeMux, s RouterServices) {
	if s.Admin == nil || s.Events == nil {
		return
	}
	events := &SecurityEventHandlers{Store: s.Events, Pruner: s.EventPruner, Logger: s.Logger}
	mux.Handle("GET /api/admin/security-events",
		chain(http.HandlerFunc(events.List), RequireAdmin(*s.Admin)))
	if s.EventPruner != nil {
		mux.Handle("DELETE /api/admin/security-events",
			chain(http.HandlerFunc(events.Prune), RequireSuperadmin(*s.Admin)))
	}
}
