package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-sessiongate/config"
	httpx "github.com/target/mmk-sessiongate/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB               // Optional: adds a readiness check
	RedisClient redis.UniversalClient // Optional: adds a readiness check
	RateLimiter *httpx.RateLimiter    // Optional
	Logger      *slog.Logger
	ErrCh       chan<- error // Optional: receives a listen failure
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := buildHTTPHandler(httpHandlerConfig{
		Logger:   logger,
		Services: routerServices(cfg, appCfg, logger),
	})

	return startServer(logger, handler, appCfg.HTTP.Addr, cfg.ErrCh)
}

func routerServices(cfg *HTTPServerConfig, appCfg *config.AppConfig, logger *slog.Logger) httpx.RouterServices {
	svc := cfg.Services
	trust := appCfg.HTTP.TrustProxyHeaders

	rs := httpx.RouterServices{
		Session: &httpx.SessionHandlers{
			Sessions:          svc.Sessions,
			Coordinator:       svc.Logout,
			CSRF:              svc.CSRF,
			Cookies:           svc.Cookies,
			Identity:          svc.Identity,
			TrustProxyHeaders: trust,
			Logger:            logger,
		},
		Guard: svc.CSRF,
		Admin: &httpx.AdminGuard{
			Identity:          svc.Identity,
			Cookies:           svc.Cookies,
			TrustProxyHeaders: trust,
			Logger:            logger,
		},
		Readiness:         readinessChecks(cfg.DB, cfg.RedisClient),
		RateLimiter:       cfg.RateLimiter,
		Metrics:           svc.Observability.Auth,
		MetricsHandler:    svc.Observability.Handler,
		MetricsPath:       appCfg.Observability.Metrics.Path,
		TrustProxyHeaders: trust,
		Logger:            logger,
	}
	// Assigning a nil *SecurityEventRepo would make a non-nil interface.
	if svc.Events != nil {
		rs.Events = svc.Events
		rs.EventPruner = svc.Events
	}
	return rs
}

func readinessChecks(db *sql.DB, rdb redis.UniversalClient) []httpx.ReadinessCheck {
	var checks []httpx.ReadinessCheck
	if db != nil {
		checks = append(checks, httpx.ReadinessCheck{Name: "postgres", Check: db.PingContext})
	}
	if rdb != nil {
		checks = append(checks, httpx.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}

type httpHandlerConfig struct {
	Logger   *slog.Logger
	Services httpx.RouterServices
}

// buildHTTPHandler wraps the router. Order: Recover -> Logging -> Router.
func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	h := httpx.NewRouter(cfg.Services)
	h = httpx.Logging(cfg.Logger)(h)
	h = httpx.Recover(cfg.Logger)(h)
	return h
}

func startServer(logger *slog.Logger, handler http.Handler, addr string, errCh chan<- error) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			if errCh != nil {
				select {
				case errCh <- fmt.Errorf("http server: %w", err):
				default:
				}
			}
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
