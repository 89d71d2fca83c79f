package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/target/mmk-sessiongate/config"
	"github.com/target/mmk-sessiongate/internal/adapters/principaljwt"
	"github.com/target/mmk-sessiongate/internal/adapters/reaper"
	redisadapter "github.com/target/mmk-sessiongate/internal/adapters/redis"
	"github.com/target/mmk-sessiongate/internal/data"
	httpx "github.com/target/mmk-sessiongate/internal/http"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
	"github.com/target/mmk-sessiongate/internal/ports"
	"github.com/target/mmk-sessiongate/internal/service"
)

// ObservabilityContainer holds the metrics registry and collectors.
type ObservabilityContainer struct {
	Registry *prometheus.Registry
	Auth     *metrics.Auth
	Reaper   *metrics.Reaper
	Handler  http.Handler // nil when the metrics endpoint is disabled
}

func buildObservability(cfg config.ObservabilityConfig) ObservabilityContainer {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obs := ObservabilityContainer{
		Registry: reg,
		Auth:     metrics.NewAuth(reg),
		Reaper:   metrics.NewReaper(reg),
	}
	if cfg.Metrics.IsEnabled() {
		obs.Handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	return obs
}

// ServiceContainer holds the wired session services.
type ServiceContainer struct {
	Cookies  *service.CookieManager
	CSRF     *service.CSRFGuard
	Sessions *service.SessionService
	Logout   *service.LogoutCoordinator
	Identity *service.IdentityService
	Provider ports.IdentityProvider

	// Events is nil when the audit database is disabled.
	Events *data.SecurityEventRepo

	Observability ObservabilityContainer
}

// ServiceDeps contains the infrastructure NewServices wires against.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB               // Optional: nil disables the audit log
	RedisClient redis.UniversalClient // Optional: nil disables principal snapshots
	Logger      *slog.Logger

	// Provider overrides the configured identity provider.
	Provider ports.IdentityProvider
}

// NewServices builds every session service from configuration.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	obs := buildObservability(cfg.Observability)

	provider := deps.Provider
	if provider == nil {
		var err error
		provider, err = BuildIdentityProvider(ctx, ProviderConfig{
			Auth:    cfg.Auth,
			Metrics: obs.Auth,
			Logger:  logger,
		})
		if err != nil {
			return ServiceContainer{}, err
		}
	}

	claims, err := BuildClaimMapper(cfg.Auth.Claims)
	if err != nil {
		return ServiceContainer{}, err
	}

	// Interface values stay nil unless the backing store exists.
	var (
		eventRepo  *data.SecurityEventRepo
		events     ports.SecurityEventRecorder
		principals ports.PrincipalStore
	)
	if deps.DB != nil {
		eventRepo = data.NewSecurityEventRepo(deps.DB, data.SecurityEventRepoOptions{
			BatchSize: cfg.Reaper.BatchSize,
		})
		events = eventRepo
	}
	if deps.RedisClient != nil {
		principals = redisadapter.NewPrincipalStoreWithPrefix(deps.RedisClient, cfg.Redis.KeyPrefix)
	}

	var verifier ports.PrincipalVerifier
	if key := cfg.Session.PrincipalSigningKey; key != "" {
		v, err := principaljwt.NewVerifier(principaljwt.Config{
			Key:    []byte(key),
			Issuer: cfg.Session.PrincipalIssuer,
			Leeway: 30 * time.Second,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("principal verifier: %w", err)
		}
		verifier = v
	}

	secure := cfg.IsProduction()
	cookies := service.NewCookieManager(service.CookieManagerOptions{
		BaseDomain:         cfg.Session.BaseDomain,
		Secure:             secure,
		ProviderCookieName: provider.CookieName(),
	})
	csrf := service.NewCSRFGuard(service.CSRFGuardOptions{
		AllowedOrigins: cfg.Session.AllowedOrigins,
		BaseDomain:     cfg.Session.BaseDomain,
		Secure:         secure,
		Logger:         logger,
		Recorder:       events,
		Metrics:        obs.Auth,
		AuditRate:      rate.Limit(cfg.Session.CSRFAuditRate),
		AuditBurst:     cfg.Session.CSRFAuditBurst,
	})
	sessions, err := service.NewSessionService(service.SessionServiceOptions{
		Cookies:    cookies,
		Principals: principals,
		Verifier:   verifier,
		Events:     events,
		Metrics:    obs.Auth,
		Logger:     logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("session service: %w", err)
	}
	logout, err := service.NewLogoutCoordinator(service.LogoutCoordinatorOptions{
		Cookies:        cookies,
		Provider:       provider,
		Principals:     principals,
		Events:         events,
		Metrics:        obs.Auth,
		Logger:         logger,
		SignOutTimeout: cfg.Auth.Provider.SignOutTimeout,

		ProviderIssuesAccessToken: cfg.Auth.Provider.IssuesAccessToken,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("logout coordinator: %w", err)
	}
	identity := service.NewIdentityService(service.IdentityServiceOptions{
		Provider:   provider,
		Claims:     claims,
		Principals: principals,
		Events:     events,
		Metrics:    obs.Auth,
		Logger:     logger,
		Timeout:    cfg.Auth.Provider.LookupTimeout,

		ProviderIssuesAccessToken: cfg.Auth.Provider.IssuesAccessToken,
	})

	return ServiceContainer{
		Cookies:       cookies,
		CSRF:          csrf,
		Sessions:      sessions,
		Logout:        logout,
		Identity:      identity,
		Provider:      provider,
		Events:        eventRepo,
		Observability: obs,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

func launchBackground(deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if !deps.enabledServices[descriptor.mode] {
		return nil
	}

	ctx := deps.ctx
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			runner, err := reaper.NewRunner(reaper.RunnerOptions{
				DB:      deps.cfg.DB,
				Config:  deps.cfg.Config.Reaper,
				Logger:  deps.logger,
				Metrics: deps.cfg.Services.Observability.Reaper,
			})
			if err != nil {
				return err
			}
			return runner.Run(ctx)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	return []backgroundService{
		newReaperBackgroundService(deps),
	}
}

// serviceStartupResult holds the results of starting all services.
type serviceStartupResult struct {
	httpServer *http.Server
	background []backgroundServiceHandle
}

func startServices(deps *serviceStartupDeps) serviceStartupResult {
	var res serviceStartupResult

	if deps.enabledServices[config.ServiceModeHTTP] {
		limiter := newRateLimiter(deps.cfg.Config.HTTP, deps.cfg.Services.Observability.Auth, deps.logger)
		if limiter != nil {
			done := make(chan struct{})
			go func() {
				defer close(done)
				limiter.Run(deps.ctx)
			}()
			res.background = append(res.background, backgroundServiceHandle{name: "rate limiter", done: done})
		}
		res.httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:      deps.cfg.Config,
			Services:    deps.cfg.Services,
			DB:          deps.cfg.DB,
			RedisClient: deps.cfg.RedisClient,
			RateLimiter: limiter,
			Logger:      deps.logger,
			ErrCh:       deps.errCh,
		})
	}

	for _, svc := range buildBackgroundServices(deps) {
		if done := launchBackground(deps, svc); done != nil {
			res.background = append(res.background, backgroundServiceHandle{name: svc.name, done: done})
		}
	}
	return res
}

func newRateLimiter(cfg config.HTTPConfig, m *metrics.Auth, logger *slog.Logger) *httpx.RateLimiter {
	return httpx.NewRateLimiter(httpx.RateLimitOptions{
		RPS:               cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Metrics:           m,
		Logger:            logger,
	})
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, errorChannelBufferSize(enabledServices))
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return waitForShutdown(shutdownConfig{
		quit:        quit,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.httpServer,
		logger:      logger,
		backgrounds: result.background,
		wait:        shutdownWaitTimeout,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	quit        <-chan os.Signal
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
	wait        time.Duration
}

// waitForShutdown waits for a shutdown signal or a service error.
func waitForShutdown(cfg shutdownConfig) error {
	select {
	case sig := <-cfg.quit:
		cfg.logger.Info("shutting down services", "signal", sig.String())
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop drains the HTTP server, then waits for background services.
// The service context is already cancelled here, so shutdown gets a fresh one.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.wait)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.wait, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, timeout time.Duration, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(timeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
