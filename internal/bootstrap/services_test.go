package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-sessiongate/config"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{name: "no services enabled", want: 0},
		{name: "http only", modes: []config.ServiceMode{config.ServiceModeHTTP}, want: 1},
		{
			name:  "http and reaper",
			modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeReaper},
			want:  2,
		},
		{name: "unknown mode ignored", modes: []config.ServiceMode{"bogus"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, m := range tt.modes {
				enabled[m] = true
			}
			assert.Equal(t, tt.want, errorChannelCapacity(enabled))
			assert.Equal(t, tt.want+1, errorChannelBufferSize(enabled))
		})
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mockAppConfig() *config.AppConfig {
	return &config.AppConfig{
		Env:      "development",
		Services: "http",
		Auth: config.AuthConfig{
			Mode: config.AuthModeMock,
			Claims: config.ClaimsConfig{
				Subject:      "sub",
				Email:        "email",
				PlatformRole: "app_metadata.platform_role",
				IsAdmin:      "app_metadata.is_admin",
				MetadataRole: "user_metadata.role",
			},
			DevAuth: config.DevAuthConfig{
				UserID:       "dev-user",
				Email:        "dev@example.com",
				PlatformRole: "admin",
				ProjectRef:   "localdev",
			},
		},
		Observability: config.ObservabilityConfig{
			Metrics: config.ObservabilityMetricsConfig{Enabled: true, Path: "/metrics"},
		},
	}
}

func TestNewServices_MockModeWithoutStores(t *testing.T) {
	cfg := mockAppConfig()

	svc, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, Logger: quietLogger()})
	require.NoError(t, err)

	assert.Nil(t, svc.Events)
	assert.Equal(t, "sb-localdev-auth-token", svc.Provider.CookieName())
	assert.False(t, svc.Cookies.Secure(), "development deployments must not set Secure")
	require.NotNil(t, svc.Observability.Handler)

	rs := routerServices(&HTTPServerConfig{Services: svc}, cfg, quietLogger())
	assert.Nil(t, rs.Events, "admin audit route must stay unmounted without a database")
	assert.Empty(t, rs.Readiness)

	handler := buildHTTPHandler(httpHandlerConfig{Logger: quietLogger(), Services: rs})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "go_goroutines")
	})

	t.Run("admin audit not mounted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/security-events", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("logout from default dev origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Result().Cookies())
	})

	t.Run("logout from foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.Header.Set("Origin", "https://evil.example.net")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestNewServices_RequiresConfig(t *testing.T) {
	_, err := NewServices(context.Background(), &ServiceDeps{})
	require.Error(t, err)
}

func TestNewServices_InvalidClaimExpression(t *testing.T) {
	cfg := mockAppConfig()
	cfg.Auth.Claims.IsAdmin = "app_metadata..is_admin"

	_, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, Logger: quietLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim mapper")
}

func TestWaitForShutdown(t *testing.T) {
	t.Run("service error cancels and waits for background", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			<-ctx.Done()
			close(done)
		}()

		errCh := make(chan error, 1)
		boom := errors.New("reaper failed")
		errCh <- boom

		err := waitForShutdown(shutdownConfig{
			quit:        make(chan os.Signal),
			cancel:      cancel,
			errCh:       errCh,
			logger:      quietLogger(),
			backgrounds: []backgroundServiceHandle{{name: "reaper", done: done}},
			wait:        time.Second,
		})
		require.ErrorIs(t, err, boom)

		select {
		case <-done:
		default:
			t.Fatal("background service was not stopped")
		}
	})

	t.Run("signal stops cleanly", func(t *testing.T) {
		_, cancel := context.WithCancel(context.Background())
		quit := make(chan os.Signal, 1)
		quit <- syscall.SIGTERM

		err := waitForShutdown(shutdownConfig{
			quit:   quit,
			cancel: cancel,
			errCh:  make(chan error),
			logger: quietLogger(),
			wait:   time.Second,
		})
		require.NoError(t, err)
	})
}

func TestGracefulStop_TimesOutOnStuckService(t *testing.T) {
	start := time.Now()
	err := gracefulStop(shutdownConfig{
		logger:      quietLogger(),
		backgrounds: []backgroundServiceHandle{{name: "stuck", done: make(chan struct{})}},
		wait:        20 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
