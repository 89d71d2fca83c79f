package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-sessiongate/internal/adapters/principaljwt"
	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	authmocks "github.com/target/mmk-sessiongate/internal/mocks/auth"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
	"github.com/target/mmk-sessiongate/internal/service"
)

const (
	testHost   = "app.example.com"
	testOrigin = "https://app.example.com"

	testAccessToken  = "access-token-0123456789"
	testRefreshToken = "refresh-token-0123456789"
	testDeviceToken  = "device-token-0123456789"

	testPrincipalKey = "principal-signing-key-0123456789abcdef"
)

// testEnv is a fully wired router backed by in-memory doubles.
type testEnv struct {
	handler    http.Handler
	cookies    *service.CookieManager
	identity   *service.IdentityService
	provider   *authmocks.FakeIdentityProvider
	principals *authmocks.MemoryPrincipalStore
	events     *authmocks.MemorySecurityEventStore
	registry   *prometheus.Registry
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, mutate ...func(*RouterServices)) *testEnv {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.NewAuth(reg)
	logger := discardLogger()

	provider := authmocks.NewFakeIdentityProvider()
	principals := authmocks.NewMemoryPrincipalStore()
	events := authmocks.NewMemorySecurityEventStore()

	cookies := service.NewCookieManager(service.CookieManagerOptions{
		BaseDomain:         "example.com",
		Secure:             true,
		ProviderCookieName: provider.CookieName(),
	})
	guard := service.NewCSRFGuard(service.CSRFGuardOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
		BaseDomain:     "example.com",
		Secure:         true,
		Logger:         logger,
		Recorder:       events,
		Metrics:        m,
	})
	verifier, err := principaljwt.NewVerifier(principaljwt.Config{Key: []byte(testPrincipalKey)})
	require.NoError(t, err)
	sessions, err := service.NewSessionService(service.SessionServiceOptions{
		Cookies:    cookies,
		Principals: principals,
		Verifier:   verifier,
		Events:     events,
		Metrics:    m,
		Logger:     logger,
	})
	require.NoError(t, err)
	coordinator, err := service.NewLogoutCoordinator(service.LogoutCoordinatorOptions{
		Cookies:        cookies,
		Provider:       provider,
		Principals:     principals,
		Events:         events,
		Metrics:        m,
		Logger:         logger,
		SignOutTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	identity := service.NewIdentityService(service.IdentityServiceOptions{
		Provider:   provider,
		Claims:     authmocks.StaticClaimMapper{},
		Principals: principals,
		Events:     events,
		Metrics:    m,
		Logger:     logger,
	})

	services := RouterServices{
		Session: &SessionHandlers{
			Sessions:    sessions,
			Coordinator: coordinator,
			CSRF:        guard,
			Cookies:     cookies,
			Identity:    identity,
			Logger:      logger,
		},
		Guard:       guard,
		Admin:       &AdminGuard{Identity: identity, Cookies: cookies},
		Events:      events,
		EventPruner: events,
		Metrics:     m,
		Logger:      logger,
	}
	for _, fn := range mutate {
		fn(&services)
	}

	return &testEnv{
		handler:    NewRouter(services),
		cookies:    cookies,
		identity:   identity,
		provider:   provider,
		principals: principals,
		events:     events,
		registry:   reg,
	}
}

// signPrincipal mints a principal token the way the first-party login backend does.
func signPrincipal(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Minute).Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

// request builds a request against testHost. origin is sent only when non-empty.
func newRequest(method, target, origin, body string) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Host = testHost
	req.RemoteAddr = "203.0.113.10:54321"
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func serveHandler(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func withSessionCookies(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: domainauth.AccessCookieName, Value: testAccessToken})
	req.AddCookie(&http.Cookie{Name: domainauth.RefreshCookieName, Value: testRefreshToken})
	req.AddCookie(&http.Cookie{Name: domainauth.DeviceCookieName, Value: testDeviceToken})
	return req
}

func responseCookies(rec *httptest.ResponseRecorder) []*http.Cookie {
	resp := rec.Result()
	defer func() { _ = resp.Body.Close() }()
	return resp.Cookies()
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// failingBody fails the test if anything reads it.
type failingBody struct{ t *testing.T }

func (b failingBody) Read([]byte) (int, error) {
	b.t.Error("request body must not be read")
	return 0, io.EOF
}
