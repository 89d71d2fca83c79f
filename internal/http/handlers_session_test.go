package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
)

func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestSessionHandlers_Establish_Success(t *testing.T) {
	env := newTestEnv(t)
	body := `{"access_token":"` + testAccessToken + `","refresh_token":"` + testRefreshToken + `"}`

	rec := env.serve(newRequest(http.MethodPost, "/api/auth/session", testOrigin, body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	cookies := responseCookies(rec)
	require.Len(t, cookies, 2)

	access := findCookie(cookies, domainauth.AccessCookieName)
	require.NotNil(t, access)
	assert.Equal(t, testAccessToken, access.Value)
	assert.Equal(t, "example.com", access.Domain)
	assert.Equal(t, "/", access.Path)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.Equal(t, int((24 * time.Hour).Seconds()), access.MaxAge)

	refresh := findCookie(cookies, domainauth.RefreshCookieName)
	require.NotNil(t, refresh)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), refresh.MaxAge)
	assert.Nil(t, findCookie(cookies, domainauth.DeviceCookieName))

	assert.Equal(t, []domainauth.SecurityEventKind{domainauth.EventSessionEstablished}, env.events.Kinds())
}

func TestSessionHandlers_Establish_HostOnlyOutsideBaseDomain(t *testing.T) {
	env := newTestEnv(t)
	req := newRequest(http.MethodPost, "/api/auth/session", testOrigin, `{"device_token":"`+testDeviceToken+`"}`)
	req.Host = "preview.internal:8080"

	rec := env.serve(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	device := findCookie(responseCookies(rec), domainauth.DeviceCookieName)
	require.NotNil(t, device)
	assert.Empty(t, device.Domain)
}

func TestSessionHandlers_Establish_StoresPrincipal(t *testing.T) {
	env := newTestEnv(t)
	principal := signPrincipal(t, testPrincipalKey, jwt.MapClaims{"sub": "u1", "platform_role": "admin"})
	body := `{"access_token":"` + testAccessToken + `","principal":"` + principal + `"}`

	rec := env.serve(newRequest(http.MethodPost, "/api/auth/session", testOrigin, body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, env.principals.Len())

	rec = env.serve(withSessionCookies(newRequest(http.MethodGet, "/api/auth/me", "", "")))
	assert.JSONEq(t, `{"authenticated":true,"is_admin":true,"is_superadmin":false}`, rec.Body.String())
}

func TestSessionHandlers_Establish_IgnoresUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	body := `{"access_token":"` + testAccessToken + `","expires_at":1767225600,"token_type":"bearer"}`

	rec := env.serve(newRequest(http.MethodPost, "/api/auth/session", testOrigin, body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, findCookie(responseCookies(rec), domainauth.AccessCookieName))
}

func TestSessionHandlers_Establish_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "empty object", body: `{}`, wantErr: "validation"},
		{name: "refresh only", body: `{"refresh_token":"` + testRefreshToken + `"}`, wantErr: "validation"},
		{name: "short access token", body: `{"access_token":"short"}`, wantErr: "validation"},
		{
			name:    "short refresh token",
			body:    `{"access_token":"` + testAccessToken + `","refresh_token":"short"}`,
			wantErr: "validation",
		},
		{name: "malformed json", body: `{"access_token":`, wantErr: "invalid_json"},
		{name: "token under an unknown name", body: `{"token":"` + testAccessToken + `"}`, wantErr: "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.serve(newRequest(http.MethodPost, "/api/auth/session", testOrigin, tt.body))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, decodeBody(t, rec.Body)["error"])
			assert.Empty(t, responseCookies(rec))
			assert.Zero(t, env.principals.Len())
		})
	}
}

func TestSessionHandlers_Establish_OriginRejected(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		wantErr string
	}{
		{name: "missing origin", origin: "", wantErr: "missing_origin"},
		{name: "foreign origin", origin: "https://evil.com", wantErr: "forbidden_origin"},
		{name: "lookalike origin", origin: "https://notexample.com", wantErr: "forbidden_origin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := newRequest(http.MethodPost, "/api/auth/session", tt.origin, "")
			req.Body = io.NopCloser(failingBody{t: t})

			rec := env.serve(req)

			require.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, tt.wantErr, decodeBody(t, rec.Body)["error"])
			assert.Empty(t, responseCookies(rec))
			assert.Equal(t, []domainauth.SecurityEventKind{domainauth.EventCSRFRejected}, env.events.Kinds())
			series, err := testutil.GatherAndCount(env.registry, "sessiongate_csrf_rejections_total")
			require.NoError(t, err)
			assert.Equal(t, 1, series)
		})
	}
}

func TestSessionHandlers_Logout(t *testing.T) {
	tests := []struct {
		name        string
		signOutErr  error
		withCookies bool
		wantSignOut []string
	}{
		{name: "remote success", withCookies: true, wantSignOut: []string{"provider-session-token"}},
		{
			name:        "remote failure still clears",
			signOutErr:  errors.New("provider unavailable"),
			withCookies: true,
			wantSignOut: []string{"provider-session-token"},
		},
		{name: "no session skips remote", withCookies: false, wantSignOut: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.provider.SignOutFunc = func(context.Context, string) error { return tt.signOutErr }

			req := newRequest(http.MethodPost, "/api/auth/logout", testOrigin, "")
			if tt.withCookies {
				withSessionCookies(req)
				req.AddCookie(&http.Cookie{Name: env.provider.CookieName(), Value: "provider-session-token"})
			}

			rec := env.serve(req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
			assert.Equal(t, tt.wantSignOut, env.provider.SignOutCalls())

			cookies := responseCookies(rec)
			require.Len(t, cookies, 10)
			for _, c := range cookies {
				assert.Negative(t, c.MaxAge, "cookie %s must be expired", c.Name)
				assert.Empty(t, c.Value)
			}
			for _, name := range []string{
				domainauth.AccessCookieName,
				domainauth.RefreshCookieName,
				domainauth.DeviceCookieName,
				env.provider.CookieName(),
			} {
				var scoped, hostOnly bool
				for _, c := range cookies {
					if c.Name != name {
						continue
					}
					if c.Domain == "" {
						hostOnly = true
					} else {
						scoped = true
					}
				}
				assert.True(t, scoped, "%s scoped clear", name)
				assert.True(t, hostOnly, "%s host-only clear", name)
			}
		})
	}
}

func TestSessionHandlers_Logout_OriginRejected(t *testing.T) {
	env := newTestEnv(t)
	req := withSessionCookies(newRequest(http.MethodPost, "/api/auth/logout", "https://evil.com", ""))

	rec := env.serve(req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden_origin", decodeBody(t, rec.Body)["error"])
	assert.Empty(t, responseCookies(rec))
	assert.Empty(t, env.provider.SignOutCalls())
}

func TestSessionHandlers_Logout_SlowProvider(t *testing.T) {
	env := newTestEnv(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	env.provider.SignOutFunc = func(context.Context, string) error {
		<-release
		return nil
	}

	start := time.Now()
	rec := env.serve(withSessionCookies(newRequest(http.MethodPost, "/api/auth/logout", testOrigin, "")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, responseCookies(rec), 10)
	assert.Contains(t, env.events.Kinds(), domainauth.EventUpstreamInvalidationFailed)
}

func TestSessionHandlers_DeviceToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(newRequest(http.MethodGet, "/api/auth/device-token", "", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"device_token":null}`, rec.Body.String())

	req := newRequest(http.MethodGet, "/api/auth/device-token", "", "")
	req.AddCookie(&http.Cookie{Name: domainauth.DeviceCookieName, Value: testDeviceToken})
	rec = env.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"device_token":"`+testDeviceToken+`"}`, rec.Body.String())
}

func TestSessionHandlers_CSRFToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(newRequest(http.MethodGet, "/api/auth/csrf", "", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec.Body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, domainauth.CSRFCookieName, body["cookie_name"])

	cookie := findCookie(responseCookies(rec), domainauth.CSRFCookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.False(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, int((12 * time.Hour).Seconds()), cookie.MaxAge)
	assert.Equal(t, "example.com", cookie.Domain)
}

func TestSessionHandlers_Me(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(newRequest(http.MethodGet, "/api/auth/me", "", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false,"is_admin":false,"is_superadmin":false}`, rec.Body.String())

	require.NoError(t, env.principals.Save(context.Background(), testAccessToken,
		[]byte(`{"id":"u1","platform_role":"superadmin"}`), time.Hour))
	rec = env.serve(withSessionCookies(newRequest(http.MethodGet, "/api/auth/me", "", "")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":true,"is_admin":true,"is_superadmin":true}`, rec.Body.String())
}

func TestSessionHandlers_Me_ProviderAdminFlag(t *testing.T) {
	env := newTestEnv(t)
	env.provider.Claims["provider-session-token"] = map[string]any{"sub": "p1", "is_admin": true}

	req := newRequest(http.MethodGet, "/api/auth/me", "", "")
	req.AddCookie(&http.Cookie{Name: env.provider.CookieName(), Value: "provider-session-token"})
	rec := env.serve(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":true,"is_admin":true,"is_superadmin":false}`, rec.Body.String())
}

func TestSessionHandlers_Me_WithoutIdentityService(t *testing.T) {
	env := newTestEnv(t, func(s *RouterServices) { s.Session.Identity = nil })

	rec := env.serve(withSessionCookies(newRequest(http.MethodGet, "/api/auth/me", "", "")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "true"))
}
