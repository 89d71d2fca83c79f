package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/service"
)

// maxEstablishBody bounds the session establishment payload.
const maxEstablishBody = 64 << 10

// SessionHandlers provides HTTP handlers for the session lifecycle under /api/auth.
type SessionHandlers struct {
	Sessions    *service.SessionService    // Required
	Coordinator *service.LogoutCoordinator // Required
	CSRF        *service.CSRFGuard         // Required
	Cookies     *service.CookieManager     // Required
	Identity    *service.IdentityService   // Optional: /me reports anonymous when nil

	TrustProxyHeaders bool
	Logger            *slog.Logger
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// establishRequest is the body of POST /api/auth/session. Principal is the
// first-party login backend's signed principal token. Unknown fields are ignored.
type establishRequest struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	DeviceToken  string `json:"device_token,omitempty"`
	Principal    string `json:"principal,omitempty"`
}

// Establish handles the session establishment endpoint.
// POST /api/auth/session.
func (h *SessionHandlers) Establish(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	r.Body = http.MaxBytesReader(w, r.Body, maxEstablishBody)

	var req establishRequest
	if !DecodeJSONLenient(w, r, &req) {
		return
	}

	info := readRequestInfo(r, h.TrustProxyHeaders)
	res, err := h.Sessions.Establish(r.Context(), service.EstablishInput{
		Tokens: domainauth.TokenSet{
			AccessToken:  req.AccessToken,
			RefreshToken: req.RefreshToken,
			DeviceToken:  req.DeviceToken,
		},
		PrincipalToken: req.Principal,
		Request:        info.Context,
		Origin:         info.Origin,
		RemoteAddr:     info.RemoteAddr,
	})
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}

	ApplyCookies(w, res.Cookies)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout handles the logout endpoint. It always answers 200 with the full clear set.
// POST /api/auth/logout.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	info := readRequestInfo(r, h.TrustProxyHeaders)
	res := h.Coordinator.Logout(r.Context(), service.LogoutInput{
		Session:       h.Cookies.ReadSession(r),
		ProviderToken: h.Cookies.ReadProviderSession(r),
		Request:       info.Context,
		Origin:        info.Origin,
		RemoteAddr:    info.RemoteAddr,
	})

	ApplyCookies(w, res.Cookies)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// DeviceToken exposes the device-token cookie to client script.
// GET /api/auth/device-token.
func (h *SessionHandlers) DeviceToken(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	WriteJSON(w, http.StatusOK, map[string]*string{"device_token": h.Cookies.ReadDeviceToken(r)})
}

type csrfResponse struct {
	Token      string    `json:"token"`
	CookieName string    `json:"cookie_name"`
	IssuedAt   time.Time `json:"issued_at"`
}

// CSRFToken issues a fresh anti-forgery token and its readable cookie.
// GET /api/auth/csrf.
func (h *SessionHandlers) CSRFToken(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	info := readRequestInfo(r, h.TrustProxyHeaders)
	ticket, cookie, err := h.CSRF.Issue(info.Context)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "csrf token generation failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "csrf_unavailable",
			Err:     errors.New("unable to generate csrf token"),
		})
		return
	}

	ApplyCookies(w, []domainauth.CookiePolicy{cookie})
	WriteJSON(w, http.StatusOK, csrfResponse{
		Token:      ticket.Token,
		CookieName: cookie.Name,
		IssuedAt:   ticket.IssuedAt,
	})
}

// Me reports whether the caller is authenticated and which admin privileges the
// role resolver grants.
// GET /api/auth/me.
func (h *SessionHandlers) Me(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	if h.Identity == nil {
		WriteJSON(w, http.StatusOK, service.IdentityStatus{})
		return
	}
	st := h.Identity.Status(r.Context(), service.IdentityInput{
		Session:       h.Cookies.ReadSession(r),
		ProviderToken: h.Cookies.ReadProviderSession(r),
	})
	WriteJSON(w, http.StatusOK, st)
}
