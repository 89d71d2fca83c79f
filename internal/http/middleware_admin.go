package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/mmk-sessiongate/internal/service"
)

// AdminGuard resolves the caller's identity for admin-only routes.
type AdminGuard struct {
	Identity          *service.IdentityService // Required
	Cookies           *service.CookieManager   // Required
	TrustProxyHeaders bool
	Logger            *slog.Logger // Optional
}

// RequireAdmin returns a middleware that admits admins and superadmins.
func RequireAdmin(g AdminGuard) func(http.Handler) http.Handler {
	return g.require(service.PrivilegeAdmin)
}

// RequireSuperadmin returns a middleware that admits superadmins only.
func RequireSuperadmin(g AdminGuard) func(http.Handler) http.Handler {
	return g.require(service.PrivilegeSuperadmin)
}

// require answers 401 when no session cookie is present and 403 when the role
// resolver does not grant the privilege. On success the resolved status is
// placed in the request context.
func (g AdminGuard) require(p service.Privilege) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := readRequestInfo(r, g.TrustProxyHeaders)
			st, err := g.Identity.Authorize(r.Context(), service.AuthorizeInput{
				IdentityInput: service.IdentityInput{
					Session:       g.Cookies.ReadSession(r),
					ProviderToken: g.Cookies.ReadProviderSession(r),
				},
				Required:   p,
				Request:    info.Context,
				Origin:     info.Origin,
				RemoteAddr: info.RemoteAddr,
			})
			if err != nil {
				noStore(w)
				writeServiceError(w, r, g.Logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), st)))
		})
	}
}
